package local

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/turbolytics/harvester/internal"
)

type Option func(*Repository)

// Repository mirrors a bucket as a directory: <basePath>/<bucket>/<prefix>/<key>.
type Repository struct {
	basePath string
	bucket   string
	prefix   string
	logger   *zap.Logger
}

func WithBucket(bucket string) Option {
	return func(r *Repository) {
		r.bucket = bucket
	}
}

func WithPrefix(prefix string) Option {
	return func(r *Repository) {
		r.prefix = prefix
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Repository) {
		r.logger = logger
	}
}

func New(basePath string, opts ...Option) *Repository {
	r := &Repository{
		basePath: basePath,
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repository) root() string {
	return filepath.Join(r.basePath, r.bucket)
}

func (r *Repository) EnsureBucket(ctx context.Context) error {
	if err := os.MkdirAll(r.root(), 0755); err != nil {
		return &internal.StorageError{Op: "create bucket", Bucket: r.root(), Err: err}
	}
	r.logger.Debug("bucket directory ready", zap.String("path", r.root()))
	return nil
}

func (r *Repository) Write(ctx context.Context, key string, reader io.Reader) error {
	fullPath := filepath.Join(
		r.root(),
		r.prefix,
		key,
	)
	r.logger.Debug("writing file", zap.String("path", fullPath))

	if err := r.write(fullPath, reader); err != nil {
		return &internal.StorageError{Op: "write", Bucket: r.root(), Key: key, Err: err}
	}
	return nil
}

func (r *Repository) write(fullPath string, reader io.Reader) error {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(file, reader)
	return err
}
