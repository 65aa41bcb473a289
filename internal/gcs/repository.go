package gcs

import (
	"context"
	"errors"
	"io"
	"path"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/turbolytics/harvester/internal"
)

type Option func(*Repository)

func WithLogger(l *zap.Logger) Option {
	return func(r *Repository) {
		r.logger = l
	}
}

func WithBucket(bucket string) Option {
	return func(r *Repository) {
		r.Bucket = bucket
	}
}

func WithPrefix(prefix string) Option {
	return func(r *Repository) {
		r.Prefix = prefix
	}
}

// WithLocation sets the location new buckets are created in. Empty keeps
// the provider default.
func WithLocation(location string) Option {
	return func(r *Repository) {
		r.Location = location
	}
}

func WithProjectID(projectID string) Option {
	return func(r *Repository) {
		r.ProjectID = projectID
	}
}

// WithEndpoint points the client at an emulator; requests are sent
// unauthenticated.
func WithEndpoint(endpoint string) Option {
	return func(r *Repository) {
		r.Endpoint = endpoint
	}
}

// Repository writes objects to a Google Cloud Storage bucket.
type Repository struct {
	logger *zap.Logger
	client *storage.Client

	Bucket    string
	Prefix    string
	Location  string
	ProjectID string
	Endpoint  string
}

func New(ctx context.Context, opts ...Option) (*Repository, error) {
	r := &Repository{
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(r)
	}

	var clientOpts []option.ClientOption
	if r.Endpoint != "" {
		clientOpts = append(clientOpts,
			option.WithEndpoint(r.Endpoint),
			option.WithoutAuthentication(),
		)
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, err
	}
	r.client = client
	return r, nil
}

func (r *Repository) Close() error {
	return r.client.Close()
}

func (r *Repository) EnsureBucket(ctx context.Context) error {
	l := r.logger.With(zap.String("bucket", r.Bucket))

	bucket := r.client.Bucket(r.Bucket)
	_, err := bucket.Attrs(ctx)
	if err == nil {
		l.Debug("bucket found")
		return nil
	}
	if !errors.Is(err, storage.ErrBucketNotExist) {
		l.Error("could not read bucket attributes", zap.Error(err))
		return &internal.StorageError{Op: "create bucket", Bucket: r.Bucket, Err: err}
	}

	attrs := &storage.BucketAttrs{
		Location:     r.Location,
		StorageClass: "STANDARD",
		UniformBucketLevelAccess: storage.UniformBucketLevelAccess{
			Enabled: true,
		},
	}
	if err := bucket.Create(ctx, r.ProjectID, attrs); err != nil {
		l.Error("could not create bucket", zap.Error(err))
		return &internal.StorageError{Op: "create bucket", Bucket: r.Bucket, Err: err}
	}

	l.Info("bucket created", zap.String("location", r.Location))
	return nil
}

func (r *Repository) Write(ctx context.Context, key string, reader io.Reader) error {
	objPath := path.Join(r.Prefix, key)
	r.logger.Debug("GCS repository write",
		zap.String("bucket", r.Bucket),
		zap.String("object_path", objPath),
	)

	w := r.client.Bucket(r.Bucket).Object(objPath).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := io.Copy(w, reader); err != nil {
		w.Close()
		return &internal.StorageError{Op: "write", Bucket: r.Bucket, Key: objPath, Err: err}
	}
	if err := w.Close(); err != nil {
		return &internal.StorageError{Op: "write", Bucket: r.Bucket, Key: objPath, Err: err}
	}
	return nil
}
