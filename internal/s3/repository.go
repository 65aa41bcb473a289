package s3

import (
	"context"
	"errors"
	"io"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"go.uber.org/zap"

	"github.com/turbolytics/harvester/internal"
)

// DefaultRegion is where buckets land when no region is configured.
const DefaultRegion = "us-east-1"

type Repository struct {
	logger   *zap.Logger
	client   s3iface.S3API
	uploader *s3manager.Uploader

	Endpoint       string
	Region         string
	Bucket         string
	Prefix         string
	ForcePathStyle bool
}

func New(opts ...Option) (*Repository, error) {
	r := &Repository{
		logger: zap.NewNop(),
	}

	for _, o := range opts {
		o(r)
	}

	if r.client == nil {
		region := r.Region
		if region == "" {
			region = DefaultRegion
		}
		awsConfig := &aws.Config{
			Region:           aws.String(region),
			S3ForcePathStyle: aws.Bool(r.ForcePathStyle),
		}
		if r.Endpoint != "" {
			awsConfig.Endpoint = aws.String(r.Endpoint)
		}

		sess, err := session.NewSession(awsConfig)
		if err != nil {
			return nil, err
		}
		r.client = s3.New(sess)
	}

	r.uploader = s3manager.NewUploaderWithClient(r.client)
	return r, nil
}

// EnsureBucket creates the bucket. A failed create is only tolerated when
// the bucket is confirmed to exist already.
func (r *Repository) EnsureBucket(ctx context.Context) error {
	l := r.logger.With(
		zap.String("bucket", r.Bucket),
		zap.String("region", r.Region),
	)

	input := &s3.CreateBucketInput{
		Bucket: aws.String(r.Bucket),
	}
	// us-east-1 is the one region S3 rejects as an explicit constraint.
	if r.Region != "" && r.Region != DefaultRegion {
		input.CreateBucketConfiguration = &s3.CreateBucketConfiguration{
			LocationConstraint: aws.String(r.Region),
		}
	}

	_, err := r.client.CreateBucketWithContext(ctx, input)
	if err == nil {
		l.Info("bucket created")
		return nil
	}

	var aerr awserr.Error
	if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeBucketAlreadyOwnedByYou {
		l.Debug("bucket already owned by caller")
		return nil
	}

	if _, herr := r.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(r.Bucket),
	}); herr == nil {
		l.Warn("bucket create failed but bucket exists", zap.Error(err))
		return nil
	}

	l.Error("could not create bucket", zap.Error(err))
	return &internal.StorageError{Op: "create bucket", Bucket: r.Bucket, Err: err}
}

func (r *Repository) Write(ctx context.Context, key string, reader io.Reader) error {
	objPath := path.Join(r.Prefix, key)

	r.logger.Debug(
		"S3 repository write",
		zap.String("key", key),
		zap.String("prefix", r.Prefix),
		zap.String("object_path", objPath),
		zap.String("bucket", r.Bucket),
	)

	// A bytes.Reader is an io.ReadSeeker, which lets the uploader skip
	// buffering for single part uploads.
	_, err := r.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(r.Bucket),
		Key:         aws.String(objPath),
		Body:        reader,
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return &internal.StorageError{Op: "write", Bucket: r.Bucket, Key: objPath, Err: err}
	}
	return nil
}
