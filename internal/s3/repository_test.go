package s3

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turbolytics/harvester/internal"
)

type fakeS3 struct {
	s3iface.S3API

	createErr error
	headErr   error

	created []*s3.CreateBucketInput
	heads   int
}

func (f *fakeS3) CreateBucketWithContext(ctx aws.Context, in *s3.CreateBucketInput, opts ...request.Option) (*s3.CreateBucketOutput, error) {
	f.created = append(f.created, in)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeS3) HeadBucketWithContext(ctx aws.Context, in *s3.HeadBucketInput, opts ...request.Option) (*s3.HeadBucketOutput, error) {
	f.heads++
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func TestRepositoryEnsureBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("default region has no location constraint", func(t *testing.T) {
		fake := &fakeS3{}
		r, err := New(WithClient(fake), WithBucket("hnap"))
		require.NoError(t, err)

		require.NoError(t, r.EnsureBucket(ctx))
		require.Len(t, fake.created, 1)
		assert.Equal(t, "hnap", aws.StringValue(fake.created[0].Bucket))
		assert.Nil(t, fake.created[0].CreateBucketConfiguration)
	})

	t.Run("explicit region", func(t *testing.T) {
		fake := &fakeS3{}
		r, err := New(WithClient(fake), WithBucket("hnap"), WithRegion("ca-central-1"))
		require.NoError(t, err)

		require.NoError(t, r.EnsureBucket(ctx))
		require.NotNil(t, fake.created[0].CreateBucketConfiguration)
		assert.Equal(t, "ca-central-1", aws.StringValue(fake.created[0].CreateBucketConfiguration.LocationConstraint))
	})

	t.Run("already owned by caller", func(t *testing.T) {
		fake := &fakeS3{
			createErr: awserr.New(s3.ErrCodeBucketAlreadyOwnedByYou, "owned", nil),
			headErr:   errors.New("should not be called"),
		}
		r, err := New(WithClient(fake), WithBucket("hnap"))
		require.NoError(t, err)

		require.NoError(t, r.EnsureBucket(ctx))
		assert.Equal(t, 0, fake.heads)
	})

	t.Run("create denied but bucket exists", func(t *testing.T) {
		fake := &fakeS3{
			createErr: awserr.New("AccessDenied", "denied", nil),
		}
		r, err := New(WithClient(fake), WithBucket("hnap"))
		require.NoError(t, err)

		require.NoError(t, r.EnsureBucket(ctx))
		assert.Equal(t, 1, fake.heads)
	})

	t.Run("bucket owned by someone else", func(t *testing.T) {
		fake := &fakeS3{
			createErr: awserr.New(s3.ErrCodeBucketAlreadyExists, "taken", nil),
			headErr:   awserr.New("Forbidden", "forbidden", nil),
		}
		r, err := New(WithClient(fake), WithBucket("hnap"))
		require.NoError(t, err)

		err = r.EnsureBucket(ctx)
		require.Error(t, err)

		var storageErr *internal.StorageError
		require.True(t, errors.As(err, &storageErr))
		assert.Equal(t, "create bucket", storageErr.Op)
		assert.Equal(t, "hnap", storageErr.Bucket)
	})
}
