package harvester

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turbolytics/harvester/internal"
	"github.com/turbolytics/harvester/internal/local"
)

type fakeFetcher struct {
	failing map[string]bool
	calls   []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, id string) ([]byte, error) {
	f.calls = append(f.calls, id)
	if f.failing[id] {
		return nil, errors.New("connection reset")
	}
	return []byte(`{"uuid":"` + id + `"}`), nil
}

type fakeRepository struct {
	ensureErr error
	failing   map[string]bool
	objects   map[string]string
}

func (r *fakeRepository) EnsureBucket(ctx context.Context) error {
	return r.ensureErr
}

func (r *fakeRepository) Write(ctx context.Context, key string, reader io.Reader) error {
	if r.failing[key] {
		return &internal.StorageError{Op: "write", Bucket: "hnap", Key: key, Err: errors.New("slow down")}
	}
	bs, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	if r.objects == nil {
		r.objects = map[string]string{}
	}
	r.objects[key] = string(bs)
	return nil
}

type recordingNotifier struct {
	events []Event
	err    error
}

func (n *recordingNotifier) Notify(ctx context.Context, event Event) error {
	n.events = append(n.events, event)
	return n.err
}

func TestHarvesterProvisioningFailure(t *testing.T) {
	fetcher := &fakeFetcher{}
	repo := &fakeRepository{
		ensureErr: &internal.StorageError{Op: "create bucket", Bucket: "hnap", Err: errors.New("denied")},
	}

	h := New(WithFetcher(fetcher), WithRepository(repo), WithBucket("hnap"))
	outcome := h.Harvest(context.Background(), []string{"a", "b", "c"})

	assert.Empty(t, fetcher.calls)
	assert.True(t, outcome.Failed())
	assert.Equal(t, StateFailed, outcome.State)
	assert.Equal(t, 0, outcome.Attempted)
	assert.Equal(t, 0, outcome.Harvested)

	var storageErr *internal.StorageError
	require.True(t, errors.As(outcome.Err, &storageErr))
	assert.Equal(t, "create bucket", storageErr.Op)
}

func TestHarvesterPartialFailures(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	fetcher := &fakeFetcher{failing: map[string]bool{"b": true, "d": true}}
	repo := &fakeRepository{failing: map[string]bool{"e.json": true}}

	h := New(WithFetcher(fetcher), WithRepository(repo))
	outcome := h.Harvest(context.Background(), ids)

	assert.Equal(t, ids, fetcher.calls)
	assert.Equal(t, 5, outcome.Attempted)
	assert.Equal(t, 2, outcome.Harvested)
	assert.True(t, outcome.Failed())
	assert.NoError(t, outcome.Err)
	assert.Equal(t, StateComplete, outcome.State)

	require.Len(t, outcome.Failures, 3)
	assert.Equal(t, ItemError{Identifier: "b", Stage: StageFetch, Err: outcome.Failures[0].Err}, outcome.Failures[0])
	assert.Equal(t, "d", outcome.Failures[1].Identifier)
	assert.Equal(t, StageUpload, outcome.Failures[2].Stage)
	assert.Equal(t, "e", outcome.Failures[2].Identifier)

	assert.Equal(t, map[string]string{
		"a.json": `{"uuid":"a"}`,
		"c.json": `{"uuid":"c"}`,
	}, repo.objects)
}

func TestHarvesterLocalRepository(t *testing.T) {
	dir := t.TempDir()
	notifier := &recordingNotifier{err: errors.New("broker down")}

	h := New(
		WithFetcher(&fakeFetcher{}),
		WithRepository(local.New(dir, local.WithBucket("hnap"))),
		WithNotifier(notifier),
		WithBucket("hnap"),
	)

	ctx := ContextWithRunID(context.Background(), "run-1")
	outcome := h.Harvest(ctx, []string{"abc", "abc"})

	assert.False(t, outcome.Failed())
	assert.Equal(t, 2, outcome.Harvested)

	bs, err := os.ReadFile(filepath.Join(dir, "hnap", "abc.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"uuid":"abc"}`, string(bs))

	require.Len(t, notifier.events, 2)
	assert.Equal(t, "run-1", notifier.events[0].RunID)
	assert.Equal(t, "abc.json", notifier.events[0].Key)
	assert.Equal(t, "hnap", notifier.events[0].Bucket)
}

func TestHarvesterEmptySelection(t *testing.T) {
	repo := &fakeRepository{}
	outcome := New(WithFetcher(&fakeFetcher{}), WithRepository(repo)).Harvest(context.Background(), nil)

	assert.False(t, outcome.Failed())
	assert.Equal(t, StateComplete, outcome.State)
	assert.Equal(t, 0, outcome.Harvested)
}
