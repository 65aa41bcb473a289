package harvester

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/turbolytics/harvester/internal"
	"github.com/turbolytics/harvester/internal/metrics"
)

// Fetcher returns the JSON document of a catalog record.
type Fetcher interface {
	Fetch(ctx context.Context, id string) ([]byte, error)
}

// Event announces a record that was written to the bucket.
type Event struct {
	RunID       string    `json:"run_id"`
	Identifier  string    `json:"identifier"`
	Bucket      string    `json:"bucket"`
	Key         string    `json:"key"`
	HarvestedAt time.Time `json:"harvested_at"`
}

type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

type NoopNotifier struct{}

func (n NoopNotifier) Notify(ctx context.Context, event Event) error {
	return nil
}

type Option func(*Harvester)

func WithLogger(logger *zap.Logger) Option {
	return func(h *Harvester) {
		h.logger = logger
	}
}

func WithFetcher(fetcher Fetcher) Option {
	return func(h *Harvester) {
		h.fetcher = fetcher
	}
}

func WithRepository(repository internal.Repository) Option {
	return func(h *Harvester) {
		h.repository = repository
	}
}

func WithNotifier(notifier Notifier) Option {
	return func(h *Harvester) {
		h.notifier = notifier
	}
}

// WithBucket names the destination bucket in logs and events.
func WithBucket(bucket string) Option {
	return func(h *Harvester) {
		h.bucket = bucket
	}
}

// Harvester copies catalog records into a repository, one at a time.
type Harvester struct {
	logger     *zap.Logger
	fetcher    Fetcher
	repository internal.Repository
	notifier   Notifier
	bucket     string
	now        func() time.Time
}

func New(opts ...Option) *Harvester {
	h := &Harvester{
		logger:   zap.NewNop(),
		notifier: NoopNotifier{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Harvest provisions the bucket once, then fetches and uploads every
// identifier in order. Item failures are collected and never stop the batch;
// there are no retries.
func (h *Harvester) Harvest(ctx context.Context, ids []string) *Outcome {
	l := h.logger.With(
		zap.String("run_id", RunIDFromContext(ctx)),
		zap.String("bucket", h.bucket),
	)
	state := NewFSM(FSMWithLogger(l.Named("fsm")))
	outcome := &Outcome{}

	state.Transition(StateProvisioning)
	if err := h.repository.EnsureBucket(ctx); err != nil {
		state.Transition(StateFailed)
		l.Error("could not create bucket, no records harvested",
			zap.Int("num_selected", len(ids)),
			zap.Error(err),
		)
		outcome.Err = err
		outcome.State = state.Current()
		return outcome
	}

	state.Transition(StateHarvesting)
	for _, id := range ids {
		outcome.Attempted++
		if err := h.harvest(ctx, id); err != nil {
			l.Error("could not harvest record",
				zap.String("uuid", id),
				zap.String("stage", string(err.Stage)),
				zap.Error(err.Err),
			)
			metrics.RecordFailures.WithLabelValues(string(err.Stage)).Inc()
			outcome.Failures = append(outcome.Failures, *err)
			continue
		}
		metrics.RecordsHarvested.Inc()
		outcome.Harvested++
	}
	state.Transition(StateComplete)
	outcome.State = state.Current()

	l.Info("uploaded records",
		zap.Int("num_attempted", outcome.Attempted),
		zap.Int("num_harvested", outcome.Harvested),
		zap.Int("num_failed", len(outcome.Failures)),
	)
	return outcome
}

func (h *Harvester) harvest(ctx context.Context, id string) *ItemError {
	body, err := h.fetcher.Fetch(ctx, id)
	if err != nil {
		return &ItemError{Identifier: id, Stage: StageFetch, Err: err}
	}

	record := internal.NewRecord(id, body)
	if err := h.repository.Write(ctx, record.Key(), record.Reader()); err != nil {
		return &ItemError{Identifier: id, Stage: StageUpload, Err: err}
	}

	h.logger.Debug("record harvested",
		zap.String("uuid", id),
		zap.String("key", record.Key()),
		zap.Int("bytes", record.Len()),
	)

	event := Event{
		RunID:       RunIDFromContext(ctx),
		Identifier:  id,
		Bucket:      h.bucket,
		Key:         record.Key(),
		HarvestedAt: h.now().UTC(),
	}
	if err := h.notifier.Notify(ctx, event); err != nil {
		h.logger.Warn("could not publish harvest event",
			zap.String("uuid", id),
			zap.Error(err),
		)
	}
	return nil
}
