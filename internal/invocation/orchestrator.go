package invocation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/turbolytics/harvester/internal/harvester"
	"github.com/turbolytics/harvester/internal/metrics"
	"github.com/turbolytics/harvester/internal/report"
	"github.com/turbolytics/harvester/internal/timestamp"
)

// Selector lists the identifiers an invocation should harvest. Both methods
// may return a partial list together with an error.
type Selector interface {
	ListAll(ctx context.Context) ([]string, error)
	ListChangedSince(ctx context.Context, watermark time.Time) ([]string, error)
}

type Runner interface {
	Harvest(ctx context.Context, ids []string) *harvester.Outcome
}

// Flusher drains buffered side effects, such as queued notifications, before
// a run is reported as finished.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Status codes for runs that did not fully succeed.
const (
	StatusPartial        = http.StatusMultiStatus
	StatusRejected       = http.StatusBadRequest
	StatusBucketFailed   = http.StatusInternalServerError
	StatusSelectorFailed = http.StatusBadGateway
)

type Option func(*Orchestrator)

func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

func WithSelector(selector Selector) Option {
	return func(o *Orchestrator) {
		o.selector = selector
	}
}

func WithRunner(runner Runner) Option {
	return func(o *Orchestrator) {
		o.runner = runner
	}
}

func WithBucket(bucket string) Option {
	return func(o *Orchestrator) {
		o.bucket = bucket
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

func WithLookback(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.lookback = d
	}
}

func WithSinks(sinks ...report.Sink) Option {
	return func(o *Orchestrator) {
		o.sinks = append(o.sinks, sinks...)
	}
}

func WithFlushers(flushers ...Flusher) Option {
	return func(o *Orchestrator) {
		o.flushers = append(o.flushers, flushers...)
	}
}

// WithLegacyStatusCodes reports 200 for every outcome, failures included.
func WithLegacyStatusCodes(enabled bool) Option {
	return func(o *Orchestrator) {
		o.legacyStatus = enabled
	}
}

// Orchestrator turns trigger parameters into one harvest run.
type Orchestrator struct {
	logger       *zap.Logger
	selector     Selector
	runner       Runner
	bucket       string
	now          func() time.Time
	lookback     time.Duration
	sinks        []report.Sink
	flushers     []Flusher
	legacyStatus bool
}

func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:   zap.NewNop(),
		now:      time.Now,
		lookback: DefaultLookback,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Result is the outcome of one invocation.
type Result struct {
	StatusCode int
	Message    string
	Report     *report.Report
}

func (r Result) Response() (Response, error) {
	return NewResponse(r.StatusCode, r.Message)
}

func (o *Orchestrator) Handle(ctx context.Context, p Params) Result {
	start := o.now()
	rep := &report.Report{
		ID:        uuid.New(),
		StartTime: start.UTC(),
		Bucket:    o.bucket,
	}
	ctx = harvester.ContextWithRunID(ctx, rep.ID.String())

	l := o.logger.With(
		zap.String("run_id", rep.ID.String()),
		zap.String("runtype", p.RunType),
		zap.String("from_date_time", p.FromDateTime),
	)

	if p.FromDateTime != "" {
		if _, err := timestamp.Normalize(p.FromDateTime); err != nil {
			l.Warn("ignoring fromDateTime", zap.Error(err))
		}
	}

	plan, err := NewPlan(p, start, o.lookback)
	rep.Mode = string(plan.Mode)
	if !plan.Watermark.IsZero() {
		watermark := plan.Watermark
		rep.Watermark = &watermark
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		l.Warn("invocation rejected", zap.Error(err))
		return o.finish(ctx, l, rep, StatusRejected, plan.Message)
	}

	l.Info("harvest started",
		zap.String("mode", string(plan.Mode)),
		zap.Time("watermark", plan.Watermark),
	)

	ids, selErr := o.selectIDs(ctx, plan)
	rep.NumSelected = len(ids)
	if selErr != nil {
		rep.SelectionError = selErr.Error()
		l.Error("catalog query failed, harvesting what was selected",
			zap.Int("num_selected", len(ids)),
			zap.Error(selErr),
		)
	}

	outcome := o.runner.Harvest(ctx, ids)
	rep.NumAttempted = outcome.Attempted
	rep.NumHarvested = outcome.Harvested
	for _, f := range outcome.Failures {
		rep.Failures = append(rep.Failures, report.Failure{
			Identifier: f.Identifier,
			Stage:      string(f.Stage),
			Error:      f.Err.Error(),
		})
	}
	if outcome.Err != nil {
		rep.BatchError = outcome.Err.Error()
	}
	rep.Completed = outcome.Err == nil

	code, message := o.compose(plan, ids, selErr, outcome)
	return o.finish(ctx, l, rep, code, message)
}

func (o *Orchestrator) selectIDs(ctx context.Context, plan Plan) ([]string, error) {
	if plan.Mode == ModeFull {
		return o.selector.ListAll(ctx)
	}
	return o.selector.ListChangedSince(ctx, plan.Watermark)
}

// compose builds the status code and message. A bucket failure outranks a
// catalog failure, which outranks item failures.
func (o *Orchestrator) compose(plan Plan, ids []string, selErr error, outcome *harvester.Outcome) (int, string) {
	switch {
	case outcome.Err != nil:
		return StatusBucketFailed, plan.Message + "... some error occurred. View logs"
	case selErr != nil:
		return StatusSelectorFailed, plan.Message + fmt.Sprintf(
			"... catalog query failed, %d record(s) harvested into %s. View logs",
			outcome.Harvested, o.bucket,
		)
	case len(outcome.Failures) > 0:
		return StatusPartial, plan.Message + fmt.Sprintf(
			"... some error occurred. View logs (%d of %d record(s) failed)",
			len(outcome.Failures), outcome.Attempted,
		)
	}
	return http.StatusOK, plan.Message + fmt.Sprintf(
		"...%d record(s) harvested into %s", len(ids), o.bucket,
	)
}

func (o *Orchestrator) finish(ctx context.Context, l *zap.Logger, rep *report.Report, code int, message string) Result {
	if o.legacyStatus {
		code = http.StatusOK
	}
	rep.EndTime = o.now().UTC()
	rep.StatusCode = code
	rep.Message = message

	metrics.Runs.WithLabelValues(rep.Mode, strconv.Itoa(code)).Inc()

	for _, sink := range o.sinks {
		if err := sink.Save(ctx, rep); err != nil {
			l.Error("could not save run report", zap.Error(err))
		}
	}

	for _, f := range o.flushers {
		if err := f.Flush(ctx); err != nil {
			l.Error("could not flush", zap.Error(err))
		}
	}

	l.Info("harvest finished",
		zap.Int("status_code", code),
		zap.String("message", message),
		zap.Duration("duration", rep.EndTime.Sub(rep.StartTime)),
	)

	return Result{
		StatusCode: code,
		Message:    message,
		Report:     rep,
	}
}
