package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/turbolytics/harvester/internal"
	"github.com/turbolytics/harvester/internal/gcs"
	"github.com/turbolytics/harvester/internal/geonetwork"
	"github.com/turbolytics/harvester/internal/harvester"
	"github.com/turbolytics/harvester/internal/integrations/kafka"
	"github.com/turbolytics/harvester/internal/integrations/mongo"
	"github.com/turbolytics/harvester/internal/invocation"
	"github.com/turbolytics/harvester/internal/local"
	"github.com/turbolytics/harvester/internal/postgres"
	"github.com/turbolytics/harvester/internal/report"
	"github.com/turbolytics/harvester/internal/s3"
)

// Closer releases whatever InitializeOrchestrator opened.
type Closer func(ctx context.Context) error

type closers []func(ctx context.Context) error

func (cs closers) close(ctx context.Context) error {
	var errs []error
	for i := len(cs) - 1; i >= 0; i-- {
		if err := cs[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func InitializeRepository(ctx context.Context, c *Harvester, logger *zap.Logger) (internal.Repository, Closer, error) {
	l := logger.Named("repository")
	noop := func(context.Context) error { return nil }

	switch c.Repository.Type {
	case "s3":
		repo, err := s3.New(
			s3.WithLogger(l),
			s3.WithBucket(c.Repository.Bucket),
			s3.WithRegion(c.Repository.Region),
			s3.WithPrefix(c.Repository.Prefix),
			s3.WithEndpoint(c.Repository.Endpoint),
			s3.WithForcePathStyle(c.Repository.ForcePathStyle),
		)
		return repo, noop, err
	case "gcs":
		repo, err := gcs.New(ctx,
			gcs.WithLogger(l),
			gcs.WithBucket(c.Repository.Bucket),
			gcs.WithPrefix(c.Repository.Prefix),
			gcs.WithLocation(c.Repository.Region),
			gcs.WithProjectID(c.Repository.GCS.ProjectID),
			gcs.WithEndpoint(c.Repository.Endpoint),
		)
		if err != nil {
			return nil, noop, err
		}
		return repo, func(context.Context) error { return repo.Close() }, nil
	case "local":
		repo := local.New(c.Repository.Local.Path,
			local.WithLogger(l),
			local.WithBucket(c.Repository.Bucket),
			local.WithPrefix(c.Repository.Prefix),
		)
		return repo, noop, nil
	}
	return nil, noop, fmt.Errorf("unsupported repository type: %q", c.Repository.Type)
}

func initializeSink(ctx context.Context, c *Harvester, repo internal.Repository, logger *zap.Logger) (report.Sink, Closer, error) {
	l := logger.Named("report")
	noop := func(context.Context) error { return nil }

	switch c.Report.Type {
	case "", "none":
		return report.NoopSink{}, noop, nil
	case "repository":
		return report.NewRepositorySink(repo, c.Report.Prefix, l), noop, nil
	case "postgres":
		ledger, err := postgres.Connect(ctx, c.Report.ConnectionString, postgres.WithLogger(l))
		if err != nil {
			return nil, noop, err
		}
		return ledger, ledger.Close, nil
	case "mongo":
		u, err := url.Parse(c.Report.ConnectionString)
		if err != nil {
			return nil, noop, err
		}
		ledger, err := mongo.NewLedger(ctx, u, l)
		if err != nil {
			return nil, noop, err
		}
		if err := ledger.Ping(ctx); err != nil {
			ledger.Close(ctx)
			return nil, noop, err
		}
		return ledger, ledger.Close, nil
	}
	return nil, noop, fmt.Errorf("unsupported report type: %q", c.Report.Type)
}

type flushingNotifier interface {
	harvester.Notifier
	invocation.Flusher
}

type noopNotifier struct {
	harvester.NoopNotifier
}

func (noopNotifier) Flush(ctx context.Context) error {
	return nil
}

func initializeNotifier(ctx context.Context, c *Harvester, logger *zap.Logger) (flushingNotifier, Closer, error) {
	noop := func(context.Context) error { return nil }
	if c.Notify.KafkaURL == "" {
		return noopNotifier{}, noop, nil
	}

	u, err := url.Parse(c.Notify.KafkaURL)
	if err != nil {
		return nil, noop, err
	}
	kn, err := kafka.NewNotifier(u, logger.Named("notifier"))
	if err != nil {
		return nil, noop, err
	}
	if err := kn.Connect(ctx); err != nil {
		return nil, noop, err
	}
	return kn, kn.Close, nil
}

// InitializeOrchestrator builds the catalog client, repository, harvester,
// notifier and report sink described by c.
func InitializeOrchestrator(ctx context.Context, c *Harvester, logger *zap.Logger) (*invocation.Orchestrator, Closer, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	var cs closers
	fail := func(err error) (*invocation.Orchestrator, Closer, error) {
		cs.close(ctx)
		return nil, nil, err
	}

	client := geonetwork.New(
		geonetwork.WithLogger(logger.Named("geonetwork")),
		geonetwork.WithTimeout(c.Catalog.Timeout),
		geonetwork.WithSearchURL(c.Catalog.SearchURL()),
		geonetwork.WithChangesURL(c.Catalog.ChangesURL()),
		geonetwork.WithRecordURL(c.Catalog.RecordURLPrefix()),
		geonetwork.WithServerSideFilter(c.Catalog.ServerSideFilter),
	)

	repo, closeRepo, err := InitializeRepository(ctx, c, logger)
	if err != nil {
		return fail(err)
	}
	cs = append(cs, closeRepo)

	notifier, closeNotifier, err := initializeNotifier(ctx, c, logger)
	if err != nil {
		return fail(err)
	}
	cs = append(cs, closeNotifier)

	sink, closeSink, err := initializeSink(ctx, c, repo, logger)
	if err != nil {
		return fail(err)
	}
	cs = append(cs, closeSink)

	h := harvester.New(
		harvester.WithLogger(logger.Named("harvester")),
		harvester.WithFetcher(client),
		harvester.WithRepository(repo),
		harvester.WithNotifier(notifier),
		harvester.WithBucket(c.Repository.Bucket),
	)

	o := invocation.New(
		invocation.WithLogger(logger.Named("invocation")),
		invocation.WithSelector(client),
		invocation.WithRunner(h),
		invocation.WithBucket(c.Repository.Bucket),
		invocation.WithLookback(c.Harvest.DefaultLookback),
		invocation.WithSinks(sink),
		invocation.WithFlushers(notifier),
		invocation.WithLegacyStatusCodes(c.Response.LegacyStatusCodes),
	)

	return o, cs.close, nil
}
