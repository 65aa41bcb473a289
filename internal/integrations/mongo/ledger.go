package mongo

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/turbolytics/harvester/internal/report"
)

const defaultCollection = "harvest_runs"

// Ledger stores run reports as documents, one per invocation.
type Ledger struct {
	client     *mongo.Client
	database   string
	collection string
	logger     *zap.Logger
}

// ParseURI splits mongodb://host/database?collection=name into the URI
// handed to the driver, the database and the collection. The collection
// defaults to harvest_runs.
func ParseURI(uri *url.URL) (clientURI, database, collection string, err error) {
	database = strings.TrimPrefix(uri.Path, "/")
	if database == "" {
		return "", "", "", fmt.Errorf("database must be specified in URL path")
	}

	q := uri.Query()
	collection = q.Get("collection")
	if collection == "" {
		collection = defaultCollection
	}
	// collection is not a driver option
	q.Del("collection")
	clean := *uri
	clean.RawQuery = q.Encode()

	return clean.String(), database, collection, nil
}

func NewLedger(ctx context.Context, uri *url.URL, logger *zap.Logger) (*Ledger, error) {
	clientURI, database, collection, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(clientURI))
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Ledger{
		client:     client,
		database:   database,
		collection: collection,
		logger:     logger,
	}, nil
}

func (l *Ledger) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return l.client.Ping(ctx, nil)
}

func (l *Ledger) Save(ctx context.Context, r *report.Report) error {
	coll := l.client.Database(l.database).Collection(l.collection)
	if _, err := coll.InsertOne(ctx, r); err != nil {
		return err
	}

	l.logger.Debug("run report saved",
		zap.String("run_id", r.ID.String()),
		zap.String("database", l.database),
		zap.String("collection", l.collection),
	)
	return nil
}

func (l *Ledger) Close(ctx context.Context) error {
	return l.client.Disconnect(ctx)
}
