package report

import (
	"bytes"
	"context"
	"encoding/json"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/turbolytics/harvester/internal"
)

/*
A report is a record of what one invocation selected and harvested.
Reports are the primitive for auditing the mirror: the bucket itself only
holds the latest copy of every record.
*/

type Failure struct {
	Identifier string `json:"identifier" bson:"identifier"`
	Stage      string `json:"stage" bson:"stage"`
	Error      string `json:"error" bson:"error"`
}

type Report struct {
	ID             uuid.UUID  `json:"id" bson:"_id"`
	StartTime      time.Time  `json:"start_time" bson:"start_time"`
	EndTime        time.Time  `json:"end_time" bson:"end_time"`
	Mode           string     `json:"mode" bson:"mode"`
	Watermark      *time.Time `json:"watermark,omitempty" bson:"watermark,omitempty"`
	Bucket         string     `json:"bucket" bson:"bucket"`
	StatusCode     int        `json:"status_code" bson:"status_code"`
	Message        string     `json:"message" bson:"message"`
	NumSelected    int        `json:"num_selected" bson:"num_selected"`
	NumAttempted   int        `json:"num_attempted" bson:"num_attempted"`
	NumHarvested   int        `json:"num_harvested" bson:"num_harvested"`
	Failures       []Failure  `json:"failures,omitempty" bson:"failures,omitempty"`
	SelectionError string     `json:"selection_error,omitempty" bson:"selection_error,omitempty"`
	BatchError     string     `json:"batch_error,omitempty" bson:"batch_error,omitempty"`
	Completed      bool       `json:"completed" bson:"completed"`
}

// Sink persists reports.
type Sink interface {
	Save(ctx context.Context, r *Report) error
}

type NoopSink struct{}

func (NoopSink) Save(ctx context.Context, r *Report) error {
	return nil
}

// RepositorySink writes every report as <prefix>/<id>.json next to the
// harvested records.
type RepositorySink struct {
	repository internal.Repository
	prefix     string
	logger     *zap.Logger
}

func NewRepositorySink(repository internal.Repository, prefix string, logger *zap.Logger) *RepositorySink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RepositorySink{
		repository: repository,
		prefix:     prefix,
		logger:     logger,
	}
}

func (s *RepositorySink) Key(r *Report) string {
	return path.Join(s.prefix, r.ID.String()+".json")
}

func (s *RepositorySink) Save(ctx context.Context, r *Report) error {
	bs, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	key := s.Key(r)
	s.logger.Debug("writing run report", zap.String("key", key))
	return s.repository.Write(ctx, key, bytes.NewReader(bs))
}
