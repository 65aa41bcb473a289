package geonetwork

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/turbolytics/harvester/internal/timestamp"
	"go.uber.org/zap"
)

var ErrMissingRecords = errors.New("change feed has no records array")

// Change is one entry of the records status change feed.
type Change struct {
	UUID             string `json:"uuid"`
	LastModifiedTime string `json:"lastModifiedTime"`
}

type ChangeFeed struct {
	Records []Change `json:"records"`
}

// ListChangedSince returns the identifiers of records modified at or after
// watermark. It follows the same partial-result policy as ListAll.
func (c *Client) ListChangedSince(ctx context.Context, watermark time.Time) ([]string, error) {
	u, err := c.changesURL(watermark)
	if err != nil {
		return nil, &FetchError{Op: "changes", URL: c.ChangesURL, Err: err}
	}

	l := c.logger.With(
		zap.String("url", u),
		zap.String("from_date_time", timestamp.Format(watermark)),
	)

	bs, err := c.get(ctx, "changes", u)
	if err != nil {
		l.Error("could not load the catalog change feed", zap.Error(err))
		return nil, err
	}

	var feed ChangeFeed
	if err := json.Unmarshal(bs, &feed); err != nil {
		l.Error("could not parse the catalog change feed", zap.Error(err))
		return nil, &FetchError{Op: "changes", URL: u, Err: err}
	}
	if feed.Records == nil {
		l.Error("could not parse the catalog change feed", zap.Error(ErrMissingRecords))
		return nil, &FetchError{Op: "changes", URL: u, Err: ErrMissingRecords}
	}

	ids := SelectChanged(feed.Records, watermark, l)
	l.Info("records to harvest",
		zap.Int("num_changes", len(feed.Records)),
		zap.Int("num_records", len(ids)),
	)
	return ids, nil
}

// SelectChanged keeps the entries whose lastModifiedTime is >= watermark.
// Entries with an empty uuid or an unparseable timestamp are skipped.
// Duplicates are kept.
func SelectChanged(changes []Change, watermark time.Time, l *zap.Logger) []string {
	if l == nil {
		l = zap.NewNop()
	}

	ids := make([]string, 0, len(changes))
	for _, change := range changes {
		id := strings.TrimSpace(change.UUID)
		if id == "" {
			l.Debug("skipping change without uuid",
				zap.String("last_modified_time", change.LastModifiedTime),
				zap.Error(ErrMissingIdentifier),
			)
			continue
		}
		modified, err := timestamp.Normalize(change.LastModifiedTime)
		if err != nil {
			l.Debug("skipping change with invalid lastModifiedTime",
				zap.String("uuid", change.UUID),
				zap.Error(err),
			)
			continue
		}
		if modified.Before(watermark) {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (c *Client) changesURL(watermark time.Time) (string, error) {
	if !c.ServerSideFilter {
		return c.ChangesURL, nil
	}
	u, err := url.Parse(c.ChangesURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("fromDateTime", timestamp.Format(watermark))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
