package geonetwork

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

var (
	ErrUnexpectedStatus  = errors.New("unexpected status")
	ErrMissingIdentifier = errors.New("metadata element has no uuid")
	ErrEmptyDocument     = errors.New("response has no root element")
)

// FetchError signals that the catalog could not be reached or its response
// could not be read. Selectors return it alongside any identifiers
// collected before the failure.
type FetchError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type Option func(*Client)

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithSearchURL sets the 'q' search endpoint used for full scans.
func WithSearchURL(u string) Option {
	return func(c *Client) {
		c.SearchURL = u
	}
}

// WithChangesURL sets the records status change endpoint used for
// incremental scans.
func WithChangesURL(u string) Option {
	return func(c *Client) {
		c.ChangesURL = u
	}
}

// WithRecordURL sets the prefix a record identifier is appended to when
// fetching its JSON document.
func WithRecordURL(u string) Option {
	return func(c *Client) {
		c.RecordURL = u
	}
}

// WithServerSideFilter passes the watermark to the change endpoint as the
// fromDateTime query parameter.
func WithServerSideFilter(enabled bool) Option {
	return func(c *Client) {
		c.ServerSideFilter = enabled
	}
}

// Client talks to a GeoNetwork catalog.
type Client struct {
	http    *http.Client
	logger  *zap.Logger
	timeout time.Duration

	SearchURL        string
	ChangesURL       string
	RecordURL        string
	ServerSideFilter bool
}

func New(opts ...Option) *Client {
	c := &Client{
		logger:  zap.NewNop(),
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	return c
}

// open issues a GET and returns the body of a 2xx response. The caller
// closes it.
func (c *Client) open(ctx context.Context, op, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Op: op, URL: url, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{Op: op, URL: url, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, &FetchError{
			Op:         op,
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        ErrUnexpectedStatus,
		}
	}
	return resp.Body, nil
}

// get is open followed by a full read of the body.
func (c *Client) get(ctx context.Context, op, url string) ([]byte, error) {
	body, err := c.open(ctx, op, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	bs, err := io.ReadAll(body)
	if err != nil {
		return nil, &FetchError{Op: op, URL: url, Err: err}
	}
	return bs, nil
}
