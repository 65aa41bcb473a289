package geonetwork

import (
	"context"
	"encoding/xml"
	"io"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

// ListAll returns every record identifier found in the catalog search
// response, in document order.
//
// On failure the identifiers read before the failure are returned together
// with a *FetchError, so callers can tell an empty catalog from one that
// could not be read.
func (c *Client) ListAll(ctx context.Context) ([]string, error) {
	l := c.logger.With(zap.String("url", c.SearchURL))

	body, err := c.open(ctx, "search", c.SearchURL)
	if err != nil {
		l.Error("could not load the catalog search, cannot complete a full load", zap.Error(err))
		return nil, err
	}
	defer body.Close()

	ids, err := parseSearch(body)
	if err != nil {
		l.Error("could not parse the catalog search",
			zap.Int("num_collected", len(ids)),
			zap.Error(err),
		)
		return ids, &FetchError{Op: "search", URL: c.SearchURL, Err: err}
	}

	l.Info("catalog search loaded", zap.Int("num_records", len(ids)))
	return ids, nil
}

// parseSearch decodes the search document as it is read and takes the text
// of the first <uuid> descendant of every <metadata> element. Elements are
// matched on their local name, so both <uuid> and <geonet:info><uuid> layouts
// work. A body without a root element is an error, never an empty catalog.
func parseSearch(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	var (
		ids       []string
		depth     int // depth inside the current <metadata>, 0 when outside
		uuidDepth int // depth of the open <uuid>, 0 when none is open
		found     bool
		sawRoot   bool
		text      strings.Builder
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			if !sawRoot {
				return ids, ErrEmptyDocument
			}
			return ids, nil
		}
		if err != nil {
			return ids, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			sawRoot = true
			if depth == 0 {
				if t.Name.Local == "metadata" {
					depth = 1
					found = false
				}
				continue
			}
			depth++
			if !found && uuidDepth == 0 && t.Name.Local == "uuid" {
				uuidDepth = depth
				text.Reset()
			}

		case xml.CharData:
			if uuidDepth != 0 {
				text.Write(t)
			}

		case xml.EndElement:
			if depth == 0 {
				continue
			}
			if uuidDepth == depth {
				uuidDepth = 0
				id := strings.TrimSpace(text.String())
				if id == "" {
					return ids, ErrMissingIdentifier
				}
				ids = append(ids, id)
				found = true
			}
			depth--
			if depth == 0 && !found {
				return ids, ErrMissingIdentifier
			}
		}
	}
}
