package geonetwork

import (
	"context"
	"net/url"
)

// Fetch returns the JSON document of a single record as served by the
// catalog. The payload is opaque and returned verbatim.
func (c *Client) Fetch(ctx context.Context, id string) ([]byte, error) {
	return c.get(ctx, "fetch record", c.RecordURL+url.PathEscape(id))
}
