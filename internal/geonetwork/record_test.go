package geonetwork

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "abc" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"result":{"id":"abc"}}`))
	}))
	defer srv.Close()

	c := New(WithRecordURL(srv.URL + "/data/api/action/package_show?id="))

	body, err := c.Fetch(context.Background(), "abc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"result":{"id":"abc"}}`, string(body))

	_, err = c.Fetch(context.Background(), "missing")
	require.ErrorIs(t, err, ErrUnexpectedStatus)
}
