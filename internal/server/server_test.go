package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turbolytics/harvester/internal/harvester"
	"github.com/turbolytics/harvester/internal/invocation"
)

type stubSelector struct {
	ids []string
}

func (s stubSelector) ListAll(ctx context.Context) ([]string, error) {
	return s.ids, nil
}

func (s stubSelector) ListChangedSince(ctx context.Context, watermark time.Time) ([]string, error) {
	return nil, nil
}

type stubRunner struct{}

func (stubRunner) Harvest(ctx context.Context, ids []string) *harvester.Outcome {
	return &harvester.Outcome{Attempted: len(ids), Harvested: len(ids), State: harvester.StateComplete}
}

func newTestServer(t *testing.T) *httptest.Server {
	o := invocation.New(
		invocation.WithSelector(stubSelector{ids: []string{"a", "b"}}),
		invocation.WithRunner(stubRunner{}),
		invocation.WithBucket("hnap"),
	)
	ts := httptest.NewServer(New(o, nil).Routes())
	t.Cleanup(ts.Close)
	return ts
}

func TestServer_Harvest(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/harvest?runtype=full")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body invocation.Body
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "200", body.StatusCode)
	assert.Equal(t, "Reloading all JSON records......2 record(s) harvested into hnap", body.Message)
}

func TestServer_HarvestRejected(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/harvest?runtype=full&fromDateTime=2024-01-01T00:00:00Z", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body invocation.Body
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Cannot use runtype and fromDateTime together", body.Message)
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	var info HealthInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	resp.Body.Close()
	assert.Equal(t, "ok", info.Status)
	assert.Nil(t, info.LastRun)

	resp, err = http.Get(ts.URL + "/harvest?runtype=full")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	info = HealthInfo{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	require.NotNil(t, info.LastRun)
	assert.Equal(t, "full", info.LastRun.Mode)
	assert.Equal(t, 2, info.LastRun.NumHarvested)
}

func TestServer_Metrics(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/harvest?runtype=full")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
