package invocation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResponse(t *testing.T) {
	resp, err := NewResponse(200, "Reloading all JSON records......2 record(s) harvested into hnap<&>")
	require.NoError(t, err)

	assert.Equal(t, "200", resp.StatusCode)
	assert.Equal(t, map[string]string{"Content-type": "application/json"}, resp.Headers)
	assert.Equal(t, `{
    "statusCode": "200",
    "message": "Reloading all JSON records......2 record(s) harvested into hnap<&>"
}`, resp.Body)

	var body Body
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
	assert.Equal(t, "200", body.StatusCode)

	bs, err := json.Marshal(resp)
	require.NoError(t, err)
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(bs, &envelope))
	assert.Equal(t, "200", envelope["statusCode"])
	assert.Contains(t, envelope, "headers")
	assert.Contains(t, envelope, "body")
}
