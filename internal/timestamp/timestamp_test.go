package timestamp

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	want := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	testCases := []struct {
		name  string
		value string
		want  time.Time
	}{
		{"zulu", "2024-06-01T00:00:00Z", want},
		{"explicit utc offset", "2024-06-01T00:00:00+00:00", want},
		{"offset without colon", "2024-06-01T00:00:00+0000", want},
		{"space separator", "2024-06-01 00:00:00Z", want},
		{"fractional seconds", "2024-06-01T00:00:00.250Z", want.Add(250 * time.Millisecond)},
		{"non utc offset", "2024-06-01T02:00:00+02:00", want},
		{"minute precision zulu", "2024-06-01T00:00Z", want},
		{"minute precision offset", "2024-06-01T00:00+00:00", want},
		{"hour only offset", "2024-06-01T00:00:00+00", want},
		{"negative hour only offset", "2024-05-31T19:00:00-05", want},
		{"hour precision", "2024-06-01T00Z", want},
		{"basic format", "20240601T000000Z", want},
		{"basic format minutes with offset", "20240601T0200+0200", want},
		{"comma fraction", "2024-06-01T00:00:00,5Z", want.Add(500 * time.Millisecond)},
		{"microseconds", "2024-06-01T00:00:00.123456Z", want.Add(123456 * time.Microsecond)},
		{"offset with seconds", "2024-06-01T01:00:00+01:00:00", want},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.value)
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
			assert.True(t, Valid(tc.value))
		})
	}
}

func TestNormalizeRejects(t *testing.T) {
	for _, value := range []string{
		"",
		"yesterday",
		"2024-06-01",
		"2024-06-01T00:00:00",
		"2024-06-01T00:00",
		"20240601T000000",
		"2024-06-01T00:00:00+",
		"2024-13-01T00:00:00Z",
		"2024-06-01T00:00:00ZZ",
		" 2024-06-01T00:00:00Z",
		"06/01/2024 00:00:00Z",
	} {
		t.Run(value, func(t *testing.T) {
			_, err := Normalize(value)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))

			var tsErr *Error
			require.True(t, errors.As(err, &tsErr))
			assert.Equal(t, value, tsErr.Value)
			assert.False(t, Valid(value))
		})
	}
}

func TestFormat(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 11, 12, 999, time.FixedZone("EST", -5*60*60))
	assert.Equal(t, "2024-05-01T15:11:12Z", Format(ts))

	roundTrip, err := Normalize(Format(ts))
	require.NoError(t, err)
	assert.True(t, ts.Truncate(time.Second).Equal(roundTrip))
}
