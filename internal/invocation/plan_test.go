package invocation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlan(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 30, 45, 500, time.UTC)

	testCases := []struct {
		name      string
		params    Params
		mode      Mode
		watermark time.Time
		message   string
		rejected  bool
	}{
		{
			name:     "runtype_and_valid_from_rejected",
			params:   Params{RunType: "full", FromDateTime: "2024-01-01T00:00:00Z"},
			mode:     ModeRejected,
			message:  "Cannot use runtype and fromDateTime together",
			rejected: true,
		},
		{
			name:     "any_runtype_with_valid_from_rejected",
			params:   Params{RunType: "partial", FromDateTime: "2024-01-01T00:00:00+00:00"},
			mode:     ModeRejected,
			message:  "Cannot use runtype and fromDateTime together",
			rejected: true,
		},
		{
			name:    "full",
			params:  Params{RunType: "full"},
			mode:    ModeFull,
			message: "Reloading all JSON records...",
		},
		{
			name:    "full_with_invalid_from",
			params:  Params{RunType: "full", FromDateTime: "yesterday"},
			mode:    ModeFull,
			message: "Reloading all JSON records...",
		},
		{
			name:      "since",
			params:    Params{FromDateTime: "2024-05-01T00:00:00Z"},
			mode:      ModeSince,
			watermark: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			message:   "Reloading JSON records from: 2024-05-01T00:00:00Z...",
		},
		{
			name:      "since_with_offset",
			params:    Params{FromDateTime: "2024-05-01T02:00:00+02:00"},
			mode:      ModeSince,
			watermark: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			message:   "Reloading JSON records from: 2024-05-01T02:00:00+02:00...",
		},
		{
			name:      "unknown_runtype_falls_back_to_default",
			params:    Params{RunType: "partial"},
			mode:      ModeDefault,
			watermark: time.Date(2024, 6, 1, 12, 19, 45, 0, time.UTC),
			message:   "Default setting. Harvesting JSON records from: 2024-06-01T12:19:45Z...",
		},
		{
			name:      "invalid_from_falls_back_to_default",
			params:    Params{FromDateTime: "2024-05-01T00:00:00"},
			mode:      ModeDefault,
			watermark: time.Date(2024, 6, 1, 12, 19, 45, 0, time.UTC),
			message:   "Default setting. Harvesting JSON records from: 2024-06-01T12:19:45Z...",
		},
		{
			name:      "no_params",
			mode:      ModeDefault,
			watermark: time.Date(2024, 6, 1, 12, 19, 45, 0, time.UTC),
			message:   "Default setting. Harvesting JSON records from: 2024-06-01T12:19:45Z...",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := NewPlan(tc.params, now, DefaultLookback)
			if tc.rejected {
				var verr *ValidationError
				require.True(t, errors.As(err, &verr))
				assert.Equal(t, tc.params, verr.Params)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.mode, plan.Mode)
			assert.True(t, tc.watermark.Equal(plan.Watermark), "watermark %s", plan.Watermark)
			assert.Equal(t, tc.message, plan.Message)
		})
	}
}
