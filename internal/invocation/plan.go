package invocation

import (
	"time"

	"github.com/turbolytics/harvester/internal/timestamp"
)

// DefaultLookback is how far back an invocation without parameters looks.
// It overlaps a 10 minute schedule by one minute.
const DefaultLookback = 11 * time.Minute

const RunTypeFull = "full"

// Params are the trigger's query string parameters.
type Params struct {
	RunType      string `json:"runtype"`
	FromDateTime string `json:"fromDateTime"`
}

type Mode string

const (
	ModeRejected Mode = "rejected"
	ModeFull     Mode = "full"
	ModeSince    Mode = "since"
	ModeDefault  Mode = "default"
)

// ValidationError is returned when the parameters cannot be combined.
type ValidationError struct {
	Params Params
}

func (e *ValidationError) Error() string {
	return "Cannot use runtype and fromDateTime together"
}

// Plan is what an invocation will select, and the message prefix it reports.
type Plan struct {
	Mode      Mode
	Watermark time.Time
	Message   string
}

// NewPlan decides the selection mode. An invalid fromDateTime counts as
// absent. A runtype other than "full" is ignored unless fromDateTime is valid,
// in which case the pair is rejected.
func NewPlan(p Params, now time.Time, lookback time.Duration) (Plan, error) {
	from, err := timestamp.Normalize(p.FromDateTime)
	hasFrom := err == nil

	switch {
	case p.RunType != "" && hasFrom:
		verr := &ValidationError{Params: p}
		return Plan{Mode: ModeRejected, Message: verr.Error()}, verr
	case p.RunType == RunTypeFull:
		return Plan{
			Mode:    ModeFull,
			Message: "Reloading all JSON records...",
		}, nil
	case hasFrom:
		return Plan{
			Mode:      ModeSince,
			Watermark: from,
			Message:   "Reloading JSON records from: " + p.FromDateTime + "...",
		}, nil
	}

	// second precision, matching the rendered watermark
	watermark := now.UTC().Add(-lookback).Truncate(time.Second)
	return Plan{
		Mode:      ModeDefault,
		Watermark: watermark,
		Message:   "Default setting. Harvesting JSON records from: " + timestamp.Format(watermark) + "...",
	}, nil
}
