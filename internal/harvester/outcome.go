package harvester

import (
	"context"
	"fmt"
)

type Stage string

const (
	StageFetch  Stage = "fetch"
	StageUpload Stage = "upload"
)

// ItemError records why a single identifier was not harvested.
type ItemError struct {
	Identifier string
	Stage      Stage
	Err        error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Identifier, e.Err)
}

func (e ItemError) Unwrap() error {
	return e.Err
}

// Outcome is the aggregate result of one batch.
type Outcome struct {
	Attempted int
	Harvested int
	Failures  []ItemError

	// Err is set when the batch could not start, e.g. the bucket could not
	// be provisioned. No record is attempted in that case.
	Err   error
	State State
}

// Failed reports whether anything in the batch went wrong.
func (o *Outcome) Failed() bool {
	return o.Err != nil || len(o.Failures) > 0
}

type runIDKey struct{}

// ContextWithRunID tags ctx with the invocation the batch belongs to.
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
