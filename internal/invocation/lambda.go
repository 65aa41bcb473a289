package invocation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"
)

// ParseEvent reads the parameters from an API Gateway proxy request or a
// scheduled event. A body holding a JSON object is treated as the real event,
// which is how local test payloads arrive.
func ParseEvent(raw json.RawMessage) (Params, error) {
	var req events.APIGatewayProxyRequest
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &req); err != nil {
			return Params{}, fmt.Errorf("decoding event: %w", err)
		}
	}

	if req.Body != "" {
		var inner events.APIGatewayProxyRequest
		if err := json.Unmarshal([]byte(req.Body), &inner); err == nil {
			req = inner
		}
	}

	return Params{
		RunType:      req.QueryStringParameters["runtype"],
		FromDateTime: req.QueryStringParameters["fromDateTime"],
	}, nil
}

type LambdaHandler struct {
	orchestrator *Orchestrator
	logger       *zap.Logger
}

func NewLambdaHandler(o *Orchestrator, logger *zap.Logger) *LambdaHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LambdaHandler{
		orchestrator: o,
		logger:       logger,
	}
}

// Invoke is the function entrypoint registered with lambda.Start.
func (h *LambdaHandler) Invoke(ctx context.Context, raw json.RawMessage) (Response, error) {
	h.logger.Debug("event received", zap.ByteString("event", raw))

	params, err := ParseEvent(raw)
	if err != nil {
		h.logger.Warn("could not parse event", zap.Error(err))
		return NewResponse(StatusRejected, "Could not parse event")
	}

	return h.orchestrator.Handle(ctx, params).Response()
}
