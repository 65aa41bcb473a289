package invocation

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Response is the envelope returned to every trigger.
type Response struct {
	StatusCode string            `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

type Body struct {
	StatusCode string `json:"statusCode"`
	Message    string `json:"message"`
}

func NewResponse(statusCode int, message string) (Response, error) {
	code := strconv.Itoa(statusCode)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(Body{StatusCode: code, Message: message}); err != nil {
		return Response{}, err
	}

	return Response{
		StatusCode: code,
		Headers:    map[string]string{"Content-type": "application/json"},
		Body:       string(bytes.TrimRight(buf.Bytes(), "\n")),
	}, nil
}
