package ports

import (
	"context"
	"encoding/json"
	"time"
)

// RuntimeRequest is what every runtime adapter hands to a Handler,
// whatever transport it came from.
type RuntimeRequest struct {
	ID        string            `json:"id"`
	Source    string            `json:"source"` // "http", "lambda", "rabbitmq", "cli"
	Type      string            `json:"type"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp time.Time         `json:"timestamp"`
}

// Unmarshal decodes the payload into v
func (r *RuntimeRequest) Unmarshal(v interface{}) error {
	return json.Unmarshal(r.Payload, v)
}

type RuntimeResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Handler processes one request. A returned error means the request may
// be retried; a response with Success=false is final.
type Handler interface {
	Handle(ctx context.Context, req RuntimeRequest) (RuntimeResponse, error)
}

// Runtime drives a Handler from a transport until ctx is done.
type Runtime interface {
	Start(ctx context.Context) error
}
