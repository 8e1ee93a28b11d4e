package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"pgmirror/shared/application/ports"
)

// Validation fills the request id and timestamp and rejects payloads that
// are not JSON.
func Validation() Middleware {
	return func(next ports.Handler) ports.Handler {
		return HandlerFunc(func(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
			if req.ID == "" {
				req.ID = uuid.NewString()
			}
			if req.Timestamp.IsZero() {
				req.Timestamp = time.Now().UTC()
			}
			if req.Metadata == nil {
				req.Metadata = make(map[string]string)
			}

			if len(req.Payload) == 0 {
				return failure("request payload is required"), nil
			}
			if !json.Valid(req.Payload) {
				return failure("invalid JSON payload"), nil
			}

			return next.Handle(ctx, req)
		})
	}
}
