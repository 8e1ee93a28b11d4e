package middleware

import (
	"context"
	"time"

	"pgmirror/shared/application/ports"
)

func Logging(logger ports.Logger) Middleware {
	return func(next ports.Handler) ports.Handler {
		return HandlerFunc(func(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
			start := time.Now()

			logger.Info("Processing request",
				"request_id", req.ID,
				"type", req.Type,
				"source", req.Source,
				"payload_size", len(req.Payload))

			resp, err := next.Handle(ctx, req)
			duration := time.Since(start).Milliseconds()

			switch {
			case err != nil:
				logger.Error("Request failed", "request_id", req.ID, "duration_ms", duration, "error", err)
			case !resp.Success:
				logger.Info("Request completed with failure", "request_id", req.ID, "duration_ms", duration, "error", resp.Error)
			default:
				logger.Info("Request completed successfully", "request_id", req.ID, "duration_ms", duration)
			}

			return resp, err
		})
	}
}
