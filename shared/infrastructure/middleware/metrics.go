package middleware

import (
	"context"
	"time"

	"pgmirror/shared/application/ports"
)

func Metrics(metrics ports.Metrics) Middleware {
	return func(next ports.Handler) ports.Handler {
		return HandlerFunc(func(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
			start := time.Now()
			tags := map[string]string{"source": req.Source}

			metrics.IncrementCounter("handler.requests", tags)
			resp, err := next.Handle(ctx, req)
			metrics.RecordHistogram("handler.duration_ms", float64(time.Since(start).Milliseconds()), tags)

			if err != nil || !resp.Success {
				metrics.IncrementCounter("handler.errors", tags)
			} else {
				metrics.IncrementCounter("handler.success", tags)
			}
			return resp, err
		})
	}
}
