package middleware

import (
	"context"
	"fmt"
	"time"

	"pgmirror/shared/application/ports"
)

// Timeout bounds each request. A zero timeout disables it.
func Timeout(timeout time.Duration) Middleware {
	return func(next ports.Handler) ports.Handler {
		if timeout <= 0 {
			return next
		}
		return HandlerFunc(func(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			type result struct {
				resp ports.RuntimeResponse
				err  error
			}
			done := make(chan result, 1)

			go func() {
				defer func() {
					if r := recover(); r != nil {
						done <- result{failure("internal error"), fmt.Errorf("panic recovered: %v", r)}
					}
				}()
				resp, err := next.Handle(ctx, req)
				done <- result{resp, err}
			}()

			select {
			case res := <-done:
				return res.resp, res.err
			case <-ctx.Done():
				return failure(fmt.Sprintf("request timed out after %v", timeout)), ctx.Err()
			}
		})
	}
}
