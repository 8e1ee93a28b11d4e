package middleware

import (
	"context"
	"fmt"
	"runtime/debug"

	"pgmirror/shared/application/ports"
)

// Recovery turns a handler panic into an error so the runtime keeps serving
func Recovery(logger ports.Logger) Middleware {
	return func(next ports.Handler) ports.Handler {
		return HandlerFunc(func(ctx context.Context, req ports.RuntimeRequest) (resp ports.RuntimeResponse, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Panic recovered",
						"request_id", req.ID,
						"panic", fmt.Sprintf("%v", r),
						"stack", string(debug.Stack()))

					resp = failure("internal error")
					err = fmt.Errorf("panic recovered: %v", r)
				}
			}()

			return next.Handle(ctx, req)
		})
	}
}
