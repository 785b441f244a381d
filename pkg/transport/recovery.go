package transport

import (
	"context"
	"fmt"

	"github.com/gremium-dev/gremium/pkg/api"
)

// Recovery returns middleware that catches panics in the handler and
// converts them to server error responses. The server continues to
// accept new requests after a panic is recovered.
func Recovery() Middleware {
	return func(next QueryRunner) QueryRunner {
		return QueryRunnerFunc(func(ctx context.Context, req *api.QueryRequest) (resp *api.QueryResponse, retErr error) {
			defer func() {
				if r := recover(); r != nil {
					resp = nil
					retErr = api.NewServerError(fmt.Sprintf("internal server error: %v", r))
				}
			}()
			return next.RunQuery(ctx, req)
		})
	}
}
