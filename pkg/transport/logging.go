package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/gremium-dev/gremium/pkg/api"
)

// Logging returns middleware that emits structured log entries for each
// query. The log entry includes the request ID (from context), the number
// of requested members, whether synthesis was requested, duration, and
// whether the query succeeded or failed.
//
// Note: The HTTP method and path are not available at the QueryRunner
// level. This middleware logs at the handler level. For full HTTP-level
// logging (including status codes), use HTTP-level middleware in the adapter.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next QueryRunner) QueryRunner {
		return QueryRunnerFunc(func(ctx context.Context, req *api.QueryRequest) (*api.QueryResponse, error) {
			start := time.Now()
			requestID := RequestIDFromContext(ctx)

			resp, err := next.RunQuery(ctx, req)

			attrs := []slog.Attr{
				slog.String("request_id", requestID),
				slog.Int("members", len(req.Members)),
				slog.Bool("synthesize", req.Synthesize),
				slog.Duration("duration", time.Since(start)),
			}

			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelError, "query failed", attrs...)
			} else {
				logger.LogAttrs(ctx, slog.LevelInfo, "query completed", attrs...)
			}

			return resp, err
		})
	}
}
