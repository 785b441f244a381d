package transport

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/gremium-dev/gremium/pkg/api"
)

func okRunner() QueryRunner {
	return QueryRunnerFunc(func(ctx context.Context, req *api.QueryRequest) (*api.QueryResponse, error) {
		return &api.QueryResponse{
			ID:      api.NewQueryID(),
			Object:  api.ObjectQuery,
			Results: map[string]*api.MemberReply{},
		}, nil
	})
}

func TestChainAppliesMiddlewareInOrder(t *testing.T) {
	var order []string

	mw := func(name string) Middleware {
		return func(next QueryRunner) QueryRunner {
			return QueryRunnerFunc(func(ctx context.Context, req *api.QueryRequest) (*api.QueryResponse, error) {
				order = append(order, name+":before")
				resp, err := next.RunQuery(ctx, req)
				order = append(order, name+":after")
				return resp, err
			})
		}
	}

	handler := QueryRunnerFunc(func(ctx context.Context, req *api.QueryRequest) (*api.QueryResponse, error) {
		order = append(order, "handler")
		return nil, nil
	})

	chain := Chain(mw("first"), mw("second"), mw("third"))
	wrapped := chain(handler)

	wrapped.RunQuery(context.Background(), &api.QueryRequest{})

	expected := []string{
		"first:before", "second:before", "third:before",
		"handler",
		"third:after", "second:after", "first:after",
	}

	if len(order) != len(expected) {
		t.Fatalf("execution order length = %d, want %d: %v", len(order), len(expected), order)
	}
	for i, got := range order {
		if got != expected[i] {
			t.Errorf("order[%d] = %q, want %q", i, got, expected[i])
		}
	}
}

func TestRecoveryCatchesPanic(t *testing.T) {
	handler := QueryRunnerFunc(func(ctx context.Context, req *api.QueryRequest) (*api.QueryResponse, error) {
		panic("test panic")
	})

	wrapped := Recovery()(handler)
	resp, err := wrapped.RunQuery(context.Background(), &api.QueryRequest{})

	if err == nil {
		t.Fatal("expected error after panic, got nil")
	}
	if resp != nil {
		t.Errorf("expected nil response after panic, got %+v", resp)
	}

	apiErr, ok := err.(*api.APIError)
	if !ok {
		t.Fatalf("expected *api.APIError, got %T: %v", err, err)
	}
	if apiErr.Type != api.ErrorTypeServerError {
		t.Errorf("error type = %q, want %q", apiErr.Type, api.ErrorTypeServerError)
	}
	if !strings.Contains(apiErr.Message, "test panic") {
		t.Errorf("error message = %q, should contain %q", apiErr.Message, "test panic")
	}
}

func TestRecoveryPassesThroughNormalExecution(t *testing.T) {
	wrapped := Recovery()(okRunner())
	resp, err := wrapped.RunQuery(context.Background(), &api.QueryRequest{})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp == nil {
		t.Fatal("expected response, got nil")
	}
}

func TestRequestIDGeneratesNewID(t *testing.T) {
	var capturedID string

	handler := QueryRunnerFunc(func(ctx context.Context, req *api.QueryRequest) (*api.QueryResponse, error) {
		capturedID = RequestIDFromContext(ctx)
		return nil, nil
	})

	wrapped := RequestID()(handler)
	wrapped.RunQuery(context.Background(), &api.QueryRequest{})

	if capturedID == "" {
		t.Error("expected a generated request ID, got empty string")
	}
	if len(capturedID) != 32 { // 16 bytes = 32 hex chars
		t.Errorf("request ID length = %d, want 32 (hex encoded)", len(capturedID))
	}
}

func TestRequestIDPropagatesExisting(t *testing.T) {
	var capturedID string

	handler := QueryRunnerFunc(func(ctx context.Context, req *api.QueryRequest) (*api.QueryResponse, error) {
		capturedID = RequestIDFromContext(ctx)
		return nil, nil
	})

	ctx := ContextWithRequestID(context.Background(), "existing-id-123")
	wrapped := RequestID()(handler)
	wrapped.RunQuery(ctx, &api.QueryRequest{})

	if capturedID != "existing-id-123" {
		t.Errorf("request ID = %q, want %q", capturedID, "existing-id-123")
	}
}

func TestRequestIDUniqueness(t *testing.T) {
	ids := make(map[string]bool)
	handler := QueryRunnerFunc(func(ctx context.Context, req *api.QueryRequest) (*api.QueryResponse, error) {
		ids[RequestIDFromContext(ctx)] = true
		return nil, nil
	})

	wrapped := RequestID()(handler)
	for i := 0; i < 100; i++ {
		wrapped.RunQuery(context.Background(), &api.QueryRequest{})
	}

	if len(ids) != 100 {
		t.Errorf("expected 100 unique IDs, got %d", len(ids))
	}
}

func TestLoggingEmitsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx := ContextWithRequestID(context.Background(), "req-log-test")
	wrapped := Logging(logger)(okRunner())
	wrapped.RunQuery(ctx, &api.QueryRequest{
		Messages:   []api.Message{{Role: api.RoleUser, Content: "hello"}},
		Members:    []string{"openai/gpt-4o", "anthropic/claude-3-5-sonnet-20241022"},
		Synthesize: true,
	})

	output := buf.String()
	for _, expected := range []string{"request_id=req-log-test", "members=2", "synthesize=true", "query completed"} {
		if !strings.Contains(output, expected) {
			t.Errorf("log output missing %q in:\n%s", expected, output)
		}
	}
}

func TestLoggingEmitsErrorOnFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	handler := QueryRunnerFunc(func(ctx context.Context, req *api.QueryRequest) (*api.QueryResponse, error) {
		return nil, api.NewServerError("test failure")
	})

	wrapped := Logging(logger)(handler)
	wrapped.RunQuery(context.Background(), &api.QueryRequest{})

	output := buf.String()
	if !strings.Contains(output, "query failed") {
		t.Errorf("log output missing 'query failed' in:\n%s", output)
	}
	if !strings.Contains(output, "test failure") {
		t.Errorf("log output missing error message in:\n%s", output)
	}
}
