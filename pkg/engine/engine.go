package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/gremium-dev/gremium/pkg/api"
	"github.com/gremium-dev/gremium/pkg/council"
	"github.com/gremium-dev/gremium/pkg/transport"
)

// Panel is the council surface the engine drives. *council.Council
// implements it; tests substitute a scripted panel.
type Panel interface {
	QueryAll(ctx context.Context, members []string, messages []api.Message, effort api.ReasoningEffort) (council.Results, error)
	Synthesize(ctx context.Context, chairman, question string, members []string, results council.Results) council.Outcome
}

// Engine orchestrates council rounds between the transport layer and the
// panel. It implements transport.QueryRunner and, when a store is
// configured, transport.ConversationService.
type Engine struct {
	panel Panel
	store transport.ConversationStore
	cfg   Config
}

// Ensure Engine satisfies the transport contracts at compile time.
var (
	_ transport.QueryRunner         = (*Engine)(nil)
	_ transport.ConversationService = (*Engine)(nil)
)

// New creates an Engine. The panel must not be nil. The store can be nil
// for stateless operation; conversation operations then fail.
func New(panel Panel, store transport.ConversationStore, cfg Config) (*Engine, error) {
	if panel == nil {
		return nil, fmt.Errorf("engine: panel must not be nil")
	}
	if cfg.Validation == (api.ValidationConfig{}) {
		cfg.Validation = api.DefaultValidationConfig()
	}
	return &Engine{
		panel: panel,
		store: store,
		cfg:   cfg,
	}, nil
}

// RunQuery executes one stateless council round: apply configured defaults,
// validate, fan out, and optionally synthesize.
func (e *Engine) RunQuery(ctx context.Context, req *api.QueryRequest) (*api.QueryResponse, error) {
	// Apply the default roster if the request omits members.
	members := req.Members
	if len(members) == 0 {
		members = e.cfg.DefaultMembers
	}
	if len(members) == 0 {
		return nil, api.NewInvalidRequestError("members", "members is required (no default roster configured)")
	}

	effort := req.ReasoningEffort
	if effort == api.ReasoningEffortNone {
		effort = e.cfg.DefaultReasoningEffort
	}

	// Members are validated after defaulting; the chairman check runs on
	// the raw request because the chairman itself is defaulted later.
	if apiErr := api.ValidateMessages(req.Messages, e.cfg.Validation); apiErr != nil {
		return nil, apiErr
	}
	if apiErr := api.ValidateMembers(members, e.cfg.Validation); apiErr != nil {
		return nil, apiErr
	}
	if req.Chairman != "" && !req.Synthesize {
		return nil, api.NewInvalidRequestError("chairman", "chairman requires synthesize to be set")
	}

	results, err := e.panel.QueryAll(ctx, members, req.Messages, effort)
	if err != nil {
		return nil, err
	}

	resp := &api.QueryResponse{
		ID:              api.NewQueryID(),
		Object:          api.ObjectQuery,
		CreatedAt:       time.Now().Unix(),
		Members:         members,
		ReasoningEffort: effort,
		Results:         flattenResults(members, results),
	}

	if req.Synthesize {
		synthesis, apiErr := e.synthesize(ctx, req.Chairman, lastUserContent(req.Messages), members, results)
		if apiErr != nil {
			return nil, apiErr
		}
		resp.Synthesis = synthesis
	}

	return resp, nil
}

// synthesize resolves the chairman and asks it for a final answer. When no
// member answered the synthesis is skipped (nil): there is nothing to
// distill, and reporting the chairman as failed would misattribute the
// round's outcome.
func (e *Engine) synthesize(ctx context.Context, chairman, question string, members []string, results council.Results) (*api.Synthesis, *api.APIError) {
	if chairman == "" {
		chairman = e.cfg.DefaultChairman
	}
	if chairman == "" {
		return nil, api.NewInvalidRequestError("chairman", "synthesize requested but no chairman configured")
	}
	if !results.Answered() {
		return nil, nil
	}
	outcome := e.panel.Synthesize(ctx, chairman, question, members, results)
	return &api.Synthesis{Member: chairman, Reply: outcome.Reply}, nil
}

// flattenResults converts settled outcomes into the wire shape: one entry
// per member, nil for an absent outcome.
func flattenResults(members []string, results council.Results) map[string]*api.MemberReply {
	flat := make(map[string]*api.MemberReply, len(members))
	for _, m := range members {
		flat[m] = results[m].Reply
	}
	return flat
}
