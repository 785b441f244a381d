package council

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gremium-dev/gremium/pkg/api"
	"github.com/gremium-dev/gremium/pkg/debug"
	"github.com/gremium-dev/gremium/pkg/observability"
	"github.com/gremium-dev/gremium/pkg/provider"
)

// DefaultTimeout bounds a single member invocation unless configured otherwise.
const DefaultTimeout = 120 * time.Second

// Outcome is the settled result of one member invocation. A member either
// answered (Reply is set) or is absent (Reply is nil). There is no error
// variant: provider failures are logged, counted, and absorbed before an
// Outcome is produced.
type Outcome struct {
	Reply *api.MemberReply
}

// Answered reports whether the member produced a reply. A reply with null
// content still counts as answered; absence means no payload arrived at all.
func (o Outcome) Answered() bool { return o.Reply != nil }

// Results maps each queried member ID to its settled outcome. A map returned
// by QueryAll carries exactly one entry per requested member.
type Results map[string]Outcome

// Answered reports whether at least one member produced a reply.
func (r Results) Answered() bool {
	for _, o := range r {
		if o.Answered() {
			return true
		}
	}
	return false
}

// Config carries the tunables for a Council.
type Config struct {
	// Timeout bounds each member invocation. Zero or negative means
	// DefaultTimeout.
	Timeout time.Duration

	// Logger receives member diagnostics. Nil means slog.Default().
	Logger *slog.Logger
}

// Council queries a panel of LLM members through a provider registry.
type Council struct {
	registry *provider.Registry
	timeout  time.Duration
	logger   *slog.Logger
}

// New creates a Council. The registry must not be nil.
func New(registry *provider.Registry, cfg Config) (*Council, error) {
	if registry == nil {
		return nil, fmt.Errorf("council: registry must not be nil")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Council{
		registry: registry,
		timeout:  timeout,
		logger:   logger,
	}, nil
}

// Query sends one conversation to one member and settles the result. It
// never returns an error: authentication failures, rate limits, timeouts,
// and every other provider failure are logged with the member ID and the
// failure kind, counted, and absorbed into an absent outcome.
//
// The effort hint is forwarded to the provider verbatim when non-empty and
// omitted entirely when empty; the invoker never interprets it. Each call
// runs under its own timeout derived from ctx, so a slow member cannot hold
// a sibling's deadline hostage.
func (c *Council) Query(ctx context.Context, member string, messages []api.Message, effort api.ReasoningEffort) Outcome {
	start := time.Now()

	prov, model, err := c.registry.Resolve(member)
	if err != nil {
		c.logger.LogAttrs(ctx, slog.LevelWarn, "member unresolvable",
			slog.String("member", member),
			slog.String("kind", string(provider.KindProvider)),
			slog.String("error", err.Error()))
		observability.MemberRequestsTotal.WithLabelValues("unknown", member, string(provider.KindProvider)).Inc()
		return Outcome{}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := prov.Complete(ctx, &provider.Request{
		Model:           model,
		Messages:        messages,
		ReasoningEffort: effort,
	})
	duration := time.Since(start)

	observability.MemberLatency.WithLabelValues(prov.Name(), model).Observe(duration.Seconds())

	if err != nil {
		kind := provider.KindOf(err)
		observability.MemberRequestsTotal.WithLabelValues(prov.Name(), model, string(kind)).Inc()
		c.logger.LogAttrs(ctx, slog.LevelWarn, "member query failed",
			slog.String("member", member),
			slog.String("kind", string(kind)),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return Outcome{}
	}

	observability.MemberRequestsTotal.WithLabelValues(prov.Name(), model, "success").Inc()
	observability.MemberTokensTotal.WithLabelValues(prov.Name(), model, "input").Add(float64(resp.Usage.InputTokens))
	observability.MemberTokensTotal.WithLabelValues(prov.Name(), model, "output").Add(float64(resp.Usage.OutputTokens))

	c.logger.LogAttrs(ctx, slog.LevelDebug, "member answered",
		slog.String("member", member),
		slog.Duration("duration", duration))

	return Outcome{Reply: &api.MemberReply{
		Content:   resp.Content,
		Reasoning: resp.Reasoning,
		Thinking:  resp.Thinking,
	}}
}

// QueryAll sends one conversation to every member concurrently and waits for
// all of them to settle. The returned map holds exactly one outcome per
// requested member; the guarantee holds even when every member fails. Members
// do not share fate: a failing or slow member never cancels its siblings.
//
// The only errors QueryAll returns are contract violations caught before
// fan-out: a blank or duplicate member ID, an empty message list, or an
// unknown role. An empty member list is not a violation and yields an empty
// non-nil map.
func (c *Council) QueryAll(ctx context.Context, members []string, messages []api.Message, effort api.ReasoningEffort) (Results, error) {
	if apiErr := api.ValidateMembers(members, api.ValidationConfig{}); apiErr != nil {
		return nil, apiErr
	}
	if apiErr := api.ValidateMessages(messages, api.ValidationConfig{}); apiErr != nil {
		return nil, apiErr
	}

	results := make(Results, len(members))
	if len(members) == 0 {
		return results, nil
	}

	observability.QueryFanout.Observe(float64(len(members)))
	debug.Log("council", "fan-out", "members", members, "effort", string(effort))

	// Each goroutine writes only its own slot; the map is assembled after
	// every invocation has settled.
	outcomes := make([]Outcome, len(members))
	var wg sync.WaitGroup
	for i, member := range members {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = c.Query(ctx, member, messages, effort)
		}()
	}
	wg.Wait()

	for i, member := range members {
		results[member] = outcomes[i]
	}
	return results, nil
}
