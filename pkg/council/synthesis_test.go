package council

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gremium-dev/gremium/pkg/api"
	"github.com/gremium-dev/gremium/pkg/provider"
)

func strptr(s string) *string { return &s }

func TestSynthesize_PromptCarriesAnsweredReplies(t *testing.T) {
	chairman := answering("gemini", "the final word")
	c := newCouncil(t, time.Second, chairman)

	members := []string{"openai/gpt-4o", "anthropic/claude-3-5-sonnet-20241022", "openrouter/x-ai/grok-2"}
	results := Results{
		"openai/gpt-4o": {Reply: &api.MemberReply{Content: strptr("Paris.")}},
		"anthropic/claude-3-5-sonnet-20241022": {}, // absent
		"openrouter/x-ai/grok-2":               {Reply: &api.MemberReply{Content: strptr("It is Paris.")}},
	}

	outcome := c.Synthesize(context.Background(), "gemini/gemini-1.5-pro", "Capital of France?", members, results)

	if !outcome.Answered() {
		t.Fatal("expected the chairman to answer")
	}
	if *outcome.Reply.Content != "the final word" {
		t.Errorf("content = %q, want the chairman's reply", *outcome.Reply.Content)
	}

	reqs := chairman.recorded()
	if len(reqs) != 1 {
		t.Fatalf("recorded %d chairman requests, want 1", len(reqs))
	}
	req := reqs[0]
	if req.Model != "gemini-1.5-pro" {
		t.Errorf("chairman model = %q, want gemini-1.5-pro", req.Model)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != api.RoleSystem || req.Messages[1].Role != api.RoleUser {
		t.Fatalf("chairman conversation = %+v, want system + user turns", req.Messages)
	}

	prompt := req.Messages[1].Content
	if !strings.Contains(prompt, "Capital of France?") {
		t.Errorf("prompt missing the question: %s", prompt)
	}
	if !strings.Contains(prompt, "openai/gpt-4o") || !strings.Contains(prompt, "Paris.") {
		t.Errorf("prompt missing the first member's reply: %s", prompt)
	}
	if !strings.Contains(prompt, "openrouter/x-ai/grok-2") || !strings.Contains(prompt, "It is Paris.") {
		t.Errorf("prompt missing the third member's reply: %s", prompt)
	}
	if strings.Contains(prompt, "anthropic/claude-3-5-sonnet-20241022") {
		t.Errorf("prompt must not mention an absent member: %s", prompt)
	}

	// Roster order is preserved in the prompt.
	if strings.Index(prompt, "openai/gpt-4o") > strings.Index(prompt, "openrouter/x-ai/grok-2") {
		t.Errorf("prompt lists members out of roster order: %s", prompt)
	}
}

func TestSynthesize_SkipsNullContentReplies(t *testing.T) {
	chairman := answering("gemini", "done")
	c := newCouncil(t, time.Second, chairman)

	members := []string{"openai/gpt-4o"}
	results := Results{
		// Answered, but with null content: nothing to quote.
		"openai/gpt-4o": {Reply: &api.MemberReply{Content: nil}},
	}

	c.Synthesize(context.Background(), "gemini/gemini-1.5-pro", "Anything?", members, results)

	reqs := chairman.recorded()
	if len(reqs) != 1 {
		t.Fatalf("recorded %d chairman requests, want 1", len(reqs))
	}
	if prompt := reqs[0].Messages[1].Content; strings.Contains(prompt, "openai/gpt-4o") {
		t.Errorf("prompt must not list a member with nothing to quote: %s", prompt)
	}
}

func TestSynthesize_ChairmanFailureSettlesAbsent(t *testing.T) {
	c := newCouncil(t, time.Second, failing("gemini", provider.NewUpstreamError(500, "down")))

	results := Results{
		"openai/gpt-4o": {Reply: &api.MemberReply{Content: strptr("Paris.")}},
	}
	outcome := c.Synthesize(context.Background(), "gemini/gemini-1.5-pro", "Capital?", []string{"openai/gpt-4o"}, results)

	if outcome.Answered() {
		t.Fatal("a failing chairman must settle as absent, not raise")
	}
}

func TestSynthesize_NoEffortHintForChairman(t *testing.T) {
	chairman := answering("gemini", "done")
	c := newCouncil(t, time.Second, chairman)

	c.Synthesize(context.Background(), "gemini/gemini-1.5-pro", "Q?", nil, Results{})

	reqs := chairman.recorded()
	if len(reqs) != 1 {
		t.Fatalf("recorded %d chairman requests, want 1", len(reqs))
	}
	if got := reqs[0].ReasoningEffort; got != api.ReasoningEffortNone {
		t.Errorf("chairman effort = %q, want none", got)
	}
}
