package council

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gremium-dev/gremium/pkg/api"
	"github.com/gremium-dev/gremium/pkg/observability"
)

// chairmanSystemPrompt frames the synthesis turn for the chairman member.
const chairmanSystemPrompt = `You are the chairman of a council of AI models. Several council members have each answered the same question independently. Write the final answer to the question by weighing the members' replies: adopt points where they agree, resolve contradictions explicitly, and discard claims no reply supports. Answer the user directly; do not mention the council or its members.`

// Synthesize asks the chairman member for a final answer distilled from the
// panel's replies. The prompt lists each answering member's reply in roster
// order; members that settled absent or answered with null content are left
// out. The chairman is queried through the ordinary invoker under the same
// fail-soft contract, so a chairman failure yields an absent outcome rather
// than an error.
func (c *Council) Synthesize(ctx context.Context, chairman, question string, members []string, results Results) Outcome {
	start := time.Now()

	messages := []api.Message{
		{Role: api.RoleSystem, Content: chairmanSystemPrompt},
		{Role: api.RoleUser, Content: buildSynthesisPrompt(question, members, results)},
	}

	outcome := c.Query(ctx, chairman, messages, api.ReasoningEffortNone)

	status := "success"
	if !outcome.Answered() {
		status = "error"
	}
	observability.SynthesisTotal.WithLabelValues(chairman, status).Inc()

	c.logger.LogAttrs(ctx, slog.LevelDebug, "synthesis settled",
		slog.String("chairman", chairman),
		slog.String("status", status),
		slog.Duration("duration", time.Since(start)))

	return outcome
}

// buildSynthesisPrompt renders the question and the answering members'
// replies into a single user turn for the chairman.
func buildSynthesisPrompt(question string, members []string, results Results) string {
	var b strings.Builder
	b.WriteString("Question:\n")
	b.WriteString(question)
	b.WriteString("\n\nCouncil replies:\n")
	for _, member := range members {
		outcome, ok := results[member]
		if !ok || !outcome.Answered() || outcome.Reply.Content == nil {
			continue
		}
		fmt.Fprintf(&b, "\n--- %s ---\n%s\n", member, *outcome.Reply.Content)
	}
	b.WriteString("\nFinal answer:")
	return b.String()
}
