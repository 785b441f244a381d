package mcptool

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gremium-dev/gremium/pkg/api"
	"github.com/gremium-dev/gremium/pkg/observability"
	"github.com/gremium-dev/gremium/pkg/transport"
)

// QueryInput is the argument schema for the council_query tool.
type QueryInput struct {
	Question        string   `json:"question" jsonschema_description:"The question to put before the council"`
	Members         []string `json:"members,omitempty" jsonschema_description:"Council members as provider/model identifiers; omit to use the configured default roster"`
	ReasoningEffort string   `json:"reasoning_effort,omitempty" jsonschema_description:"Reasoning effort hint forwarded to every member: low, medium, or high"`
	Synthesize      bool     `json:"synthesize,omitempty" jsonschema_description:"Ask the chairman to synthesize the member answers into a final reply"`
}

// Server wraps an MCP server that exposes the council as a tool.
type Server struct {
	runner transport.QueryRunner
	mcp    *mcp.Server
}

// New creates an MCP tool server backed by the given query runner.
func New(runner transport.QueryRunner) *Server {
	s := &Server{
		runner: runner,
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    "gremium",
			Version: "v1.0.0",
		}, nil),
	}

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "council_query",
		Description: "Ask a council of LLMs the same question concurrently and collect every member's answer, optionally synthesized by a chairman model",
	}, s.handleQuery)

	return s
}

// Handler returns a streamable HTTP handler for the MCP endpoint.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return s.mcp
	}, nil)
}

func (s *Server) handleQuery(ctx context.Context, _ *mcp.CallToolRequest, input QueryInput) (*mcp.CallToolResult, struct{}, error) {
	if strings.TrimSpace(input.Question) == "" {
		return toolError("question must not be empty"), struct{}{}, nil
	}

	resp, err := s.runner.RunQuery(ctx, &api.QueryRequest{
		Messages:        []api.Message{{Role: api.RoleUser, Content: input.Question}},
		Members:         input.Members,
		ReasoningEffort: api.ReasoningEffort(input.ReasoningEffort),
		Synthesize:      input.Synthesize,
	})
	if err != nil {
		return toolError(fmt.Sprintf("council query failed: %v", err)), struct{}{}, nil
	}

	observability.ToolExecutionsTotal.WithLabelValues("council_query", "success").Inc()
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: renderResponse(resp)}},
	}, struct{}{}, nil
}

func toolError(msg string) *mcp.CallToolResult {
	observability.ToolExecutionsTotal.WithLabelValues("council_query", "error").Inc()
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// renderResponse formats a settled round as text: one section per member in
// roster order, absent members marked as such, synthesis last.
func renderResponse(resp *api.QueryResponse) string {
	var b strings.Builder
	for _, member := range resp.Members {
		fmt.Fprintf(&b, "## %s\n", member)
		reply := resp.Results[member]
		switch {
		case reply == nil:
			b.WriteString("(no answer)\n")
		case reply.Content == nil:
			b.WriteString("(empty reply)\n")
		default:
			b.WriteString(*reply.Content)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if resp.Synthesis != nil {
		fmt.Fprintf(&b, "## Synthesis (%s)\n", resp.Synthesis.Member)
		if resp.Synthesis.Reply != nil && resp.Synthesis.Reply.Content != nil {
			b.WriteString(*resp.Synthesis.Reply.Content)
			b.WriteString("\n")
		} else {
			b.WriteString("(chairman did not answer)\n")
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
