package engine

import "github.com/gremium-dev/gremium/pkg/api"

// Config holds configuration for the core engine.
type Config struct {
	// DefaultMembers is the roster used when a request omits members.
	// Empty means requests must always name their members.
	DefaultMembers []string

	// DefaultChairman answers synthesis requests that do not name a
	// chairman. Empty means synthesis requests must name one.
	DefaultChairman string

	// DefaultReasoningEffort is applied when a request omits the hint.
	// The empty value leaves the hint off entirely.
	DefaultReasoningEffort api.ReasoningEffort

	// Validation bounds request sizes. The zero value selects
	// api.DefaultValidationConfig.
	Validation api.ValidationConfig
}
