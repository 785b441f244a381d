// Package engine implements the core orchestration logic for Gremium.
// The Engine struct implements transport.QueryRunner and
// transport.ConversationService, bridging incoming council API requests to
// the panel. It applies configured defaults, validates requests, runs the
// fan-out, drives chairman synthesis, and persists conversation turns.
// Optional capabilities (storage, synthesis) use nil-safe composition for
// graceful degradation.
package engine
