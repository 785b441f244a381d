// Package api defines the core protocol types for the Gremium council gateway.
//
// This package provides all data types shared between the transport layer,
// the council engine, and the storage adapters: conversation messages, the
// per-member reply shape, query request/response envelopes, conversation
// records, error types, and ID generation.
//
// The package has zero external dependencies (Go standard library only) and
// performs no I/O.
//
// Core types:
//   - [Message]: A single role/content turn sent to every council member
//   - [MemberReply]: One member's answer, with optional reasoning side channels
//   - [QueryRequest]/[QueryResponse]: The one-shot council query operation
//   - [Conversation]: A stored multi-turn council session
//   - [APIError]: Structured error with type, code, param, and message
//
// Reply optionality:
//
// A member that fails to answer is recorded as an explicit JSON null in the
// results map, so the set of keys always matches the set of queried members.
// Within a reply, the reasoning trace and thinking segments are omitted
// entirely when the provider supplied none; consumers must treat a missing
// field and an empty one identically.
package api
