// Package transport defines the handler interfaces and middleware chain for
// the gremium HTTP transport layer.
//
// The transport layer bridges external clients and gremium's internal
// processing engine. It deserializes incoming requests into the core protocol
// types defined in pkg/api, dispatches them for processing, and serializes
// the settled results back to the client as JSON.
//
// # Handler Interfaces
//
// Two handler interfaces define the contract between the transport layer and
// the processing engine:
//
//   - QueryRunner handles the core one-shot council query, available in both
//     stateless and stateful deployments.
//   - ConversationService handles stored council sessions: create, retrieve,
//     list, delete, and posting follow-up messages. It is available only in
//     deployments with a conversation store configured.
//
// ConversationStore is the persistence contract behind ConversationService,
// implemented by the storage adapters in pkg/storage.
//
// # Middleware
//
// The middleware chain wraps QueryRunner with cross-cutting concerns.
// Built-in middleware provides panic recovery, request ID assignment
// (X-Request-ID), and structured logging via log/slog. Custom middleware
// can be added for application-specific concerns.
package transport
