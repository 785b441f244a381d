// Package postgres provides a PostgreSQL implementation of
// transport.ConversationStore. It uses pgx/v5 for connection pooling and
// JSONB for roster and message history storage.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gremium-dev/gremium/pkg/api"
	"github.com/gremium-dev/gremium/pkg/storage"
	"github.com/gremium-dev/gremium/pkg/transport"
)

// Store is a PostgreSQL-backed ConversationStore.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements transport.ConversationStore at compile time.
var _ transport.ConversationStore = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// CreateConversation persists a new conversation.
func (s *Store) CreateConversation(ctx context.Context, conv *api.Conversation) error {
	tenantID := storage.GetTenant(ctx)

	members := conv.Members
	if members == nil {
		members = []string{}
	}
	membersJSON, err := json.Marshal(members)
	if err != nil {
		return fmt.Errorf("marshaling members: %w", err)
	}

	messages := conv.Messages
	if messages == nil {
		messages = []api.ConversationMessage{}
	}
	messagesJSON, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshaling messages: %w", err)
	}

	var metadataJSON []byte
	if conv.Metadata != nil {
		metadataJSON, err = json.Marshal(conv.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata: %w", err)
		}
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO conversations (
			id, tenant_id, title, members, chairman,
			messages, metadata, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		conv.ID, tenantID, conv.Title, membersJSON, nullString(conv.Chairman),
		messagesJSON, nullJSON(metadataJSON), conv.CreatedAt, conv.UpdatedAt,
	)

	if err != nil {
		if isDuplicateKey(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting conversation: %w", err)
	}

	return nil
}

// GetConversation retrieves a conversation by ID, excluding soft-deleted
// conversations. Scoped by tenant when a tenant is present in the context.
func (s *Store) GetConversation(ctx context.Context, id string) (*api.Conversation, error) {
	tenantID := storage.GetTenant(ctx)

	query := `
		SELECT id, title, members, chairman, messages, metadata, created_at, updated_at
		FROM conversations
		WHERE id = $1 AND deleted_at IS NULL
	`
	args := []any{id}

	if tenantID != "" {
		query += " AND tenant_id = $2"
		args = append(args, tenantID)
	}

	conv, err := scanConversation(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying conversation: %w", err)
	}

	return conv, nil
}

// AppendMessages appends turns to a conversation's JSONB message history and
// advances its updated_at timestamp.
func (s *Store) AppendMessages(ctx context.Context, id string, msgs []api.ConversationMessage) error {
	tenantID := storage.GetTenant(ctx)

	if msgs == nil {
		msgs = []api.ConversationMessage{}
	}
	msgsJSON, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("marshaling messages: %w", err)
	}

	query := `
		UPDATE conversations
		SET messages = messages || $1::jsonb, updated_at = $2
		WHERE id = $3 AND deleted_at IS NULL
	`
	args := []any{msgsJSON, time.Now().Unix(), id}

	if tenantID != "" {
		query += " AND tenant_id = $4"
		args = append(args, tenantID)
	}

	result, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("appending messages: %w", err)
	}

	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// DeleteConversation soft-deletes a conversation by setting deleted_at.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	tenantID := storage.GetTenant(ctx)

	query := "UPDATE conversations SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL"
	args := []any{time.Now(), id}

	if tenantID != "" {
		query += " AND tenant_id = $3"
		args = append(args, tenantID)
	}

	result, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}

	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// ListConversations returns a paginated list of stored conversations filtered
// by tenant and optionally by roster membership. Cursor pagination compares
// (created_at, id) tuples so pages stay stable under concurrent inserts.
func (s *Store) ListConversations(ctx context.Context, opts transport.ListOptions) (*api.ConversationList, error) {
	tenantID := storage.GetTenant(ctx)

	limit := clampLimit(opts.Limit)
	asc := opts.Order == "asc"

	query := `
		SELECT id, title, members, chairman, messages, metadata, created_at, updated_at
		FROM conversations
		WHERE deleted_at IS NULL
	`
	var args []any
	argIdx := 1

	if tenantID != "" {
		query += fmt.Sprintf(" AND tenant_id = $%d", argIdx)
		args = append(args, tenantID)
		argIdx++
	}

	if opts.Member != "" {
		query += fmt.Sprintf(" AND members @> to_jsonb($%d::text)", argIdx)
		args = append(args, opts.Member)
		argIdx++
	}

	// A cursor pointing at a missing row yields a NULL comparison and thus
	// an empty page, matching the in-memory store.
	if opts.After != "" {
		cmp := "<"
		if asc {
			cmp = ">"
		}
		query += fmt.Sprintf(" AND (created_at, id) %s (SELECT created_at, id FROM conversations WHERE id = $%d)", cmp, argIdx)
		args = append(args, opts.After)
		argIdx++
	} else if opts.Before != "" {
		cmp := ">"
		if asc {
			cmp = "<"
		}
		query += fmt.Sprintf(" AND (created_at, id) %s (SELECT created_at, id FROM conversations WHERE id = $%d)", cmp, argIdx)
		args = append(args, opts.Before)
		argIdx++
	}

	dir := "DESC"
	if asc {
		dir = "ASC"
	}
	query += fmt.Sprintf(" ORDER BY created_at %s, id %s LIMIT $%d", dir, dir, argIdx)
	args = append(args, limit+1)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	var convs []api.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		convs = append(convs, *conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading conversations: %w", err)
	}

	hasMore := len(convs) > limit
	if hasMore {
		convs = convs[:limit]
	}

	result := &api.ConversationList{
		Object:  api.ObjectList,
		Data:    convs,
		HasMore: hasMore,
	}
	if len(convs) > 0 {
		result.FirstID = convs[0].ID
		result.LastID = convs[len(convs)-1].ID
	}
	if result.Data == nil {
		result.Data = []api.Conversation{}
	}

	return result, nil
}

// ListMessages returns a paginated list of one conversation's turns. The
// history lives in a single JSONB document, so pagination slices in memory
// after the row is fetched.
func (s *Store) ListMessages(ctx context.Context, id string, opts transport.ListOptions) (*api.MessageList, error) {
	conv, err := s.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}

	msgs := conv.Messages

	// Apply cursor-based pagination using message IDs.
	if opts.After != "" {
		idx := -1
		for i, m := range msgs {
			if m.ID == opts.After {
				idx = i
				break
			}
		}
		if idx >= 0 {
			msgs = msgs[idx+1:]
		} else {
			msgs = nil
		}
	} else if opts.Before != "" {
		idx := -1
		for i, m := range msgs {
			if m.ID == opts.Before {
				idx = i
				break
			}
		}
		if idx > 0 {
			msgs = msgs[:idx]
		} else {
			msgs = nil
		}
	}

	limit := clampLimit(opts.Limit)

	hasMore := len(msgs) > limit
	if hasMore {
		msgs = msgs[:limit]
	}

	result := &api.MessageList{
		Object:  api.ObjectList,
		Data:    msgs,
		HasMore: hasMore,
	}
	if len(msgs) > 0 {
		result.FirstID = msgs[0].ID
		result.LastID = msgs[len(msgs)-1].ID
	}
	if result.Data == nil {
		result.Data = []api.ConversationMessage{}
	}

	return result, nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanConversation reads one conversations row into an api.Conversation.
func scanConversation(row rowScanner) (*api.Conversation, error) {
	var conv api.Conversation
	var chairman *string
	var membersJSON, messagesJSON []byte
	var metadataJSON *[]byte

	err := row.Scan(
		&conv.ID, &conv.Title, &membersJSON, &chairman,
		&messagesJSON, &metadataJSON, &conv.CreatedAt, &conv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	conv.Object = api.ObjectConversation
	if chairman != nil {
		conv.Chairman = *chairman
	}

	if err := json.Unmarshal(membersJSON, &conv.Members); err != nil {
		return nil, fmt.Errorf("unmarshaling members: %w", err)
	}
	if err := json.Unmarshal(messagesJSON, &conv.Messages); err != nil {
		return nil, fmt.Errorf("unmarshaling messages: %w", err)
	}
	if metadataJSON != nil {
		if err := json.Unmarshal(*metadataJSON, &conv.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}

	return &conv, nil
}

// clampLimit applies the default (20) and maximum (100) page sizes.
func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}

// nullString converts an empty string to nil for nullable TEXT columns.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullJSON converts nil/empty byte slices to nil for nullable JSONB columns.
func nullJSON(b []byte) *[]byte {
	if len(b) == 0 {
		return nil
	}
	return &b
}

// isDuplicateKey checks if the error is a PostgreSQL unique violation (23505).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
