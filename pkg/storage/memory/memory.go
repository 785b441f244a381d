// Package memory provides an in-memory implementation of
// transport.ConversationStore for testing and lightweight deployments.
// Conversations are stored in memory and lost when the process restarts.
// Optional LRU eviction limits memory usage.
package memory

import (
	"container/list"
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/gremium-dev/gremium/pkg/api"
	"github.com/gremium-dev/gremium/pkg/storage"
	"github.com/gremium-dev/gremium/pkg/transport"
)

// entry holds a stored conversation and its metadata.
type entry struct {
	conv      *api.Conversation
	tenantID  string
	deletedAt *time.Time
	lruElem   *list.Element // position in LRU list
}

// Store is an in-memory ConversationStore with optional LRU eviction.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	lruList *list.List // front = most recently used, back = least recently used
	maxSize int        // 0 = unlimited
}

// Ensure Store implements transport.ConversationStore at compile time.
var _ transport.ConversationStore = (*Store)(nil)

// New creates a new in-memory store. If maxSize is 0, the store grows
// without limit. If maxSize > 0, the least recently touched conversation
// is evicted when the limit is reached.
func New(maxSize int) *Store {
	return &Store{
		entries: make(map[string]*entry),
		lruList: list.New(),
		maxSize: maxSize,
	}
}

// CreateConversation persists a new conversation in memory.
func (s *Store) CreateConversation(ctx context.Context, conv *api.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[conv.ID]; exists {
		return storage.ErrConflict
	}

	tenantID := storage.GetTenant(ctx)

	// Evict if at capacity.
	if s.maxSize > 0 && len(s.entries) >= s.maxSize {
		s.evictOldest()
	}

	elem := s.lruList.PushFront(conv.ID)
	s.entries[conv.ID] = &entry{
		conv:     cloneConversation(conv),
		tenantID: tenantID,
		lruElem:  elem,
	}

	return nil
}

// GetConversation retrieves a conversation by ID. Returns ErrNotFound if the
// conversation does not exist or has been soft-deleted. Scoped by tenant
// when a tenant is present in the context.
func (s *Store) GetConversation(ctx context.Context, id string) (*api.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok || e.deletedAt != nil {
		return nil, storage.ErrNotFound
	}

	// Tenant scoping.
	tenantID := storage.GetTenant(ctx)
	if tenantID != "" && e.tenantID != tenantID {
		return nil, storage.ErrNotFound
	}

	return cloneConversation(e.conv), nil
}

// AppendMessages appends turns to a conversation's history and advances its
// updated_at timestamp. The conversation moves to the front of the LRU list.
func (s *Store) AppendMessages(ctx context.Context, id string, msgs []api.ConversationMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || e.deletedAt != nil {
		return storage.ErrNotFound
	}

	// Tenant scoping.
	tenantID := storage.GetTenant(ctx)
	if tenantID != "" && e.tenantID != tenantID {
		return storage.ErrNotFound
	}

	e.conv.Messages = append(e.conv.Messages, msgs...)
	e.conv.UpdatedAt = time.Now().Unix()
	s.lruList.MoveToFront(e.lruElem)
	return nil
}

// DeleteConversation soft-deletes a conversation. The record remains in
// memory but is invisible to reads and lists.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || e.deletedAt != nil {
		return storage.ErrNotFound
	}

	// Tenant scoping.
	tenantID := storage.GetTenant(ctx)
	if tenantID != "" && e.tenantID != tenantID {
		return storage.ErrNotFound
	}

	now := time.Now()
	e.deletedAt = &now
	return nil
}

// HealthCheck always returns nil for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// ListConversations returns a paginated list of stored conversations filtered
// by tenant and optionally by roster membership, with cursor-based pagination.
func (s *Store) ListConversations(ctx context.Context, opts transport.ListOptions) (*api.ConversationList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenantID := storage.GetTenant(ctx)

	// Collect matching entries.
	var matches []*api.Conversation
	for _, e := range s.entries {
		if e.deletedAt != nil {
			continue
		}
		if tenantID != "" && e.tenantID != tenantID {
			continue
		}
		if opts.Member != "" && !slices.Contains(e.conv.Members, opts.Member) {
			continue
		}
		matches = append(matches, e.conv)
	}

	// Sort by created_at. Default is desc (newest first).
	asc := opts.Order == "asc"
	sort.Slice(matches, func(i, j int) bool {
		if asc {
			if matches[i].CreatedAt != matches[j].CreatedAt {
				return matches[i].CreatedAt < matches[j].CreatedAt
			}
			return matches[i].ID < matches[j].ID
		}
		if matches[i].CreatedAt != matches[j].CreatedAt {
			return matches[i].CreatedAt > matches[j].CreatedAt
		}
		return matches[i].ID > matches[j].ID
	})

	// Apply cursor-based pagination.
	if opts.After != "" {
		idx := -1
		for i, c := range matches {
			if c.ID == opts.After {
				idx = i
				break
			}
		}
		if idx >= 0 {
			matches = matches[idx+1:]
		} else {
			matches = nil
		}
	} else if opts.Before != "" {
		idx := -1
		for i, c := range matches {
			if c.ID == opts.Before {
				idx = i
				break
			}
		}
		if idx > 0 {
			matches = matches[:idx]
		} else {
			matches = nil
		}
	}

	// Apply limit.
	limit := clampLimit(opts.Limit)

	hasMore := len(matches) > limit
	if hasMore {
		matches = matches[:limit]
	}

	result := &api.ConversationList{
		Object: api.ObjectList,
		Data:   make([]api.Conversation, 0, len(matches)),
	}
	for _, c := range matches {
		result.Data = append(result.Data, *cloneConversation(c))
	}
	result.HasMore = hasMore
	if len(matches) > 0 {
		result.FirstID = matches[0].ID
		result.LastID = matches[len(matches)-1].ID
	}

	return result, nil
}

// ListMessages returns a paginated list of one conversation's turns in
// history order.
func (s *Store) ListMessages(ctx context.Context, id string, opts transport.ListOptions) (*api.MessageList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok || e.deletedAt != nil {
		return nil, storage.ErrNotFound
	}

	tenantID := storage.GetTenant(ctx)
	if tenantID != "" && e.tenantID != tenantID {
		return nil, storage.ErrNotFound
	}

	msgs := e.conv.Messages

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

	// Apply limit.
	limit := clampLimit(opts.Limit)

	hasMore := len(msgs) > limit
	if hasMore {
		msgs = msgs[:limit]
	}

	result := &api.MessageList{
		Object:  api.ObjectList,
		Data:    slices.Clone(msgs),
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

// evictOldest removes the least recently used entry.
// Must be called with s.mu held.
func (s *Store) evictOldest() {
	back := s.lruList.Back()
	if back == nil {
		return
	}

	id := back.Value.(string)
	s.lruList.Remove(back)
	delete(s.entries, id)
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

// cloneConversation copies a conversation so stored state stays isolated
// from caller mutations. Settled turns are immutable, so reply pointers
// inside messages are shared.
func cloneConversation(c *api.Conversation) *api.Conversation {
	out := *c
	out.Members = slices.Clone(c.Members)
	out.Messages = slices.Clone(c.Messages)
	if c.Metadata != nil {
		out.Metadata = maps.Clone(c.Metadata)
	}
	return &out
}
