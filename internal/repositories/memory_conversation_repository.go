package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"devops-gpt/internal/models"
)

type memoryEntry struct {
	conv      models.Conversation
	expiresAt time.Time
}

// MemoryConversationRepository keeps conversations in process memory.
// Expired entries are invisible to reads and removed by PurgeExpired.
type MemoryConversationRepository struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryConversationRepository creates an in-memory repository.
// A non-positive ttl uses DefaultConversationTTL.
func NewMemoryConversationRepository(ttl time.Duration) *MemoryConversationRepository {
	if ttl <= 0 {
		ttl = DefaultConversationTTL
	}
	return &MemoryConversationRepository{
		entries: make(map[string]*memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Create stores a new conversation
func (r *MemoryConversationRepository) Create(ctx context.Context, conv *models.Conversation) error {
	if err := validateConversation(conv); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if entry, ok := r.entries[conv.ID]; ok && now.Before(entry.expiresAt) {
		return conversationExists(conv.ID)
	}

	conv.CreatedAt = now
	conv.UpdatedAt = now
	r.entries[conv.ID] = &memoryEntry{conv: cloneConversation(conv), expiresAt: now.Add(r.ttl)}
	return nil
}

// Get returns a copy of the stored conversation
func (r *MemoryConversationRepository) Get(ctx context.Context, id string) (*models.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[id]
	if !ok || !r.now().Before(entry.expiresAt) {
		return nil, conversationNotFound(id)
	}
	conv := cloneConversation(&entry.conv)
	return &conv, nil
}

// Save overwrites an existing conversation and refreshes its expiry
func (r *MemoryConversationRepository) Save(ctx context.Context, conv *models.Conversation) error {
	if err := validateConversation(conv); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.entries[conv.ID]
	if !ok || !now.Before(entry.expiresAt) {
		return conversationNotFound(conv.ID)
	}

	conv.CreatedAt = entry.conv.CreatedAt
	conv.UpdatedAt = now
	entry.conv = cloneConversation(conv)
	entry.expiresAt = now.Add(r.ttl)
	return nil
}

// Delete removes a conversation
func (r *MemoryConversationRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok || !r.now().Before(entry.expiresAt) {
		return conversationNotFound(id)
	}
	delete(r.entries, id)
	return nil
}

// List returns live conversations, most recently updated first
func (r *MemoryConversationRepository) List(ctx context.Context) ([]*models.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.now()
	convs := make([]*models.Conversation, 0, len(r.entries))
	for _, entry := range r.entries {
		if !now.Before(entry.expiresAt) {
			continue
		}
		conv := cloneConversation(&entry.conv)
		convs = append(convs, &conv)
	}
	sortByUpdated(convs)
	return convs, nil
}

// PurgeExpired removes expired entries
func (r *MemoryConversationRepository) PurgeExpired(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	purged := 0
	for id, entry := range r.entries {
		if !now.Before(entry.expiresAt) {
			delete(r.entries, id)
			purged++
		}
	}
	return purged, nil
}

func cloneConversation(conv *models.Conversation) models.Conversation {
	c := *conv
	c.Messages = append([]models.ChatMessage(nil), conv.Messages...)
	c.Topics = append([]string(nil), conv.Topics...)
	return c
}

func sortByUpdated(convs []*models.Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		if convs[i].UpdatedAt.Equal(convs[j].UpdatedAt) {
			return convs[i].ID < convs[j].ID
		}
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})
}
