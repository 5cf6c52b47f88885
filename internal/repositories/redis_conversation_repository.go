package repositories

import (
	"context"
	"encoding/json"
	"time"

	"devops-gpt/internal/models"

	"github.com/juju/errors"
	"github.com/redis/go-redis/v9"
)

const (
	// Redis key prefixes for conversations
	conversationKeyPrefix = "conversation:"
	conversationIndexKey  = "conversations:index"
)

// RedisConversationRepository implements ConversationRepository using Redis.
// Each conversation is a JSON string with a TTL; the index set lists IDs and
// may hold IDs whose key already expired until PurgeExpired runs.
type RedisConversationRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisConversationRepository creates a new Redis-based conversation repository
func NewRedisConversationRepository(client *redis.Client, ttl time.Duration) *RedisConversationRepository {
	if ttl <= 0 {
		ttl = DefaultConversationTTL
	}
	return &RedisConversationRepository{
		client: client,
		ttl:    ttl,
	}
}

// Create stores a new conversation
func (r *RedisConversationRepository) Create(ctx context.Context, conv *models.Conversation) error {
	if err := validateConversation(conv); err != nil {
		return err
	}

	now := time.Now().UTC()
	conv.CreatedAt = now
	conv.UpdatedAt = now

	data, err := json.Marshal(conv)
	if err != nil {
		return errors.Annotatef(err, "marshal conversation %q", conv.ID)
	}

	// SADD of an ID already in the index is a no-op, so the pair can run
	// in one MULTI even when the key exists
	var created *redis.BoolCmd
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		created = pipe.SetNX(ctx, conversationKeyPrefix+conv.ID, data, r.ttl)
		pipe.SAdd(ctx, conversationIndexKey, conv.ID)
		return nil
	})
	if err != nil {
		return errors.Annotatef(err, "create conversation %q", conv.ID)
	}
	if !created.Val() {
		return conversationExists(conv.ID)
	}
	return nil
}

// Get retrieves a conversation by ID
func (r *RedisConversationRepository) Get(ctx context.Context, id string) (*models.Conversation, error) {
	data, err := r.client.Get(ctx, conversationKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, conversationNotFound(id)
	}
	if err != nil {
		return nil, errors.Annotatef(err, "get conversation %q", id)
	}

	var conv models.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, errors.Annotatef(err, "unmarshal conversation %q", id)
	}
	return &conv, nil
}

// Save overwrites an existing conversation and refreshes its TTL
func (r *RedisConversationRepository) Save(ctx context.Context, conv *models.Conversation) error {
	if err := validateConversation(conv); err != nil {
		return err
	}

	conv.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(conv)
	if err != nil {
		return errors.Annotatef(err, "marshal conversation %q", conv.ID)
	}

	updated, err := r.client.SetXX(ctx, conversationKeyPrefix+conv.ID, data, r.ttl).Result()
	if err != nil {
		return errors.Annotatef(err, "save conversation %q", conv.ID)
	}
	if !updated {
		return conversationNotFound(conv.ID)
	}
	return nil
}

// Delete removes a conversation and its index entry
func (r *RedisConversationRepository) Delete(ctx context.Context, id string) error {
	pipe := r.client.TxPipeline()
	del := pipe.Del(ctx, conversationKeyPrefix+id)
	pipe.SRem(ctx, conversationIndexKey, id)

	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Annotatef(err, "delete conversation %q", id)
	}
	if del.Val() == 0 {
		return conversationNotFound(id)
	}
	return nil
}

// List returns all live conversations, most recently updated first
func (r *RedisConversationRepository) List(ctx context.Context) ([]*models.Conversation, error) {
	ids, err := r.client.SMembers(ctx, conversationIndexKey).Result()
	if err != nil {
		return nil, errors.Annotate(err, "list conversation ids")
	}
	if len(ids) == 0 {
		return []*models.Conversation{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = conversationKeyPrefix + id
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Annotate(err, "load conversations")
	}

	convs := make([]*models.Conversation, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// expired since the index was read
			continue
		}
		var conv models.Conversation
		if err := json.Unmarshal([]byte(s), &conv); err != nil {
			return nil, errors.Annotatef(err, "unmarshal conversation %q", ids[i])
		}
		convs = append(convs, &conv)
	}

	sortByUpdated(convs)
	return convs, nil
}

// PurgeExpired removes index entries whose conversation key has expired.
// Redis expires the keys themselves.
func (r *RedisConversationRepository) PurgeExpired(ctx context.Context) (int, error) {
	ids, err := r.client.SMembers(ctx, conversationIndexKey).Result()
	if err != nil {
		return 0, errors.Annotate(err, "list conversation ids")
	}
	if len(ids) == 0 {
		return 0, nil
	}

	pipe := r.client.Pipeline()
	checks := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		checks[i] = pipe.Exists(ctx, conversationKeyPrefix+id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, errors.Annotate(err, "check conversation keys")
	}

	var stale []interface{}
	for i, cmd := range checks {
		if cmd.Val() == 0 {
			stale = append(stale, ids[i])
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	if err := r.client.SRem(ctx, conversationIndexKey, stale...).Err(); err != nil {
		return 0, errors.Annotate(err, "remove stale conversation ids")
	}
	return len(stale), nil
}
