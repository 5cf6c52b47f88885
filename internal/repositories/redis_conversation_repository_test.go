package repositories

import (
	"context"
	"testing"
	"time"

	"devops-gpt/internal/models"

	"github.com/juju/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	if testing.Short() {
		t.Skip("Skipping Redis integration test")
	}

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use separate DB for testing
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("Redis not available: %v", err)
	}

	// Flush test database
	require.NoError(t, client.FlushDB(ctx).Err())

	return client
}

func TestNewRedisConversationRepository(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	repo := NewRedisConversationRepository(client, 0)
	assert.NotNil(t, repo)
	assert.Equal(t, client, repo.client)
	assert.Equal(t, DefaultConversationTTL, repo.ttl)
}

func TestRedisConversationRepository_CreateGet(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()
	repo := NewRedisConversationRepository(client, time.Hour)
	ctx := context.Background()

	t.Run("successful creation", func(t *testing.T) {
		conv := &models.Conversation{ID: "conv-1", Model: "test-model"}
		conv.Append(models.ChatMessage{Role: models.RoleUser, Content: "How do I roll back a helm release?"})
		require.NoError(t, repo.Create(ctx, conv))

		got, err := repo.Get(ctx, "conv-1")
		require.NoError(t, err)
		assert.Equal(t, conv.Title, got.Title)
		assert.Equal(t, conv.Messages, got.Messages)
		assert.NotZero(t, got.CreatedAt)

		ttl, err := client.TTL(ctx, conversationKeyPrefix+"conv-1").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
	})

	t.Run("duplicate creation fails", func(t *testing.T) {
		err := repo.Create(ctx, &models.Conversation{ID: "conv-1"})
		assert.True(t, errors.Is(err, errors.AlreadyExists))
	})

	t.Run("get non-existent conversation", func(t *testing.T) {
		_, err := repo.Get(ctx, "missing")
		assert.True(t, errors.Is(err, errors.NotFound))
	})
}

func TestRedisConversationRepository_CreateIndexes(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()
	repo := NewRedisConversationRepository(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Conversation{ID: "conv-idx"}))

	indexed, err := client.SIsMember(ctx, conversationIndexKey, "conv-idx").Result()
	require.NoError(t, err)
	assert.True(t, indexed)

	// a key that lost its index entry is listed again after a create attempt
	require.NoError(t, client.SRem(ctx, conversationIndexKey, "conv-idx").Err())
	err = repo.Create(ctx, &models.Conversation{ID: "conv-idx"})
	assert.True(t, errors.Is(err, errors.AlreadyExists))

	convs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "conv-idx", convs[0].ID)
}

func TestRedisConversationRepository_Save(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()
	repo := NewRedisConversationRepository(client, time.Hour)
	ctx := context.Background()

	conv := &models.Conversation{ID: "conv-save"}
	require.NoError(t, repo.Create(ctx, conv))

	conv.Append(models.ChatMessage{Role: models.RoleAssistant, Content: "Use helm rollback."})
	require.NoError(t, repo.Save(ctx, conv))

	got, err := repo.Get(ctx, "conv-save")
	require.NoError(t, err)
	assert.Len(t, got.Messages, 1)

	err = repo.Save(ctx, &models.Conversation{ID: "missing"})
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestRedisConversationRepository_DeleteAndList(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()
	repo := NewRedisConversationRepository(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Conversation{ID: "a"}))
	require.NoError(t, repo.Create(ctx, &models.Conversation{ID: "b"}))

	convs, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, convs, 2)

	require.NoError(t, repo.Delete(ctx, "a"))
	err = repo.Delete(ctx, "a")
	assert.True(t, errors.Is(err, errors.NotFound))

	convs, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "b", convs[0].ID)
}

func TestRedisConversationRepository_PurgeExpired(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()
	repo := NewRedisConversationRepository(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Conversation{ID: "live"}))
	require.NoError(t, repo.Create(ctx, &models.Conversation{ID: "gone"}))

	// simulate key expiry
	require.NoError(t, client.Del(ctx, conversationKeyPrefix+"gone").Err())

	convs, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, convs, 1)

	purged, err := repo.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	members, err := client.SMembers(ctx, conversationIndexKey).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"live"}, members)
}
