package repo_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelbot-core/server/internal/agent/model"
	"github.com/travelbot-core/server/internal/agent/repo"
)

func newClient(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL is not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())
	return rdb
}

func TestConversationRoundTrip(t *testing.T) {
	rdb := newClient(t)
	ctx := context.Background()
	r := repo.NewRedisConversationRepository(rdb, model.ConversationConfig{TTL: time.Minute, MaxTurns: 2})
	id := "test-" + uuid.NewString()
	t.Cleanup(func() { _ = r.ClearHistory(ctx, id) })

	h, err := r.LoadHistory(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, h.Turns)

	for _, turn := range []model.Turn{
		{User: "hi", Agent: "hello"},
		{User: "weather in Paris?", Agent: "sunny"},
		{User: "thanks", Agent: "any time"},
	} {
		require.NoError(t, r.AddTurn(ctx, id, turn))
	}

	n, err := r.GetTurnCount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	h, err = r.LoadHistory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, h.ConversationID)
	assert.Equal(t, []model.Turn{
		{User: "weather in Paris?", Agent: "sunny"},
		{User: "thanks", Agent: "any time"},
	}, h.Turns)

	ttl, err := rdb.TTL(ctx, "conversation:"+id+":turns").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, r.ClearHistory(ctx, id))
	n, err = r.GetTurnCount(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, n)
}
