package assistant

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisHistoryRoundTrip(t *testing.T) {
	mr, client := setupTestRedis(t)
	h := NewRedisHistoryFromClient(client)
	h.max = 3
	ctx := context.Background()

	require.NoError(t, h.Append(ctx, "s1",
		Message{Role: RoleUser, Content: "oi"},
		Message{Role: RoleAssistant, Content: "Olá!"}))
	require.NoError(t, h.Append(ctx, "s1",
		Message{Role: RoleUser, Content: "tem dipirona?"},
		Message{Role: RoleAssistant, Content: "Sim."}))

	got, err := h.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Olá!", got[0].Content)
	assert.Equal(t, RoleAssistant, got[2].Role)

	assert.True(t, mr.Exists("pharmastore:chat:s1"))
	assert.Equal(t, DefaultHistoryTTL, mr.TTL("pharmastore:chat:s1"))

	mr.FastForward(25 * time.Hour)
	got, err = h.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNewRedisHistoryConnects(t *testing.T) {
	mr, _ := setupTestRedis(t)
	addr := mr.Addr()
	h, err := NewRedisHistory(context.Background(), "redis://"+addr+"/0")
	require.NoError(t, err)
	defer h.Close()
	require.NoError(t, h.Append(context.Background(), "s", Message{Role: RoleUser, Content: "x"}))

	mr.Close()
	_, err = NewRedisHistory(context.Background(), "redis://"+addr+"/0")
	assert.Error(t, err)
}
