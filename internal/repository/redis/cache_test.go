package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a throwaway Redis container
func setupRedis(t *testing.T) *Cache {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start redis container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get redis endpoint: %v", err)
	}

	cache := NewFromClient(goredis.NewClient(&goredis.Options{Addr: endpoint}))
	t.Cleanup(func() { _ = cache.Close() })
	require.NoError(t, cache.Health(ctx))
	return cache
}

func TestProfileStore_GetSet(t *testing.T) {
	cache := setupRedis(t)
	ctx := context.Background()
	store := cache.Profiles("test-user")
	assert.Equal(t, "smartfill:profile:test-user", store.Key())

	require.NoError(t, store.Set(ctx, map[string]json.RawMessage{
		"firstName":    json.RawMessage(`"Asha"`),
		"customFields": json.RawMessage(`{"ifsc":"SBIN0000001"}`),
	}))

	all, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.JSONEq(t, `{"ifsc":"SBIN0000001"}`, string(all["customFields"]))

	some, err := store.Get(ctx, "firstName", "missing")
	require.NoError(t, err)
	assert.Len(t, some, 1)
	assert.JSONEq(t, `"Asha"`, string(some["firstName"]))

	other, err := cache.Profiles("someone-else").Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestCache_CheckRateLimit(t *testing.T) {
	cache := setupRedis(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		allowed, count, err := cache.CheckRateLimit(ctx, "client-a", 2)
		require.NoError(t, err)
		assert.Equal(t, i, count)
		assert.Equal(t, i <= 2, allowed)
	}

	remaining, err := cache.GetRateLimitRemaining(ctx, "client-a", 2)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	remaining, err = cache.GetRateLimitRemaining(ctx, "client-b", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)
}

func TestCache_PublishSubscribe(t *testing.T) {
	cache := setupRedis(t)
	ctx := context.Background()

	sub := cache.Subscribe(ctx, "smartfill:test")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, cache.Publish(ctx, "smartfill:test", map[string]string{"type": "MVP_TEST_AUTOFILL"}))

	select {
	case msg := <-sub.Channel():
		assert.JSONEq(t, `{"type":"MVP_TEST_AUTOFILL"}`, msg.Payload)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}
