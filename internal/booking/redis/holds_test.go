package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a Redis client backed by miniredis, an in-memory
// server that needs no real Redis instance.
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		mr.Close()
		t.Fatalf("Failed to connect to miniredis: %v", err)
	}

	return client, mr
}

func cleanupTestRedis(client *redis.Client, mr *miniredis.Miniredis) {
	if client != nil {
		client.Close()
	}
	if mr != nil {
		mr.Close()
	}
}

func TestHoldSlot_FirstHoldWins(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	h := NewHolds(client, time.Minute)
	ctx := context.Background()

	held, err := h.HoldSlot(ctx, "market-1", 0, 2, "ref-1")
	require.NoError(t, err)
	assert.True(t, held, "First hold should succeed")

	held, err = h.HoldSlot(ctx, "market-1", 0, 2, "ref-2")
	require.NoError(t, err)
	assert.False(t, held, "Second hold on the same slot should fail")

	// A different slot of the same market is unaffected
	held, err = h.HoldSlot(ctx, "market-1", 0, 3, "ref-2")
	require.NoError(t, err)
	assert.True(t, held)

	val, err := client.Get(ctx, "slot_hold:market-1:0:2").Result()
	require.NoError(t, err)
	assert.Equal(t, "ref-1", val)
}

func TestReleaseSlot_OnlyOwnerReleases(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	h := NewHolds(client, time.Minute)
	ctx := context.Background()

	held, err := h.HoldSlot(ctx, "market-1", 1, 0, "ref-1")
	require.NoError(t, err)
	require.True(t, held)

	// Wrong reference leaves the hold in place
	require.NoError(t, h.ReleaseSlot(ctx, "market-1", 1, 0, "ref-other"))
	stillHeld, err := h.SlotHeld(ctx, "market-1", 1, 0)
	require.NoError(t, err)
	assert.True(t, stillHeld, "Hold should survive a release by a non-owner")

	require.NoError(t, h.ReleaseSlot(ctx, "market-1", 1, 0, "ref-1"))
	stillHeld, err = h.SlotHeld(ctx, "market-1", 1, 0)
	require.NoError(t, err)
	assert.False(t, stillHeld)

	// Releasing an already-free slot is a no-op
	require.NoError(t, h.ReleaseSlot(ctx, "market-1", 1, 0, "ref-1"))
}

func TestHoldSlot_ExpiresOnItsOwn(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	h := NewHolds(client, 5*time.Second)
	ctx := context.Background()

	held, err := h.HoldSlot(ctx, "market-1", 0, 0, "ref-1")
	require.NoError(t, err)
	require.True(t, held)

	mr.FastForward(6 * time.Second)

	held, err = h.HoldSlot(ctx, "market-1", 0, 0, "ref-2")
	require.NoError(t, err)
	assert.True(t, held, "Slot should be free after the hold TTL passes")
}

func TestSlotHeld(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	h := NewHolds(client, time.Minute)
	ctx := context.Background()

	held, err := h.SlotHeld(ctx, "market-1", 0, 0)
	require.NoError(t, err)
	assert.False(t, held)

	_, err = h.HoldSlot(ctx, "market-1", 0, 0, "ref-1")
	require.NoError(t, err)

	held, err = h.SlotHeld(ctx, "market-1", 0, 0)
	require.NoError(t, err)
	assert.True(t, held)
}

func TestPatchSlot(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	h := NewHolds(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, h.PatchSlot(ctx, "market-1", 0, 2, 7, 1))

	val, err := client.Get(ctx, "slot_count:market-1:0:2").Result()
	require.NoError(t, err)
	assert.Equal(t, "7:1", val)

	ttl := client.TTL(ctx, "slot_count:market-1:0:2").Val()
	assert.Greater(t, ttl, time.Duration(0), "Counter should carry a TTL")
}

func TestNewHoldsDefaultTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	h := NewHolds(client, 0)
	assert.Equal(t, 10*time.Minute, h.HoldTTL)
}
