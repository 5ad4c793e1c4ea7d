package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Holds keeps a slot reserved in Redis while the payment handshake is in
// flight, and mirrors committed slot occupancy for cheap display reads.
// Holds expire on their own, so an abandoned checkout frees the slot.
type Holds struct {
	Client  *redis.Client
	HoldTTL time.Duration
}

func NewHolds(client *redis.Client, holdTTL time.Duration) *Holds {
	if holdTTL <= 0 {
		holdTTL = 10 * time.Minute
	}
	return &Holds{Client: client, HoldTTL: holdTTL}
}

func holdKey(marketID string, scheduleIndex, timeIndex int) string {
	return fmt.Sprintf("slot_hold:%s:%d:%d", marketID, scheduleIndex, timeIndex)
}

func countKey(marketID string, scheduleIndex, timeIndex int) string {
	return fmt.Sprintf("slot_count:%s:%d:%d", marketID, scheduleIndex, timeIndex)
}

// HoldSlot takes the hold for reference. Returns false when another checkout
// already holds the slot.
func (h *Holds) HoldSlot(ctx context.Context, marketID string, scheduleIndex, timeIndex int, reference string) (bool, error) {
	key := holdKey(marketID, scheduleIndex, timeIndex)
	return h.Client.SetNX(ctx, key, reference, h.HoldTTL).Result()
}

// ReleaseSlot frees the hold, but only when reference still owns it.
func (h *Holds) ReleaseSlot(ctx context.Context, marketID string, scheduleIndex, timeIndex int, reference string) error {
	key := holdKey(marketID, scheduleIndex, timeIndex)
	val, err := h.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // already released or expired
	}
	if err != nil {
		return err
	}
	if val == reference {
		_, err := h.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}

// SlotHeld reports whether any checkout currently holds the slot.
func (h *Holds) SlotHeld(ctx context.Context, marketID string, scheduleIndex, timeIndex int) (bool, error) {
	key := holdKey(marketID, scheduleIndex, timeIndex)
	_, err := h.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PatchSlot records committed occupancy for display, with the same TTL
// horizon as holds so stale counters age out.
func (h *Holds) PatchSlot(ctx context.Context, marketID string, scheduleIndex, timeIndex int, bookedUsers, bookedTeams int) error {
	key := countKey(marketID, scheduleIndex, timeIndex)
	val := fmt.Sprintf("%d:%d", bookedUsers, bookedTeams)
	return h.Client.Set(ctx, key, val, 24*time.Hour).Err()
}
