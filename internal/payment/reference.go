package payment

import (
	"fmt"
	"time"
)

// NewReference builds the checkout reference from the slot coordinates, the
// requester and a millisecond timestamp. Practically unique, not
// cryptographically so; the pending-booking insert rejects a collision.
func NewReference(marketID string, scheduleIndex, timeIndex int, userID string) string {
	return fmt.Sprintf("%s-%d-%d-%s-%d", marketID, scheduleIndex, timeIndex, userID, time.Now().UnixMilli())
}
