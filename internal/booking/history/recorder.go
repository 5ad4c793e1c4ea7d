package history

import (
	"context"
	"fmt"
	"time"

	"cancha-booking/internal/logger"
	"cancha-booking/internal/models"
)

// Store is the subset of the database the recorder writes to.
type Store interface {
	CreateBookedGame(ctx context.Context, game models.BookedGame) error
}

// Recorder drains best-effort booked-game writes through a bounded queue
// with retries. The slot reservation and this record are not one atomic
// unit; the queue narrows the window where a crashed write leaves the games
// screen behind, and the final drop is logged loudly instead of swallowed.
type Recorder struct {
	store       Store
	queue       chan models.BookedGame
	logger      *logger.Logger
	maxAttempts int
	backoff     time.Duration
}

func NewRecorder(store Store, log *logger.Logger, queueSize, maxAttempts int, backoff time.Duration) *Recorder {
	if queueSize <= 0 {
		queueSize = 256
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	return &Recorder{
		store:       store,
		queue:       make(chan models.BookedGame, queueSize),
		logger:      log,
		maxAttempts: maxAttempts,
		backoff:     backoff,
	}
}

// Record enqueues a game without blocking the reservation path. A full
// queue drops the record and logs it.
func (r *Recorder) Record(game models.BookedGame) {
	select {
	case r.queue <- game:
	default:
		r.logger.Error("HISTORY", fmt.Sprintf("queue full, dropping booked game %s", game.GameID))
	}
}

// Start runs the drain loop until ctx is cancelled.
func (r *Recorder) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case game := <-r.queue:
				r.persist(ctx, game)
			}
		}
	}()
}

func (r *Recorder) persist(ctx context.Context, game models.BookedGame) {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if err := r.store.CreateBookedGame(ctx, game); err != nil {
			lastErr = err
			r.logger.Warn("HISTORY",
				fmt.Sprintf("write booked game %s failed (attempt %d/%d): %v",
					game.GameID, attempt, r.maxAttempts, err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.backoff):
			}
			continue
		}
		if attempt > 1 {
			r.logger.Info("HISTORY", fmt.Sprintf("booked game %s written after %d attempts", game.GameID, attempt))
		}
		return
	}

	r.logger.Error("HISTORY",
		fmt.Sprintf("giving up on booked game %s after %d attempts: %v",
			game.GameID, r.maxAttempts, lastErr))
}

// Drain synchronously flushes whatever is queued, for shutdown and tests.
func (r *Recorder) Drain(ctx context.Context) {
	for {
		select {
		case game := <-r.queue:
			r.persist(ctx, game)
		default:
			return
		}
	}
}
