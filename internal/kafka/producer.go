package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"cancha-booking/internal/models"
)

// Topics names the streams the producer writes to.
type Topics struct {
	BookingConfirmed string
	PaymentUpdated   string
	TeamUpdated      string
}

// Producer streams booking and payment events to Kafka. A nil Producer is
// safe to call and drops events, so wiring stays optional in dev setups.
type Producer struct {
	Writer *kafka.Writer
	Topics Topics
}

func NewProducer(brokers []string, topics Topics) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{Writer: writer, Topics: topics}
}

func (p *Producer) publish(topic, key string, event interface{}) error {
	if p == nil || p.Writer == nil {
		return nil
	}

	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: msgBytes,
		},
	)
}

type bookingEvent struct {
	Type      string            `json:"type"`
	Game      models.BookedGame `json:"game"`
	Timestamp time.Time         `json:"timestamp"`
}

type paymentEvent struct {
	Type      string         `json:"type"`
	Payment   models.Payment `json:"payment"`
	Timestamp time.Time      `json:"timestamp"`
}

type teamEvent struct {
	Type      string      `json:"type"`
	Team      models.Team `json:"team"`
	Timestamp time.Time   `json:"timestamp"`
}

// PublishBookingConfirmed streams a confirmed slot reservation.
func (p *Producer) PublishBookingConfirmed(game models.BookedGame) error {
	return p.publish(p.Topics.BookingConfirmed, game.GameID, bookingEvent{
		Type:      "booking.confirmed",
		Game:      game,
		Timestamp: time.Now().UTC(),
	})
}

// PublishPaymentUpdated streams a webhook-written payment status change.
func (p *Producer) PublishPaymentUpdated(payment models.Payment) error {
	return p.publish(p.Topics.PaymentUpdated, payment.Reference, paymentEvent{
		Type:      fmt.Sprintf("payment.%s", payment.Status),
		Payment:   payment,
		Timestamp: time.Now().UTC(),
	})
}

// PublishTeamUpdated streams a roster change.
func (p *Producer) PublishTeamUpdated(team models.Team) error {
	return p.publish(p.Topics.TeamUpdated, team.TeamID, teamEvent{
		Type:      "team.updated",
		Team:      team,
		Timestamp: time.Now().UTC(),
	})
}

// Close flushes and shuts down the writer.
func (p *Producer) Close() error {
	if p == nil || p.Writer == nil {
		return nil
	}
	return p.Writer.Close()
}
