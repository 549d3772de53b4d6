package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	EventPaymentHeld         = "payment.held"
	EventPaymentReleased     = "payment.released"
	EventApplicationCreated  = "application.created"
	EventApplicationAccepted = "application.accepted"
	EventMessagePosted       = "message.posted"
	EventAnswerSubmitted     = "answer.submitted"
)

// Event is fanned out on Redis after the write that caused it has committed.
// Delivery is at-least-once; subscribers dedupe on ID.
type Event struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	DoubtID string    `json:"doubtId"`
	ActorID string    `json:"actorId,omitempty"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

func DoubtChannel(doubtID string) string {
	return fmt.Sprintf("doubt:%s", doubtID)
}

func UserChannel(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}

type EventPublisher struct {
	redis *redis.Client
	now   func() time.Time
	newID func() string
}

func NewEventPublisher(redisClient *redis.Client) *EventPublisher {
	return &EventPublisher{
		redis: redisClient,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Publish sends event on the doubt channel and on each recipient's user channel.
// Failures are logged, never returned: the state change has already committed.
func (p *EventPublisher) Publish(ctx context.Context, eventType, doubtID, actorID string, payload any, recipients ...string) {
	if p == nil || p.redis == nil {
		return
	}

	event := Event{
		ID:      p.newID(),
		Type:    eventType,
		DoubtID: doubtID,
		ActorID: actorID,
		Payload: payload,
		At:      p.now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[EVENTS] Failed to encode %s for doubt %s: %v", eventType, doubtID, err)
		return
	}

	channels := []string{DoubtChannel(doubtID)}
	for _, userID := range recipients {
		if userID != "" {
			channels = append(channels, UserChannel(userID))
		}
	}

	for _, channel := range channels {
		if err := p.redis.Publish(ctx, channel, string(data)).Err(); err != nil {
			log.Printf("[EVENTS] Failed to publish %s on %s: %v", eventType, channel, err)
		}
	}
}
