package audit

import (
	"encoding/json"
	"log"
	"time"
)

type Event struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	PaymentID string    `json:"payment_id,omitempty"`
	DoubtID   string    `json:"doubt_id,omitempty"`
	ActorID   string    `json:"actor_id,omitempty"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	Details   any       `json:"details,omitempty"`
}

// Logger writes one JSON line per money movement.
type Logger struct {
	out *log.Logger
	now func() time.Time
}

func NewLogger() *Logger {
	return &Logger{out: log.Default(), now: time.Now}
}

// NewLoggerTo is used by tests to capture output.
func NewLoggerTo(out *log.Logger, now func() time.Time) *Logger {
	return &Logger{out: out, now: now}
}

func (a *Logger) LogOrderCreated(paymentID, doubtID, studentID, orderID string, amount int64) {
	a.log(Event{
		EventType: "ORDER_CREATED",
		PaymentID: paymentID,
		DoubtID:   doubtID,
		ActorID:   studentID,
		Amount:    amount,
		Status:    "PENDING",
		Details:   map[string]string{"gateway_order_id": orderID},
	})
}

func (a *Logger) LogHold(paymentID, doubtID, gatewayPaymentID string, amount int64) {
	a.log(Event{
		EventType: "ESCROW_HOLD",
		PaymentID: paymentID,
		DoubtID:   doubtID,
		Amount:    amount,
		Status:    "HELD",
		Details:   map[string]string{"gateway_payment_id": gatewayPaymentID},
	})
}

func (a *Logger) LogRelease(paymentID, doubtID, studentID, tutorID string, tutorAmount, fee int64) {
	a.log(Event{
		EventType: "ESCROW_RELEASE",
		PaymentID: paymentID,
		DoubtID:   doubtID,
		ActorID:   studentID,
		Amount:    tutorAmount,
		Status:    "RELEASED",
		Details: map[string]any{
			"tutor_id":     tutorID,
			"platform_fee": fee,
		},
	})
}

func (a *Logger) LogError(operation, doubtID, actorID string, err error) {
	a.log(Event{
		EventType: operation,
		DoubtID:   doubtID,
		ActorID:   actorID,
		Status:    "FAILED",
		Details:   map[string]string{"error": err.Error()},
	})
}

func (a *Logger) log(event Event) {
	event.Timestamp = a.now()
	data, _ := json.Marshal(event)
	a.out.Printf("AUDIT: %s", string(data))
}
