package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type PaymentStatus string

// PaymentStatus only moves forward: pending -> held -> released, or to refunded/failed.
const (
	PaymentPending  PaymentStatus = "pending"
	PaymentHeld     PaymentStatus = "held"
	PaymentReleased PaymentStatus = "released"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentFailed   PaymentStatus = "failed"
)

// Payment is the escrow record for one doubt.
type Payment struct {
	ID               string        `json:"id" db:"id"`
	DoubtID          string        `json:"doubt_id" db:"doubt_id"`
	StudentID        string        `json:"student_id" db:"student_id"`
	TutorID          *string       `json:"tutor_id,omitempty" db:"tutor_id"`
	Amount           int64         `json:"amount" db:"amount"`
	PlatformFee      int64         `json:"platform_fee" db:"platform_fee"`
	Currency         string        `json:"currency" db:"currency"`
	GatewayOrderID   string        `json:"gateway_order_id" db:"gateway_order_id"`
	GatewayPaymentID string        `json:"gateway_payment_id,omitempty" db:"gateway_payment_id"`
	GatewaySignature string        `json:"-" db:"gateway_signature"`
	Status           PaymentStatus `json:"status" db:"status"`
	Notes            Metadata      `json:"notes,omitempty" db:"notes"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" db:"updated_at"`
}

// Metadata type for JSONB fields
type Metadata map[string]any

// Value implements driver.Valuer for Metadata
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for Metadata
func (m *Metadata) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(b, m)
}
