package models

import "time"

const (
	NotificationApplication = "application"
	NotificationAccepted    = "accepted"
	NotificationPayment     = "payment"
	NotificationMessage     = "message"
	NotificationAnswer      = "answer"
)

type Notification struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Type      string    `json:"type" db:"type"`
	Title     string    `json:"title" db:"title"`
	Message   string    `json:"message" db:"message"`
	Link      string    `json:"link" db:"link"`
	IsRead    bool      `json:"is_read" db:"is_read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
