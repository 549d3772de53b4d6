package models

import "time"

const (
	MessageTypeText   = "text"
	MessageTypeFile   = "file"
	MessageTypeSystem = "system"
)

type Message struct {
	ID        string    `json:"id" db:"id"`
	DoubtID   string    `json:"doubt_id" db:"doubt_id"`
	SenderID  string    `json:"sender_id" db:"sender_id"`
	Content   string    `json:"content" db:"content"`
	Type      string    `json:"type" db:"type"`
	FileURL   string    `json:"file_url,omitempty" db:"file_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
