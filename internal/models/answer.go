package models

import "time"

type AnswerType string

const (
	AnswerTypeText          AnswerType = "text"
	AnswerTypeCallRecording AnswerType = "call_recording"
)

// Answer is the accepted tutor's solution to a doubt. A doubt has at most one.
type Answer struct {
	ID         string     `json:"id" db:"id"`
	DoubtID    string     `json:"doubt_id" db:"doubt_id"`
	TutorID    string     `json:"tutor_id" db:"tutor_id"`
	Type       AnswerType `json:"type" db:"type"`
	Content    string     `json:"content,omitempty" db:"content"`
	ContentURL string     `json:"content_url,omitempty" db:"content_url"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}
