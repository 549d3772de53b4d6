package models

import "time"

type DoubtStatus string

const (
	DoubtStatusOpen      DoubtStatus = "open"
	DoubtStatusAccepted  DoubtStatus = "accepted"
	DoubtStatusSolved    DoubtStatus = "solved"
	DoubtStatusExpired   DoubtStatus = "expired"
	DoubtStatusCancelled DoubtStatus = "cancelled"
)

type PreferredMode string

const (
	ModeText PreferredMode = "text"
	ModeCall PreferredMode = "call"
	ModeBoth PreferredMode = "both"
)

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationAccepted ApplicationStatus = "accepted"
	ApplicationRejected ApplicationStatus = "rejected"
)

// Doubt is a priced question posted by a student. Price is in whole currency units
// and is never updated after insert.
type Doubt struct {
	ID              string             `json:"id" db:"id"`
	StudentID       string             `json:"student_id" db:"student_id"`
	Title           string             `json:"title" db:"title"`
	Description     string             `json:"description" db:"description"`
	Subject         string             `json:"subject" db:"subject"`
	Price           int64              `json:"price" db:"price"`
	Status          DoubtStatus        `json:"status" db:"status"`
	PreferredMode   PreferredMode      `json:"preferred_mode" db:"preferred_mode"`
	AcceptedTutorID *string            `json:"accepted_tutor_id,omitempty" db:"accepted_tutor_id"`
	CreatedAt       time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at" db:"updated_at"`
	Applications    []DoubtApplication `json:"applications,omitempty"`
}

// IsParticipant reports whether userID is the owning student or the accepted tutor.
func (d *Doubt) IsParticipant(userID string) bool {
	if userID == "" {
		return false
	}
	if d.StudentID == userID {
		return true
	}
	return d.AcceptedTutorID != nil && *d.AcceptedTutorID == userID
}

type DoubtApplication struct {
	ID        string            `json:"id" db:"id"`
	DoubtID   string            `json:"doubt_id" db:"doubt_id"`
	TutorID   string            `json:"tutor_id" db:"tutor_id"`
	Message   string            `json:"message,omitempty" db:"message"`
	Status    ApplicationStatus `json:"status" db:"status"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
}
