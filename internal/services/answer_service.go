package services

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/doubtsolve/backend/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// AnswerService records the accepted tutor's solution to a doubt.
type AnswerService struct {
	db      *sql.DB
	events  *EventPublisher
	notices *NotificationService
	now     func() time.Time
	newID   func() string
}

func NewAnswerService(db *sql.DB, events *EventPublisher, notices *NotificationService) *AnswerService {
	return &AnswerService{db: db, events: events, notices: notices, now: time.Now, newID: uuid.NewString}
}

type SubmitAnswerRequest struct {
	Type       models.AnswerType `json:"type" validate:"omitempty,oneof=text call_recording" example:"text"`
	Content    string            `json:"content" validate:"max=20000" example:"Resolve gravity along the incline first."`
	ContentURL string            `json:"contentUrl,omitempty" validate:"omitempty,url" example:"https://cdn.example.com/recordings/d1.mp4"`
}

// SubmitAnswer stores the answer of the doubt's accepted tutor. A doubt takes one answer.
func (s *AnswerService) SubmitAnswer(ctx context.Context, callerID, doubtID string, req SubmitAnswerRequest) (*models.Answer, error) {
	doubt, err := participantDoubt(ctx, s.db, callerID, doubtID)
	if err != nil {
		return nil, err
	}
	if doubt.AcceptedTutorID == nil || *doubt.AcceptedTutorID != callerID {
		return nil, forbidden("only the accepted tutor can answer this doubt")
	}
	if doubt.Status != models.DoubtStatusAccepted {
		return nil, preconditionFailed("doubt is " + string(doubt.Status) + ", expected accepted")
	}

	answerType := req.Type
	if answerType == "" {
		answerType = models.AnswerTypeText
	}
	switch {
	case answerType == models.AnswerTypeText && req.Content == "":
		return nil, newError(KindInvalidArgument, "text answers need content", nil)
	case answerType == models.AnswerTypeCallRecording && req.ContentURL == "":
		return nil, newError(KindInvalidArgument, "call recordings need a contentUrl", nil)
	}

	answer := &models.Answer{
		ID:         s.newID(),
		DoubtID:    doubtID,
		TutorID:    callerID,
		Type:       answerType,
		Content:    req.Content,
		ContentURL: req.ContentURL,
		CreatedAt:  s.now(),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO answers (id, doubt_id, tutor_id, type, content, content_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		answer.ID, answer.DoubtID, answer.TutorID, string(answer.Type), answer.Content, answer.ContentURL, answer.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, preconditionFailed("doubt already has an answer")
		}
		return nil, storeError("failed to store answer", err)
	}

	s.events.Publish(ctx, EventAnswerSubmitted, doubtID, callerID,
		map[string]any{"answerId": answer.ID, "type": answer.Type}, doubt.StudentID)
	s.notices.Notify(ctx, Notice{
		UserID:  doubt.StudentID,
		Type:    models.NotificationAnswer,
		Title:   "Your doubt has an answer",
		Message: doubt.Title,
		Link:    doubtLink(doubtID),
	})

	log.Printf("[ANSWERS] Tutor %s answered doubt %s", callerID, doubtID)
	return answer, nil
}

func (s *AnswerService) ListAnswers(ctx context.Context, callerID, doubtID string) ([]models.Answer, error) {
	if _, err := participantDoubt(ctx, s.db, callerID, doubtID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, doubt_id, tutor_id, type, content, content_url, created_at
		FROM answers WHERE doubt_id = $1
		ORDER BY created_at ASC`, doubtID)
	if err != nil {
		return nil, storeError("failed to list answers", err)
	}
	defer rows.Close()

	answers := []models.Answer{}
	for rows.Next() {
		var a models.Answer
		if err := rows.Scan(&a.ID, &a.DoubtID, &a.TutorID, &a.Type, &a.Content, &a.ContentURL, &a.CreatedAt); err != nil {
			return nil, storeError("failed to read answer", err)
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("failed to list answers", err)
	}
	return answers, nil
}
