package services

import (
	"context"
	"database/sql"
	"log"
	"slices"
	"time"

	"github.com/doubtsolve/backend/internal/models"
	"github.com/google/uuid"
)

type MessageService struct {
	db     *sql.DB
	events  *EventPublisher
	notices *NotificationService
	now     func() time.Time
	newID   func() string
}

func NewMessageService(db *sql.DB, events *EventPublisher, notices *NotificationService) *MessageService {
	return &MessageService{db: db, events: events, notices: notices, now: time.Now, newID: uuid.NewString}
}

type PostMessageRequest struct {
	Content string `json:"content" validate:"required_without=FileURL,max=4000" example:"Start from the range formula on a tilted axis."`
	Type    string `json:"type" validate:"omitempty,oneof=text file" example:"text"`
	FileURL string `json:"fileUrl,omitempty" validate:"omitempty,url" example:"https://cdn.example.com/notes.pdf"`
}

// PostMessage stores a chat message on the doubt and fans it out to the other participant.
func (s *MessageService) PostMessage(ctx context.Context, callerID, doubtID string, req PostMessageRequest) (*models.Message, error) {
	doubt, err := participantDoubt(ctx, s.db, callerID, doubtID)
	if err != nil {
		return nil, err
	}

	msgType := req.Type
	if msgType == "" {
		msgType = models.MessageTypeText
	}
	if msgType == models.MessageTypeFile && req.FileURL == "" {
		return nil, newError(KindInvalidArgument, "file messages need a fileUrl", nil)
	}

	msg := &models.Message{
		ID:        s.newID(),
		DoubtID:   doubtID,
		SenderID:  callerID,
		Content:   req.Content,
		Type:      msgType,
		FileURL:   req.FileURL,
		CreatedAt: s.now(),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO messages (id, doubt_id, sender_id, content, type, file_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		msg.ID, msg.DoubtID, msg.SenderID, msg.Content, msg.Type, msg.FileURL, msg.CreatedAt)
	if err != nil {
		return nil, storeError("failed to store message", err)
	}

	recipient := doubt.StudentID
	if recipient == callerID && doubt.AcceptedTutorID != nil {
		recipient = *doubt.AcceptedTutorID
	}
	s.events.Publish(ctx, EventMessagePosted, doubtID, callerID, msg, recipient)
	if recipient != callerID {
		s.notices.Notify(ctx, Notice{
			UserID: recipient,
			Type:   models.NotificationMessage,
			Title:  "New message",
			Link:   doubtLink(doubtID) + "/chat",
		})
	}

	log.Printf("[CHAT] Message %s posted on doubt %s", msg.ID, doubtID)
	return msg, nil
}

// ListMessages returns the newest limit messages of a doubt in chronological order.
func (s *MessageService) ListMessages(ctx context.Context, callerID, doubtID string, limit int) ([]models.Message, error) {
	if _, err := participantDoubt(ctx, s.db, callerID, doubtID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, doubt_id, sender_id, content, type, file_url, created_at
		FROM messages WHERE doubt_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, doubtID, limit)
	if err != nil {
		return nil, storeError("failed to list messages", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.DoubtID, &m.SenderID, &m.Content, &m.Type, &m.FileURL, &m.CreatedAt); err != nil {
			return nil, storeError("failed to read message", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("failed to list messages", err)
	}

	// newest page, returned oldest first
	slices.Reverse(messages)
	return messages, nil
}
