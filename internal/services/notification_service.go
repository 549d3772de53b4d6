package services

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/doubtsolve/backend/internal/models"
	"github.com/google/uuid"
)

const notificationPageSize = 20

// NotificationService keeps each user's inbox. Rows are written after the change
// they describe has committed, next to the Redis event for the same change.
type NotificationService struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

func NewNotificationService(db *sql.DB) *NotificationService {
	return &NotificationService{db: db, now: time.Now, newID: uuid.NewString}
}

// Notice is one inbox entry to be written for UserID.
type Notice struct {
	UserID  string
	Type    string
	Title   string
	Message string
	Link    string
}

type NotificationList struct {
	Notifications []models.Notification `json:"notifications"`
	Unread        int                   `json:"unread"`
}

// Notify stores n. Failures are logged, never returned.
func (s *NotificationService) Notify(ctx context.Context, n Notice) {
	if s == nil || n.UserID == "" {
		return
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, type, title, message, link, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)`,
		s.newID(), n.UserID, n.Type, n.Title, n.Message, n.Link, s.now())
	if err != nil {
		log.Printf("[NOTIFY] Failed to store %s notification for %s: %v", n.Type, n.UserID, err)
	}
}

// ListNotifications returns the caller's newest notifications and the unread count
// across the whole inbox.
func (s *NotificationService) ListNotifications(ctx context.Context, callerID string, limit int) (*NotificationList, error) {
	if callerID == "" {
		return nil, unauthenticated()
	}
	if limit <= 0 || limit > 100 {
		limit = notificationPageSize
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, title, message, link, is_read, created_at
		FROM notifications WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, callerID, limit)
	if err != nil {
		return nil, storeError("failed to list notifications", err)
	}
	defer rows.Close()

	list := &NotificationList{Notifications: []models.Notification{}}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Link, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, storeError("failed to read notification", err)
		}
		list.Notifications = append(list.Notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("failed to list notifications", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read`, callerID).Scan(&list.Unread)
	if err != nil {
		return nil, storeError("failed to count unread notifications", err)
	}
	return list, nil
}

// MarkRead marks one of the caller's notifications read. Marking an already read
// notification succeeds.
func (s *NotificationService) MarkRead(ctx context.Context, callerID, notificationID string) error {
	if callerID == "" {
		return unauthenticated()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE
		WHERE id = $1 AND user_id = $2`, notificationID, callerID)
	if err != nil {
		return storeError("failed to mark notification read", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeError("failed to mark notification read", err)
	}
	if n == 0 {
		return notFound("notification not found")
	}
	return nil
}

// MarkAllRead returns how many notifications changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, callerID string) (int64, error) {
	if callerID == "" {
		return 0, unauthenticated()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE
		WHERE user_id = $1 AND NOT is_read`, callerID)
	if err != nil {
		return 0, storeError("failed to mark notifications read", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeError("failed to mark notifications read", err)
	}

	log.Printf("[NOTIFY] %d notifications marked read for %s", n, callerID)
	return n, nil
}
