package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/doubtsolve/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNotifications(t *testing.T) (*NotificationService, sqlmock.Sqlmock) {
	t.Helper()
	db, m, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewNotificationService(db)
	svc.now = func() time.Time { return fixedNow }
	svc.newID = func() string { return "n1" }
	return svc, m
}

func TestNotificationService_Notify(t *testing.T) {
	t.Run("stores an unread row", func(t *testing.T) {
		svc, m := newTestNotifications(t)

		m.ExpectExec("INSERT INTO notifications").
			WithArgs("n1", "t1", models.NotificationAccepted, "Application accepted", "Limits", "/doubts/d1", fixedNow).
			WillReturnResult(sqlmock.NewResult(0, 1))

		svc.Notify(context.Background(), Notice{
			UserID: "t1", Type: models.NotificationAccepted, Title: "Application accepted",
			Message: "Limits", Link: "/doubts/d1",
		})
		assert.NoError(t, m.ExpectationsWereMet())
	})

	t.Run("store failure is swallowed", func(t *testing.T) {
		svc, m := newTestNotifications(t)

		m.ExpectExec("INSERT INTO notifications").WillReturnError(errors.New("connection reset"))

		assert.NotPanics(t, func() {
			svc.Notify(context.Background(), Notice{UserID: "t1", Type: models.NotificationPayment, Title: "Payment released"})
		})
		assert.NoError(t, m.ExpectationsWereMet())
	})

	t.Run("nil service and empty recipient are no-ops", func(t *testing.T) {
		var none *NotificationService
		assert.NotPanics(t, func() {
			none.Notify(context.Background(), Notice{UserID: "t1"})
		})

		svc, m := newTestNotifications(t)
		svc.Notify(context.Background(), Notice{Type: models.NotificationMessage})
		assert.NoError(t, m.ExpectationsWereMet())
	})
}

func TestNotificationService_ListNotifications(t *testing.T) {
	svc, m := newTestNotifications(t)

	m.ExpectQuery("FROM notifications WHERE user_id = \\$1 ORDER BY created_at DESC LIMIT \\$2").
		WithArgs("s1", notificationPageSize).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "type", "title", "message", "link", "is_read", "created_at"}).
			AddRow("n2", "s1", "application", "New tutor application", "", "/doubts/d1", false, fixedNow.Add(time.Minute)).
			AddRow("n1", "s1", "payment", "Payment secured", "", "/doubts/d1", true, fixedNow))
	m.ExpectQuery("SELECT COUNT\\(\\*\\) FROM notifications WHERE user_id = \\$1 AND NOT is_read").
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	list, err := svc.ListNotifications(context.Background(), "s1", 0)
	require.NoError(t, err)
	require.Len(t, list.Notifications, 2)
	assert.Equal(t, "n2", list.Notifications[0].ID)
	assert.False(t, list.Notifications[0].IsRead)
	assert.Equal(t, 3, list.Unread)
	assert.NoError(t, m.ExpectationsWereMet())

	_, err = svc.ListNotifications(context.Background(), "", 0)
	assert.Equal(t, KindUnauthenticated, KindOf(err))
}

func TestNotificationService_MarkRead(t *testing.T) {
	t.Run("own notification", func(t *testing.T) {
		svc, m := newTestNotifications(t)

		m.ExpectExec("UPDATE notifications SET is_read = TRUE WHERE id = \\$1 AND user_id = \\$2").
			WithArgs("n1", "s1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, svc.MarkRead(context.Background(), "s1", "n1"))
		assert.NoError(t, m.ExpectationsWereMet())
	})

	t.Run("someone else's notification is not found", func(t *testing.T) {
		svc, m := newTestNotifications(t)

		m.ExpectExec("UPDATE notifications SET is_read = TRUE WHERE id = \\$1 AND user_id = \\$2").
			WithArgs("n1", "t9").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := svc.MarkRead(context.Background(), "t9", "n1")
		assert.Equal(t, KindNotFound, KindOf(err))
	})
}

func TestNotificationService_MarkAllRead(t *testing.T) {
	svc, m := newTestNotifications(t)

	m.ExpectExec("UPDATE notifications SET is_read = TRUE WHERE user_id = \\$1 AND NOT is_read").
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := svc.MarkAllRead(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, m.ExpectationsWereMet())
}
