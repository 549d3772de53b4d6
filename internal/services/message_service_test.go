package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/doubtsolve/backend/internal/models"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expectParticipantDoubt(m sqlmock.Sqlmock, doubtID, studentID string, tutorID any, status string) {
	m.ExpectQuery("SELECT (.+) FROM doubts WHERE id = \\$1").
		WithArgs(doubtID).
		WillReturnRows(sqlmock.NewRows(doubtRowColumns).
			AddRow(doubtID, studentID, "Limits", "Evaluate this limit please", "maths", 100, status, "both", tutorID, fixedNow, fixedNow))
}

func TestMessageService_PostMessage(t *testing.T) {
	t.Run("tutor message is stored and published to the student", func(t *testing.T) {
		db, m, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		redisClient, redisMock := redismock.NewClientMock()
		events := NewEventPublisher(redisClient)
		events.now = func() time.Time { return fixedNow }
		events.newID = func() string { return "evt-7" }

		svc := NewMessageService(db, events, nil)
		svc.now = func() time.Time { return fixedNow }
		svc.newID = func() string { return "m1" }

		expectParticipantDoubt(m, "d1", "s1", "t1", "accepted")
		m.ExpectExec("INSERT INTO messages").
			WithArgs(sqlmock.AnyArg(), "d1", "t1", "Try the tilted axes", "text", "", fixedNow).
			WillReturnResult(sqlmock.NewResult(0, 1))

		msg := encodedEvent(t, Event{
			ID:      "evt-7",
			Type:    EventMessagePosted,
			DoubtID: "d1",
			ActorID: "t1",
			Payload: &models.Message{
				ID: "m1", DoubtID: "d1", SenderID: "t1", Content: "Try the tilted axes",
				Type: "text", CreatedAt: fixedNow,
			},
			At: fixedNow,
		})
		redisMock.ExpectPublish("doubt:d1", msg).SetVal(1)
		redisMock.ExpectPublish("user:s1", msg).SetVal(1)

		posted, err := svc.PostMessage(context.Background(), "t1", "d1", PostMessageRequest{Content: "Try the tilted axes"})
		require.NoError(t, err)
		assert.Equal(t, "m1", posted.ID)
		assert.Equal(t, "t1", posted.SenderID)
		assert.Equal(t, "text", posted.Type)
		assert.NoError(t, m.ExpectationsWereMet())
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("outsiders cannot post", func(t *testing.T) {
		db, m, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		svc := NewMessageService(db, nil, nil)
		expectParticipantDoubt(m, "d1", "s1", "t1", "accepted")

		_, err = svc.PostMessage(context.Background(), "t2", "d1", PostMessageRequest{Content: "hello"})
		assert.Equal(t, KindForbidden, KindOf(err))
		assert.NoError(t, m.ExpectationsWereMet())
	})

	t.Run("file message without url", func(t *testing.T) {
		db, m, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		svc := NewMessageService(db, nil, nil)
		expectParticipantDoubt(m, "d1", "s1", "t1", "accepted")

		_, err = svc.PostMessage(context.Background(), "s1", "d1", PostMessageRequest{Content: "see attached", Type: "file"})
		assert.Equal(t, KindInvalidArgument, KindOf(err))
	})
}

func TestMessageService_PostMessage_NotifiesRecipient(t *testing.T) {
	db, m, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	notices := NewNotificationService(db)
	notices.now = func() time.Time { return fixedNow }
	notices.newID = func() string { return "n1" }

	svc := NewMessageService(db, nil, notices)
	svc.now = func() time.Time { return fixedNow }

	expectParticipantDoubt(m, "d1", "s1", "t1", "accepted")
	m.ExpectExec("INSERT INTO messages").WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectExec("INSERT INTO notifications").
		WithArgs("n1", "t1", models.NotificationMessage, "New message", "", "/doubts/d1/chat", fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err = svc.PostMessage(context.Background(), "s1", "d1", PostMessageRequest{Content: "still stuck on part b"})
	require.NoError(t, err)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestMessageService_ListMessages(t *testing.T) {
	columns := []string{"id", "doubt_id", "sender_id", "content", "type", "file_url", "created_at"}

	t.Run("chronological order", func(t *testing.T) {
		db, m, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		svc := NewMessageService(db, nil, nil)

		expectParticipantDoubt(m, "d1", "s1", "t1", "solved")
		m.ExpectQuery("FROM messages WHERE doubt_id = \\$1 ORDER BY created_at DESC LIMIT \\$2").
			WithArgs("d1", 100).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("m2", "d1", "t1", "hello", "text", "", fixedNow.Add(time.Minute)).
				AddRow("m1", "d1", "s1", "hi", "text", "", fixedNow))

		messages, err := svc.ListMessages(context.Background(), "s1", "d1", 0)
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, "m1", messages[0].ID)
		assert.Equal(t, "m2", messages[1].ID)
		assert.NoError(t, m.ExpectationsWereMet())
	})

	t.Run("long chat keeps the newest messages", func(t *testing.T) {
		db, m, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		svc := NewMessageService(db, nil, nil)

		// 150 messages exist; the store hands back the newest 100, newest first.
		rows := sqlmock.NewRows(columns)
		for i := 150; i > 50; i-- {
			rows.AddRow(fmt.Sprintf("m%d", i), "d1", "s1", "msg", "text", "", fixedNow.Add(time.Duration(i)*time.Second))
		}
		expectParticipantDoubt(m, "d1", "s1", "t1", "accepted")
		m.ExpectQuery("FROM messages WHERE doubt_id = \\$1 ORDER BY created_at DESC LIMIT \\$2").
			WithArgs("d1", 100).
			WillReturnRows(rows)

		messages, err := svc.ListMessages(context.Background(), "t1", "d1", 0)
		require.NoError(t, err)
		require.Len(t, messages, 100)
		assert.Equal(t, "m51", messages[0].ID)
		assert.Equal(t, "m150", messages[99].ID)
		assert.True(t, messages[0].CreatedAt.Before(messages[99].CreatedAt))
	})
}
