package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var doubtRowColumns = []string{"id", "student_id", "title", "description", "subject", "price", "status", "preferred_mode", "accepted_tutor_id", "created_at", "updated_at"}

func newTestDoubtService(t *testing.T) (*DoubtService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewDoubtService(db, nil, nil)
	svc.now = func() time.Time { return fixedNow }
	return svc, mock
}

func expectRole(m sqlmock.Sqlmock, userID, role string) {
	m.ExpectQuery(q("SELECT role FROM profiles WHERE id = $1")).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow(role))
}

func TestDoubtService_CreateDoubt(t *testing.T) {
	req := CreateDoubtRequest{
		Title:       "Projectile on an incline",
		Description: "Range on an inclined plane, maximum angle",
		Subject:     "physics",
		Price:       100,
	}

	t.Run("student posts an open doubt", func(t *testing.T) {
		svc, m := newTestDoubtService(t)

		expectRole(m, "s1", "student")
		m.ExpectExec("INSERT INTO doubts").
			WithArgs(sqlmock.AnyArg(), "s1", req.Title, req.Description, "physics", int64(100), "open", "both", fixedNow).
			WillReturnResult(sqlmock.NewResult(0, 1))

		doubt, err := svc.CreateDoubt(context.Background(), "s1", req)
		require.NoError(t, err)
		assert.Equal(t, "s1", doubt.StudentID)
		assert.EqualValues(t, "open", doubt.Status)
		assert.EqualValues(t, "both", doubt.PreferredMode)
		assert.Nil(t, doubt.AcceptedTutorID)
		assert.NoError(t, m.ExpectationsWereMet())
	})

	t.Run("tutors cannot post", func(t *testing.T) {
		svc, m := newTestDoubtService(t)

		expectRole(m, "t1", "tutor")

		_, err := svc.CreateDoubt(context.Background(), "t1", req)
		assert.Equal(t, KindForbidden, KindOf(err))
		assert.NoError(t, m.ExpectationsWereMet())
	})
}

func TestDoubtService_ListDoubts(t *testing.T) {
	svc, m := newTestDoubtService(t)

	m.ExpectQuery("SELECT (.+) FROM doubts WHERE status = \\$1").
		WithArgs("open", "maths", 50).
		WillReturnRows(sqlmock.NewRows(doubtRowColumns).
			AddRow("d1", "s1", "Limits", "Evaluate this limit please", "maths", 50, "open", "text", nil, fixedNow, fixedNow))

	doubts, err := svc.ListDoubts(context.Background(), DoubtFilter{Subject: "maths"})
	require.NoError(t, err)
	require.Len(t, doubts, 1)
	assert.Equal(t, "d1", doubts[0].ID)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestDoubtService_GetDoubt(t *testing.T) {
	t.Run("with applications", func(t *testing.T) {
		svc, m := newTestDoubtService(t)

		m.ExpectQuery("SELECT (.+) FROM doubts WHERE id = \\$1").
			WithArgs("d1").
			WillReturnRows(sqlmock.NewRows(doubtRowColumns).
				AddRow("d1", "s1", "Limits", "Evaluate this limit please", "maths", 50, "accepted", "text", "t1", fixedNow, fixedNow))
		m.ExpectQuery("FROM doubt_applications WHERE doubt_id = \\$1").
			WithArgs("d1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "doubt_id", "tutor_id", "message", "status", "created_at"}).
				AddRow("a1", "d1", "t1", "", "accepted", fixedNow).
				AddRow("a2", "d1", "t2", "", "rejected", fixedNow))

		doubt, err := svc.GetDoubt(context.Background(), "d1")
		require.NoError(t, err)
		require.NotNil(t, doubt.AcceptedTutorID)
		assert.Equal(t, "t1", *doubt.AcceptedTutorID)
		assert.Len(t, doubt.Applications, 2)
		assert.NoError(t, m.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		svc, m := newTestDoubtService(t)

		m.ExpectQuery("SELECT (.+) FROM doubts WHERE id = \\$1").
			WithArgs("nope").
			WillReturnError(sql.ErrNoRows)

		_, err := svc.GetDoubt(context.Background(), "nope")
		assert.Equal(t, KindNotFound, KindOf(err))
	})
}

func TestDoubtService_ApplyToDoubt(t *testing.T) {
	t.Run("tutor applies to an open doubt", func(t *testing.T) {
		svc, m := newTestDoubtService(t)

		expectRole(m, "t1", "tutor")
		m.ExpectQuery(q("SELECT student_id, status FROM doubts WHERE id = $1")).
			WithArgs("d1").
			WillReturnRows(sqlmock.NewRows([]string{"student_id", "status"}).AddRow("s1", "open"))
		m.ExpectExec("INSERT INTO doubt_applications").
			WithArgs(sqlmock.AnyArg(), "d1", "t1", "I can help", "pending", fixedNow).
			WillReturnResult(sqlmock.NewResult(0, 1))

		app, err := svc.ApplyToDoubt(context.Background(), "t1", "d1", ApplyRequest{Message: "I can help"})
		require.NoError(t, err)
		assert.EqualValues(t, "pending", app.Status)
		assert.NoError(t, m.ExpectationsWereMet())
	})

	t.Run("second application from the same tutor", func(t *testing.T) {
		svc, m := newTestDoubtService(t)

		expectRole(m, "t1", "tutor")
		m.ExpectQuery(q("SELECT student_id, status FROM doubts WHERE id = $1")).
			WillReturnRows(sqlmock.NewRows([]string{"student_id", "status"}).AddRow("s1", "open"))
		m.ExpectExec("INSERT INTO doubt_applications").
			WillReturnError(&pq.Error{Code: "23505"})

		_, err := svc.ApplyToDoubt(context.Background(), "t1", "d1", ApplyRequest{})
		assert.Equal(t, KindPreconditionFailed, KindOf(err))
	})

	t.Run("doubt already accepted", func(t *testing.T) {
		svc, m := newTestDoubtService(t)

		expectRole(m, "t2", "tutor")
		m.ExpectQuery(q("SELECT student_id, status FROM doubts WHERE id = $1")).
			WillReturnRows(sqlmock.NewRows([]string{"student_id", "status"}).AddRow("s1", "accepted"))

		_, err := svc.ApplyToDoubt(context.Background(), "t2", "d1", ApplyRequest{})
		assert.Equal(t, KindPreconditionFailed, KindOf(err))
		assert.NoError(t, m.ExpectationsWereMet())
	})

	t.Run("students cannot apply", func(t *testing.T) {
		svc, m := newTestDoubtService(t)

		expectRole(m, "s2", "student")

		_, err := svc.ApplyToDoubt(context.Background(), "s2", "d1", ApplyRequest{})
		assert.Equal(t, KindForbidden, KindOf(err))
	})
}

func TestDoubtService_AcceptApplication(t *testing.T) {
	openDoubt := func() *sqlmock.Rows {
		return sqlmock.NewRows(doubtRowColumns).
			AddRow("d1", "s1", "Limits", "Evaluate this limit please", "maths", 100, "open", "both", nil, fixedNow, fixedNow)
	}

	t.Run("accepts one tutor and rejects the rest", func(t *testing.T) {
		svc, m := newTestDoubtService(t)

		m.ExpectBegin()
		m.ExpectQuery("FROM doubts WHERE id = \\$1 FOR UPDATE").WithArgs("d1").WillReturnRows(openDoubt())
		m.ExpectQuery("FROM doubt_applications WHERE id = \\$1 AND doubt_id = \\$2 FOR UPDATE").
			WithArgs("a1", "d1").
			WillReturnRows(sqlmock.NewRows([]string{"tutor_id", "status"}).AddRow("t1", "pending"))
		m.ExpectExec(q("UPDATE doubt_applications SET status = 'accepted' WHERE id = $1")).
			WithArgs("a1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		m.ExpectExec(q("UPDATE doubt_applications SET status = 'rejected'")).
			WithArgs("d1", "a1").
			WillReturnResult(sqlmock.NewResult(0, 2))
		m.ExpectExec(q("UPDATE doubts SET status = 'accepted', accepted_tutor_id = $1")).
			WithArgs("t1", fixedNow, "d1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		m.ExpectCommit()

		doubt, err := svc.AcceptApplication(context.Background(), "s1", "d1", "a1")
		require.NoError(t, err)
		assert.EqualValues(t, "accepted", doubt.Status)
		require.NotNil(t, doubt.AcceptedTutorID)
		assert.Equal(t, "t1", *doubt.AcceptedTutorID)
		assert.NoError(t, m.ExpectationsWereMet())
	})

	t.Run("not the owner", func(t *testing.T) {
		svc, m := newTestDoubtService(t)

		m.ExpectBegin()
		m.ExpectQuery("FROM doubts WHERE id = \\$1 FOR UPDATE").WillReturnRows(openDoubt())
		m.ExpectRollback()

		_, err := svc.AcceptApplication(context.Background(), "t1", "d1", "a1")
		assert.Equal(t, KindForbidden, KindOf(err))
		assert.NoError(t, m.ExpectationsWereMet())
	})

	t.Run("application already rejected", func(t *testing.T) {
		svc, m := newTestDoubtService(t)

		m.ExpectBegin()
		m.ExpectQuery("FROM doubts WHERE id = \\$1 FOR UPDATE").WillReturnRows(openDoubt())
		m.ExpectQuery("FROM doubt_applications WHERE id = \\$1").
			WillReturnRows(sqlmock.NewRows([]string{"tutor_id", "status"}).AddRow("t2", "rejected"))
		m.ExpectRollback()

		_, err := svc.AcceptApplication(context.Background(), "s1", "d1", "a2")
		assert.Equal(t, KindPreconditionFailed, KindOf(err))
		assert.NoError(t, m.ExpectationsWereMet())
	})

	t.Run("doubt already accepted", func(t *testing.T) {
		svc, m := newTestDoubtService(t)

		m.ExpectBegin()
		m.ExpectQuery("FROM doubts WHERE id = \\$1 FOR UPDATE").
			WillReturnRows(sqlmock.NewRows(doubtRowColumns).
				AddRow("d1", "s1", "Limits", "Evaluate this limit please", "maths", 100, "accepted", "both", "t1", fixedNow, fixedNow))
		m.ExpectRollback()

		_, err := svc.AcceptApplication(context.Background(), "s1", "d1", "a2")
		assert.Equal(t, KindPreconditionFailed, KindOf(err))
		assert.NoError(t, m.ExpectationsWereMet())
	})
}

func TestDoubtService_ListMyApplications(t *testing.T) {
	svc, m := newTestDoubtService(t)

	m.ExpectQuery("FROM doubt_applications WHERE tutor_id = \\$1").
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "doubt_id", "tutor_id", "message", "status", "created_at"}).
			AddRow("a1", "d1", "t1", "", "accepted", fixedNow))

	apps, err := svc.ListMyApplications(context.Background(), "t1")
	require.NoError(t, err)
	assert.Len(t, apps, 1)

	_, err = svc.ListMyApplications(context.Background(), "")
	assert.Equal(t, KindUnauthenticated, KindOf(err))
	assert.NoError(t, m.ExpectationsWereMet())
}
