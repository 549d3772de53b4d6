package database

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDBConfig() *DBConfig {
	return &DBConfig{MaxOpenConns: 4, MaxIdleConns: 2, ConnMaxLifetime: time.Minute}
}

func TestPrepare(t *testing.T) {
	t.Run("ready pool stays open", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectPing()
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS profiles").
			WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, prepare(db, testDBConfig()))
		assert.Equal(t, 4, db.Stats().MaxOpenConnections)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unreachable server closes the pool", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)

		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
		mock.ExpectClose()

		err = prepare(db, testDBConfig())
		assert.ErrorContains(t, err, "error connecting to database")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed migration closes the pool", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)

		mock.ExpectPing()
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS profiles").
			WillReturnError(errors.New("permission denied"))
		mock.ExpectClose()

		err = prepare(db, testDBConfig())
		assert.ErrorContains(t, err, "error migrating database")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
