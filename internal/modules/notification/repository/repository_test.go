package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newMockRepo(t *testing.T) (NotificationRepository, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
	})
	require.NoError(t, err)
	return NewNotificationRepository(db), mock
}

func TestMarkAsRead_ScopedToOwner(t *testing.T) {
	tests := []struct {
		name  string
		rows  int64
		found bool
	}{
		{name: "own notification", rows: 1, found: true},
		{name: "someone else's", rows: 0, found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			id, userID := uuid.New(), uuid.New()

			mock.ExpectExec(`UPDATE "notifications" SET "is_read"=\$1 WHERE id = \$2 AND user_id = \$3`).
				WithArgs(true, id, userID).
				WillReturnResult(sqlmock.NewResult(0, tt.rows))

			found, err := repo.MarkAsRead(context.Background(), userID, id)
			require.NoError(t, err)
			assert.Equal(t, tt.found, found)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestMarkAllAsRead(t *testing.T) {
	repo, mock := newMockRepo(t)
	userID := uuid.New()

	mock.ExpectExec(`UPDATE "notifications" SET "is_read"=\$1 WHERE user_id = \$2 AND is_read = \$3`).
		WithArgs(true, userID, false).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.MarkAllAsRead(context.Background(), userID)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountUnread(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "notifications" WHERE user_id = \$1 AND is_read = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := repo.CountUnread(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteReadBefore(t *testing.T) {
	repo, mock := newMockRepo(t)
	cutoff := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`DELETE FROM "notifications" WHERE is_read = \$1 AND created_at < \$2`).
		WithArgs(true, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 12))

	n, err := repo.DeleteReadBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 12, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
