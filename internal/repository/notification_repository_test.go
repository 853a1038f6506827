package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/models"
)

func newNotificationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func sampleNotification() *models.Notification {
	return &models.Notification{
		EventID:         "evt-1",
		Type:            models.NotificationRFQCancelled,
		Title:           "RFQ RFQ-AB12CD34 cancelled",
		Message:         "RFQ RFQ-AB12CD34 was cancelled by admin@tact.eg.",
		RecipientEmail:  "nour@tact.eg",
		EntityType:      "rfq",
		EntityID:        "rfq-1",
		EntityReference: "RFQ-AB12CD34",
		CreatedAt:       time.Now().UTC(),
	}
}

func TestNotificationRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newNotificationRepoMock(t)
	defer cleanup()

	repo := NewNotificationRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	created, err := repo.Create(context.Background(), sampleNotification())
	require.NoError(t, err)
	require.True(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryCreateDeduplicates(t *testing.T) {
	db, mock, cleanup := newNotificationRepoMock(t)
	defer cleanup()

	repo := NewNotificationRepository(db)

	// ON CONFLICT DO NOTHING affects zero rows on redelivery.
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (event_id, recipient_email) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := repo.Create(context.Background(), sampleNotification())
	require.NoError(t, err)
	require.False(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryMarkReadScopedToRecipient(t *testing.T) {
	db, mock, cleanup := newNotificationRepoMock(t)
	defer cleanup()

	repo := NewNotificationRepository(db)
	mock.ExpectExec("UPDATE notifications SET is_read = TRUE WHERE id = .+ AND LOWER\\(recipient_email\\)").
		WithArgs("n-1", "nour@tact.eg").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkRead(context.Background(), "n-1", "nour@tact.eg")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryCountUnread(t *testing.T) {
	db, mock, cleanup := newNotificationRepoMock(t)
	defer cleanup()

	repo := NewNotificationRepository(db)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM notifications WHERE LOWER\\(recipient_email\\) = .+ AND is_read = FALSE").
		WithArgs("nour@tact.eg").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := repo.CountUnread(context.Background(), "nour@tact.eg")
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
