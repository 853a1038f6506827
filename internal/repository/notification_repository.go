package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/models"
)

const notificationColumns = `id, event_id, type, title, message, recipient_email,
       entity_type, entity_id, entity_reference, action_url, is_read, created_at`

// NotificationRepository persists fan-out records. The unique index on
// (event_id, recipient_email) is what makes redelivered events idempotent.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification, reporting false when the (event, recipient)
// pair already exists.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) (bool, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications
	(id, event_id, type, title, message, recipient_email, entity_type, entity_id, entity_reference, action_url, is_read, created_at)
	VALUES (:id, :event_id, :type, :title, :message, :recipient_email, :entity_type, :entity_id, :entity_reference, :action_url, :is_read, :created_at)
	ON CONFLICT (event_id, recipient_email) DO NOTHING`
	result, err := r.db.NamedExecContext(ctx, query, n)
	if err != nil {
		return false, fmt.Errorf("create notification: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check notification insert rows: %w", err)
	}
	return rows > 0, nil
}

// List returns the recipient's notifications, newest first, plus the total.
func (r *NotificationRepository) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	conditions := []string{"LOWER(recipient_email) = $1"}
	args := []interface{}{strings.ToLower(filter.RecipientEmail)}
	if filter.UnreadOnly {
		conditions = append(conditions, "is_read = FALSE")
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM notifications"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf("SELECT %s FROM notifications%s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		notificationColumns, where, limit, offset)

	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, total, nil
}

// CountUnread returns the unread badge value for a recipient.
func (r *NotificationRepository) CountUnread(ctx context.Context, recipientEmail string) (int, error) {
	const query = `SELECT COUNT(*) FROM notifications WHERE LOWER(recipient_email) = $1 AND is_read = FALSE`
	var count int
	if err := r.db.GetContext(ctx, &count, query, strings.ToLower(recipientEmail)); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead flips a single record for its recipient. An ID belonging to
// someone else matches zero rows.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, recipientEmail string) error {
	const query = `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND LOWER(recipient_email) = $2`
	result, err := r.db.ExecContext(ctx, query, id, strings.ToLower(recipientEmail))
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check notification update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkAllRead flips every unread record for the recipient.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientEmail string) (int64, error) {
	const query = `UPDATE notifications SET is_read = TRUE WHERE LOWER(recipient_email) = $1 AND is_read = FALSE`
	result, err := r.db.ExecContext(ctx, query, strings.ToLower(recipientEmail))
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check notification update rows: %w", err)
	}
	return rows, nil
}
