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

const shipmentColumns = `id, rfq_id, reference_number, tracking_number, mode, origin, destination,
       weight_kg, volume_cbm, company_id, company_name, client_email, status, created_at, updated_at`

// ShipmentRepository persists execution records.
type ShipmentRepository struct {
	db *sqlx.DB
}

// NewShipmentRepository constructs the repository.
func NewShipmentRepository(db *sqlx.DB) *ShipmentRepository {
	return &ShipmentRepository{db: db}
}

// Create inserts a shipment row.
func (r *ShipmentRepository) Create(ctx context.Context, shipment *models.Shipment) error {
	if shipment.ID == "" {
		shipment.ID = uuid.NewString()
	}
	if shipment.Status == "" {
		shipment.Status = models.ShipmentStatusPending
	}
	if shipment.CreatedAt.IsZero() {
		shipment.CreatedAt = time.Now().UTC()
	}
	if shipment.UpdatedAt.IsZero() {
		shipment.UpdatedAt = shipment.CreatedAt
	}
	const query = `INSERT INTO shipments
	(id, rfq_id, reference_number, tracking_number, mode, origin, destination,
	 weight_kg, volume_cbm, company_id, company_name, client_email, status, created_at, updated_at)
	VALUES (:id, :rfq_id, :reference_number, :tracking_number, :mode, :origin, :destination,
	 :weight_kg, :volume_cbm, :company_id, :company_name, :client_email, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, shipment); err != nil {
		return fmt.Errorf("create shipment: %w", err)
	}
	return nil
}

// GetByID fetches a shipment by identifier.
func (r *ShipmentRepository) GetByID(ctx context.Context, id string) (*models.Shipment, error) {
	query := fmt.Sprintf(`SELECT %s FROM shipments WHERE id = $1`, shipmentColumns)
	var shipment models.Shipment
	if err := r.db.GetContext(ctx, &shipment, query, id); err != nil {
		return nil, err
	}
	return &shipment, nil
}

// List returns shipments matching the filter, newest first, plus the total.
func (r *ShipmentRepository) List(ctx context.Context, filter models.ShipmentFilter) ([]models.Shipment, int, error) {
	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 5)

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.ClientEmail != "" {
		args = append(args, strings.ToLower(filter.ClientEmail))
		conditions = append(conditions, fmt.Sprintf("LOWER(client_email) = $%d", len(args)))
	}
	if filter.CompanyID != "" {
		args = append(args, filter.CompanyID)
		conditions = append(conditions, fmt.Sprintf("company_id = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM shipments"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count shipments: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf("SELECT %s FROM shipments%s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		shipmentColumns, where, limit, offset)

	var shipments []models.Shipment
	if err := r.db.SelectContext(ctx, &shipments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list shipments: %w", err)
	}
	return shipments, total, nil
}

// UpdateStatus moves a shipment to the given state.
func (r *ShipmentRepository) UpdateStatus(ctx context.Context, id string, status models.ShipmentStatus, updatedAt time.Time) error {
	const query = `UPDATE shipments SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, status, updatedAt, id)
	if err != nil {
		return fmt.Errorf("update shipment status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check shipment update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
