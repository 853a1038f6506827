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

const rfqColumns = `id, reference_number, mode, incoterm, cargo_type, origin, destination,
       weight_kg, volume_cbm, cargo_lines, company_id, company_name, client_email,
       assigned_sales_email, assigned_sales_name, assigned_pricing_email, assigned_pricing_name,
       status, quotation_details, quotation_amount, quotation_currency, quotation_url, pricing_notes,
       final_status, final_value, lost_reason, version, created_date, updated_date`

// RFQRepository persists quote requests and their workflow state.
type RFQRepository struct {
	db *sqlx.DB
}

// NewRFQRepository constructs the repository.
func NewRFQRepository(db *sqlx.DB) *RFQRepository {
	return &RFQRepository{db: db}
}

// Create inserts a new RFQ row.
func (r *RFQRepository) Create(ctx context.Context, rfq *models.RFQ) error {
	if rfq.ID == "" {
		rfq.ID = uuid.NewString()
	}
	if rfq.Status == "" {
		rfq.Status = models.RFQStatusNew
	}
	if rfq.Version <= 0 {
		rfq.Version = 1
	}
	if rfq.CreatedDate.IsZero() {
		rfq.CreatedDate = time.Now().UTC()
	}
	if rfq.UpdatedDate.IsZero() {
		rfq.UpdatedDate = rfq.CreatedDate
	}
	const query = `INSERT INTO rfqs
	(id, reference_number, mode, incoterm, cargo_type, origin, destination,
	 weight_kg, volume_cbm, cargo_lines, company_id, company_name, client_email,
	 assigned_sales_email, assigned_sales_name, assigned_pricing_email, assigned_pricing_name,
	 status, quotation_details, quotation_amount, quotation_currency, quotation_url, pricing_notes,
	 final_status, final_value, lost_reason, version, created_date, updated_date)
	VALUES (:id, :reference_number, :mode, :incoterm, :cargo_type, :origin, :destination,
	 :weight_kg, :volume_cbm, :cargo_lines, :company_id, :company_name, :client_email,
	 :assigned_sales_email, :assigned_sales_name, :assigned_pricing_email, :assigned_pricing_name,
	 :status, :quotation_details, :quotation_amount, :quotation_currency, :quotation_url, :pricing_notes,
	 :final_status, :final_value, :lost_reason, :version, :created_date, :updated_date)`
	if _, err := r.db.NamedExecContext(ctx, query, rfq); err != nil {
		return fmt.Errorf("create rfq: %w", err)
	}
	return nil
}

// GetByID fetches an RFQ by identifier.
func (r *RFQRepository) GetByID(ctx context.Context, id string) (*models.RFQ, error) {
	query := fmt.Sprintf(`SELECT %s FROM rfqs WHERE id = $1`, rfqColumns)
	var rfq models.RFQ
	if err := r.db.GetContext(ctx, &rfq, query, id); err != nil {
		return nil, err
	}
	return &rfq, nil
}

// List returns RFQs matching the filter, newest first, plus the total count.
func (r *RFQRepository) List(ctx context.Context, filter models.RFQFilter) ([]models.RFQ, int, error) {
	conditions := make([]string, 0, 6)
	args := make([]interface{}, 0, 8)

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Mode != "" {
		args = append(args, filter.Mode)
		conditions = append(conditions, fmt.Sprintf("mode = $%d", len(args)))
	}
	if filter.CompanyID != "" {
		args = append(args, filter.CompanyID)
		conditions = append(conditions, fmt.Sprintf("company_id = $%d", len(args)))
	}
	if filter.ClientEmail != "" {
		args = append(args, filter.ClientEmail)
		conditions = append(conditions, fmt.Sprintf("LOWER(client_email) = $%d", len(args)))
	}
	if filter.AssignedSales != "" {
		args = append(args, filter.AssignedSales)
		conditions = append(conditions, fmt.Sprintf("assigned_sales_email = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf(
			"(reference_number ILIKE $%d OR origin ILIKE $%d OR destination ILIKE $%d)",
			len(args), len(args), len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM rfqs"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count rfqs: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf("SELECT %s FROM rfqs%s ORDER BY created_date DESC LIMIT %d OFFSET %d",
		rfqColumns, where, limit, offset)

	var rfqs []models.RFQ
	if err := r.db.SelectContext(ctx, &rfqs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list rfqs: %w", err)
	}
	return rfqs, total, nil
}

// UpdateRFQStateParams groups the mutable workflow columns. Nil fields are
// left untouched; the version always advances.
type UpdateRFQStateParams struct {
	ID              string
	ExpectedVersion int64

	Status               *models.RFQStatus
	AssignedSalesEmail   *string
	AssignedSalesName    *string
	AssignedPricingEmail *string
	AssignedPricingName  *string

	CargoLines *models.CargoLines
	WeightKg   *float64
	VolumeCBM  *float64

	Quotation         *models.Quotation
	QuotationAmount   *float64
	QuotationCurrency *string
	QuotationURL      *string
	PricingNotes      *string

	FinalStatus *models.FinalOutcome
	FinalValue  *float64
	LostReason  *string

	UpdatedDate time.Time
}

// UpdateWorkflowState applies a guarded partial update. The version predicate
// in the WHERE clause is the concurrency control: a stale expected version
// matches zero rows and surfaces as sql.ErrNoRows.
func (r *RFQRepository) UpdateWorkflowState(ctx context.Context, params UpdateRFQStateParams) error {
	setParts := []string{
		"version = version + 1",
		"updated_date = :updated_date",
	}
	named := map[string]interface{}{
		"id":               params.ID,
		"expected_version": params.ExpectedVersion,
		"updated_date":     params.UpdatedDate,
	}
	assign := func(column string, value interface{}) {
		setParts = append(setParts, fmt.Sprintf("%s = :%s", column, column))
		named[column] = value
	}

	if params.Status != nil {
		assign("status", *params.Status)
	}
	if params.AssignedSalesEmail != nil {
		assign("assigned_sales_email", *params.AssignedSalesEmail)
	}
	if params.AssignedSalesName != nil {
		assign("assigned_sales_name", *params.AssignedSalesName)
	}
	if params.AssignedPricingEmail != nil {
		assign("assigned_pricing_email", *params.AssignedPricingEmail)
	}
	if params.AssignedPricingName != nil {
		assign("assigned_pricing_name", *params.AssignedPricingName)
	}
	if params.CargoLines != nil {
		assign("cargo_lines", *params.CargoLines)
	}
	if params.WeightKg != nil {
		assign("weight_kg", *params.WeightKg)
	}
	if params.VolumeCBM != nil {
		assign("volume_cbm", *params.VolumeCBM)
	}
	if params.Quotation != nil {
		assign("quotation_details", *params.Quotation)
	}
	if params.QuotationAmount != nil {
		assign("quotation_amount", *params.QuotationAmount)
	}
	if params.QuotationCurrency != nil {
		assign("quotation_currency", *params.QuotationCurrency)
	}
	if params.QuotationURL != nil {
		assign("quotation_url", *params.QuotationURL)
	}
	if params.PricingNotes != nil {
		assign("pricing_notes", *params.PricingNotes)
	}
	if params.FinalStatus != nil {
		assign("final_status", *params.FinalStatus)
	}
	if params.FinalValue != nil {
		assign("final_value", *params.FinalValue)
	}
	if params.LostReason != nil {
		assign("lost_reason", *params.LostReason)
	}

	query := fmt.Sprintf("UPDATE rfqs SET %s WHERE id = :id AND version = :expected_version",
		strings.Join(setParts, ", "))
	result, err := r.db.NamedExecContext(ctx, query, named)
	if err != nil {
		return fmt.Errorf("update rfq state: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rfq update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
