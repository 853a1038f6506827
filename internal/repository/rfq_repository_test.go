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

func newRFQRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRFQRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newRFQRepoMock(t)
	defer cleanup()

	repo := NewRFQRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rfqs")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rfq := &models.RFQ{
		ReferenceNumber: "RFQ-AB12CD34",
		Mode:            models.ModeSea,
		Origin:          "Alexandria",
		Destination:     "Rotterdam",
		ClientEmail:     "client@acme.com",
	}
	require.NoError(t, repo.Create(context.Background(), rfq))
	require.NotEmpty(t, rfq.ID)
	require.Equal(t, models.RFQStatusNew, rfq.Status)
	require.EqualValues(t, 1, rfq.Version)
	require.False(t, rfq.CreatedDate.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRFQRepositoryGetByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRFQRepoMock(t)
	defer cleanup()

	repo := NewRFQRepository(db)
	mock.ExpectQuery("SELECT .+ FROM rfqs WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRFQRepositoryUpdateWorkflowStateGuard(t *testing.T) {
	db, mock, cleanup := newRFQRepoMock(t)
	defer cleanup()

	repo := NewRFQRepository(db)
	status := models.RFQStatusSentToClient

	// A stale expected version matches no row; the caller must see that.
	mock.ExpectExec("UPDATE rfqs SET version = version \\+ 1.+WHERE id = .+ AND version =").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateWorkflowState(context.Background(), UpdateRFQStateParams{
		ID:              "rfq-1",
		ExpectedVersion: 3,
		Status:          &status,
		UpdatedDate:     time.Now().UTC(),
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRFQRepositoryUpdateWorkflowStateApplies(t *testing.T) {
	db, mock, cleanup := newRFQRepoMock(t)
	defer cleanup()

	repo := NewRFQRepository(db)
	status := models.RFQStatusQuotationReady
	amount := 650.0
	currency := "USD"

	mock.ExpectExec("UPDATE rfqs SET version = version \\+ 1, updated_date = .+ status = .+ quotation_amount = .+ quotation_currency =").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateWorkflowState(context.Background(), UpdateRFQStateParams{
		ID:                "rfq-1",
		ExpectedVersion:   2,
		Status:            &status,
		QuotationAmount:   &amount,
		QuotationCurrency: &currency,
		UpdatedDate:       time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRFQRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRFQRepoMock(t)
	defer cleanup()

	repo := NewRFQRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM rfqs WHERE status IN ($1,$2) AND LOWER(client_email) = $3")).
		WithArgs("NEW", "ASSIGNED_SALES", "client@acme.com").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	rows := sqlmock.NewRows([]string{"id", "reference_number", "mode", "origin", "destination", "client_email", "status", "version", "created_date", "updated_date"}).
		AddRow("rfq-1", "RFQ-AB12CD34", "AIR", "Cairo", "Hamburg", "client@acme.com", "NEW", 1, now, now)
	mock.ExpectQuery("SELECT .+ FROM rfqs WHERE status IN .+ ORDER BY created_date DESC LIMIT 20 OFFSET 0").
		WithArgs("NEW", "ASSIGNED_SALES", "client@acme.com").
		WillReturnRows(rows)

	rfqs, total, err := repo.List(context.Background(), models.RFQFilter{
		Status:      []models.RFQStatus{models.RFQStatusNew, models.RFQStatusAssignedSales},
		ClientEmail: "client@acme.com",
		Limit:       20,
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, rfqs, 1)
	require.Equal(t, "RFQ-AB12CD34", rfqs[0].ReferenceNumber)
	require.NoError(t, mock.ExpectationsWereMet())
}
