package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/models"
	appErrors "github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/pkg/errors"
)

type directoryStub struct {
	users map[string]*models.User
}

func newDirectoryStub(users ...*models.User) *directoryStub {
	stub := &directoryStub{users: make(map[string]*models.User)}
	for _, u := range users {
		stub.users[u.Email] = u
	}
	return stub
}

func (d *directoryStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := d.users[email]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (d *directoryStub) ListByDepartment(ctx context.Context, dept models.Department) ([]models.User, error) {
	var result []models.User
	for _, u := range d.users {
		if u.InDepartment(dept) {
			result = append(result, *u)
		}
	}
	return result, nil
}

func staffUser(email, name string, role models.UserRole, dept models.Department) *models.User {
	d := dept
	return &models.User{
		ID:         email,
		Email:      email,
		FullName:   name,
		Role:       role,
		Department: &d,
		Active:     true,
	}
}

func salesActor() *models.JWTClaims {
	return &models.JWTClaims{UserID: "actor-1", Role: models.RoleSales, Email: "actor@tact.eg"}
}

func TestAssignmentServiceResolveSales(t *testing.T) {
	directory := newDirectoryStub(staffUser("nour@tact.eg", "Nour Hassan", models.RoleSales, models.DepartmentSales))
	svc := NewAssignmentService(directory, nil)

	result, err := svc.Resolve(context.Background(), &models.RFQ{ID: "rfq-1"}, models.DepartmentSales, "Nour@tact.eg", salesActor())
	require.NoError(t, err)
	require.Equal(t, models.DepartmentSales, result.Department)
	require.Equal(t, "nour@tact.eg", result.AssigneeEmail)
	require.Equal(t, "Nour Hassan", result.AssigneeName)
	require.Equal(t, "nour@tact.eg", result.Notify.RecipientEmail)
}

func TestAssignmentServiceAdminEligibleAnywhere(t *testing.T) {
	admin := &models.User{ID: "a", Email: "admin@tact.eg", FullName: "Admin", Role: models.RoleAdmin, Active: true}
	directory := newDirectoryStub(admin)
	svc := NewAssignmentService(directory, nil)

	sales := "owner@tact.eg"
	rfq := &models.RFQ{ID: "rfq-1", AssignedSalesEmail: &sales}
	result, err := svc.Resolve(context.Background(), rfq, models.DepartmentPricing, "admin@tact.eg", salesActor())
	require.NoError(t, err)
	require.Equal(t, "admin@tact.eg", result.AssigneeEmail)
}

func TestAssignmentServicePricingRequiresSalesOwner(t *testing.T) {
	directory := newDirectoryStub(staffUser("p@tact.eg", "P", models.RolePricing, models.DepartmentPricing))
	svc := NewAssignmentService(directory, nil)

	_, err := svc.Resolve(context.Background(), &models.RFQ{ID: "rfq-1"}, models.DepartmentPricing, "p@tact.eg", salesActor())
	require.Error(t, err)
	require.Contains(t, appErrors.FromError(err).Message, "sales owner")

	// An admin actor may staff pricing first.
	adminActor := &models.JWTClaims{UserID: "adm", Role: models.RoleAdmin, Email: "adm@tact.eg"}
	_, err = svc.Resolve(context.Background(), &models.RFQ{ID: "rfq-1"}, models.DepartmentPricing, "p@tact.eg", adminActor)
	require.NoError(t, err)
}

func TestAssignmentServiceEmptyRoster(t *testing.T) {
	svc := NewAssignmentService(newDirectoryStub(), nil)

	_, err := svc.Resolve(context.Background(), &models.RFQ{ID: "rfq-1"}, models.DepartmentSales, "ghost@tact.eg", salesActor())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNoEligibleUsers.Code, appErrors.FromError(err).Code)
}

func TestAssignmentServiceIneligibleTargetWithRoster(t *testing.T) {
	directory := newDirectoryStub(
		staffUser("nour@tact.eg", "Nour", models.RoleSales, models.DepartmentSales),
		staffUser("ops@tact.eg", "Ops", models.RoleOperations, models.DepartmentOperations),
	)
	svc := NewAssignmentService(directory, nil)

	// Target exists but belongs to operations, and the sales roster is not
	// empty, so this is a caller mistake rather than NO_ELIGIBLE_USERS.
	_, err := svc.Resolve(context.Background(), &models.RFQ{ID: "rfq-1"}, models.DepartmentSales, "ops@tact.eg", salesActor())
	require.Error(t, err)
	require.Contains(t, appErrors.FromError(err).Message, "ineligible_assignee")
}

func TestAssignmentServiceInactiveTarget(t *testing.T) {
	inactive := staffUser("nour@tact.eg", "Nour", models.RoleSales, models.DepartmentSales)
	inactive.Active = false
	svc := NewAssignmentService(newDirectoryStub(inactive), nil)

	_, err := svc.Resolve(context.Background(), &models.RFQ{ID: "rfq-1"}, models.DepartmentSales, "nour@tact.eg", salesActor())
	require.Error(t, err)
	require.Contains(t, appErrors.FromError(err).Message, "inactive")
}
