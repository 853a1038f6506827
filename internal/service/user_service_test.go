package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/dto"
	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/models"
	appErrors "github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/pkg/errors"
)

type userStoreStub struct {
	byID    map[string]*models.User
	byEmail map[string]*models.User
}

func newUserStoreStub(users ...*models.User) *userStoreStub {
	stub := &userStoreStub{byID: make(map[string]*models.User), byEmail: make(map[string]*models.User)}
	for _, u := range users {
		stub.byID[u.ID] = u
		stub.byEmail[strings.ToLower(u.Email)] = u
	}
	return stub
}

func (s *userStoreStub) Create(ctx context.Context, user *models.User) error {
	s.byID[user.ID] = user
	s.byEmail[strings.ToLower(user.Email)] = user
	return nil
}

func (s *userStoreStub) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := s.byID[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (s *userStoreStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := s.byEmail[strings.ToLower(email)]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (s *userStoreStub) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	result := make([]models.User, 0, len(s.byID))
	for _, u := range s.byID {
		result = append(result, *u)
	}
	return result, len(result), nil
}

func (s *userStoreStub) Update(ctx context.Context, user *models.User) error {
	if _, ok := s.byID[user.ID]; !ok {
		return sql.ErrNoRows
	}
	s.byID[user.ID] = user
	return nil
}

func salesDept() *models.Department {
	dept := models.DepartmentSales
	return &dept
}

func TestUserCreateHashesPassword(t *testing.T) {
	store := newUserStoreStub()
	svc := NewUserService(store, nil, nil)

	user, err := svc.Create(context.Background(), dto.CreateUserRequest{
		Email:      "Nour@TACT.eg",
		Password:   "correct-horse",
		FullName:   "Nour Hassan",
		Role:       models.RoleSales,
		Department: salesDept(),
	}, adminClaims())
	require.NoError(t, err)
	require.Equal(t, "nour@tact.eg", user.Email)
	require.True(t, user.Active)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct-horse")))
}

func TestUserCreateRejectsDuplicateEmail(t *testing.T) {
	existing := staffUser("nour@tact.eg", "Nour Hassan", models.RoleSales, models.DepartmentSales)
	svc := NewUserService(newUserStoreStub(existing), nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateUserRequest{
		Email:      "NOUR@tact.eg",
		Password:   "correct-horse",
		FullName:   "Duplicate",
		Role:       models.RoleSales,
		Department: salesDept(),
	}, adminClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUserCreateValidatesPayload(t *testing.T) {
	svc := NewUserService(newUserStoreStub(), nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateUserRequest{
		Email:    "not-an-email",
		Password: "short",
		Role:     models.RoleSales,
	}, adminClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserCreateDepartmentMustMatchRole(t *testing.T) {
	svc := NewUserService(newUserStoreStub(), nil, nil)

	pricingDept := models.DepartmentPricing
	_, err := svc.Create(context.Background(), dto.CreateUserRequest{
		Email:      "nour@tact.eg",
		Password:   "correct-horse",
		FullName:   "Nour Hassan",
		Role:       models.RoleSales,
		Department: &pricingDept,
	}, adminClaims())
	require.Error(t, err)
	require.Contains(t, appErrors.FromError(err).Message, "invalid_department")
}

func TestUserCreateAdminOnly(t *testing.T) {
	svc := NewUserService(newUserStoreStub(), nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateUserRequest{
		Email:      "nour@tact.eg",
		Password:   "correct-horse",
		FullName:   "Nour Hassan",
		Role:       models.RoleSales,
		Department: salesDept(),
	}, salesActor())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUserGetSelfAllowed(t *testing.T) {
	existing := staffUser("nour@tact.eg", "Nour Hassan", models.RoleSales, models.DepartmentSales)
	svc := NewUserService(newUserStoreStub(existing), nil, nil)

	self := &models.JWTClaims{UserID: existing.ID, Role: models.RoleSales, Email: existing.Email}
	user, err := svc.Get(context.Background(), existing.ID, self)
	require.NoError(t, err)
	require.Equal(t, existing.Email, user.Email)

	other := &models.JWTClaims{UserID: "someone-else", Role: models.RoleSales, Email: "dina@tact.eg"}
	_, err = svc.Get(context.Background(), existing.ID, other)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUserDeactivationKeepsRecord(t *testing.T) {
	existing := staffUser("nour@tact.eg", "Nour Hassan", models.RoleSales, models.DepartmentSales)
	store := newUserStoreStub(existing)
	svc := NewUserService(store, nil, nil)

	user, err := svc.Update(context.Background(), existing.ID, dto.UpdateUserRequest{
		FullName:   "Nour Hassan",
		Role:       models.RoleSales,
		Department: salesDept(),
		Active:     false,
	}, adminClaims())
	require.NoError(t, err)
	require.False(t, user.Active)
	require.Contains(t, store.byID, existing.ID)
}
