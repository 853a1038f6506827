package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/dto"
	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/models"
	appErrors "github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/pkg/errors"
)

type userStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	Update(ctx context.Context, user *models.User) error
}

// UserService manages the staff and client directory. All writes are
// admin-only; the assignment router and the dispatcher read through it.
type UserService struct {
	store    userStore
	audit    workflowAuditLogger
	validate *validator.Validate
	logger   *zap.Logger
}

// NewUserService constructs the directory service.
func NewUserService(store userStore, audit workflowAuditLogger, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{store: store, audit: audit, validate: validator.New(), logger: logger}
}

// Create provisions a directory entry. Staff roles must carry a department
// matching the role; clients carry none.
func (s *UserService) Create(ctx context.Context, req dto.CreateUserRequest, actor *models.JWTClaims) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Validation("missing_required_field", err.Error())
	}
	if err := validateRoleDepartment(req.Role, req.Department); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if existing, err := s.store.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a user with this email already exists")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
		Role:         req.Role,
		Department:   req.Department,
		CompanyID:    req.CompanyID,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	if s.audit != nil {
		log := &models.AuditLog{
			UserID:     &actor.UserID,
			Action:     models.AuditActionUserCreate,
			Resource:   "user",
			ResourceID: &user.ID,
			IPAddress:  "system",
			UserAgent:  "user-service",
		}
		if err := s.audit.CreateAuditLog(ctx, log); err != nil {
			s.logger.Warn("failed to persist audit log", zap.Error(err))
		}
	}
	return user, nil
}

// Get loads a single user. Non-admins may only read themselves.
func (s *UserService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.User, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.IsAdmin() && actor.UserID != id {
		return nil, appErrors.ErrForbidden
	}
	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// List returns directory entries matching the query. Staff may browse the
// directory; clients may not.
func (s *UserService) List(ctx context.Context, query dto.UserQuery, actor *models.JWTClaims) ([]models.User, *models.Pagination, error) {
	if !actor.HasRole(models.RoleAdmin, models.RoleSales, models.RolePricing, models.RoleOperations) {
		return nil, nil, appErrors.ErrForbidden
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	filter := models.UserFilter{
		Search:   strings.TrimSpace(query.Search),
		Page:     page,
		PageSize: pageSize,
	}
	if query.Role != "" {
		role := models.UserRole(strings.ToUpper(query.Role))
		filter.Role = &role
	}
	if query.Department != "" {
		dept := models.Department(strings.ToUpper(query.Department))
		if !dept.Valid() {
			return nil, nil, appErrors.Validation("missing_required_field", "unknown department")
		}
		filter.Department = &dept
	}
	users, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Update edits a directory entry. Deactivation rather than deletion keeps
// assignment history resolvable.
func (s *UserService) Update(ctx context.Context, id string, req dto.UpdateUserRequest, actor *models.JWTClaims) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Validation("missing_required_field", err.Error())
	}
	if err := validateRoleDepartment(req.Role, req.Department); err != nil {
		return nil, err
	}
	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	user.FullName = strings.TrimSpace(req.FullName)
	user.Role = req.Role
	user.Department = req.Department
	user.CompanyID = req.CompanyID
	user.Active = req.Active
	user.UpdatedAt = time.Now().UTC()
	if err := s.store.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	if s.audit != nil {
		log := &models.AuditLog{
			UserID:     &actor.UserID,
			Action:     models.AuditActionUserUpdate,
			Resource:   "user",
			ResourceID: &user.ID,
			IPAddress:  "system",
			UserAgent:  "user-service",
		}
		if err := s.audit.CreateAuditLog(ctx, log); err != nil {
			s.logger.Warn("failed to persist audit log", zap.Error(err))
		}
	}
	return user, nil
}

func validateRoleDepartment(role models.UserRole, dept *models.Department) error {
	switch role {
	case models.RoleAdmin, models.RoleClient:
		if dept != nil {
			return appErrors.Validation("invalid_department", "this role carries no department")
		}
	case models.RoleSales, models.RolePricing, models.RoleOperations:
		if dept == nil || !dept.Valid() {
			return appErrors.Validation("invalid_department", "staff roles require a valid department")
		}
		if string(*dept) != string(role) {
			return appErrors.Validation("invalid_department", "department must match the staff role")
		}
	default:
		return appErrors.Validation("missing_required_field", "unknown role")
	}
	return nil
}
