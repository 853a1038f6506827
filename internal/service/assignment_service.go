package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/models"
	appErrors "github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/pkg/errors"
)

type directoryReader interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ListByDepartment(ctx context.Context, dept models.Department) ([]models.User, error)
}

// AssignmentResult is the routing decision: the field updates to merge into
// the RFQ plus a notification intent. The router never writes either itself;
// keeping the write on the workflow side makes the routing logic trivially
// testable.
type AssignmentResult struct {
	Department    models.Department
	AssigneeEmail string
	AssigneeName  string
	Notify        NotificationIntent
}

// NotificationIntent names who should be told about the assignment.
type NotificationIntent struct {
	RecipientEmail string
	RecipientName  string
}

// AssignmentService resolves eligible staff for a department and validates
// assignment requests against the user directory.
type AssignmentService struct {
	directory directoryReader
	logger    *zap.Logger
}

// NewAssignmentService constructs the router.
func NewAssignmentService(directory directoryReader, logger *zap.Logger) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{directory: directory, logger: logger}
}

// Resolve validates that targetEmail may be assigned to the department on the
// given RFQ. Eligibility is department membership or the admin role. An empty
// eligible roster is reported as NO_ELIGIBLE_USERS rather than silently
// skipped, so the caller can retry after directory changes.
func (s *AssignmentService) Resolve(ctx context.Context, rfq *models.RFQ, dept models.Department, targetEmail string, actor *models.JWTClaims) (*AssignmentResult, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if dept != models.DepartmentSales && dept != models.DepartmentPricing {
		return nil, appErrors.Validation("missing_required_field", "department must be SALES or PRICING")
	}
	targetEmail = strings.ToLower(strings.TrimSpace(targetEmail))
	if targetEmail == "" {
		return nil, appErrors.Validation("missing_required_field", "assignee email is required")
	}

	// Pricing may only be staffed once sales owns the RFQ, unless an admin
	// overrides.
	if dept == models.DepartmentPricing && rfq.AssignedSalesEmail == nil && !actor.IsAdmin() {
		return nil, appErrors.Validation("missing_required_field", "assign a sales owner before pricing")
	}

	target, err := s.directory.GetByEmail(ctx, targetEmail)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.noEligible(ctx, dept)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up assignee")
	}
	if !target.Active {
		return nil, appErrors.Validation("ineligible_assignee", "assignee account is inactive")
	}
	if !s.eligible(target, dept) {
		return nil, s.noEligible(ctx, dept)
	}

	return &AssignmentResult{
		Department:    dept,
		AssigneeEmail: target.Email,
		AssigneeName:  target.FullName,
		Notify: NotificationIntent{
			RecipientEmail: target.Email,
			RecipientName:  target.FullName,
		},
	}, nil
}

func (s *AssignmentService) eligible(user *models.User, dept models.Department) bool {
	return user.Role == models.RoleAdmin || user.InDepartment(dept)
}

// noEligible distinguishes "that user cannot take this" from "nobody can".
// Both surface as NO_ELIGIBLE_USERS when the roster is empty; otherwise the
// caller picked an ineligible target from a non-empty roster.
func (s *AssignmentService) noEligible(ctx context.Context, dept models.Department) error {
	roster, err := s.directory.ListByDepartment(ctx, dept)
	if err != nil {
		s.logger.Warn("failed to list department roster", zap.String("department", string(dept)), zap.Error(err))
		return appErrors.Clone(appErrors.ErrNoEligibleUsers, "")
	}
	for _, u := range roster {
		if u.Active {
			return appErrors.Validation("ineligible_assignee", "target user is not eligible for "+string(dept))
		}
	}
	return appErrors.Clone(appErrors.ErrNoEligibleUsers, "")
}
