package dto

import "github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/models"

// CreateUserRequest provisions a directory entry.
type CreateUserRequest struct {
	Email      string             `json:"email" validate:"required,email"`
	Password   string             `json:"password" validate:"required,min=8"`
	FullName   string             `json:"full_name" validate:"required"`
	Role       models.UserRole    `json:"role" validate:"required"`
	Department *models.Department `json:"department,omitempty"`
	CompanyID  *string            `json:"company_id,omitempty"`
}

// UpdateUserRequest edits a directory entry.
type UpdateUserRequest struct {
	FullName   string             `json:"full_name" validate:"required"`
	Role       models.UserRole    `json:"role" validate:"required"`
	Department *models.Department `json:"department,omitempty"`
	CompanyID  *string            `json:"company_id,omitempty"`
	Active     bool               `json:"active"`
}

// UserQuery mirrors supported listing filters.
type UserQuery struct {
	Role       string
	Department string
	Search     string
	Page       int
	PageSize   int
}
