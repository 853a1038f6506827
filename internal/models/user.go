package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin      UserRole = "ADMIN"
	RoleSales      UserRole = "SALES"
	RolePricing    UserRole = "PRICING"
	RoleOperations UserRole = "OPERATIONS"
	RoleClient     UserRole = "CLIENT"
)

// Department groups internal staff for assignment routing. Clients carry no
// department.
type Department string

const (
	DepartmentSales      Department = "SALES"
	DepartmentPricing    Department = "PRICING"
	DepartmentOperations Department = "OPERATIONS"
)

// Valid reports whether the department is one of the known values.
func (d Department) Valid() bool {
	switch d {
	case DepartmentSales, DepartmentPricing, DepartmentOperations:
		return true
	}
	return false
}

// User represents an application user stored in the users table.
type User struct {
	ID           string      `db:"id" json:"id"`
	Email        string      `db:"email" json:"email"`
	PasswordHash string      `db:"password_hash" json:"-"`
	FullName     string      `db:"full_name" json:"full_name"`
	Role         UserRole    `db:"role" json:"role"`
	Department   *Department `db:"department" json:"department,omitempty"`
	CompanyID    *string     `db:"company_id" json:"company_id,omitempty"`
	Active       bool        `db:"active" json:"active"`
	LastLogin    *time.Time  `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

// InDepartment reports whether the user belongs to the given department.
func (u *User) InDepartment(dept Department) bool {
	return u.Department != nil && *u.Department == dept
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role       *UserRole
	Department *Department
	Active     *bool
	Search     string
	Page       int
	PageSize   int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
