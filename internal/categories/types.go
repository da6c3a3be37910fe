package categories

import (
	"errors"
	"time"
)

var (
	ErrInvalidInput  = errors.New("categories: invalid input")
	ErrNotFound      = errors.New("categories: not found")
	ErrDuplicateCode = errors.New("categories: category code already exists")
)

// Category is a merchandise grouping used by the item master. Codes are
// stored upper-cased and are unique across all categories, active or not.
type Category struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	DeptCode  string    `json:"dept_code"`
	DeptName  string    `json:"dept_name"`
	Sequence  int       `json:"sequence"`
	IsActive  bool      `json:"is_active"`
	CreatedBy string    `json:"created_by,omitempty"`
	UpdatedBy string    `json:"updated_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateInput carries the fields of a category-creation request.
type CreateInput struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	DeptCode string `json:"dept_code"`
	DeptName string `json:"dept_name"`
	Sequence *int   `json:"sequence"`
}

// UpdateInput carries a partial category update; nil fields are untouched.
type UpdateInput struct {
	Code     *string `json:"code"`
	Name     *string `json:"name"`
	DeptCode *string `json:"dept_code"`
	DeptName *string `json:"dept_name"`
	Sequence *int    `json:"sequence"`
}
