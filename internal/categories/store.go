package categories

import "context"

// Store persists categories. Implementations must enforce code uniqueness
// and report violations as ErrDuplicateCode.
type Store interface {
	Insert(ctx context.Context, c *Category) error
	FindByID(ctx context.Context, id string) (*Category, error)
	FindByCode(ctx context.Context, code string) (*Category, error)
	// List returns active categories ordered by sequence; when search is
	// non-empty only categories whose code or name contains it
	// (case-insensitively) are returned.
	List(ctx context.Context, search string) ([]*Category, error)
	Save(ctx context.Context, c *Category) error
}
