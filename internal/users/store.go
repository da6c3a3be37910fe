package users

import "context"

// Store persists user records. Implementations must enforce uniqueness of
// username and email (case-insensitively) and report violations as
// ErrDuplicateIdentity: concurrent inserts that slip past an application
// level existence check are arbitrated by that constraint.
type Store interface {
	Insert(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*User, error)
	FindSuperAdmin(ctx context.Context) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Save(ctx context.Context, u *User) error
}
