package users

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"penguinims.org/internal/ids"
)

const pgUniqueViolation = "23505"

var _ Store = (*PGStore)(nil)

// PGStore implements Store on PostgreSQL through database/sql.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const userColumns = `id, username, email, password_hash, full_name, role, is_active, coalesce(created_by, ''), created_at, updated_at`

func (s *PGStore) Insert(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx,
		`insert into users (id, username, email, password_hash, full_name, role, is_active, created_by)
		 values ($1, $2, $3, $4, $5, $6, $7, nullif($8, ''))
		 returning created_at, updated_at`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.FullName, u.Role, u.IsActive, u.CreatedBy,
	)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateIdentity
		}
		return err
	}
	return nil
}

func (s *PGStore) FindByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id = $1`, id)
	return scanUser(row)
}

func (s *PGStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where lower(email) = lower($1)`, email)
	return scanUser(row)
}

func (s *PGStore) FindByUsernameOrEmail(ctx context.Context, username, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users
		 where lower(username) = lower($1) or lower(email) = lower($2)
		 limit 1`,
		username, email)
	return scanUser(row)
}

func (s *PGStore) FindSuperAdmin(ctx context.Context) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where role = $1 order by created_at asc limit 1`,
		RoleSuperAdmin)
	return scanUser(row)
}

func (s *PGStore) List(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+userColumns+` from users order by created_at desc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (s *PGStore) Save(ctx context.Context, u *User) error {
	row := s.db.QueryRowContext(ctx,
		`update users
		 set username = $2, email = $3, password_hash = $4, full_name = $5,
		     role = $6, is_active = $7, updated_at = now()
		 where id = $1
		 returning updated_at`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.FullName, u.Role, u.IsActive,
	)
	if err := row.Scan(&u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if isUniqueViolation(err) {
			return ErrDuplicateIdentity
		}
		return err
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FullName,
		&u.Role, &u.IsActive, &u.CreatedBy, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
