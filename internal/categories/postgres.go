package categories

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

const categoryColumns = `id, code, name, dept_code, dept_name, sequence, is_active, coalesce(created_by, ''), coalesce(updated_by, ''), created_at, updated_at`

func (s *PGStore) Insert(ctx context.Context, c *Category) error {
	if c.ID == "" {
		c.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx,
		`insert into categories (id, code, name, dept_code, dept_name, sequence, is_active, created_by)
		 values ($1, $2, $3, $4, $5, $6, $7, nullif($8, ''))
		 returning created_at, updated_at`,
		c.ID, c.Code, c.Name, c.DeptCode, c.DeptName, c.Sequence, c.IsActive, c.CreatedBy,
	)
	if err := row.Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCode
		}
		return err
	}
	return nil
}

func (s *PGStore) FindByID(ctx context.Context, id string) (*Category, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+categoryColumns+` from categories where id = $1`, id)
	return scanCategory(row)
}

func (s *PGStore) FindByCode(ctx context.Context, code string) (*Category, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+categoryColumns+` from categories where code = $1`, code)
	return scanCategory(row)
}

func (s *PGStore) List(ctx context.Context, search string) ([]*Category, error) {
	query := `select ` + categoryColumns + ` from categories where is_active = true`
	args := []any{}
	if search != "" {
		query += ` and (code ilike $1 or name ilike $1)`
		args = append(args, "%"+search+"%")
	}
	query += ` order by sequence asc, created_at desc`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (s *PGStore) Save(ctx context.Context, c *Category) error {
	row := s.db.QueryRowContext(ctx,
		`update categories
		 set code = $2, name = $3, dept_code = $4, dept_name = $5,
		     sequence = $6, is_active = $7, updated_by = nullif($8, ''), updated_at = now()
		 where id = $1
		 returning updated_at`,
		c.ID, c.Code, c.Name, c.DeptCode, c.DeptName, c.Sequence, c.IsActive, c.UpdatedBy,
	)
	if err := row.Scan(&c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if isUniqueViolation(err) {
			return ErrDuplicateCode
		}
		return err
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (*Category, error) {
	var c Category
	err := row.Scan(
		&c.ID, &c.Code, &c.Name, &c.DeptCode, &c.DeptName, &c.Sequence,
		&c.IsActive, &c.CreatedBy, &c.UpdatedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
