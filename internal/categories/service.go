package categories

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Service implements category management: code-unique creation, partial
// updates and soft deletion. All operations require an authenticated caller;
// the HTTP layer supplies the caller id for attribution.
type Service struct {
	store Store
}

func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("categories: store is required")
	}
	return &Service{store: store}, nil
}

// List returns active categories, optionally filtered by a code/name search.
func (s *Service) List(ctx context.Context, search string) ([]*Category, error) {
	return s.store.List(ctx, strings.TrimSpace(search))
}

// Get returns a single category by id.
func (s *Service) Get(ctx context.Context, id string) (*Category, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: category id is required", ErrInvalidInput)
	}
	return s.store.FindByID(ctx, id)
}

// Create registers a new category on behalf of callerID.
func (s *Service) Create(ctx context.Context, callerID string, in CreateInput) (*Category, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	name := strings.TrimSpace(in.Name)
	deptCode := strings.TrimSpace(in.DeptCode)
	deptName := strings.TrimSpace(in.DeptName)

	if code == "" || name == "" || deptCode == "" || deptName == "" || in.Sequence == nil {
		return nil, fmt.Errorf("%w: code, name, dept_code, dept_name and sequence are required", ErrInvalidInput)
	}

	existing, err := s.store.FindByCode(ctx, code)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateCode
	}

	c := &Category{
		Code:      code,
		Name:      name,
		DeptCode:  deptCode,
		DeptName:  deptName,
		Sequence:  *in.Sequence,
		IsActive:  true,
		CreatedBy: callerID,
	}
	if err := s.store.Insert(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Update applies a partial update and records callerID as the last editor.
func (s *Service) Update(ctx context.Context, callerID, id string, in UpdateInput) (*Category, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: category id is required", ErrInvalidInput)
	}
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Code != nil {
		code := strings.ToUpper(strings.TrimSpace(*in.Code))
		if code == "" {
			return nil, fmt.Errorf("%w: code is required", ErrInvalidInput)
		}
		if code != c.Code {
			existing, err := s.store.FindByCode(ctx, code)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return nil, err
			}
			if existing != nil && existing.ID != c.ID {
				return nil, ErrDuplicateCode
			}
			c.Code = code
		}
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		c.Name = name
	}
	if in.DeptCode != nil {
		c.DeptCode = strings.TrimSpace(*in.DeptCode)
	}
	if in.DeptName != nil {
		c.DeptName = strings.TrimSpace(*in.DeptName)
	}
	if in.Sequence != nil {
		c.Sequence = *in.Sequence
	}
	c.UpdatedBy = callerID

	if err := s.store.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Deactivate soft-deletes a category; the record is retained.
func (s *Service) Deactivate(ctx context.Context, callerID, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: category id is required", ErrInvalidInput)
	}
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	c.IsActive = false
	c.UpdatedBy = callerID
	return s.store.Save(ctx, c)
}
