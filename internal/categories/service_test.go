package categories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

type memStore struct {
	mu   sync.Mutex
	seq  int
	byID map[string]*Category
}

func newMemStore() *memStore {
	return &memStore{byID: make(map[string]*Category)}
}

func clone(c *Category) *Category {
	cp := *c
	return &cp
}

func (m *memStore) Insert(ctx context.Context, c *Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.byID {
		if other.Code == c.Code {
			return ErrDuplicateCode
		}
	}
	if c.ID == "" {
		m.seq++
		c.ID = fmt.Sprintf("cat-%d", m.seq)
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	m.byID[c.ID] = clone(c)
	return nil
}

func (m *memStore) FindByID(ctx context.Context, id string) (*Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.byID[id]; ok {
		return clone(c), nil
	}
	return nil, ErrNotFound
}

func (m *memStore) FindByCode(ctx context.Context, code string) (*Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byID {
		if c.Code == code {
			return clone(c), nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) List(ctx context.Context, search string) ([]*Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []*Category
	needle := strings.ToLower(search)
	for _, c := range m.byID {
		if !c.IsActive {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(c.Code), needle) &&
			!strings.Contains(strings.ToLower(c.Name), needle) {
			continue
		}
		res = append(res, clone(c))
	}
	return res, nil
}

func (m *memStore) Save(ctx context.Context, c *Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[c.ID]; !ok {
		return ErrNotFound
	}
	for _, other := range m.byID {
		if other.ID != c.ID && other.Code == c.Code {
			return ErrDuplicateCode
		}
	}
	c.UpdatedAt = time.Now().UTC()
	m.byID[c.ID] = clone(c)
	return nil
}

func seq(n int) *int { return &n }

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	svc, err := NewService(store)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store
}

func TestCreateUppercasesCodeAndAttributes(t *testing.T) {
	svc, _ := newTestService(t)

	c, err := svc.Create(context.Background(), "admin-1", CreateInput{
		Code:     "grc01",
		Name:     "Groceries",
		DeptCode: "D01",
		DeptName: "Food",
		Sequence: seq(1),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Code != "GRC01" {
		t.Fatalf("expected upper-cased code, got %q", c.Code)
	}
	if !c.IsActive || c.CreatedBy != "admin-1" {
		t.Fatalf("unexpected category: %+v", c)
	}
}

func TestCreateRequiresAllFields(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Create(context.Background(), "admin-1", CreateInput{Code: "GRC01", Name: "Groceries"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCreateDuplicateCode(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Create(context.Background(), "admin-1", CreateInput{
		Code: "GRC01", Name: "Groceries", DeptCode: "D01", DeptName: "Food", Sequence: seq(1),
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := svc.Create(context.Background(), "admin-1", CreateInput{
		Code: "grc01", Name: "Other", DeptCode: "D02", DeptName: "Other", Sequence: seq(2),
	})
	if !errors.Is(err, ErrDuplicateCode) {
		t.Fatalf("expected ErrDuplicateCode, got %v", err)
	}
}

func TestUpdatePartialAndCodeConflict(t *testing.T) {
	svc, _ := newTestService(t)
	first, err := svc.Create(context.Background(), "admin-1", CreateInput{
		Code: "GRC01", Name: "Groceries", DeptCode: "D01", DeptName: "Food", Sequence: seq(1),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := svc.Create(context.Background(), "admin-1", CreateInput{
		Code: "BEV01", Name: "Beverages", DeptCode: "D01", DeptName: "Food", Sequence: seq(2),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	name := "Fresh Groceries"
	updated, err := svc.Update(context.Background(), "admin-2", first.ID, UpdateInput{Name: &name})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != name || updated.UpdatedBy != "admin-2" {
		t.Fatalf("unexpected category: %+v", updated)
	}
	if updated.Code != "GRC01" {
		t.Fatalf("untouched fields must be preserved, got code %q", updated.Code)
	}

	conflict := "grc01"
	if _, err := svc.Update(context.Background(), "admin-2", second.ID, UpdateInput{Code: &conflict}); !errors.Is(err, ErrDuplicateCode) {
		t.Fatalf("expected ErrDuplicateCode, got %v", err)
	}
}

func TestDeactivateHidesFromList(t *testing.T) {
	svc, store := newTestService(t)
	c, err := svc.Create(context.Background(), "admin-1", CreateInput{
		Code: "GRC01", Name: "Groceries", DeptCode: "D01", DeptName: "Food", Sequence: seq(1),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Deactivate(context.Background(), "admin-1", c.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	listed, err := svc.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("deactivated category must not be listed, got %d", len(listed))
	}
	if _, err := store.FindByID(context.Background(), c.ID); err != nil {
		t.Fatalf("record must be retained: %v", err)
	}
}

func TestListSearchFilters(t *testing.T) {
	svc, _ := newTestService(t)
	for i, in := range []CreateInput{
		{Code: "GRC01", Name: "Groceries", DeptCode: "D01", DeptName: "Food", Sequence: seq(1)},
		{Code: "BEV01", Name: "Beverages", DeptCode: "D01", DeptName: "Food", Sequence: seq(2)},
	} {
		if _, err := svc.Create(context.Background(), "admin-1", in); err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
	}

	listed, err := svc.List(context.Background(), "bev")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 1 || listed[0].Code != "BEV01" {
		t.Fatalf("unexpected search result: %+v", listed)
	}
}
