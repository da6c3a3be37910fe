package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"penguinims.org/internal/auth"
	"penguinims.org/internal/categories"
	"penguinims.org/internal/users"
)

// fakeUserStore is an in-memory users.Store for handler tests.
type fakeUserStore struct {
	mu     sync.Mutex
	nextID int
	rows   map[string]*users.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{rows: make(map[string]*users.User)}
}

func cloneUser(u *users.User) *users.User {
	c := *u
	return &c
}

func (s *fakeUserStore) Insert(_ context.Context, u *users.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if strings.EqualFold(row.Username, u.Username) || strings.EqualFold(row.Email, u.Email) {
			return users.ErrDuplicateIdentity
		}
	}
	s.nextID++
	u.ID = fmt.Sprintf("user-%04d", s.nextID)
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	s.rows[u.ID] = cloneUser(u)
	return nil
}

func (s *fakeUserStore) FindByID(_ context.Context, id string) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.rows[id]; ok {
		return cloneUser(row), nil
	}
	return nil, users.ErrNotFound
}

func (s *fakeUserStore) FindByEmail(_ context.Context, email string) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if strings.EqualFold(row.Email, email) {
			return cloneUser(row), nil
		}
	}
	return nil, users.ErrNotFound
}

func (s *fakeUserStore) FindByUsernameOrEmail(_ context.Context, username, email string) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if strings.EqualFold(row.Username, username) || strings.EqualFold(row.Email, email) {
			return cloneUser(row), nil
		}
	}
	return nil, users.ErrNotFound
}

func (s *fakeUserStore) FindSuperAdmin(_ context.Context) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.Role == users.RoleSuperAdmin {
			return cloneUser(row), nil
		}
	}
	return nil, users.ErrNotFound
}

func (s *fakeUserStore) List(_ context.Context) ([]*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*users.User, 0, len(s.rows))
	for _, row := range s.rows {
		out = append(out, cloneUser(row))
	}
	return out, nil
}

func (s *fakeUserStore) Save(_ context.Context, u *users.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[u.ID]; !ok {
		return users.ErrNotFound
	}
	u.UpdatedAt = time.Now().UTC()
	s.rows[u.ID] = cloneUser(u)
	return nil
}

// fakeCategoryStore is an in-memory categories.Store.
type fakeCategoryStore struct {
	mu     sync.Mutex
	nextID int
	rows   map[string]*categories.Category
}

func newFakeCategoryStore() *fakeCategoryStore {
	return &fakeCategoryStore{rows: make(map[string]*categories.Category)}
}

func cloneCategory(c *categories.Category) *categories.Category {
	cc := *c
	return &cc
}

func (s *fakeCategoryStore) Insert(_ context.Context, c *categories.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if strings.EqualFold(row.Code, c.Code) {
			return categories.ErrDuplicateCode
		}
	}
	s.nextID++
	c.ID = fmt.Sprintf("cat-%04d", s.nextID)
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	s.rows[c.ID] = cloneCategory(c)
	return nil
}

func (s *fakeCategoryStore) FindByID(_ context.Context, id string) (*categories.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.rows[id]; ok {
		return cloneCategory(row), nil
	}
	return nil, categories.ErrNotFound
}

func (s *fakeCategoryStore) FindByCode(_ context.Context, code string) (*categories.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if strings.EqualFold(row.Code, code) {
			return cloneCategory(row), nil
		}
	}
	return nil, categories.ErrNotFound
}

func (s *fakeCategoryStore) List(_ context.Context, search string) ([]*categories.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	needle := strings.ToLower(search)
	var out []*categories.Category
	for _, row := range s.rows {
		if !row.IsActive {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(row.Code), needle) &&
			!strings.Contains(strings.ToLower(row.Name), needle) {
			continue
		}
		out = append(out, cloneCategory(row))
	}
	return out, nil
}

func (s *fakeCategoryStore) Save(_ context.Context, c *categories.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[c.ID]; !ok {
		return categories.ErrNotFound
	}
	c.UpdatedAt = time.Now().UTC()
	s.rows[c.ID] = cloneCategory(c)
	return nil
}

// testEnv bundles the handler with its backing fakes.
type testEnv struct {
	handler    http.Handler
	userStore  *fakeUserStore
	catStore   *fakeCategoryStore
	usersSvc   *users.Service
	superAdmin users.Profile
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	issuer, err := auth.NewTokenIssuer("handler-test-secret")
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	userStore := newFakeUserStore()
	usersSvc, err := users.NewService(userStore, issuer)
	if err != nil {
		t.Fatalf("users.NewService: %v", err)
	}
	catStore := newFakeCategoryStore()
	catSvc, err := categories.NewService(catStore)
	if err != nil {
		t.Fatalf("categories.NewService: %v", err)
	}

	seeded, created, err := usersSvc.EnsureSuperAdmin(context.Background(), users.SeedConfig{})
	if err != nil || !created {
		t.Fatalf("EnsureSuperAdmin: created=%v err=%v", created, err)
	}

	api := New(ReadyProbe{}, "test", usersSvc, catSvc)
	return &testEnv{
		handler:    api.Handler(),
		userStore:  userStore,
		catStore:   catStore,
		usersSvc:   usersSvc,
		superAdmin: seeded,
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) loginSuperAdmin(t *testing.T) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/users/super-admin/login", "", map[string]string{
		"email":    "superadmin@penguin.com",
		"password": "Penguin@123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("super admin login: status %d body %s", rec.Code, rec.Body.String())
	}
	var session users.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return session.Token
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return got
}

func TestRootAndHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("root status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Server is Running") {
		t.Fatalf("unexpected root body %q", rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
	if got := decodeBody(t, rec); got["status"] != "ok" {
		t.Fatalf("healthz body = %v", got)
	}

	rec = env.do(t, http.MethodGet, "/readyz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz status = %d", rec.Code)
	}

	token := env.loginSuperAdmin(t)
	rec = env.do(t, http.MethodGet, "/nope", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown path status = %d", rec.Code)
	}
}
