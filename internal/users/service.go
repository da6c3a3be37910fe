package users

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"penguinims.org/internal/auth"
)

const (
	minUsernameLength = 3
	minPasswordLength = 6
)

var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

// Service implements the account lifecycle rules: credential issuance,
// account management under the single-super-admin invariant, password
// changes and token authentication.
type Service struct {
	store  Store
	tokens *auth.TokenIssuer
	now    func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the account service. The token issuer may be nil for
// administrative tooling that never issues or verifies sessions.
func NewService(store Store, tokens *auth.TokenIssuer, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("users: store is required")
	}
	s := &Service{store: store, tokens: tokens, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SupportsTokens reports whether session issuance and verification are
// configured.
func (s *Service) SupportsTokens() bool {
	return s.tokens != nil
}

// Login authenticates by email and password and issues a session token.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	u, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if !u.IsActive {
		return Session{}, ErrAccountDeactivated
	}
	if !auth.VerifyPassword(u.PasswordHash, password) {
		return Session{}, ErrInvalidCredentials
	}
	return s.issueSession(u)
}

// SuperAdminLogin is the login variant for the management console. The role
// gate runs before the active-status and password checks, so a non-super-
// admin account is refused with ErrForbidden regardless of the password
// supplied.
func (s *Service) SuperAdminLogin(ctx context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	u, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if u.Role != RoleSuperAdmin {
		return Session{}, fmt.Errorf("%w: super admin credentials required", ErrForbidden)
	}
	if !u.IsActive {
		return Session{}, ErrAccountDeactivated
	}
	if !auth.VerifyPassword(u.PasswordHash, password) {
		return Session{}, ErrInvalidCredentials
	}
	return s.issueSession(u)
}

func (s *Service) issueSession(u *User) (Session, error) {
	if !s.SupportsTokens() {
		return Session{}, errors.New("users: token issuer is not configured")
	}
	token, expiresAt, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: expiresAt, User: u.Profile()}, nil
}

// AuthenticateToken resolves a bearer token to the live user record. The
// role embedded in the token is ignored: role changes and deactivation take
// effect on the very next request.
func (s *Service) AuthenticateToken(ctx context.Context, token string) (*User, error) {
	if !s.SupportsTokens() {
		return nil, auth.ErrInvalidToken
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	u, err := s.store.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrAccountDeactivated
	}
	return u, nil
}

// CreateInput carries the fields of an account-creation request.
type CreateInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// Create registers a new account on behalf of caller. Creating additional
// super admin accounts is categorically refused: the only super admin is the
// seeded one.
func (s *Service) Create(ctx context.Context, caller *User, in CreateInput) (Profile, error) {
	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)
	fullName := strings.TrimSpace(in.FullName)
	role := strings.TrimSpace(strings.ToLower(in.Role))

	if username == "" || email == "" || in.Password == "" || fullName == "" {
		return Profile{}, fmt.Errorf("%w: username, email, password and full name are required", ErrInvalidInput)
	}
	if len(username) < minUsernameLength {
		return Profile{}, fmt.Errorf("%w: username must be at least %d characters long", ErrInvalidInput, minUsernameLength)
	}
	if !emailPattern.MatchString(email) {
		return Profile{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if len(in.Password) < minPasswordLength {
		return Profile{}, fmt.Errorf("%w: password must be at least %d characters long", ErrInvalidInput, minPasswordLength)
	}
	if role == "" {
		role = RoleUser
	}
	if role != RoleSuperAdmin && role != RoleUser {
		return Profile{}, fmt.Errorf("%w: must be %q or %q", ErrInvalidRole, RoleSuperAdmin, RoleUser)
	}
	if role == RoleSuperAdmin {
		return Profile{}, fmt.Errorf("%w: cannot create super admin accounts", ErrForbidden)
	}

	existing, err := s.store.FindByUsernameOrEmail(ctx, username, email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Profile{}, err
	}
	if existing != nil {
		return Profile{}, ErrDuplicateIdentity
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Profile{}, err
	}

	u := &User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Role:         role,
		IsActive:     true,
	}
	if caller != nil {
		u.CreatedBy = caller.ID
	}
	// The unique index is the source of truth for concurrent registrations;
	// the existence check above is advisory only.
	if err := s.store.Insert(ctx, u); err != nil {
		return Profile{}, err
	}
	return u.Profile(), nil
}

// Get returns a single sanitized profile.
func (s *Service) Get(ctx context.Context, id string) (Profile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Profile{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	u, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	return u.Profile(), nil
}

// List returns all accounts, newest first, secrets stripped.
func (s *Service) List(ctx context.Context) ([]Profile, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	profiles := make([]Profile, 0, len(all))
	for _, u := range all {
		profiles = append(profiles, u.Profile())
	}
	return profiles, nil
}

// UpdateInput carries a partial account update; nil fields are untouched.
type UpdateInput struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

// Update applies a partial update under the super-admin protection rules:
// a super admin record may only be edited by itself, and its role and active
// status are immutable through this path.
func (s *Service) Update(ctx context.Context, caller *User, id string, in UpdateInput) (Profile, error) {
	if caller == nil {
		return Profile{}, ErrUnauthenticated
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Profile{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	u, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	if u.Role == RoleSuperAdmin && u.ID != caller.ID {
		return Profile{}, fmt.Errorf("%w: cannot modify another super admin account", ErrForbidden)
	}

	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if len(username) < minUsernameLength {
			return Profile{}, fmt.Errorf("%w: username must be at least %d characters long", ErrInvalidInput, minUsernameLength)
		}
		u.Username = username
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if !emailPattern.MatchString(email) {
			return Profile{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
		}
		u.Email = email
	}
	if in.FullName != nil {
		fullName := strings.TrimSpace(*in.FullName)
		if fullName == "" {
			return Profile{}, fmt.Errorf("%w: full name is required", ErrInvalidInput)
		}
		u.FullName = fullName
	}
	if in.Role != nil {
		role := strings.TrimSpace(strings.ToLower(*in.Role))
		if role != RoleSuperAdmin && role != RoleUser {
			return Profile{}, fmt.Errorf("%w: must be %q or %q", ErrInvalidRole, RoleSuperAdmin, RoleUser)
		}
		if u.Role == RoleSuperAdmin || role == RoleSuperAdmin {
			return Profile{}, fmt.Errorf("%w: cannot change super admin role", ErrForbidden)
		}
		u.Role = role
	}
	if in.IsActive != nil {
		if u.Role == RoleSuperAdmin {
			return Profile{}, fmt.Errorf("%w: cannot change super admin status", ErrForbidden)
		}
		u.IsActive = *in.IsActive
	}

	if err := s.store.Save(ctx, u); err != nil {
		return Profile{}, err
	}
	return u.Profile(), nil
}

// Deactivate soft-deletes an account. The record is retained; the access
// gate starts rejecting its sessions on the next request.
func (s *Service) Deactivate(ctx context.Context, caller *User, id string) error {
	if caller == nil {
		return ErrUnauthenticated
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	u, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if u.Role == RoleSuperAdmin {
		return fmt.Errorf("%w: cannot delete super admin account", ErrForbidden)
	}
	u.IsActive = false
	return s.store.Save(ctx, u)
}

// ChangePassword lets any authenticated user rotate their own secret.
func (s *Service) ChangePassword(ctx context.Context, caller *User, currentPassword, newPassword string) error {
	if caller == nil {
		return ErrUnauthenticated
	}
	if currentPassword == "" || newPassword == "" {
		return fmt.Errorf("%w: current password and new password are required", ErrInvalidInput)
	}
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("%w: new password must be at least %d characters long", ErrInvalidInput, minPasswordLength)
	}
	u, err := s.store.FindByID(ctx, caller.ID)
	if err != nil {
		return err
	}
	if !auth.VerifyPassword(u.PasswordHash, currentPassword) {
		return fmt.Errorf("%w: current password is incorrect", ErrInvalidCredentials)
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return s.store.Save(ctx, u)
}

// SeedConfig names the fields of the bootstrap super admin account.
type SeedConfig struct {
	Username string
	Email    string
	Password string
	FullName string
}

func (c *SeedConfig) applyDefaults() {
	if strings.TrimSpace(c.Username) == "" {
		c.Username = "superadmin"
	}
	if strings.TrimSpace(c.Email) == "" {
		c.Email = "superadmin@penguin.com"
	}
	if c.Password == "" {
		c.Password = "Penguin@123"
	}
	if strings.TrimSpace(c.FullName) == "" {
		c.FullName = "Super Administrator"
	}
}

// EnsureSuperAdmin makes the "exactly one super admin exists" invariant hold.
// It is idempotent: when a super admin already exists its profile is returned
// with created=false and nothing is written.
func (s *Service) EnsureSuperAdmin(ctx context.Context, cfg SeedConfig) (Profile, bool, error) {
	existing, err := s.store.FindSuperAdmin(ctx)
	if err == nil {
		return existing.Profile(), false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Profile{}, false, err
	}

	cfg.applyDefaults()
	username := strings.TrimSpace(cfg.Username)
	email := normalizeEmail(cfg.Email)
	if len(username) < minUsernameLength {
		return Profile{}, false, fmt.Errorf("%w: username must be at least %d characters long", ErrInvalidInput, minUsernameLength)
	}
	if !emailPattern.MatchString(email) {
		return Profile{}, false, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if len(cfg.Password) < minPasswordLength {
		return Profile{}, false, fmt.Errorf("%w: password must be at least %d characters long", ErrInvalidInput, minPasswordLength)
	}

	hash, err := auth.HashPassword(cfg.Password)
	if err != nil {
		return Profile{}, false, err
	}
	u := &User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(cfg.FullName),
		Role:         RoleSuperAdmin,
		IsActive:     true,
	}
	if err := s.store.Insert(ctx, u); err != nil {
		return Profile{}, false, err
	}
	return u.Profile(), true, nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
