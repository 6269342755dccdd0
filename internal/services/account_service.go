package services

import (
	"context"
	"strings"

	"budgetly/internal/auth"
	"budgetly/internal/core"
	"budgetly/internal/log"
	"budgetly/internal/storage"
)

const (
	usernameSuffixLen   = 6
	usernameMaxAttempts = 5
)

// AuthResult is returned by every successful sign-in.
type AuthResult struct {
	Token string          `json:"token"`
	User  core.PublicUser `json:"user"`
}

type RegisterInput struct {
	Username string
	Password string
	Email    string
}

// AccountService owns user credentials and session tokens.
type AccountService struct {
	base
	users  storage.UserStore
	hasher PasswordHasher
	tokens TokenService
}

func NewAccountService(users storage.UserStore, hasher PasswordHasher, tokens TokenService, opts Options) *AccountService {
	return &AccountService{
		base:   newBase(opts, log.ComponentAuth),
		users:  users,
		hasher: hasher,
		tokens: tokens,
	}
}

func (s *AccountService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" || in.Password == "" {
		return AuthResult{}, core.ErrMissingCredentials
	}
	if len(in.Password) < core.MinPasswordLength {
		return AuthResult{}, core.ErrPasswordTooShort
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	exists, err := s.users.UserExists(sctx, username, email)
	if err != nil {
		return AuthResult{}, s.internal(ctx, log.OpRegister, err)
	}
	if exists {
		return AuthResult{}, core.ErrUserExists
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return AuthResult{}, s.internal(ctx, log.OpRegister, err)
	}
	now := s.now()
	u := core.User{
		ID:           s.newID(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         core.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(sctx, u); err != nil {
		if isConflict(err) {
			return AuthResult{}, core.ErrUserExists
		}
		return AuthResult{}, s.internal(ctx, log.OpRegister, err)
	}

	s.logger.InfoContext(ctx, "User registered", log.FieldUserID, u.ID)
	return s.issue(ctx, u)
}

// Login checks a username and password. Unknown users, federated-only users
// and wrong passwords are indistinguishable to the caller.
func (s *AccountService) Login(ctx context.Context, username, password string) (AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return AuthResult{}, core.ErrMissingCredentials
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	u, err := s.users.GetUserByUsername(sctx, username)
	if err != nil && !isNotFound(err) {
		return AuthResult{}, s.internal(ctx, log.OpLogin, err)
	}
	// u is zero when not found; Compare still spends a bcrypt round.
	if !s.hasher.Compare(u.PasswordHash, password) || err != nil {
		s.logger.InfoContext(ctx, "Login rejected", log.FieldOperation, log.OpLogin)
		return AuthResult{}, core.ErrInvalidCredentials
	}
	return s.issue(ctx, u)
}

// FederatedLogin signs in the owner of an external profile, creating the
// account on first use.
func (s *AccountService) FederatedLogin(ctx context.Context, p auth.Profile) (AuthResult, error) {
	email := strings.TrimSpace(p.Email)
	if p.ID == "" || email == "" || !p.EmailVerified {
		return AuthResult{}, core.ErrUnusableProfile
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	u, err := s.users.GetUserByGoogleID(sctx, p.ID)
	if err == nil {
		return s.issue(ctx, u)
	}
	if !isNotFound(err) {
		return AuthResult{}, s.internal(ctx, log.OpLogin, err)
	}

	local := strings.ToLower(email)
	if at := strings.IndexByte(local, '@'); at >= 0 {
		local = local[:at]
	}
	if local == "" {
		local = "user"
	}

	now := s.now()
	for attempt := 0; attempt < usernameMaxAttempts; attempt++ {
		u = core.User{
			ID:        s.newID(),
			Username:  local + randomSuffix(usernameSuffixLen),
			Email:     email,
			GoogleID:  p.ID,
			Role:      core.RoleUser,
			CreatedAt: now,
			UpdatedAt: now,
		}
		err = s.users.CreateUser(sctx, u)
		if err == nil {
			s.logger.InfoContext(ctx, "Federated user created",
				log.FieldUserID, u.ID, log.FieldProvider, "google")
			return s.issue(ctx, u)
		}
		if !isConflict(err) {
			return AuthResult{}, s.internal(ctx, log.OpRegister, err)
		}
		// A concurrent callback may have created the same Google user.
		if existing, gerr := s.users.GetUserByGoogleID(sctx, p.ID); gerr == nil {
			return s.issue(ctx, existing)
		}
	}
	// Only the email can still be colliding at this point.
	return AuthResult{}, core.ErrUserExists
}

// VerifySession maps a bearer token to the caller it identifies.
func (s *AccountService) VerifySession(token string) (core.Principal, error) {
	if strings.TrimSpace(token) == "" {
		return core.Principal{}, core.ErrMissingToken
	}
	p, err := s.tokens.Verify(token)
	if err != nil {
		return core.Principal{}, core.ErrInvalidToken
	}
	return p, nil
}

func (s *AccountService) Me(ctx context.Context, userID string) (core.PublicUser, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	u, err := s.users.GetUserByID(sctx, userID)
	if isNotFound(err) {
		return core.PublicUser{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.PublicUser{}, s.internal(ctx, "me", err)
	}
	return u.Public(), nil
}

// UpdatePassword replaces the user's password. An empty password leaves the
// account untouched.
func (s *AccountService) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	u, err := s.users.GetUserByID(sctx, userID)
	if isNotFound(err) {
		return core.ErrUserNotFound
	}
	if err != nil {
		return s.internal(ctx, log.OpUpdate, err)
	}
	if newPassword == "" {
		return nil
	}
	if u.IsFederated() {
		return core.ErrFederatedPassword
	}
	if len(newPassword) < core.MinPasswordLength {
		return core.ErrPasswordTooShort
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return s.internal(ctx, log.OpUpdate, err)
	}
	if err := s.users.UpdatePasswordHash(sctx, userID, hash, s.now()); err != nil {
		if isNotFound(err) {
			return core.ErrUserNotFound
		}
		return s.internal(ctx, log.OpUpdate, err)
	}
	s.logger.InfoContext(ctx, "Password updated", log.FieldUserID, userID)
	return nil
}

// DeleteAccount removes the user and every entry they own.
func (s *AccountService) DeleteAccount(ctx context.Context, userID string) error {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if err := s.users.DeleteUser(sctx, userID); err != nil {
		if isNotFound(err) {
			return core.ErrUserNotFound
		}
		return s.internal(ctx, log.OpDelete, err)
	}
	s.logger.InfoContext(ctx, "Account deleted", log.FieldUserID, userID)
	s.publish(ctx, core.NewLedgerEvent(core.EventAccountDeleted, userID, ""))
	return nil
}

func (s *AccountService) issue(ctx context.Context, u core.User) (AuthResult, error) {
	token, err := s.tokens.Issue(u)
	if err != nil {
		return AuthResult{}, s.internal(ctx, "issue_token", err)
	}
	return AuthResult{Token: token, User: u.Public()}, nil
}
