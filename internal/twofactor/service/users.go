package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/aussiebroadwan/twofactor/internal/twofactor/domain"
	"github.com/aussiebroadwan/twofactor/internal/twofactor/store"
	"github.com/aussiebroadwan/twofactor/pkg/cryptox"
	"github.com/aussiebroadwan/twofactor/pkg/idx"
)

const minPasswordLength = 8

var (
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrWeakPassword    = fmt.Errorf("password must be at least %d characters", minPasswordLength)
	ErrUserExists      = errors.New("user already exists")
	ErrUnknownUser     = errors.New("unknown user")
	ErrInvalidPassword = errors.New("invalid password")
)

// UserService is the local primary authenticator. Deployments that keep
// users elsewhere only need their own PasswordVerifier.
type UserService struct {
	Store  store.Store
	Hasher cryptox.PasswordHasher
	Now    func() time.Time
}

// CreateUser registers an account with an argon2id password hash.
func (s *UserService) CreateUser(ctx context.Context, email, password string) (domain.User, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return domain.User{}, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return domain.User{}, ErrWeakPassword
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := nowFunc(s.Now).Truncate(time.Millisecond)
	u := domain.User{
		ID:           idx.NewAt(now).String(),
		Email:        strings.ToLower(addr.Address),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrUserExists
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, userID)
}

// Authenticate checks email and password and returns the user.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, store.ErrNotFound) {
		// Spend the same time as a real check.
		_ = s.Hasher.Verify(password, dummyHash)
		return domain.User{}, ErrInvalidPassword
	}
	if err != nil {
		return domain.User{}, err
	}
	if err := s.Hasher.Verify(password, u.PasswordHash); err != nil {
		return domain.User{}, ErrInvalidPassword
	}
	return u, nil
}

// VerifyPassword implements PasswordVerifier. An unknown user is a
// mismatch, not an error.
func (s *UserService) VerifyPassword(ctx context.Context, userID, password string) (bool, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	err = s.Hasher.Verify(password, u.PasswordHash)
	switch {
	case errors.Is(err, cryptox.ErrPasswordMismatch):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// SetPassword replaces the password of userID.
func (s *UserService) SetPassword(ctx context.Context, userID, password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUnknownUser
		}
		return err
	}
	return nil
}

// dummyHash is a valid argon2id hash of a random password.
const dummyHash = "$argon2id$v=19$m=19456,t=2,p=1$c29tZXNhbHRzb21lc2FsdA$2lXGvEsJdrlrl5ChQ2fuYbvzBaqb3xtm6rEDXg2TE9w"
