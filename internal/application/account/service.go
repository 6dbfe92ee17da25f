package account

import (
	"context"
	"fmt"
	"time"

	"github.com/go-verify-api/internal/domain"
	"github.com/go-verify-api/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldPasswordHash = "password_hash"
)

type Service interface {
	Register(ctx context.Context, req domain.CreateAccountRequest) (*domain.Account, error)
	Get(ctx context.Context, subjectID string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	// Authenticate checks credentials and reports whether a TOTP code is still
	// required before a token may be issued.
	Authenticate(ctx context.Context, email, password string) (acct *domain.Account, twoFactorRequired bool, err error)
	// VerifyPassword re-checks the subject's password without issuing anything.
	VerifyPassword(ctx context.Context, subjectID, password string) (bool, error)
	ResetPassword(ctx context.Context, subjectID, newPassword string) error
}

type accountStore interface {
	Get(ctx context.Context, subjectID string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Account, error)
	Put(ctx context.Context, a *domain.Account) error
	Update(ctx context.Context, subjectID string, updates map[string]interface{}) error
}

type secretStore interface {
	Get(ctx context.Context, subjectID string) (*domain.TwoFactorSecret, error)
}

type service struct {
	repo    accountStore
	secrets secretStore
}

type ServiceDeps struct {
	AccountRepo accountStore
	SecretRepo  secretStore
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.AccountRepo, secrets: deps.SecretRepo}
}

func (s *service) Register(ctx context.Context, req domain.CreateAccountRequest) (*domain.Account, error) {
	if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("username already taken: %w", domain.ErrConflict)
	}
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	if req.Phone != nil {
		if _, err := s.repo.GetByPhone(ctx, *req.Phone); err == nil {
			return nil, fmt.Errorf("phone already registered: %w", domain.ErrConflict)
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	a := &domain.Account{
		AccountID:    id.New(),
		Username:     req.Username,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		Enable:       1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Put(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *service) Get(ctx context.Context, subjectID string) (*domain.Account, error) {
	return s.repo.Get(ctx, subjectID)
}

func (s *service) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *service) Authenticate(ctx context.Context, email, password string) (*domain.Account, bool, error) {
	a, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, false, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return nil, false, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if sec, err := s.secrets.Get(ctx, a.AccountID); err == nil && sec.Enabled {
		return a, true, nil
	}
	return a, false, nil
}

func (s *service) VerifyPassword(ctx context.Context, subjectID, password string) (bool, error) {
	a, err := s.repo.Get(ctx, subjectID)
	if err != nil {
		return false, fmt.Errorf("subject lookup: %w", domain.ErrAccountNotFound)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *service) ResetPassword(ctx context.Context, subjectID, newPassword string) error {
	if len(newPassword) < 8 || len(newPassword) > 72 {
		return fmt.Errorf("password must be 8-72 characters: %w", domain.ErrMalformedInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.Update(ctx, subjectID, map[string]interface{}{fieldPasswordHash: string(hash)})
}
