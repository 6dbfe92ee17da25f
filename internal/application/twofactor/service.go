// Package twofactor manages TOTP enrollment on top of the challenge verifier.
package twofactor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-verify-api/internal/application/challenge"
	"github.com/go-verify-api/internal/domain"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

type Service interface {
	// Enroll generates and persists a TOTP seed with enabled=false and returns
	// it once for QR rendering. Re-enrolling before confirmation replaces the
	// seed; re-enrolling after enablement is a conflict.
	Enroll(ctx context.Context, subjectID string) (*domain.TOTPEnrollment, error)
	// Confirm verifies a code against the pending seed and enables two-factor.
	Confirm(ctx context.Context, subjectID, code string) error
	// Disable turns two-factor off after a password re-check. A failed
	// re-check is Forbidden, never InvalidCode.
	Disable(ctx context.Context, subjectID, currentPassword string) error
}

type accountStore interface {
	Get(ctx context.Context, subjectID string) (*domain.Account, error)
}

type secretStore interface {
	Get(ctx context.Context, subjectID string) (*domain.TwoFactorSecret, error)
	Put(ctx context.Context, s *domain.TwoFactorSecret) error
	SetEnabled(ctx context.Context, subjectID string, enabled bool) error
}

// authCheck re-verifies the subject's password for the disable path.
type authCheck interface {
	VerifyPassword(ctx context.Context, subjectID, password string) (bool, error)
}

type service struct {
	accounts accountStore
	secrets  secretStore
	verifier challenge.Verifier
	auth     authCheck
	issuer   string
}

type ServiceDeps struct {
	Accounts accountStore
	Secrets  secretStore
	Verifier challenge.Verifier
	Auth     authCheck
	Issuer   string
}

func NewService(deps ServiceDeps) Service {
	return &service{
		accounts: deps.Accounts,
		secrets:  deps.Secrets,
		verifier: deps.Verifier,
		auth:     deps.Auth,
		issuer:   deps.Issuer,
	}
}

func (s *service) Enroll(ctx context.Context, subjectID string) (*domain.TOTPEnrollment, error) {
	acct, err := s.accounts.Get(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("subject lookup: %w", domain.ErrAccountNotFound)
	}
	if existing, err := s.secrets.Get(ctx, subjectID); err == nil && existing.Enabled {
		return nil, fmt.Errorf("twofactor already enabled: %w", domain.ErrConflict)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: acct.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp seed: %w", err)
	}

	now := time.Now().UTC()
	sec := &domain.TwoFactorSecret{
		SubjectID: subjectID,
		SecretKey: key.Secret(),
		Enabled:   false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.secrets.Put(ctx, sec); err != nil {
		return nil, fmt.Errorf("store twofactor secret: %w", domain.ErrStorage)
	}

	return &domain.TOTPEnrollment{Secret: key.Secret(), OTPAuthURL: key.URL()}, nil
}

func (s *service) Confirm(ctx context.Context, subjectID, code string) error {
	sec, err := s.secrets.Get(ctx, subjectID)
	if err != nil {
		return fmt.Errorf("not enrolled: %w", domain.ErrNoActiveChallenge)
	}
	if sec.Enabled {
		return fmt.Errorf("twofactor already enabled: %w", domain.ErrConflict)
	}
	if _, err := s.verifier.Verify(ctx, subjectID, domain.PurposeTwoFactorEnroll, code); err != nil {
		return err
	}
	if err := s.secrets.SetEnabled(ctx, subjectID, true); err != nil {
		return fmt.Errorf("enable twofactor: %w", domain.ErrStorage)
	}
	return nil
}

func (s *service) Disable(ctx context.Context, subjectID, currentPassword string) error {
	ok, err := s.auth.VerifyPassword(ctx, subjectID, currentPassword)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return err
		}
		return fmt.Errorf("password check: %w", domain.ErrStorage)
	}
	if !ok {
		return fmt.Errorf("password re-check failed: %w", domain.ErrForbidden)
	}
	if _, err := s.secrets.Get(ctx, subjectID); err != nil {
		return fmt.Errorf("not enrolled: %w", domain.ErrNoActiveChallenge)
	}
	if err := s.secrets.SetEnabled(ctx, subjectID, false); err != nil {
		return fmt.Errorf("disable twofactor: %w", domain.ErrStorage)
	}
	return nil
}
