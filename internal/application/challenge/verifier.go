package challenge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/go-verify-api/internal/domain"
	"github.com/go-verify-api/internal/pkg/secret"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Verifier checks a presented code against the active artifact (or TOTP seed)
// for a (subject, purpose) pair and commits the side effect on success.
type Verifier interface {
	Verify(ctx context.Context, subjectID string, purpose domain.Purpose, presentedCode string) (*domain.VerificationResult, error)
}

type secretStore interface {
	Get(ctx context.Context, subjectID string) (*domain.TwoFactorSecret, error)
}

type verifier struct {
	artifacts   artifactStore
	secrets     secretStore
	codePattern *regexp.Regexp
}

type VerifierDeps struct {
	Artifacts artifactStore
	Secrets   secretStore
	Policy    Policy
}

func NewVerifier(deps VerifierDeps) Verifier {
	digits := deps.Policy.Digits
	if digits == 0 {
		digits = DefaultPolicy.Digits
	}
	return &verifier{
		artifacts:   deps.Artifacts,
		secrets:     deps.Secrets,
		codePattern: regexp.MustCompile(fmt.Sprintf(`^[0-9]{%d}$`, digits)),
	}
}

func (v *verifier) Verify(ctx context.Context, subjectID string, purpose domain.Purpose, presentedCode string) (*domain.VerificationResult, error) {
	if !purpose.Valid() {
		return nil, fmt.Errorf("unknown purpose %q: %w", purpose, domain.ErrMalformedInput)
	}
	if !v.codePattern.MatchString(presentedCode) {
		return nil, fmt.Errorf("code has wrong shape: %w", domain.ErrMalformedInput)
	}
	if purpose.TOTP() {
		return v.verifyTOTP(ctx, subjectID, purpose, presentedCode)
	}

	a, err := v.artifacts.LoadActive(ctx, subjectID, purpose)
	if err != nil {
		if errors.Is(err, domain.ErrNoActiveChallenge) {
			return nil, err
		}
		return nil, fmt.Errorf("load challenge: %w", domain.ErrStorage)
	}

	// Expiry and mismatch are merged into one caller-visible rejection so a
	// caller cannot probe whether a code would have matched. The distinction
	// is kept for logs only.
	match := secret.Equal(a.SecretHash, secret.Hash(presentedCode))
	expired := a.Expired(time.Now().UTC())
	if !match || expired {
		if expired {
			slog.Debug("challenge rejected",
				"subject_id", subjectID, "purpose", purpose, "reason", "expired")
		}
		return nil, domain.ErrInvalidCode
	}

	// Consume via compare-and-swap: of any number of racing verifies for the
	// same artifact, exactly one lands. The pending-value commit rides the
	// same transaction, so a storage failure leaves the artifact active.
	var applied bool
	if a.PendingValue != nil {
		applied, err = v.artifacts.ConsumeAndCommit(ctx, subjectID, purpose, a.ArtifactID, *a.PendingValue)
	} else {
		applied, err = v.artifacts.TryConsume(ctx, subjectID, purpose, a.ArtifactID)
	}
	if err != nil {
		return nil, fmt.Errorf("consume challenge: %w", domain.ErrStorage)
	}
	if !applied {
		return nil, domain.ErrNoActiveChallenge
	}

	return &domain.VerificationResult{
		SubjectID:      subjectID,
		Purpose:        purpose,
		CommittedValue: a.PendingValue,
	}, nil
}

// verifyTOTP validates against a rolling window of one period either side of
// now, tolerating authenticator clock drift without widening the code space.
func (v *verifier) verifyTOTP(ctx context.Context, subjectID string, purpose domain.Purpose, presentedCode string) (*domain.VerificationResult, error) {
	sec, err := v.secrets.Get(ctx, subjectID)
	if err != nil {
		if errors.Is(err, domain.ErrNoActiveChallenge) {
			return nil, err
		}
		return nil, fmt.Errorf("load twofactor secret: %w", domain.ErrStorage)
	}
	if purpose == domain.PurposeTwoFactorLogin && !sec.Enabled {
		return nil, fmt.Errorf("twofactor not enabled: %w", domain.ErrNoActiveChallenge)
	}

	valid, err := totp.ValidateCustom(presentedCode, sec.SecretKey, time.Now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil || !valid {
		return nil, domain.ErrInvalidCode
	}

	return &domain.VerificationResult{SubjectID: subjectID, Purpose: purpose}, nil
}
