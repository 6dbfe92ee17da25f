package challenge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-verify-api/internal/domain"
	"github.com/go-verify-api/internal/pkg/id"
	"github.com/go-verify-api/internal/pkg/secret"
	"github.com/go-verify-api/internal/pkg/validate"
)

// Issuer creates single-use challenge artifacts and delivers their codes.
type Issuer interface {
	Issue(ctx context.Context, subjectID string, purpose domain.Purpose, pendingValue *string) (*domain.IssuedChallenge, error)
}

type accountStore interface {
	Get(ctx context.Context, subjectID string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Account, error)
}

type artifactStore interface {
	Upsert(ctx context.Context, a *domain.ChallengeArtifact) error
	LoadActive(ctx context.Context, subjectID string, purpose domain.Purpose) (*domain.ChallengeArtifact, error)
	// TryConsume marks the artifact consumed iff it is still unconsumed and
	// still the current artifact for its (subject, purpose) slot.
	TryConsume(ctx context.Context, subjectID string, purpose domain.Purpose, artifactID string) (bool, error)
	// ConsumeAndCommit is TryConsume plus the account-side pending-value write,
	// performed in one storage transaction so neither applies without the other.
	ConsumeAndCommit(ctx context.Context, subjectID string, purpose domain.Purpose, artifactID, pendingValue string) (bool, error)
}

type deliveryChannel interface {
	Send(ctx context.Context, ch domain.Channel, destination, payload string) error
}

type issuer struct {
	accounts        accountStore
	artifacts       artifactStore
	delivery        deliveryChannel
	policy          Policy
	deliveryTimeout time.Duration
}

type IssuerDeps struct {
	Accounts        accountStore
	Artifacts       artifactStore
	Delivery        deliveryChannel
	Policy          Policy
	DeliveryTimeout time.Duration
}

func NewIssuer(deps IssuerDeps) Issuer {
	p := deps.Policy
	if p.Digits == 0 {
		p = DefaultPolicy
	}
	timeout := deps.DeliveryTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &issuer{
		accounts:        deps.Accounts,
		artifacts:       deps.Artifacts,
		delivery:        deps.Delivery,
		policy:          p,
		deliveryTimeout: timeout,
	}
}

func (i *issuer) Issue(ctx context.Context, subjectID string, purpose domain.Purpose, pendingValue *string) (*domain.IssuedChallenge, error) {
	if !purpose.Valid() {
		return nil, fmt.Errorf("unknown purpose %q: %w", purpose, domain.ErrMalformedInput)
	}
	if purpose.TOTP() {
		return nil, fmt.Errorf("purpose %q has no deliverable code: %w", purpose, domain.ErrMalformedInput)
	}

	acct, err := i.accounts.Get(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("subject lookup: %w", domain.ErrAccountNotFound)
	}

	ch, dest, err := i.resolveDestination(ctx, acct, purpose, pendingValue)
	if err != nil {
		return nil, err
	}

	code, err := secret.NumericCode(i.policy.Digits)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	art := &domain.ChallengeArtifact{
		SubjectID:    subjectID,
		Purpose:      purpose,
		ArtifactID:   id.New(),
		SecretHash:   secret.Hash(code),
		PendingValue: pendingValue,
		CreatedAt:    now.Unix(),
		ExpiresAt:    now.Add(i.policy.TTL).Unix(),
	}
	// The (subject, purpose) slot holds one artifact; this write supersedes
	// any prior one, so its code can never verify again.
	if err := i.artifacts.Upsert(ctx, art); err != nil {
		return nil, fmt.Errorf("persist challenge: %w", domain.ErrStorage)
	}

	dctx, cancel := context.WithTimeout(ctx, i.deliveryTimeout)
	defer cancel()
	if err := i.delivery.Send(dctx, ch, dest, "Your verification code: "+code); err != nil {
		slog.Warn("code delivery failed",
			"subject_id", subjectID, "purpose", purpose, "channel", ch, "err", err)
		if i.policy.RollbackOnDeliveryFailure {
			if _, rErr := i.artifacts.TryConsume(ctx, subjectID, purpose, art.ArtifactID); rErr != nil {
				slog.Warn("rollback of undelivered challenge failed",
					"subject_id", subjectID, "purpose", purpose, "err", rErr)
			}
		}
		return nil, fmt.Errorf("send %s code: %w", ch, domain.ErrDeliveryFailed)
	}

	return &domain.IssuedChallenge{
		SubjectID: subjectID,
		Purpose:   purpose,
		Channel:   ch,
		ExpiresAt: time.Unix(art.ExpiresAt, 0).UTC(),
	}, nil
}

// resolveDestination validates the pending value for the purpose and decides
// where the code goes. Phone and email changes deliver to the proposed value
// (proving the subject controls it); password resets deliver to what is
// already on file, preferring SMS.
func (i *issuer) resolveDestination(ctx context.Context, acct *domain.Account, purpose domain.Purpose, pendingValue *string) (domain.Channel, string, error) {
	switch purpose {
	case domain.PurposePhoneChange:
		if pendingValue == nil {
			return "", "", fmt.Errorf("phone change requires a new phone number: %w", domain.ErrMalformedInput)
		}
		if err := validate.Phone(*pendingValue); err != nil {
			return "", "", fmt.Errorf("%s: %w", err, domain.ErrMalformedInput)
		}
		if other, err := i.accounts.GetByPhone(ctx, *pendingValue); err == nil && other.AccountID != acct.AccountID {
			return "", "", fmt.Errorf("phone number in use: %w", domain.ErrValueConflict)
		}
		return domain.ChannelSMS, *pendingValue, nil

	case domain.PurposeEmailChange:
		if pendingValue == nil {
			return "", "", fmt.Errorf("email change requires a new address: %w", domain.ErrMalformedInput)
		}
		if err := validate.Email(*pendingValue); err != nil {
			return "", "", fmt.Errorf("%s: %w", err, domain.ErrMalformedInput)
		}
		if other, err := i.accounts.GetByEmail(ctx, *pendingValue); err == nil && other.AccountID != acct.AccountID {
			return "", "", fmt.Errorf("email address in use: %w", domain.ErrValueConflict)
		}
		return domain.ChannelEmail, *pendingValue, nil

	case domain.PurposePasswordReset:
		if pendingValue != nil {
			return "", "", fmt.Errorf("password reset carries no pending value: %w", domain.ErrMalformedInput)
		}
		if acct.Phone != nil && *acct.Phone != "" {
			return domain.ChannelSMS, *acct.Phone, nil
		}
		return domain.ChannelEmail, acct.Email, nil
	}
	return "", "", fmt.Errorf("unknown purpose %q: %w", purpose, domain.ErrMalformedInput)
}
