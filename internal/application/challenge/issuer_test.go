package challenge

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-verify-api/internal/domain"
	"github.com/go-verify-api/internal/pkg/secret"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockAccountStore struct{ mock.Mock }

func (m *mockAccountStore) Get(ctx context.Context, subjectID string) (*domain.Account, error) {
	args := m.Called(ctx, subjectID)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAccountStore) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	args := m.Called(ctx, email)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAccountStore) GetByPhone(ctx context.Context, phone string) (*domain.Account, error) {
	args := m.Called(ctx, phone)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockArtifactStore struct{ mock.Mock }

func (m *mockArtifactStore) Upsert(ctx context.Context, a *domain.ChallengeArtifact) error {
	return m.Called(ctx, a).Error(0)
}
func (m *mockArtifactStore) LoadActive(ctx context.Context, subjectID string, purpose domain.Purpose) (*domain.ChallengeArtifact, error) {
	args := m.Called(ctx, subjectID, purpose)
	if a, _ := args.Get(0).(*domain.ChallengeArtifact); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockArtifactStore) TryConsume(ctx context.Context, subjectID string, purpose domain.Purpose, artifactID string) (bool, error) {
	args := m.Called(ctx, subjectID, purpose, artifactID)
	return args.Bool(0), args.Error(1)
}
func (m *mockArtifactStore) ConsumeAndCommit(ctx context.Context, subjectID string, purpose domain.Purpose, artifactID, pendingValue string) (bool, error) {
	args := m.Called(ctx, subjectID, purpose, artifactID, pendingValue)
	return args.Bool(0), args.Error(1)
}

type mockDelivery struct{ mock.Mock }

func (m *mockDelivery) Send(ctx context.Context, ch domain.Channel, destination, payload string) error {
	return m.Called(ctx, ch, destination, payload).Error(0)
}

// --- builder ---

func newIssuer(as *mockAccountStore, ar *mockArtifactStore, d *mockDelivery, policy Policy) Issuer {
	return NewIssuer(IssuerDeps{
		Accounts:        as,
		Artifacts:       ar,
		Delivery:        d,
		Policy:          policy,
		DeliveryTimeout: time.Second,
	})
}

func strPtr(s string) *string { return &s }

func testAccount() *domain.Account {
	return &domain.Account{
		AccountID: "acc1",
		Username:  "someone",
		Email:     "someone@example.com",
	}
}

// --- Issue ---

func TestIssue_UnknownPurpose(t *testing.T) {
	svc := newIssuer(nil, nil, nil, DefaultPolicy)
	_, err := svc.Issue(context.Background(), "acc1", domain.Purpose("teleport"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMalformedInput))
}

func TestIssue_TOTPPurposeRejected(t *testing.T) {
	svc := newIssuer(nil, nil, nil, DefaultPolicy)
	for _, p := range []domain.Purpose{domain.PurposeTwoFactorEnroll, domain.PurposeTwoFactorLogin} {
		_, err := svc.Issue(context.Background(), "acc1", p, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrMalformedInput))
	}
}

func TestIssue_AccountNotFound(t *testing.T) {
	as := &mockAccountStore{}
	as.On("Get", mock.Anything, "ghost").Return(nil, domain.ErrAccountNotFound)

	svc := newIssuer(as, nil, nil, DefaultPolicy)
	_, err := svc.Issue(context.Background(), "ghost", domain.PurposeEmailChange, strPtr("new@example.com"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAccountNotFound))
}

func TestIssue_PhoneChange_MissingPendingValue(t *testing.T) {
	as := &mockAccountStore{}
	as.On("Get", mock.Anything, "acc1").Return(testAccount(), nil)

	svc := newIssuer(as, nil, nil, DefaultPolicy)
	_, err := svc.Issue(context.Background(), "acc1", domain.PurposePhoneChange, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMalformedInput))
}

func TestIssue_PhoneChange_BadNumber(t *testing.T) {
	as := &mockAccountStore{}
	as.On("Get", mock.Anything, "acc1").Return(testAccount(), nil)

	svc := newIssuer(as, nil, nil, DefaultPolicy)
	_, err := svc.Issue(context.Background(), "acc1", domain.PurposePhoneChange, strPtr("not-a-phone"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMalformedInput))
}

func TestIssue_PhoneChange_TakenByAnotherAccount(t *testing.T) {
	as := &mockAccountStore{}
	ar := &mockArtifactStore{}
	as.On("Get", mock.Anything, "acc1").Return(testAccount(), nil)
	as.On("GetByPhone", mock.Anything, "+5215512345678").
		Return(&domain.Account{AccountID: "acc2"}, nil)

	svc := newIssuer(as, ar, nil, DefaultPolicy)
	_, err := svc.Issue(context.Background(), "acc1", domain.PurposePhoneChange, strPtr("+5215512345678"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValueConflict))
	// a conflicting value must never produce a persisted challenge
	ar.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestIssue_EmailChange_TakenBySameAccountIsFine(t *testing.T) {
	as := &mockAccountStore{}
	ar := &mockArtifactStore{}
	d := &mockDelivery{}
	as.On("Get", mock.Anything, "acc1").Return(testAccount(), nil)
	as.On("GetByEmail", mock.Anything, "someone@example.com").Return(testAccount(), nil)
	ar.On("Upsert", mock.Anything, mock.AnythingOfType("*domain.ChallengeArtifact")).Return(nil)
	d.On("Send", mock.Anything, domain.ChannelEmail, "someone@example.com", mock.Anything).Return(nil)

	svc := newIssuer(as, ar, d, DefaultPolicy)
	_, err := svc.Issue(context.Background(), "acc1", domain.PurposeEmailChange, strPtr("someone@example.com"))
	require.NoError(t, err)
}

func TestIssue_EmailChange_HappyPath_StoresHashNotPlaintext(t *testing.T) {
	as := &mockAccountStore{}
	ar := &mockArtifactStore{}
	d := &mockDelivery{}

	as.On("Get", mock.Anything, "acc1").Return(testAccount(), nil)
	as.On("GetByEmail", mock.Anything, "new@example.com").Return(nil, domain.ErrAccountNotFound)

	var stored *domain.ChallengeArtifact
	ar.On("Upsert", mock.Anything, mock.AnythingOfType("*domain.ChallengeArtifact")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.ChallengeArtifact) }).
		Return(nil)

	var payload string
	d.On("Send", mock.Anything, domain.ChannelEmail, "new@example.com", mock.Anything).
		Run(func(args mock.Arguments) { payload = args.String(3) }).
		Return(nil)

	svc := newIssuer(as, ar, d, DefaultPolicy)
	issued, err := svc.Issue(context.Background(), "acc1", domain.PurposeEmailChange, strPtr("new@example.com"))
	require.NoError(t, err)

	assert.Equal(t, domain.ChannelEmail, issued.Channel)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), issued.ExpiresAt, 5*time.Second)

	require.NotNil(t, stored)
	require.NotNil(t, stored.PendingValue)
	assert.Equal(t, "new@example.com", *stored.PendingValue)
	assert.Nil(t, stored.ConsumedAt)

	code := strings.TrimPrefix(payload, "Your verification code: ")
	require.Len(t, code, 6)
	// the artifact carries the hash of the delivered code, never the code itself
	assert.NotContains(t, stored.SecretHash, code)
	assert.True(t, secret.Equal(stored.SecretHash, secret.Hash(code)))
}

func TestIssue_DeliveryFailure_ArtifactSurvives(t *testing.T) {
	as := &mockAccountStore{}
	ar := &mockArtifactStore{}
	d := &mockDelivery{}

	as.On("Get", mock.Anything, "acc1").Return(testAccount(), nil)
	as.On("GetByEmail", mock.Anything, "new@example.com").Return(nil, domain.ErrAccountNotFound)
	ar.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	d.On("Send", mock.Anything, domain.ChannelEmail, "new@example.com", mock.Anything).
		Return(errors.New("smtp down"))

	svc := newIssuer(as, ar, d, DefaultPolicy)
	_, err := svc.Issue(context.Background(), "acc1", domain.PurposeEmailChange, strPtr("new@example.com"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDeliveryFailed))
	// default policy keeps the stored artifact in place
	ar.AssertNotCalled(t, "TryConsume", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIssue_DeliveryFailure_RollbackPolicy(t *testing.T) {
	as := &mockAccountStore{}
	ar := &mockArtifactStore{}
	d := &mockDelivery{}

	as.On("Get", mock.Anything, "acc1").Return(testAccount(), nil)
	as.On("GetByEmail", mock.Anything, "new@example.com").Return(nil, domain.ErrAccountNotFound)

	var stored *domain.ChallengeArtifact
	ar.On("Upsert", mock.Anything, mock.AnythingOfType("*domain.ChallengeArtifact")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.ChallengeArtifact) }).
		Return(nil)
	ar.On("TryConsume", mock.Anything, "acc1", domain.PurposeEmailChange, mock.Anything).Return(true, nil)
	d.On("Send", mock.Anything, domain.ChannelEmail, "new@example.com", mock.Anything).
		Return(errors.New("smtp down"))

	policy := DefaultPolicy
	policy.RollbackOnDeliveryFailure = true
	svc := newIssuer(as, ar, d, policy)
	_, err := svc.Issue(context.Background(), "acc1", domain.PurposeEmailChange, strPtr("new@example.com"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDeliveryFailed))

	require.NotNil(t, stored)
	ar.AssertCalled(t, "TryConsume", mock.Anything, "acc1", domain.PurposeEmailChange, stored.ArtifactID)
}

func TestIssue_PasswordReset_PrefersSMS(t *testing.T) {
	as := &mockAccountStore{}
	ar := &mockArtifactStore{}
	d := &mockDelivery{}

	acct := testAccount()
	acct.Phone = strPtr("+5215512345678")
	as.On("Get", mock.Anything, "acc1").Return(acct, nil)
	ar.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	d.On("Send", mock.Anything, domain.ChannelSMS, "+5215512345678", mock.Anything).Return(nil)

	svc := newIssuer(as, ar, d, DefaultPolicy)
	issued, err := svc.Issue(context.Background(), "acc1", domain.PurposePasswordReset, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ChannelSMS, issued.Channel)
	d.AssertExpectations(t)
}

func TestIssue_PasswordReset_FallsBackToEmail(t *testing.T) {
	as := &mockAccountStore{}
	ar := &mockArtifactStore{}
	d := &mockDelivery{}

	as.On("Get", mock.Anything, "acc1").Return(testAccount(), nil)
	ar.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	d.On("Send", mock.Anything, domain.ChannelEmail, "someone@example.com", mock.Anything).Return(nil)

	svc := newIssuer(as, ar, d, DefaultPolicy)
	issued, err := svc.Issue(context.Background(), "acc1", domain.PurposePasswordReset, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ChannelEmail, issued.Channel)
}

func TestIssue_PasswordReset_RejectsPendingValue(t *testing.T) {
	as := &mockAccountStore{}
	as.On("Get", mock.Anything, "acc1").Return(testAccount(), nil)

	svc := newIssuer(as, nil, nil, DefaultPolicy)
	_, err := svc.Issue(context.Background(), "acc1", domain.PurposePasswordReset, strPtr("sneaky"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMalformedInput))
}

func TestIssue_StorageFailure(t *testing.T) {
	as := &mockAccountStore{}
	ar := &mockArtifactStore{}
	as.On("Get", mock.Anything, "acc1").Return(testAccount(), nil)
	as.On("GetByEmail", mock.Anything, "new@example.com").Return(nil, domain.ErrAccountNotFound)
	ar.On("Upsert", mock.Anything, mock.Anything).Return(errors.New("dynamo down"))

	svc := newIssuer(as, ar, nil, DefaultPolicy)
	_, err := svc.Issue(context.Background(), "acc1", domain.PurposeEmailChange, strPtr("new@example.com"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStorage))
}
