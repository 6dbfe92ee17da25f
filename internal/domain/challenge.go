package domain

import "time"

// Purpose identifies why a challenge was issued. Each (subject_id, purpose)
// pair holds at most one active artifact at a time.
type Purpose string

const (
	PurposePhoneChange     Purpose = "phone_change"
	PurposeEmailChange     Purpose = "email_change"
	PurposePasswordReset   Purpose = "password_reset"
	PurposeTwoFactorEnroll Purpose = "twofactor_enroll"
	PurposeTwoFactorLogin  Purpose = "twofactor_login"
)

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	switch p {
	case PurposePhoneChange, PurposeEmailChange, PurposePasswordReset,
		PurposeTwoFactorEnroll, PurposeTwoFactorLogin:
		return true
	}
	return false
}

// TOTP reports whether p is validated against a rolling TOTP window rather
// than a stored single-use code.
func (p Purpose) TOTP() bool {
	return p == PurposeTwoFactorEnroll || p == PurposeTwoFactorLogin
}

// Channel is the transport a plaintext code is delivered over.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// ChallengeArtifact is a single-use verification record.
// PK: subject_id, SK: purpose. Only the SHA-256 hash of the code is stored;
// the plaintext exists once, in the delivery call, and is never persisted.
// ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type ChallengeArtifact struct {
	SubjectID    string  `json:"subject_id" dynamodbav:"subject_id"`
	Purpose      Purpose `json:"purpose" dynamodbav:"purpose"`
	ArtifactID   string  `json:"artifact_id" dynamodbav:"artifact_id"`
	SecretHash   string  `json:"-" dynamodbav:"secret_hash"`
	PendingValue *string `json:"pending_value,omitempty" dynamodbav:"pending_value,omitempty"`
	CreatedAt    int64   `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt    int64   `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
	ConsumedAt   *int64  `json:"consumed_at,omitempty" dynamodbav:"consumed_at,omitempty"`
}

// Expired reports whether the artifact's TTL has passed at the given instant.
func (a *ChallengeArtifact) Expired(now time.Time) bool {
	return now.Unix() > a.ExpiresAt
}

// IssuedChallenge is the confirmation returned to callers after Issue.
// It never carries the code or its hash.
type IssuedChallenge struct {
	SubjectID string    `json:"subject_id"`
	Purpose   Purpose   `json:"purpose"`
	Channel   Channel   `json:"channel"`
	ExpiresAt time.Time `json:"expires_at"`
}

// VerificationResult reports a successful Verify. CommittedValue is the
// pending phone/email that became authoritative, when the purpose carries one.
type VerificationResult struct {
	SubjectID      string  `json:"subject_id"`
	Purpose        Purpose `json:"purpose"`
	CommittedValue *string `json:"committed_value,omitempty"`
}
