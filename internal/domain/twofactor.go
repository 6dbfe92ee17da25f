package domain

import "time"

// TwoFactorSecret is the long-lived TOTP seed for a subject.
// PK: subject_id. Created on enrollment with Enabled=false; Enabled flips to
// true once the subject confirms a code, and back to false on disable.
type TwoFactorSecret struct {
	SubjectID string    `json:"subject_id" dynamodbav:"subject_id"`
	SecretKey string    `json:"-" dynamodbav:"secret_key"` // base32 TOTP seed
	Enabled   bool      `json:"enabled" dynamodbav:"enabled"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// TOTPEnrollment is returned by the enroll operation so the client can render
// a QR code. The secret is shown exactly once here.
type TOTPEnrollment struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauth_url"`
}
