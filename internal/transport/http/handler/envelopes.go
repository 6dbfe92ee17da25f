package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-verify-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AuthEnvelope wraps login/register responses. TwoFactorRequired is set,
// with no token, when the account still owes a TOTP code.
type AuthEnvelope struct {
	AccessToken       string          `json:"access_token,omitempty"`
	TwoFactorRequired bool            `json:"two_factor_required,omitempty"`
	Account           *domain.Account `json:"account,omitempty"`
	Message           string          `json:"message,omitempty"`
	Error             string          `json:"error,omitempty"`
}

// ChallengeEnvelope confirms an issued challenge. It carries when the code
// dies and where it went, never the code itself.
type ChallengeEnvelope struct {
	Message   string    `json:"message"`
	Channel   string    `json:"channel"`
	ExpiresAt time.Time `json:"expires_at"`
}

// VerifiedEnvelope reports a successful verification.
type VerifiedEnvelope struct {
	Message        string  `json:"message"`
	CommittedValue *string `json:"committed_value,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}
