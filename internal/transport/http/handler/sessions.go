package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-verify-api/internal/application/account"
	"github.com/go-verify-api/internal/application/challenge"
	"github.com/go-verify-api/internal/domain"
	"github.com/go-verify-api/internal/pkg/validate"
)

type tokenSigner interface {
	Sign(subjectID string, amr []string) (string, error)
}

// SessionHandler handles password login and the TOTP step-up that follows it.
type SessionHandler struct {
	accounts account.Service
	verifier challenge.Verifier
	signer   tokenSigner
}

func NewSessionHandler(accounts account.Service, verifier challenge.Verifier, signer tokenSigner) *SessionHandler {
	return &SessionHandler{accounts: accounts, verifier: verifier, signer: signer}
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	acct, twoFactorRequired, err := h.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httpError(w, err)
		return
	}
	if twoFactorRequired {
		writeJSON(w, http.StatusOK, AuthEnvelope{TwoFactorRequired: true})
		return
	}
	token, err := h.signer.Sign(acct.AccountID, []string{"pwd"})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{AccessToken: token, Account: acct})
}

// LoginTwoFactor completes a login gated on TOTP. Credentials are re-presented
// alongside the code so no half-authenticated state has to live server-side.
func (h *SessionHandler) LoginTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req domain.TwoFactorLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	acct, _, err := h.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httpError(w, err)
		return
	}
	if _, err := h.verifier.Verify(r.Context(), acct.AccountID, domain.PurposeTwoFactorLogin, req.Code); err != nil {
		httpError(w, err)
		return
	}
	token, err := h.signer.Sign(acct.AccountID, []string{"pwd", "otp"})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{AccessToken: token, Account: acct})
}
