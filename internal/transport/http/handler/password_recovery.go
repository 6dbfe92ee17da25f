package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-verify-api/internal/application/account"
	"github.com/go-verify-api/internal/application/challenge"
	"github.com/go-verify-api/internal/domain"
	"github.com/go-verify-api/internal/pkg/validate"
)

// PasswordRecoveryHandler handles the password recovery flow: a code is sent
// to the contact already on file, and presenting it authorises a new password.
type PasswordRecoveryHandler struct {
	accounts account.Service
	issuer   challenge.Issuer
	verifier challenge.Verifier
}

func NewPasswordRecoveryHandler(accounts account.Service, issuer challenge.Issuer, verifier challenge.Verifier) *PasswordRecoveryHandler {
	return &PasswordRecoveryHandler{accounts: accounts, issuer: issuer, verifier: verifier}
}

func (h *PasswordRecoveryHandler) Action(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "action") {
	case "request":
		var req struct {
			Email string `json:"email" validate:"required,email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validate.Struct(&req); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		acct, err := h.accounts.GetByEmail(r.Context(), req.Email)
		if err != nil {
			httpError(w, err)
			return
		}
		issued, err := h.issuer.Issue(r.Context(), acct.AccountID, domain.PurposePasswordReset, nil)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ChallengeEnvelope{
			Message:   "recovery code sent",
			Channel:   string(issued.Channel),
			ExpiresAt: issued.ExpiresAt,
		})
	case "verify":
		var req struct {
			Email       string `json:"email" validate:"required,email"`
			Code        string `json:"code" validate:"required"`
			NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validate.Struct(&req); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		acct, err := h.accounts.GetByEmail(r.Context(), req.Email)
		if err != nil {
			httpError(w, err)
			return
		}
		if _, err := h.verifier.Verify(r.Context(), acct.AccountID, domain.PurposePasswordReset, req.Code); err != nil {
			httpError(w, err)
			return
		}
		if err := h.accounts.ResetPassword(r.Context(), acct.AccountID, req.NewPassword); err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password updated"})
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}
