package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-verify-api/internal/application/challenge"
	"github.com/go-verify-api/internal/domain"
	"github.com/go-verify-api/internal/transport/http/middleware"
)

// ContactChangeHandler drives the phone-change and email-change flows.
// One handler, parameterised by purpose — the two flows differ only in which
// field the pending value lands on.
type ContactChangeHandler struct {
	issuer   challenge.Issuer
	verifier challenge.Verifier
	purpose  domain.Purpose
}

func NewContactChangeHandler(issuer challenge.Issuer, verifier challenge.Verifier, purpose domain.Purpose) *ContactChangeHandler {
	return &ContactChangeHandler{issuer: issuer, verifier: verifier, purpose: purpose}
}

func (h *ContactChangeHandler) Action(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	switch chi.URLParam(r, "action") {
	case "request":
		var body struct {
			Phone *string `json:"phone"`
			Email *string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		pending := body.Phone
		if h.purpose == domain.PurposeEmailChange {
			pending = body.Email
		}
		issued, err := h.issuer.Issue(r.Context(), claims.SubjectID, h.purpose, pending)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ChallengeEnvelope{
			Message:   "verification code sent",
			Channel:   string(issued.Channel),
			ExpiresAt: issued.ExpiresAt,
		})
	case "verify":
		var body struct {
			Code string `json:"code"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		res, err := h.verifier.Verify(r.Context(), claims.SubjectID, h.purpose, body.Code)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, VerifiedEnvelope{
			Message:        "contact value confirmed",
			CommittedValue: res.CommittedValue,
		})
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}
