package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/company-reviews/internal/serializer"
	"github.com/sakif/company-reviews/internal/service"
)

// AuthHandler exchanges a username and password for the user's token.
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

type tokenResponse struct {
	Token string `json:"token"`
}

// HandleObtainToken returns the caller's token.
//
// HTTP: POST /api-token-auth/
// BODY: username=adam&password=... (form or JSON)
func (h *AuthHandler) HandleObtainToken(w http.ResponseWriter, r *http.Request) {
	creds, err := serializer.DecodeCredentials(w, r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	token, err := h.auth.ObtainToken(r.Context(), creds.Username, creds.Password)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token.Key})
}
