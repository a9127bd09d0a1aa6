package handler

import (
	"context"
	"net/http"

	"github.com/fekuna/artista-service/internal/auth"
	"github.com/fekuna/artista-service/internal/identity"
	"github.com/fekuna/artista-service/pkg/i18n"
	"github.com/fekuna/artista-service/pkg/logger"
	"github.com/fekuna/artista-service/pkg/middleware"
	"github.com/fekuna/artista-service/pkg/response"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type IdentityHandler struct {
	uc     identity.UseCase
	logger logger.ZapLogger
}

func NewIdentityHandler(uc identity.UseCase, log logger.ZapLogger) *IdentityHandler {
	return &IdentityHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *IdentityHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/signup", h.signUp)
		r.Post("/signin", h.signIn)
		r.Post("/signout", h.signOut)
	})
}

// Authenticator adapts Verify for middleware.RequireAuth.
func Authenticator(uc identity.UseCase) middleware.Authenticate {
	return func(ctx context.Context, token string) (context.Context, error) {
		p, err := uc.Verify(ctx, token)
		if err != nil {
			return nil, err
		}
		return auth.WithPrincipal(ctx, p), nil
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type errorResponse struct {
	Error  string          `json:"error"`
	Reason identity.Reason `json:"reason"`
}

func (h *IdentityHandler) signUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := response.Decode(w, r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, i18n.T("request.invalid", nil, middleware.LanguageFrom(r.Context())))
		return
	}
	s, err := h.uc.SignUp(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, s)
}

func (h *IdentityHandler) signIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := response.Decode(w, r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, i18n.T("request.invalid", nil, middleware.LanguageFrom(r.Context())))
		return
	}
	s, err := h.uc.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, s)
}

func (h *IdentityHandler) signOut(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		response.Error(w, http.StatusUnauthorized, i18n.T("auth.required", nil, middleware.LanguageFrom(r.Context())))
		return
	}
	if err := h.uc.SignOut(r.Context(), token); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *IdentityHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	reason := identity.ReasonOf(err)
	status := StatusOf(reason)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Identity request failed", zap.String("reason", string(reason)), zap.Error(err))
	} else {
		h.logger.Debug("Identity request rejected", zap.String("reason", string(reason)))
	}
	response.JSON(w, status, errorResponse{
		Error:  i18n.T(reason.MessageID(), nil, middleware.LanguageFrom(r.Context())),
		Reason: reason,
	})
}

func StatusOf(reason identity.Reason) int {
	switch reason {
	case identity.ReasonInvalidEmail, identity.ReasonWeakPassword:
		return http.StatusBadRequest
	case identity.ReasonUserNotFound, identity.ReasonWrongPassword, identity.ReasonInvalidCredential:
		return http.StatusUnauthorized
	case identity.ReasonEmailInUse:
		return http.StatusConflict
	case identity.ReasonTooManyRequests:
		return http.StatusTooManyRequests
	case identity.ReasonNetwork:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
