package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/fekuna/artista-service/internal/assist"
	"github.com/fekuna/artista-service/internal/auth"
	"github.com/fekuna/artista-service/internal/catalog"
	"github.com/fekuna/artista-service/internal/model"
	"github.com/fekuna/artista-service/internal/product"
	"github.com/fekuna/artista-service/internal/session"
	"github.com/fekuna/artista-service/pkg/i18n"
	"github.com/fekuna/artista-service/pkg/logger"
	"github.com/fekuna/artista-service/pkg/middleware"
	"github.com/fekuna/artista-service/pkg/response"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type SessionHandler struct {
	mgr    *session.Manager
	logger logger.ZapLogger
}

func NewSessionHandler(mgr *session.Manager, log logger.ZapLogger) *SessionHandler {
	return &SessionHandler{
		mgr:    mgr,
		logger: log,
	}
}

// RegisterRoutes mounts the per-session endpoints. They expect auth.WithPrincipal
// to have run, normally through middleware.RequireAuth.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/catalog", h.snapshot)
	r.Patch("/api/v1/catalog/filters", h.setFilters)
	r.Post("/api/v1/catalog/search", h.search)
	r.Post("/api/v1/catalog/more", h.more)
	r.Post("/api/v1/catalog/reload", h.reload)

	r.Post("/api/v1/artists/{id}/follow", h.toggleFollow)

	r.Get("/api/v1/searches/recent", h.recentSearches)
	r.Delete("/api/v1/searches/recent", h.clearRecentSearches)

	r.Get("/api/v1/listings", h.listings)
	r.Post("/api/v1/listings", h.createListing)
	r.Patch("/api/v1/listings/{id}", h.editListing)
	r.Delete("/api/v1/listings/{id}", h.deleteListing)

	r.Get("/api/v1/profile", h.profile)
	r.Put("/api/v1/profile", h.updateProfile)

	r.Get("/api/v1/notifications", h.notifications)
	r.Delete("/api/v1/notifications/{id}", h.dismiss)

	r.Get("/api/v1/assist/suggestions", h.suggestions)
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, message(r.Context(), "auth.required"))
		return nil, false
	}
	return h.mgr.Get(r.Context(), p), true
}

func message(ctx context.Context, id string) string {
	return i18n.T(id, nil, middleware.LanguageFrom(ctx))
}

func (h *SessionHandler) badRequest(w http.ResponseWriter, r *http.Request) {
	response.Error(w, http.StatusBadRequest, message(r.Context(), "request.invalid"))
}

// fail writes err as the status matching its kind. The session has already queued
// the notification.
func (h *SessionHandler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, catalog.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, catalog.ErrForbidden), errors.Is(err, product.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, product.ErrInvalidProduct):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, product.ErrNotFound):
		status = http.StatusNotFound
	default:
		h.logger.Error("Session request failed",
			zap.String("user_id", auth.GetUserID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	response.Error(w, status, message(r.Context(), session.MessageID(err, fallback)))
}

func (h *SessionHandler) snapshot(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	response.JSON(w, http.StatusOK, s.Snapshot())
}

func (h *SessionHandler) setFilters(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var patch model.FilterPatch
	if err := response.Decode(w, r, &patch); err != nil {
		h.badRequest(w, r)
		return
	}
	response.JSON(w, http.StatusOK, s.SetFilters(r.Context(), patch))
}

type searchRequest struct {
	Term string `json:"term"`
}

func (h *SessionHandler) search(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req searchRequest
	if err := response.Decode(w, r, &req); err != nil {
		h.badRequest(w, r)
		return
	}
	response.JSON(w, http.StatusOK, s.Search(r.Context(), req.Term))
}

func (h *SessionHandler) more(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	response.JSON(w, http.StatusOK, s.More())
}

// reload answers with the snapshot even when part of the load failed.
func (h *SessionHandler) reload(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	snap, err := s.Reload(r.Context())
	if err != nil {
		h.logger.Warn("Catalog reload incomplete", zap.String("user_id", auth.GetUserID(r.Context())), zap.Error(err))
	}
	response.JSON(w, http.StatusOK, snap)
}

func (h *SessionHandler) toggleFollow(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	res, err := s.ToggleFollow(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "catalog.follow_failed")
		return
	}
	response.JSON(w, http.StatusOK, res)
}

type recentResponse struct {
	Searches []string `json:"searches"`
}

func (h *SessionHandler) recentSearches(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	response.JSON(w, http.StatusOK, recentResponse{Searches: s.RecentSearches(r.Context())})
}

func (h *SessionHandler) clearRecentSearches(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.ClearRecentSearches(r.Context()); err != nil {
		h.fail(w, r, err, "search.saved_failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type listingsResponse struct {
	Products []model.Product `json:"products"`
}

func (h *SessionHandler) listings(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	products, err := s.Listings(r.Context())
	if err != nil {
		h.fail(w, r, err, "catalog.load_failed")
		return
	}
	response.JSON(w, http.StatusOK, listingsResponse{Products: products})
}

func (h *SessionHandler) createListing(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var data model.NewProduct
	if err := response.Decode(w, r, &data); err != nil {
		h.badRequest(w, r)
		return
	}
	p, err := s.CreateListing(r.Context(), data)
	if err != nil {
		h.fail(w, r, err, "listing.failed")
		return
	}
	response.JSON(w, http.StatusCreated, p)
}

func (h *SessionHandler) editListing(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var patch model.ProductPatch
	if err := response.Decode(w, r, &patch); err != nil {
		h.badRequest(w, r)
		return
	}
	p, err := s.EditListing(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.fail(w, r, err, "listing.failed")
		return
	}
	response.JSON(w, http.StatusOK, p)
}

func (h *SessionHandler) deleteListing(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.DeleteListing(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err, "listing.failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) profile(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	response.JSON(w, http.StatusOK, s.Profile())
}

func (h *SessionHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var p model.UserProfile
	if err := response.Decode(w, r, &p); err != nil {
		h.badRequest(w, r)
		return
	}
	saved, err := s.UpdateProfile(r.Context(), p)
	if err != nil {
		h.fail(w, r, err, "profile.failed")
		return
	}
	response.JSON(w, http.StatusOK, saved)
}

func (h *SessionHandler) notifications(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	response.JSON(w, http.StatusOK, s.Notifications())
}

func (h *SessionHandler) dismiss(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if !s.Dismiss(chi.URLParam(r, "id")) {
		response.Error(w, http.StatusNotFound, message(r.Context(), "request.invalid"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type suggestionsResponse struct {
	Query       string   `json:"query"`
	Suggestions []string `json:"suggestions"`
}

// suggestions answers 409 when a newer query from the same session replaced this one.
func (h *SessionHandler) suggestions(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	out, err := s.Suggest(r.Context(), q)
	switch {
	case errors.Is(err, assist.ErrSuperseded):
		response.Error(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return
	case err != nil:
		h.logger.Error("Suggestions failed", zap.Error(err))
		response.Error(w, http.StatusBadGateway, message(r.Context(), "assist.failed"))
		return
	}
	response.JSON(w, http.StatusOK, suggestionsResponse{Query: q, Suggestions: out})
}
