// Package session keeps one catalog view model, notification queue and suggester
// per signed-in principal.
package session

import (
	"context"
	"errors"

	"github.com/fekuna/artista-service/internal/assist"
	"github.com/fekuna/artista-service/internal/catalog"
	"github.com/fekuna/artista-service/internal/model"
	"github.com/fekuna/artista-service/internal/notify"
	"github.com/fekuna/artista-service/internal/product"
	"github.com/fekuna/artista-service/internal/scratch"
	"github.com/fekuna/artista-service/pkg/i18n"
	"github.com/fekuna/artista-service/pkg/logger"
	"github.com/fekuna/artista-service/pkg/middleware"
	"go.uber.org/zap"
)

// Session is the state of one principal. Failed operations are reported to the
// caller and queued as localised notifications.
type Session struct {
	principal   model.Principal
	vm          *catalog.ViewModel
	notes       *notify.Queue
	suggester   *assist.Suggester
	store       *scratch.Store
	defaultLang string
	logger      logger.ZapLogger
}

func (s *Session) Principal() model.Principal { return s.principal }

func (s *Session) lang(ctx context.Context) string {
	if l := middleware.LanguageFrom(ctx); l != "" {
		return l
	}
	return s.defaultLang
}

func (s *Session) push(ctx context.Context, kind notify.Kind, messageID string, data map[string]interface{}) {
	s.notes.Push(kind, i18n.T(messageID, data, s.lang(ctx)))
}

// MessageID maps a collaborator failure to its localised message, or fallback.
func MessageID(err error, fallback string) string {
	switch {
	case errors.Is(err, catalog.ErrUnauthenticated):
		return "auth.required"
	case errors.Is(err, catalog.ErrForbidden), errors.Is(err, product.ErrForbidden):
		return "auth.forbidden"
	case errors.Is(err, product.ErrInvalidProduct):
		return "listing.invalid"
	case errors.Is(err, product.ErrNotFound):
		return "listing.not_found"
	}
	return fallback
}

func (s *Session) fail(ctx context.Context, err error, fallback string) {
	s.push(ctx, notify.Error, MessageID(err, fallback), nil)
}

func (s *Session) Snapshot() catalog.Snapshot {
	return s.vm.Snapshot()
}

// Reload fetches the catalog again. A partial failure still leaves a usable snapshot.
func (s *Session) Reload(ctx context.Context) (catalog.Snapshot, error) {
	p := s.principal
	err := s.vm.Load(ctx, &p)
	if err != nil {
		s.fail(ctx, err, "catalog.load_failed")
	}
	return s.vm.Snapshot(), err
}

func (s *Session) SetFilters(ctx context.Context, patch model.FilterPatch) catalog.Snapshot {
	return s.vm.SetFilters(ctx, patch)
}

// Search applies term and remembers it among the recent searches.
func (s *Session) Search(ctx context.Context, term string) catalog.Snapshot {
	snap := s.vm.SetSearchTerm(ctx, term)
	if _, err := s.store.AddRecentSearch(ctx, s.principal.UserID, term); err != nil {
		s.logger.Warn("Failed to record recent search", zap.String("user_id", s.principal.UserID), zap.Error(err))
		s.push(ctx, notify.Error, "search.saved_failed", nil)
	}
	return snap
}

func (s *Session) More() catalog.Snapshot {
	return s.vm.RequestMore()
}

func (s *Session) RecentSearches(ctx context.Context) []string {
	return s.store.RecentSearches(ctx, s.principal.UserID)
}

func (s *Session) ClearRecentSearches(ctx context.Context) error {
	return s.store.ClearRecentSearches(ctx, s.principal.UserID)
}

func (s *Session) ToggleFollow(ctx context.Context, artistID string) (catalog.FollowResult, error) {
	res, err := s.vm.ToggleFollow(ctx, artistID)
	if err != nil {
		s.fail(ctx, err, "catalog.follow_failed")
		return res, err
	}

	name := res.ArtistName
	if name == "" {
		name = model.UnknownArtist
	}
	id := "catalog.unfollowed"
	if res.Following {
		id = "catalog.followed"
	}
	s.push(ctx, notify.Info, id, map[string]interface{}{"Name": name})
	return res, nil
}

func (s *Session) Listings(ctx context.Context) ([]model.Product, error) {
	return s.vm.MyListings(ctx)
}

func (s *Session) CreateListing(ctx context.Context, data model.NewProduct) (model.Product, error) {
	p, err := s.vm.CreateListing(ctx, data)
	if err != nil {
		s.fail(ctx, err, "listing.failed")
		return p, err
	}
	s.push(ctx, notify.Success, "listing.created", nil)
	return p, nil
}

func (s *Session) EditListing(ctx context.Context, id string, patch model.ProductPatch) (model.Product, error) {
	p, err := s.vm.EditListing(ctx, id, patch)
	if err != nil {
		s.fail(ctx, err, "listing.failed")
		return p, err
	}
	s.push(ctx, notify.Success, "listing.updated", nil)
	return p, nil
}

func (s *Session) DeleteListing(ctx context.Context, id string) error {
	if err := s.vm.DeleteListing(ctx, id); err != nil {
		s.fail(ctx, err, "listing.failed")
		return err
	}
	s.push(ctx, notify.Success, "listing.deleted", nil)
	return nil
}

// Profile returns the loaded profile, or the default one while it is loading.
func (s *Session) Profile() model.UserProfile {
	if p := s.vm.Profile(); p != nil {
		return *p
	}
	return model.DefaultProfile(s.principal.UserID)
}

func (s *Session) UpdateProfile(ctx context.Context, p model.UserProfile) (model.UserProfile, error) {
	saved, err := s.vm.UpdateProfile(ctx, p)
	if err != nil {
		s.fail(ctx, err, "profile.failed")
		return saved, err
	}
	s.push(ctx, notify.Success, "profile.updated", nil)
	return saved, nil
}

// Suggest returns debounced suggestions for query over the cached products.
func (s *Session) Suggest(ctx context.Context, query string) ([]string, error) {
	return s.suggester.Suggest(ctx, query, s.vm.Products())
}

func (s *Session) Notifications() []notify.Notification {
	return s.notes.List()
}

func (s *Session) Dismiss(id string) bool {
	return s.notes.Dismiss(id)
}

func (s *Session) close(ctx context.Context) {
	s.suggester.Close()
	_ = s.vm.Load(ctx, nil)
	s.notes.Clear()
}
