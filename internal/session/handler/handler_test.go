package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/fekuna/artista-service/internal/assist"
	"github.com/fekuna/artista-service/internal/auth"
	"github.com/fekuna/artista-service/internal/catalog"
	"github.com/fekuna/artista-service/internal/model"
	"github.com/fekuna/artista-service/internal/notify"
	"github.com/fekuna/artista-service/internal/scratch"
	"github.com/fekuna/artista-service/internal/session"
	"github.com/fekuna/artista-service/pkg/i18n"
	"github.com/fekuna/artista-service/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if err := i18n.Init(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

type staticGateway struct {
	catalog.Gateway
	products []model.Product
}

func (g staticGateway) FetchAllProducts(context.Context) ([]model.Product, error) {
	return g.products, nil
}

func (g staticGateway) FetchUserProfile(_ context.Context, p model.Principal) (model.UserProfile, error) {
	return model.DefaultProfile(p.UserID), nil
}

func (g staticGateway) FetchFollowedArtistIDs(context.Context, model.Principal) ([]string, error) {
	return nil, nil
}

func (g staticGateway) SaveFollowedArtistIDs(context.Context, model.Principal, []string) error {
	return nil
}

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	products := make([]model.Product, 0, 12)
	for i := 0; i < 12; i++ {
		products = append(products, model.Product{
			ID:      fmt.Sprintf("p%d", i),
			Title:   fmt.Sprintf("Vase %d", i),
			Artist:  model.Artist{ID: "a1", Name: "Ravi"},
			OwnerID: "a1",
			ArtType: "Pottery",
			Price:   float64(100 * (i + 1)),
		})
	}

	mgr := session.NewManager(
		staticGateway{products: products},
		scratch.NewStore(scratch.NewRedisKV(client), logger.NewNop()),
		assist.NewOfflineGateway(),
		session.Config{DefaultLanguage: "en", SuggestDebounce: 1},
		logger.NewNop(),
	)
	t.Cleanup(mgr.Close)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if uid := r.Header.Get("X-User"); uid != "" {
				r = r.WithContext(auth.WithPrincipal(r.Context(), model.Principal{UserID: uid}))
			}
			next.ServeHTTP(w, r)
		})
	})
	NewSessionHandler(mgr, logger.NewNop()).RegisterRoutes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string, out interface{}) int {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("X-User", "u1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func TestCatalogEndpoints(t *testing.T) {
	h := newRouter(t)

	var snap catalog.Snapshot
	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/catalog", "", &snap))
	assert.True(t, snap.Ready)
	assert.Len(t, snap.Visible, catalog.DefaultWindowSize)
	assert.True(t, snap.HasMore)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/v1/catalog/more", "", &snap))
	assert.Len(t, snap.Visible, 12)
	assert.False(t, snap.HasMore)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPatch, "/api/v1/catalog/filters", `{"priceRange":{"max":300}}`, &snap))
	assert.Equal(t, 3, snap.DisplayCount)
	assert.Equal(t, 1, snap.PageCount)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/v1/catalog/search", `{"term":"Vase 1"}`, &snap))
	assert.Equal(t, "Vase 1", snap.Filters.SearchTerm)

	var recent recentResponse
	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/searches/recent", "", &recent))
	assert.Equal(t, []string{"Vase 1"}, recent.Searches)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPatch, "/api/v1/catalog/filters", `{"colour":"red"}`, nil))
}

func TestFollowAndNotifications(t *testing.T) {
	h := newRouter(t)

	var res catalog.FollowResult
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/v1/artists/a1/follow", "", &res))
	assert.True(t, res.Following)
	assert.Equal(t, "Ravi", res.ArtistName)

	var notes []notify.Notification
	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/notifications", "", &notes))
	require.Len(t, notes, 1)
	assert.Equal(t, "Now following Ravi!", notes[0].Message)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/v1/notifications/"+notes[0].ID, "", nil))
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/v1/notifications/"+notes[0].ID, "", nil))
}

func TestListingOwnership(t *testing.T) {
	h := newRouter(t)
	do(t, h, http.MethodGet, "/api/v1/catalog", "", nil)

	var body map[string]string
	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodDelete, "/api/v1/listings/p1", "", &body))
	assert.Equal(t, "You can only change your own listings.", body["error"])
}

func TestSuggestions(t *testing.T) {
	h := newRouter(t)

	var out suggestionsResponse
	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/assist/suggestions?q=va", "", &out))
	assert.Empty(t, out.Suggestions)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/assist/suggestions?q=vase", "", &out))
	assert.Equal(t, "vase", out.Query)
	assert.NotEmpty(t, out.Suggestions)
}

func TestRequiresPrincipal(t *testing.T) {
	h := newRouter(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/catalog", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
