package catalog

import (
	"context"
	"errors"

	"github.com/fekuna/artista-service/internal/model"
)

var (
	ErrUnauthenticated = errors.New("catalog: no authenticated principal")
	ErrForbidden       = errors.New("catalog: product belongs to another seller")
)

// DefaultWindowSize is the number of products revealed per page.
const DefaultWindowSize = 9

// DefaultMaxPrice bounds the price slider when no products are loaded.
const DefaultMaxPrice = 100000

// Gateway is the remote persistence the view model reads through and writes back to.
type Gateway interface {
	FetchAllProducts(ctx context.Context) ([]model.Product, error)
	FetchProductsByOwner(ctx context.Context, ownerID string) ([]model.Product, error)
	CreateProduct(ctx context.Context, owner model.Principal, data model.NewProduct, profile model.UserProfile) (model.Product, error)
	UpdateProduct(ctx context.Context, owner model.Principal, id string, patch model.ProductPatch) (model.Product, error)
	DeleteProduct(ctx context.Context, owner model.Principal, id string) error

	FetchUserProfile(ctx context.Context, p model.Principal) (model.UserProfile, error)
	SaveUserProfile(ctx context.Context, p model.Principal, profile model.UserProfile) error
	FetchFollowedArtistIDs(ctx context.Context, p model.Principal) ([]string, error)
	SaveFollowedArtistIDs(ctx context.Context, p model.Principal, ids []string) error
}

// FilterStore keeps the filter snapshot between sessions.
// A missing or unreadable snapshot is reported as ok=false, never as an error.
type FilterStore interface {
	LoadFilters(ctx context.Context, userID string) (f model.Filters, ok bool)
	SaveFilters(ctx context.Context, userID string, f model.Filters) error
}

// Snapshot is the derived state handed to observers and presentation clients.
type Snapshot struct {
	Ready             bool               `json:"ready"`
	Principal         *model.Principal   `json:"principal,omitempty"`
	Profile           *model.UserProfile `json:"profile,omitempty"`
	Filters           model.Filters      `json:"filters"`
	Visible           []model.Product    `json:"visible"`
	DisplayCount      int                `json:"displayCount"`
	TotalCount        int                `json:"totalCount"`
	PageCount         int                `json:"pageCount"`
	HasMore           bool               `json:"hasMore"`
	FollowedArtistIDs []string           `json:"followedArtistIds"`
	MaxPrice          float64            `json:"maxPrice"`
}

// FollowResult describes the membership after a toggle.
type FollowResult struct {
	ArtistID   string `json:"artistId"`
	ArtistName string `json:"artistName,omitempty"`
	Following  bool   `json:"following"`
}
