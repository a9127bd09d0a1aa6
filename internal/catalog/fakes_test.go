package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/fekuna/artista-service/internal/model"
)

type fakeGateway struct {
	mu sync.Mutex

	products []model.Product
	profile  model.UserProfile
	followed []string

	productsErr error
	profileErr  error
	followedErr error
	ownerErr    error
	writeErr    error

	// fetchAll overrides FetchAllProducts when set.
	fetchAll func(ctx context.Context) ([]model.Product, error)
	// beforeSave runs at the start of SaveFollowedArtistIDs when set.
	beforeSave func()

	calls      map[string]int
	savedSets  [][]string
	savedProfs []model.UserProfile
	nextID     int
}

func newFakeGateway(products ...model.Product) *fakeGateway {
	return &fakeGateway{products: products, calls: map[string]int{}}
}

func (f *fakeGateway) count(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

func (f *fakeGateway) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeGateway) FetchAllProducts(ctx context.Context) ([]model.Product, error) {
	f.count("FetchAllProducts")
	if f.fetchAll != nil {
		return f.fetchAll(ctx)
	}
	if f.productsErr != nil {
		return nil, f.productsErr
	}
	return append([]model.Product(nil), f.products...), nil
}

func (f *fakeGateway) FetchProductsByOwner(ctx context.Context, ownerID string) ([]model.Product, error) {
	f.count("FetchProductsByOwner")
	if f.ownerErr != nil {
		return nil, f.ownerErr
	}
	var out []model.Product
	for _, p := range f.products {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeGateway) CreateProduct(ctx context.Context, owner model.Principal, data model.NewProduct, profile model.UserProfile) (model.Product, error) {
	f.count("CreateProduct")
	if f.writeErr != nil {
		return model.Product{}, f.writeErr
	}
	f.mu.Lock()
	f.nextID++
	id := fmt.Sprintf("new-%d", f.nextID)
	f.mu.Unlock()
	return model.Product{
		ID:           id,
		Title:        data.Title,
		Images:       data.Images,
		Price:        data.Price,
		ArtType:      data.ArtType,
		Tags:         data.Tags,
		Artist:       model.ArtistFromProfile(owner.UserID, profile),
		OwnerID:      owner.UserID,
		Currency:     model.DefaultCurrency,
		Availability: model.InStock,
	}, nil
}

func (f *fakeGateway) UpdateProduct(ctx context.Context, owner model.Principal, id string, patch model.ProductPatch) (model.Product, error) {
	f.count("UpdateProduct")
	if f.writeErr != nil {
		return model.Product{}, f.writeErr
	}
	for _, p := range f.products {
		if p.ID == id {
			return patch.Apply(p), nil
		}
	}
	return model.Product{}, fmt.Errorf("product %s not found", id)
}

func (f *fakeGateway) DeleteProduct(ctx context.Context, owner model.Principal, id string) error {
	f.count("DeleteProduct")
	return f.writeErr
}

func (f *fakeGateway) FetchUserProfile(ctx context.Context, p model.Principal) (model.UserProfile, error) {
	f.count("FetchUserProfile")
	if f.profileErr != nil {
		return model.UserProfile{}, f.profileErr
	}
	return f.profile, nil
}

func (f *fakeGateway) SaveUserProfile(ctx context.Context, p model.Principal, profile model.UserProfile) error {
	f.count("SaveUserProfile")
	if f.writeErr != nil {
		return f.writeErr
	}
	f.mu.Lock()
	f.savedProfs = append(f.savedProfs, profile)
	f.mu.Unlock()
	return nil
}

func (f *fakeGateway) FetchFollowedArtistIDs(ctx context.Context, p model.Principal) ([]string, error) {
	f.count("FetchFollowedArtistIDs")
	if f.followedErr != nil {
		return nil, f.followedErr
	}
	return append([]string(nil), f.followed...), nil
}

func (f *fakeGateway) SaveFollowedArtistIDs(ctx context.Context, p model.Principal, ids []string) error {
	f.count("SaveFollowedArtistIDs")
	if f.beforeSave != nil {
		f.beforeSave()
	}
	if f.writeErr != nil {
		return f.writeErr
	}
	f.mu.Lock()
	f.savedSets = append(f.savedSets, append([]string(nil), ids...))
	f.mu.Unlock()
	return nil
}

type memFilterStore struct {
	mu      sync.Mutex
	filters map[string]model.Filters
	saves   int
	saveErr error
}

func newMemFilterStore() *memFilterStore {
	return &memFilterStore{filters: map[string]model.Filters{}}
}

func (s *memFilterStore) LoadFilters(ctx context.Context, userID string) (model.Filters, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.filters[userID]
	return f, ok
}

func (s *memFilterStore) SaveFilters(ctx context.Context, userID string, f model.Filters) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.filters[userID] = f
	return nil
}

func ptr[T any](v T) *T { return &v }

func product(id, artistID string, rating, price float64) model.Product {
	return model.Product{
		ID:      id,
		Title:   "Untitled " + id,
		Artist:  model.Artist{ID: artistID, Name: "Artist " + artistID},
		Images:  []string{"https://img/" + id},
		Price:   price,
		Rating:  rating,
		ArtType: "Paintings",
		OwnerID: artistID,
	}
}

func ids(products []model.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}
