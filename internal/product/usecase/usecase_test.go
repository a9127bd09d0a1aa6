package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/fekuna/artista-service/internal/model"
	"github.com/fekuna/artista-service/internal/product"
	"github.com/fekuna/artista-service/internal/product/dto"
	"github.com/fekuna/artista-service/pkg/cache"
	"github.com/fekuna/artista-service/pkg/logger"
	"github.com/fekuna/artista-service/pkg/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu       sync.Mutex
	products map[string]model.Product
	findAll  int
}

func newMemRepo() *memRepo {
	return &memRepo{products: map[string]model.Product{}}
}

func (r *memRepo) Create(_ context.Context, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = *p
	return nil
}

func (r *memRepo) FindByID(_ context.Context, id string) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *memRepo) FindAll(_ context.Context, f *dto.ProductFilters) ([]model.Product, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findAll++
	var out []model.Product
	for _, p := range r.products {
		if f.OwnerID != "" && p.OwnerID != f.OwnerID {
			continue
		}
		if f.SearchQuery != "" && !strings.Contains(strings.ToLower(p.Title), strings.ToLower(f.SearchQuery)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r *memRepo) Update(_ context.Context, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.products[p.ID]; !ok || cur.OwnerID != p.OwnerID {
		return product.ErrNotFound
	}
	r.products[p.ID] = *p
	return nil
}

func (r *memRepo) Delete(_ context.Context, id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.products[id]; !ok || cur.OwnerID != ownerID {
		return product.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

type fakeIndex struct {
	mu        sync.Mutex
	docs      map[string]interface{}
	searchErr error
	searches  int
}

func (f *fakeIndex) CreateIndex(context.Context, string, string) error { return nil }

func (f *fakeIndex) Index(_ context.Context, _ string, id string, doc interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[id] = doc
	return nil
}

func (f *fakeIndex) Delete(_ context.Context, _ string, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	return nil
}

func (f *fakeIndex) Search(context.Context, string, map[string]interface{}) (*search.SearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	res := &search.SearchResponse{}
	for id, doc := range f.docs {
		src, _ := json.Marshal(doc)
		res.Hits.Hits = append(res.Hits.Hits, search.Hit{ID: id, Source: src})
	}
	res.Hits.Total.Value = len(res.Hits.Hits)
	return res, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []product.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, value []byte) error {
	var e product.Event
	if err := json.Unmarshal(value, &e); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}

type fixture struct {
	uc     product.UseCase
	repo   *memRepo
	index  *fakeIndex
	events *recordingPublisher
	mr     *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rc, err := cache.NewRedisClient(&cache.Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { rc.Close() })

	f := &fixture{
		repo:   newMemRepo(),
		index:  &fakeIndex{docs: map[string]interface{}{}},
		events: &recordingPublisher{},
		mr:     mr,
	}
	f.uc = NewProductUseCase(f.repo, rc, f.index, f.events, "instance-a", logger.NewNop())
	return f
}

func vase() model.NewProduct {
	return model.NewProduct{
		Title:   "  Blue Vase ",
		Images:  []string{"front.jpg"},
		Price:   1200,
		ArtType: "Pottery",
	}
}

func TestCreateProductDefaults(t *testing.T) {
	f := newFixture(t)

	p, err := f.uc.CreateProduct(context.Background(), &dto.CreateProductInput{
		OwnerID: "u1",
		Data:    vase(),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Blue Vase", p.Title)
	assert.Equal(t, "u1", p.OwnerID)
	assert.Equal(t, model.Artist{ID: "u1", Name: model.UnknownArtist, AvatarURL: model.DefaultAvatarURL, Location: model.DefaultLocation}, p.Artist)
	assert.Equal(t, model.DefaultCurrency, p.Currency)
	assert.Equal(t, model.InStock, p.Availability)
	assert.Equal(t, []string{}, p.Tags)
	assert.Zero(t, p.Rating)
	assert.Zero(t, p.Views)
	assert.Zero(t, p.Sales)
	assert.False(t, p.PostedAt.IsZero())

	assert.Contains(t, f.index.docs, p.ID)
	assert.Equal(t, []string{product.EventProductCreated}, f.events.types())
	assert.Equal(t, "instance-a", f.events.events[0].Source)
}

func TestCreateProductValidation(t *testing.T) {
	cases := map[string]func(*model.NewProduct){
		"blank title":      func(p *model.NewProduct) { p.Title = "   " },
		"no images":        func(p *model.NewProduct) { p.Images = nil },
		"negative price":   func(p *model.NewProduct) { p.Price = -1 },
		"unknown art type": func(p *model.NewProduct) { p.ArtType = "Origami" },
		"bad availability": func(p *model.NewProduct) { p.Availability = "Sold Out" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			data := vase()
			mutate(&data)

			_, err := f.uc.CreateProduct(context.Background(), &dto.CreateProductInput{OwnerID: "u1", Data: data})
			assert.ErrorIs(t, err, product.ErrInvalidProduct)
			assert.Empty(t, f.repo.products)
			assert.Empty(t, f.events.types())
		})
	}
}

func TestListProductsCachesUntilWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.uc.CreateProduct(ctx, &dto.CreateProductInput{OwnerID: "u1", Data: vase()})
	require.NoError(t, err)

	filters := &dto.ProductFilters{OwnerID: "u1"}
	first, count, err := f.uc.ListProducts(ctx, filters)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	second, _, err := f.uc.ListProducts(ctx, filters)
	require.NoError(t, err)
	assert.Equal(t, 1, f.repo.findAll, "second read is served from cache")
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Len(t, f.mr.Keys(), 1)

	_, err = f.uc.CreateProduct(ctx, &dto.CreateProductInput{OwnerID: "u1", Data: vase()})
	require.NoError(t, err)
	assert.Empty(t, f.mr.Keys(), "writes drop cached lists")

	third, count, err := f.uc.ListProducts(ctx, filters)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Len(t, third, 2)
}

func TestListProductsSearchFallsBackToDB(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.uc.CreateProduct(ctx, &dto.CreateProductInput{OwnerID: "u1", Data: vase()})
	require.NoError(t, err)

	products, count, err := f.uc.ListProducts(ctx, &dto.ProductFilters{SearchQuery: "vase"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Len(t, products, 1)
	assert.Zero(t, f.repo.findAll, "search served by the index")

	f.index.searchErr = errors.New("cluster red")
	products, count, err = f.uc.ListProducts(ctx, &dto.ProductFilters{SearchQuery: "blue"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Len(t, products, 1)
	assert.Equal(t, 1, f.repo.findAll)
}

func TestUpdateProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.uc.CreateProduct(ctx, &dto.CreateProductInput{OwnerID: "u1", Data: vase()})
	require.NoError(t, err)

	price := 900.0
	tags := []string{"sale"}
	updated, err := f.uc.UpdateProduct(ctx, &dto.UpdateProductInput{
		ID: p.ID, OwnerID: "u1",
		Patch: model.ProductPatch{Price: &price, Tags: &tags},
	})
	require.NoError(t, err)
	assert.Equal(t, 900.0, updated.Price)
	assert.Equal(t, []string{"sale"}, updated.Tags)
	assert.Equal(t, p.Title, updated.Title)
	assert.Equal(t, p.PostedAt, updated.PostedAt)

	stored, err := f.uc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 900.0, stored.Price)
	assert.Equal(t, []string{product.EventProductCreated, product.EventProductUpdated}, f.events.types())
}

func TestUpdateProductRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.uc.CreateProduct(ctx, &dto.CreateProductInput{OwnerID: "u1", Data: vase()})
	require.NoError(t, err)

	price := 1.0
	_, err = f.uc.UpdateProduct(ctx, &dto.UpdateProductInput{ID: p.ID, OwnerID: "intruder", Patch: model.ProductPatch{Price: &price}})
	assert.ErrorIs(t, err, product.ErrForbidden)

	_, err = f.uc.UpdateProduct(ctx, &dto.UpdateProductInput{ID: "missing", OwnerID: "u1"})
	assert.ErrorIs(t, err, product.ErrNotFound)

	negative := -5.0
	_, err = f.uc.UpdateProduct(ctx, &dto.UpdateProductInput{ID: p.ID, OwnerID: "u1", Patch: model.ProductPatch{Price: &negative}})
	assert.ErrorIs(t, err, product.ErrInvalidProduct)

	stored, err := f.uc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1200.0, stored.Price)
}

func TestDeleteProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.uc.CreateProduct(ctx, &dto.CreateProductInput{OwnerID: "u1", Data: vase()})
	require.NoError(t, err)

	assert.ErrorIs(t, f.uc.DeleteProduct(ctx, p.ID, "intruder"), product.ErrForbidden)
	require.NoError(t, f.uc.DeleteProduct(ctx, p.ID, "u1"))
	assert.NotContains(t, f.index.docs, p.ID)

	_, err = f.uc.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, product.ErrNotFound)
	assert.ErrorIs(t, f.uc.DeleteProduct(ctx, p.ID, "u1"), product.ErrNotFound)
	assert.Equal(t, []string{product.EventProductCreated, product.EventProductDeleted}, f.events.types())
}

func TestEscapeQuery(t *testing.T) {
	assert.Equal(t, "blue vase", escapeQuery("blue vase"))
	assert.Equal(t, `a\:b\*`, escapeQuery("a:b*"))
}
