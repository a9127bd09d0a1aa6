package usecase

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/artista-service/internal/model"
	"github.com/fekuna/artista-service/internal/product"
	"github.com/fekuna/artista-service/internal/product/dto"
	"github.com/fekuna/artista-service/pkg/cache"
	"github.com/fekuna/artista-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	IndexName        = "products"
	listCacheTTL     = 5 * time.Minute
	listCachePattern = "products:list:*"
	syncTimeout      = 5 * time.Second
)

const indexMapping = `{
	"mappings": {
		"properties": {
			"ownerId": { "type": "keyword" },
			"title": { "type": "text" },
			"description": { "type": "text" },
			"artist": { "properties": { "id": { "type": "keyword" }, "name": { "type": "text" } } },
			"tags": { "type": "text" },
			"artType": { "type": "keyword" },
			"price": { "type": "double" },
			"rating": { "type": "double" },
			"postedAt": { "type": "date" }
		}
	}
}`

type productUseCase struct {
	repo   product.Repository
	cache  *cache.RedisClient
	es     product.SearchIndex
	events product.EventPublisher
	source string
	logger logger.ZapLogger
}

// NewProductUseCase wires the product use case. es and events may be nil; source
// identifies this instance in published events.
func NewProductUseCase(repo product.Repository, cache *cache.RedisClient, es product.SearchIndex, events product.EventPublisher, source string, log logger.ZapLogger) product.UseCase {
	return &productUseCase{
		repo:   repo,
		cache:  cache,
		es:     es,
		events: events,
		source: source,
		logger: log,
	}
}

func validate(p *model.Product) error {
	switch {
	case strings.TrimSpace(p.Title) == "":
		return fmt.Errorf("%w: title is required", product.ErrInvalidProduct)
	case len(p.Images) == 0:
		return fmt.Errorf("%w: at least one image is required", product.ErrInvalidProduct)
	case p.Price < 0:
		return fmt.Errorf("%w: price must not be negative", product.ErrInvalidProduct)
	case !model.IsArtType(p.ArtType):
		return fmt.Errorf("%w: unknown art type %q", product.ErrInvalidProduct, p.ArtType)
	case !p.Availability.Valid():
		return fmt.Errorf("%w: unknown availability %q", product.ErrInvalidProduct, p.Availability)
	}
	return nil
}

func (uc *productUseCase) CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error) {
	now := time.Now().UTC()

	artist := input.Artist
	artist.ID = input.OwnerID
	if artist.Name == "" {
		artist.Name = model.UnknownArtist
	}
	if artist.AvatarURL == "" {
		artist.AvatarURL = model.DefaultAvatarURL
	}
	if artist.Location == "" {
		artist.Location = model.DefaultLocation
	}

	tags := input.Data.Tags
	if tags == nil {
		tags = []string{}
	}
	availability := input.Data.Availability
	if availability == "" {
		availability = model.InStock
	}

	p := &model.Product{
		ID:           uuid.New().String(),
		Title:        strings.TrimSpace(input.Data.Title),
		Description:  input.Data.Description,
		Artist:       artist,
		Images:       input.Data.Images,
		Details:      input.Data.Details,
		Price:        input.Data.Price,
		Currency:     model.DefaultCurrency,
		Tags:         tags,
		ArtType:      input.Data.ArtType,
		Availability: availability,
		PostedAt:     now,
		UpdatedAt:    now,
		OwnerID:      input.OwnerID,
	}
	if err := validate(p); err != nil {
		return nil, err
	}

	if err := uc.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	uc.afterWrite(ctx, product.EventProductCreated, p)
	return p, nil
}

func (uc *productUseCase) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	p, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, product.ErrNotFound
	}
	return p, nil
}

type cachedList struct {
	Products []model.Product
	Count    int
}

func (uc *productUseCase) ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error) {
	// 1. Generate Cache Key
	cacheKey, err := generateCacheKey(filters)
	if err == nil {
		// 2. Check Cache
		val, err := uc.cache.Client.Get(ctx, cacheKey).Result()
		if err == nil {
			var result cachedList
			if err := json.Unmarshal([]byte(val), &result); err == nil {
				return result.Products, result.Count, nil
			}
		}
	}

	// 3. Search via Elastic (if query present)
	if filters.SearchQuery != "" && uc.es != nil {
		products, count, err := uc.searchIndex(ctx, filters)
		if err == nil {
			return products, count, nil
		}
		uc.logger.Error("ES search failed, falling back to DB", zap.Error(err))
	}

	// 4. DB Query (Fallback or Standard List)
	products, count, err := uc.repo.FindAll(ctx, filters)
	if err != nil {
		return nil, 0, err
	}

	// 5. Set Cache
	if cacheKey != "" {
		if data, err := json.Marshal(cachedList{Products: products, Count: count}); err == nil {
			if err := uc.cache.Client.Set(ctx, cacheKey, data, listCacheTTL).Err(); err != nil {
				uc.logger.Warn("Failed to cache product list", zap.Error(err))
			}
		}
	}

	return products, count, nil
}

func (uc *productUseCase) searchIndex(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error) {
	must := []map[string]interface{}{
		{
			"query_string": map[string]interface{}{
				"query":            fmt.Sprintf("*%s*", escapeQuery(filters.SearchQuery)),
				"fields":           []string{"title^3", "artist.name^2", "tags", "description"},
				"analyze_wildcard": true,
			},
		},
	}
	if filters.OwnerID != "" {
		must = append(must, map[string]interface{}{"term": map[string]interface{}{"ownerId": filters.OwnerID}})
	}
	if filters.ArtType != "" {
		must = append(must, map[string]interface{}{"term": map[string]interface{}{"artType": filters.ArtType}})
	}

	q := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"must": must},
		},
	}
	if filters.PageSize > 0 {
		page := filters.Page
		if page < 1 {
			page = 1
		}
		q["from"] = (page - 1) * filters.PageSize
		q["size"] = filters.PageSize
	}

	res, err := uc.es.Search(ctx, IndexName, q)
	if err != nil {
		return nil, 0, err
	}

	products := make([]model.Product, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var p model.Product
		if err := json.Unmarshal(hit.Source, &p); err != nil {
			uc.logger.Warn("Skipping undecodable search hit", zap.String("id", hit.ID), zap.Error(err))
			continue
		}
		products = append(products, p)
	}
	return products, res.Hits.Total.Value, nil
}

// escapeQuery strips query_string operators so user input is matched literally.
func escapeQuery(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`+-=&|><!(){}[]^"~*?:\/`, r) {
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func generateCacheKey(filters *dto.ProductFilters) (string, error) {
	data, err := json.Marshal(filters)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("products:list:%x", md5.Sum(data)), nil
}

func (uc *productUseCase) InvalidateListCache(ctx context.Context) error {
	n, err := uc.cache.DeletePattern(ctx, listCachePattern)
	if err != nil {
		return err
	}
	uc.logger.Debug("Invalidated product list cache", zap.Int("keys", n))
	return nil
}

func (uc *productUseCase) UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error) {
	p, err := uc.repo.FindByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, product.ErrNotFound
	}
	if p.OwnerID != input.OwnerID {
		return nil, product.ErrForbidden
	}

	updated := input.Patch.Apply(*p)
	updated.Title = strings.TrimSpace(updated.Title)
	if updated.Tags == nil {
		updated.Tags = []string{}
	}
	if err := validate(&updated); err != nil {
		return nil, err
	}
	updated.UpdatedAt = time.Now().UTC()

	if err := uc.repo.Update(ctx, &updated); err != nil {
		return nil, err
	}

	uc.afterWrite(ctx, product.EventProductUpdated, &updated)
	return &updated, nil
}

func (uc *productUseCase) DeleteProduct(ctx context.Context, id, ownerID string) error {
	p, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return product.ErrNotFound
	}
	if p.OwnerID != ownerID {
		return product.ErrForbidden
	}

	if err := uc.repo.Delete(ctx, id, ownerID); err != nil {
		return err
	}

	uc.afterWrite(ctx, product.EventProductDeleted, p)
	return nil
}

// afterWrite runs the side effects of a committed write. Failures are logged; the
// write itself has already succeeded.
func (uc *productUseCase) afterWrite(ctx context.Context, eventType string, p *model.Product) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), syncTimeout)
	defer cancel()

	if err := uc.InvalidateListCache(ctx); err != nil {
		uc.logger.Error("Failed to invalidate product list cache", zap.Error(err))
	}

	if eventType == product.EventProductDeleted {
		uc.removeFromElastic(ctx, p.ID)
	} else {
		uc.syncToElastic(ctx, p)
	}

	uc.publish(ctx, eventType, p)
}

func (uc *productUseCase) syncToElastic(ctx context.Context, p *model.Product) {
	if uc.es == nil {
		return
	}
	// Index creation is idempotent; an existing index is not an error.
	if err := uc.es.CreateIndex(ctx, IndexName, indexMapping); err != nil {
		uc.logger.Warn("Failed to ensure product index", zap.Error(err))
	}
	if err := uc.es.Index(ctx, IndexName, p.ID, p); err != nil {
		uc.logger.Error("Failed to index product", zap.String("product_id", p.ID), zap.Error(err))
	}
}

func (uc *productUseCase) removeFromElastic(ctx context.Context, id string) {
	if uc.es == nil {
		return
	}
	if err := uc.es.Delete(ctx, IndexName, id); err != nil {
		uc.logger.Error("Failed to delete product from ES", zap.String("product_id", id), zap.Error(err))
	}
}

func (uc *productUseCase) publish(ctx context.Context, eventType string, p *model.Product) {
	if uc.events == nil {
		return
	}
	event := product.Event{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Source:    uc.source,
		Payload:   product.EventPayload{ID: p.ID, OwnerID: p.OwnerID},
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		uc.logger.Error("Failed to marshal product event", zap.Error(err))
		return
	}
	if err := uc.events.Publish(ctx, p.ID, data); err != nil {
		uc.logger.Error("Failed to publish product event",
			zap.String("event_type", eventType),
			zap.String("product_id", p.ID),
			zap.Error(err),
		)
	}
}
