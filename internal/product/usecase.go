package product

import (
	"context"

	"github.com/fekuna/artista-service/internal/model"
	"github.com/fekuna/artista-service/internal/product/dto"
	"github.com/fekuna/artista-service/pkg/search"
)

type UseCase interface {
	CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error)
	UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error)
	DeleteProduct(ctx context.Context, id, ownerID string) error

	// InvalidateListCache drops every cached product list.
	InvalidateListCache(ctx context.Context) error
}

// SearchIndex is the full-text index products are mirrored into.
type SearchIndex interface {
	CreateIndex(ctx context.Context, index, mapping string) error
	Index(ctx context.Context, index, id string, doc interface{}) error
	Delete(ctx context.Context, index, id string) error
	Search(ctx context.Context, index string, query map[string]interface{}) (*search.SearchResponse, error)
}

// EventPublisher emits catalog events to other service instances.
type EventPublisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}
