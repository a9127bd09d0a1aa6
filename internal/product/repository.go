package product

import (
	"context"

	"github.com/fekuna/artista-service/internal/model"
	"github.com/fekuna/artista-service/internal/product/dto"
)

type Repository interface {
	Create(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, id string) (*model.Product, error)
	FindAll(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error)
	// Update and Delete only touch rows owned by ownerID and report ErrNotFound otherwise.
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id, ownerID string) error
}
