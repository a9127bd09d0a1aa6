package session

import (
	"context"

	"github.com/fekuna/artista-service/internal/model"
	"github.com/fekuna/artista-service/internal/product"
	"github.com/fekuna/artista-service/internal/product/dto"
	"github.com/fekuna/artista-service/internal/profile"
)

// CatalogGateway serves a view model from the product and profile use cases.
type CatalogGateway struct {
	products product.UseCase
	profiles profile.UseCase
}

func NewCatalogGateway(products product.UseCase, profiles profile.UseCase) *CatalogGateway {
	return &CatalogGateway{
		products: products,
		profiles: profiles,
	}
}

func (g *CatalogGateway) FetchAllProducts(ctx context.Context) ([]model.Product, error) {
	products, _, err := g.products.ListProducts(ctx, &dto.ProductFilters{})
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []model.Product{}
	}
	return products, nil
}

func (g *CatalogGateway) FetchProductsByOwner(ctx context.Context, ownerID string) ([]model.Product, error) {
	products, _, err := g.products.ListProducts(ctx, &dto.ProductFilters{OwnerID: ownerID})
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []model.Product{}
	}
	return products, nil
}

// CreateProduct snapshots the seller's profile into the product's artist.
func (g *CatalogGateway) CreateProduct(ctx context.Context, owner model.Principal, data model.NewProduct, prof model.UserProfile) (model.Product, error) {
	p, err := g.products.CreateProduct(ctx, &dto.CreateProductInput{
		OwnerID: owner.UserID,
		Artist:  model.ArtistFromProfile(owner.UserID, prof),
		Data:    data,
	})
	if err != nil {
		return model.Product{}, err
	}
	return *p, nil
}

func (g *CatalogGateway) UpdateProduct(ctx context.Context, owner model.Principal, id string, patch model.ProductPatch) (model.Product, error) {
	p, err := g.products.UpdateProduct(ctx, &dto.UpdateProductInput{
		ID:      id,
		OwnerID: owner.UserID,
		Patch:   patch,
	})
	if err != nil {
		return model.Product{}, err
	}
	return *p, nil
}

func (g *CatalogGateway) DeleteProduct(ctx context.Context, owner model.Principal, id string) error {
	return g.products.DeleteProduct(ctx, id, owner.UserID)
}

func (g *CatalogGateway) FetchUserProfile(ctx context.Context, p model.Principal) (model.UserProfile, error) {
	prof, err := g.profiles.GetProfile(ctx, p.UserID)
	if err != nil {
		return model.UserProfile{}, err
	}
	return *prof, nil
}

func (g *CatalogGateway) SaveUserProfile(ctx context.Context, p model.Principal, prof model.UserProfile) error {
	prof.ID = p.UserID
	return g.profiles.SaveProfile(ctx, &prof)
}

func (g *CatalogGateway) FetchFollowedArtistIDs(ctx context.Context, p model.Principal) ([]string, error) {
	return g.profiles.GetFollowedArtistIDs(ctx, p.UserID)
}

func (g *CatalogGateway) SaveFollowedArtistIDs(ctx context.Context, p model.Principal, ids []string) error {
	return g.profiles.SaveFollowedArtistIDs(ctx, p.UserID, ids)
}
