package dto

import "github.com/fekuna/artista-service/internal/model"

type CreateProductInput struct {
	OwnerID string
	Artist  model.Artist // snapshot taken from the seller's profile
	Data    model.NewProduct
}

type UpdateProductInput struct {
	ID      string
	OwnerID string // must match the stored owner
	Patch   model.ProductPatch
}
