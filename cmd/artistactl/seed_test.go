package main

import (
	"testing"

	"github.com/fekuna/artista-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
products:
  - ownerId: u1
    artist:
      name: Meera
      location: Jaipur
    title: Blue Pottery Vase
    images: [https://picsum.photos/seed/vase/600/800]
    price: 2500
    tags: [pottery, blue]
    artType: Pottery
  - ownerId: u2
    title: Dusk
    images: [a.jpg]
    price: 10
    artType: Paintings
    availability: Pre-order
`

func TestParseSeed(t *testing.T) {
	f, err := parseSeed([]byte(sample))
	require.NoError(t, err)
	require.Len(t, f.Products, 2)

	in := f.Products[0].input()
	assert.Equal(t, "u1", in.OwnerID)
	assert.Equal(t, model.Artist{ID: "u1", Name: "Meera", Location: "Jaipur"}, in.Artist)
	assert.Equal(t, []string{"pottery", "blue"}, in.Data.Tags)
	assert.Equal(t, model.InStock, in.Data.Availability)

	assert.Equal(t, model.PreOrder, f.Products[1].input().Data.Availability)
}

func TestParseSeedRejects(t *testing.T) {
	_, err := parseSeed([]byte("products:\n  - title: Orphan\n"))
	assert.ErrorContains(t, err, "ownerId is required")

	_, err = parseSeed([]byte("products: [unterminated"))
	assert.Error(t, err)
}
