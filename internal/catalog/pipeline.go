package catalog

import (
	"strings"

	"github.com/fekuna/artista-service/internal/model"
)

// Derive produces the display list: products of followed artists first, fetch order kept
// inside each group, then every filter applied conjunctively. A search term matches the
// title, the artist name or any tag, case-insensitively.
func Derive(products []model.Product, followed map[string]struct{}, f model.Filters) []model.Product {
	term := strings.ToLower(strings.TrimSpace(f.SearchTerm))

	first := make([]model.Product, 0, len(products))
	var rest []model.Product
	for _, p := range products {
		if !keep(p, f, term) {
			continue
		}
		if _, ok := followed[p.Artist.ID]; ok {
			first = append(first, p)
		} else {
			rest = append(rest, p)
		}
	}
	return append(first, rest...)
}

func keep(p model.Product, f model.Filters, term string) bool {
	if f.Rating != nil && p.Rating < *f.Rating {
		return false
	}
	if !f.PriceRange.Contains(p.Price) {
		return false
	}
	if f.ArtType != "" && p.ArtType != f.ArtType {
		return false
	}
	if term != "" && !matchesTerm(p, term) {
		return false
	}
	return true
}

func matchesTerm(p model.Product, term string) bool {
	if strings.Contains(strings.ToLower(p.Title), term) {
		return true
	}
	if strings.Contains(strings.ToLower(p.Artist.Name), term) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

// Window returns the first pageCount*size elements of display.
func Window(display []model.Product, pageCount, size int) []model.Product {
	n := pageCount * size
	if n > len(display) {
		n = len(display)
	}
	if n < 0 {
		n = 0
	}
	return display[:n]
}

// MaxPrice is the highest product price, or DefaultMaxPrice for an empty catalog.
func MaxPrice(products []model.Product) float64 {
	if len(products) == 0 {
		return DefaultMaxPrice
	}
	highest := products[0].Price
	for _, p := range products[1:] {
		if p.Price > highest {
			highest = p.Price
		}
	}
	return highest
}
