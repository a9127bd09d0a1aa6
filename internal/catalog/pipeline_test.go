package catalog

import (
	"strings"
	"testing"

	"github.com/fekuna/artista-service/internal/model"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func followSet(ids ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func TestDeriveConcreteScenario(t *testing.T) {
	products := []model.Product{
		product("A", "followed", 4.8, 500),
		product("B", "other", 4.0, 100),
	}
	followed := followSet("followed")

	got := Derive(products, followed, model.Filters{Rating: ptr(4.5)})
	assert.Equal(t, []string{"A"}, ids(got))

	got = Derive(products, followed, model.Filters{PriceRange: &model.PriceRange{Max: ptr(200.0)}})
	assert.Equal(t, []string{"B"}, ids(got))
}

func TestDeriveRatingAndPriceConjunction(t *testing.T) {
	var products []model.Product
	for i, r := range []float64{0, 1.5, 3, 4.5, 5} {
		for j, price := range []float64{0, 50, 100, 150, 1000} {
			products = append(products, product(string(rune('a'+i))+string(rune('0'+j)), "x", r, price))
		}
	}

	filters := []model.Filters{
		{},
		{Rating: ptr(3.0)},
		{PriceRange: &model.PriceRange{Min: ptr(50.0)}},
		{PriceRange: &model.PriceRange{Max: ptr(100.0)}},
		{Rating: ptr(4.5), PriceRange: &model.PriceRange{Min: ptr(50.0), Max: ptr(150.0)}},
		{Rating: ptr(0.0), PriceRange: &model.PriceRange{Min: ptr(100.0), Max: ptr(100.0)}},
	}
	for _, f := range filters {
		got := map[string]bool{}
		for _, p := range Derive(products, nil, f) {
			got[p.ID] = true
		}
		for _, p := range products {
			want := (f.Rating == nil || p.Rating >= *f.Rating) &&
				(f.PriceRange == nil || f.PriceRange.Min == nil || *f.PriceRange.Min <= p.Price) &&
				(f.PriceRange == nil || f.PriceRange.Max == nil || p.Price <= *f.PriceRange.Max)
			assert.Equal(t, want, got[p.ID], "product %s rating=%v price=%v filters=%+v", p.ID, p.Rating, p.Price, f)
		}
	}
}

func TestDeriveSearchSubstringLaw(t *testing.T) {
	products := []model.Product{
		{ID: "1", Title: "Whispers of the Forest", Artist: model.Artist{ID: "a", Name: "Meera Nair"}, Tags: []string{"nature", "green"}},
		{ID: "2", Title: "Clay Pot", Artist: model.Artist{ID: "b", Name: "Ravi"}, Tags: []string{"Terracotta"}},
		{ID: "3", Title: "Silver Ring", Artist: model.Artist{ID: "c", Name: "Forester Co"}, Tags: nil},
		{ID: "4", Title: "Blue Silk", Artist: model.Artist{ID: "d", Name: "Anu"}, Tags: []string{"handwoven", "silk"}},
	}

	for _, term := range []string{"forest", "FOREST", "terra", "silk", "ra", "zzz", "a"} {
		t.Run(term, func(t *testing.T) {
			got := Derive(products, nil, model.Filters{SearchTerm: term})
			in := map[string]bool{}
			for _, p := range got {
				in[p.ID] = true
			}
			lower := strings.ToLower(term)
			for _, p := range products {
				match := strings.Contains(strings.ToLower(p.Title), lower) ||
					strings.Contains(strings.ToLower(p.Artist.Name), lower)
				for _, tag := range p.Tags {
					match = match || strings.Contains(strings.ToLower(tag), lower)
				}
				assert.Equal(t, match, in[p.ID], "product %s term %q", p.ID, term)
			}
		})
	}
}

func TestDeriveSearchIsConjunctiveWithOtherFilters(t *testing.T) {
	products := []model.Product{
		{ID: "cheap", Title: "Forest Print", Price: 100, Rating: 4, ArtType: "Paintings"},
		{ID: "pricey", Title: "Forest Canvas", Price: 5000, Rating: 5, ArtType: "Paintings"},
		{ID: "pottery", Title: "Forest Vase", Price: 200, Rating: 5, ArtType: "Pottery"},
		{ID: "other", Title: "Ocean", Price: 50, Rating: 5, ArtType: "Paintings"},
	}

	got := Derive(products, nil, model.Filters{
		SearchTerm: "forest",
		ArtType:    "Paintings",
		PriceRange: &model.PriceRange{Max: ptr(1000.0)},
	})
	assert.Equal(t, []string{"cheap"}, ids(got))

	got = Derive(products, nil, model.Filters{SearchTerm: "forest", Rating: ptr(4.5)})
	assert.Equal(t, []string{"pricey", "pottery"}, ids(got))
}

func TestDeriveFollowedFirstKeepsFetchOrder(t *testing.T) {
	products := []model.Product{
		product("1", "x", 5, 10),
		product("2", "f1", 5, 10),
		product("3", "y", 5, 10),
		product("4", "f2", 5, 10),
		product("5", "f1", 5, 10),
		product("6", "x", 5, 10),
	}

	got := Derive(products, followSet("f1", "f2"), model.Filters{})
	if diff := cmp.Diff([]string{"2", "4", "5", "1", "3", "6"}, ids(got)); diff != "" {
		t.Errorf("display order mismatch (-want +got):\n%s", diff)
	}

	got = Derive(products, nil, model.Filters{})
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6"}, ids(got))
}

func TestDeriveFollowedPrecedeOthersUnderFilters(t *testing.T) {
	var products []model.Product
	for i := 0; i < 30; i++ {
		artist := "a" + string(rune('0'+i%5))
		products = append(products, product(string(rune('A'+i)), artist, float64(i%6), float64(i*10)))
	}
	followed := followSet("a1", "a3")

	for _, f := range []model.Filters{{}, {Rating: ptr(2.0)}, {PriceRange: &model.PriceRange{Min: ptr(50.0), Max: ptr(200.0)}}} {
		got := Derive(products, followed, f)
		seenOther := false
		for _, p := range got {
			_, isFollowed := followed[p.Artist.ID]
			if !isFollowed {
				seenOther = true
				continue
			}
			assert.False(t, seenOther, "followed product %s after an unfollowed one", p.ID)
		}
	}
}

func TestDeriveEmptyArtTypeIsUnconstrained(t *testing.T) {
	products := []model.Product{
		{ID: "1", ArtType: "Paintings"},
		{ID: "2", ArtType: "Jewelry"},
	}
	assert.Len(t, Derive(products, nil, model.Filters{ArtType: ""}), 2)
	assert.Equal(t, []string{"2"}, ids(Derive(products, nil, model.Filters{ArtType: "Jewelry"})))
}

func TestWindow(t *testing.T) {
	display := make([]model.Product, 20)
	assert.Len(t, Window(display, 1, 9), 9)
	assert.Len(t, Window(display, 2, 9), 18)
	assert.Len(t, Window(display, 3, 9), 20)
	assert.Len(t, Window(nil, 1, 9), 0)
}

func TestMaxPrice(t *testing.T) {
	assert.Equal(t, float64(DefaultMaxPrice), MaxPrice(nil))
	assert.Equal(t, 750.0, MaxPrice([]model.Product{{Price: 10}, {Price: 750}, {Price: 0}}))
}
