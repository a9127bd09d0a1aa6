// Package assist wraps the generative features offered to buyers and sellers.
package assist

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/artista-service/internal/model"
)

const (
	MinQueryLength = 3
	MaxSuggestions = 5
	// suggestionContext caps how many products are described to the model.
	suggestionContext = 10
)

// Languages offered for listing translation.
var Languages = []string{"English", "Tamil", "French", "Hindi", "German"}

var (
	ErrSuperseded = errors.New("suggestion request superseded by a newer query")
	ErrNoImage    = errors.New("model returned no image")
)

type Image struct {
	Data     []byte `json:"data"`
	MIMEType string `json:"mimeType"`
}

// DataURL renders the image as a data: URL usable as a product image.
func (i Image) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", i.MIMEType, base64.StdEncoding.EncodeToString(i.Data))
}

type Gateway interface {
	Translate(ctx context.Context, text, language string) (string, error)
	// SuggestSearches never fails on model errors; it falls back to LocalSuggestions.
	SuggestSearches(ctx context.Context, query string, products []model.Product) ([]string, error)
	GenerateStory(ctx context.Context, title, artType string, tags []string) (string, error)
	EditImage(ctx context.Context, img Image, prompt string) (*Image, error)
	AnalyzeMarket(ctx context.Context, craftType string) (*MarketAnalysis, error)
}

func tooShort(query string) bool {
	return len([]rune(strings.TrimSpace(query))) < MinQueryLength
}

// LocalSuggestions matches query case-insensitively against product titles, tags and
// artist names, in that order, without duplicates.
func LocalSuggestions(query string, products []model.Product) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []string{}
	if q == "" {
		return out
	}
	seen := map[string]bool{}
	consider := func(s string) bool {
		if s == "" || seen[s] {
			return false
		}
		seen[s] = true
		if strings.Contains(strings.ToLower(s), q) {
			out = append(out, s)
		}
		return len(out) == MaxSuggestions
	}
	for _, p := range products {
		if consider(p.Title) {
			return out
		}
		for _, tag := range p.Tags {
			if consider(tag) {
				return out
			}
		}
		if consider(p.Artist.Name) {
			return out
		}
	}
	return out
}
