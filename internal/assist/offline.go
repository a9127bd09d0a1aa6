package assist

import (
	"context"
	"fmt"
	"strings"

	"github.com/fekuna/artista-service/internal/model"
)

// OfflineGateway answers every request locally with deterministic output.
type OfflineGateway struct{}

func NewOfflineGateway() *OfflineGateway {
	return &OfflineGateway{}
}

func (OfflineGateway) Translate(_ context.Context, text, language string) (string, error) {
	return fmt.Sprintf("(Mock Translation) %s -> in %s", text, language), nil
}

func (OfflineGateway) SuggestSearches(_ context.Context, query string, products []model.Product) ([]string, error) {
	if tooShort(query) {
		return []string{}, nil
	}
	return LocalSuggestions(query, products), nil
}

func (OfflineGateway) GenerateStory(_ context.Context, title, artType string, tags []string) (string, error) {
	return fmt.Sprintf("(Mock AI Story) A captivating story about \"%s\", a beautiful piece of %s art, exploring themes of %s.",
		title, artType, strings.Join(tags, ", ")), nil
}

// EditImage returns the input unchanged.
func (OfflineGateway) EditImage(_ context.Context, img Image, _ string) (*Image, error) {
	out := Image{Data: append([]byte(nil), img.Data...), MIMEType: img.MIMEType}
	return &out, nil
}

func (OfflineGateway) AnalyzeMarket(_ context.Context, craftType string) (*MarketAnalysis, error) {
	craft := strings.TrimSpace(craftType)
	return &MarketAnalysis{
		TopTrendingProducts: []TrendItem{
			{Name: "Personalised " + craft, Description: "Made-to-order pieces with names or dates.", Popularity: 80},
			{Name: "Minimal " + craft, Description: "Clean forms in muted tones.", Popularity: 70},
		},
		EmergingPalettes: []TrendItem{
			{Name: "Earth tones", Description: "Terracotta, ochre and olive.", Popularity: 75},
		},
		PricePointAnalysis: PricePointAnalysis{
			TypicalRange:     "Small items: ₹500-₹1500; Statement pieces: ₹3000-₹12000",
			ConsumerInsights: "Buyers pay more for a visible maker story.",
			Confidence:       50,
		},
		TargetAudience: TargetAudience{
			AgeRange:     "25-45",
			KeyInterests: []string{"home decor", "sustainable living", "gifting"},
			Confidence:   50,
		},
		SeasonalOpportunities: []SeasonalOpportunity{
			{Season: "Festive (October-December)", Description: "Gift sets and decor.", Popularity: 85},
		},
		ActionableRecommendations: []Recommendation{
			{Recommendation: fmt.Sprintf("Photograph your %s in natural light.", craft), Impact: 70},
			{Recommendation: "Tell the story behind each piece in its description.", Impact: 65},
		},
	}, nil
}
