package assist

import "google.golang.org/genai"

type TrendItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Popularity  int    `json:"popularity"`
}

type PricePointAnalysis struct {
	TypicalRange     string `json:"typicalRange"`
	ConsumerInsights string `json:"consumerInsights"`
	Confidence       int    `json:"confidence"`
}

type TargetAudience struct {
	AgeRange     string   `json:"ageRange"`
	KeyInterests []string `json:"keyInterests"`
	Confidence   int      `json:"confidence"`
}

type SeasonalOpportunity struct {
	Season      string `json:"season"`
	Description string `json:"description"`
	Popularity  int    `json:"popularity"`
}

type Recommendation struct {
	Recommendation string `json:"recommendation"`
	Impact         int    `json:"impact"`
}

// MarketAnalysis is a trend report for one craft. Scores are 0-100.
type MarketAnalysis struct {
	TopTrendingProducts       []TrendItem           `json:"topTrendingProducts"`
	EmergingPalettes          []TrendItem           `json:"emergingPalettes"`
	PricePointAnalysis        PricePointAnalysis    `json:"pricePointAnalysis"`
	TargetAudience            TargetAudience        `json:"targetAudience"`
	SeasonalOpportunities     []SeasonalOpportunity `json:"seasonalOpportunities"`
	ActionableRecommendations []Recommendation      `json:"actionableRecommendations"`
}

func scored(description string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeInteger, Description: description}
}

func trendSchema(description string) *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeArray,
		Description: description,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"name":        {Type: genai.TypeString},
				"description": {Type: genai.TypeString},
				"popularity":  scored("Popularity score from 0 to 100"),
			},
		},
	}
}

var analysisSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"topTrendingProducts": trendSchema("Top 5 trending products and styles."),
		"emergingPalettes":    trendSchema("Top 5 emerging color palettes and materials."),
		"pricePointAnalysis": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"typicalRange": {
					Type:        genai.TypeString,
					Description: "Typical price ranges for different item types, presented as a single semicolon-separated string. E.g., 'Small items: $20-$50; Mugs: $30-$70'",
				},
				"consumerInsights": {Type: genai.TypeString},
				"confidence":       scored("Confidence score in this analysis from 0 to 100"),
			},
		},
		"targetAudience": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"ageRange":     {Type: genai.TypeString},
				"keyInterests": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
				"confidence":   scored("Confidence score in this analysis from 0 to 100"),
			},
		},
		"seasonalOpportunities": {
			Type:        genai.TypeArray,
			Description: "Up to 4 seasonal opportunities.",
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"season":      {Type: genai.TypeString, Description: "e.g., 'Spring (March-May)'"},
					"description": {Type: genai.TypeString},
					"popularity":  scored("Opportunity score from 0 to 100"),
				},
			},
		},
		"actionableRecommendations": {
			Type:        genai.TypeArray,
			Description: "Top 6 actionable recommendations for an artisan.",
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"recommendation": {Type: genai.TypeString},
					"impact":         scored("Potential impact score from 0 to 100"),
				},
			},
		},
	},
}

var suggestionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"suggestions": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
	},
}
