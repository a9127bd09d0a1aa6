package assist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fekuna/artista-service/internal/model"
	"github.com/fekuna/artista-service/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

type Config struct {
	APIKey     string
	TextModel  string
	ImageModel string
}

// contentGenerator is the subset of *genai.Models the gateway calls.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiGateway struct {
	models     contentGenerator
	textModel  string
	imageModel string
	logger     logger.ZapLogger
}

// NewGateway returns the Gemini gateway, or the offline one when no API key is set.
func NewGateway(ctx context.Context, cfg Config, log logger.ZapLogger) (Gateway, error) {
	if cfg.APIKey == "" {
		log.Warn("GEMINI_API_KEY not set, generative assist runs offline")
		return NewOfflineGateway(), nil
	}
	return NewGeminiGateway(ctx, cfg, log)
}

func NewGeminiGateway(ctx context.Context, cfg Config, log logger.ZapLogger) (*GeminiGateway, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return newGeminiGateway(client.Models, cfg, log), nil
}

func newGeminiGateway(models contentGenerator, cfg Config, log logger.ZapLogger) *GeminiGateway {
	if cfg.TextModel == "" {
		cfg.TextModel = "gemini-2.5-flash"
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = "gemini-2.5-flash-image-preview"
	}
	return &GeminiGateway{
		models:     models,
		textModel:  cfg.TextModel,
		imageModel: cfg.ImageModel,
		logger:     log,
	}
}

func (g *GeminiGateway) Translate(ctx context.Context, text, language string) (string, error) {
	prompt := fmt.Sprintf("Translate the following text to %s. Return ONLY the translated text, with no preamble or explanation.\n\nText: %q", language, text)
	resp, err := g.models.GenerateContent(ctx, g.textModel, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.3),
	})
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

func suggestionPrompt(query string, products []model.Product) string {
	if len(products) > suggestionContext {
		products = products[:suggestionContext]
	}
	entries := make([]string, 0, len(products))
	for _, p := range products {
		bio := p.Artist.Bio
		if bio == "" {
			bio = "Not available."
		}
		entries = append(entries, fmt.Sprintf("Title: %s\nDescription: %s\nTags: %s\nArtist: %s\nArtist Bio: %s",
			p.Title, p.Description, strings.Join(p.Tags, ", "), p.Artist.Name, bio))
	}

	return fmt.Sprintf(`You are a search suggestion engine for an artisan marketplace. Given the user's query and a list of available artworks (including titles, descriptions, tags, and artist information), provide %d relevant and concise suggestions suitable for a search dropdown. Consider typos, synonyms, and related concepts. For example, if a user searches for "calm" and there's a painting about a forest, you might suggest "serene nature paintings" or the painting's title "Whispers of the Forest".

User Query: %q

Available Artwork Context:
%s

Return a list of %d suggestions.`, MaxSuggestions, query, strings.Join(entries, "\n---\n"), MaxSuggestions)
}

func (g *GeminiGateway) SuggestSearches(ctx context.Context, query string, products []model.Product) ([]string, error) {
	if tooShort(query) {
		return []string{}, nil
	}

	resp, err := g.models.GenerateContent(ctx, g.textModel, genai.Text(suggestionPrompt(query, products)), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   suggestionSchema,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.logger.Warn("Gemini suggestion failed, using local matches", zap.Error(err))
		return LocalSuggestions(query, products), nil
	}

	var result struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(resp.Text()), &result); err != nil {
		g.logger.Warn("Gemini suggestion response unreadable, using local matches", zap.Error(err))
		return LocalSuggestions(query, products), nil
	}
	if result.Suggestions == nil {
		return []string{}, nil
	}
	return result.Suggestions, nil
}

func (g *GeminiGateway) GenerateStory(ctx context.Context, title, artType string, tags []string) (string, error) {
	prompt := fmt.Sprintf(`You are an expert art curator. Write a compelling, evocative, and brief story-like description for a piece of artwork. Do not use markdown or titles. Just return the description paragraph.

Artwork Details:
- Title: %q
- Art Type: %s
- Tags: %s

Generate a description that is about 3-4 sentences long.`, title, artType, strings.Join(tags, ", "))

	resp, err := g.models.GenerateContent(ctx, g.textModel, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.7),
	})
	if err != nil {
		return "", fmt.Errorf("generate story: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

func (g *GeminiGateway) EditImage(ctx context.Context, img Image, prompt string) (*Image, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(img.Data, img.MIMEType),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}
	resp, err := g.models.GenerateContent(ctx, g.imageModel, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	})
	if err != nil {
		return nil, fmt.Errorf("edit image: %w", err)
	}

	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return &Image{Data: part.InlineData.Data, MIMEType: part.InlineData.MIMEType}, nil
			}
		}
	}
	return nil, ErrNoImage
}

func (g *GeminiGateway) AnalyzeMarket(ctx context.Context, craftType string) (*MarketAnalysis, error) {
	prompt := fmt.Sprintf("Generate a detailed artisan market analysis for the craft of %s. Be encouraging and insightful for a creative entrepreneur.", craftType)
	resp, err := g.models.GenerateContent(ctx, g.textModel, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   analysisSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("analyze market: %w", err)
	}

	var out MarketAnalysis
	if err := json.Unmarshal([]byte(resp.Text()), &out); err != nil {
		return nil, fmt.Errorf("decode market analysis: %w", err)
	}
	return &out, nil
}
