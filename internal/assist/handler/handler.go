package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/fekuna/artista-service/internal/assist"
	"github.com/fekuna/artista-service/internal/model"
	"github.com/fekuna/artista-service/pkg/i18n"
	"github.com/fekuna/artista-service/pkg/logger"
	"github.com/fekuna/artista-service/pkg/middleware"
	"github.com/fekuna/artista-service/pkg/response"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxImageBytes bounds the decoded image accepted for editing.
const maxImageBytes = 8 << 20

type AssistHandler struct {
	gw     assist.Gateway
	logger logger.ZapLogger
}

func NewAssistHandler(gw assist.Gateway, log logger.ZapLogger) *AssistHandler {
	return &AssistHandler{
		gw:     gw,
		logger: log,
	}
}

// RegisterRoutes mounts the stateless assist endpoints. Suggestions are served per
// session by the session handler.
func (h *AssistHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/v1/assist/translate", h.translate)
	r.Post("/api/v1/assist/story", h.story)
	r.Post("/api/v1/assist/image", h.editImage)
	r.Post("/api/v1/assist/analysis", h.analysis)
}

type translateRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type storyRequest struct {
	Title   string   `json:"title"`
	ArtType string   `json:"artType"`
	Tags    []string `json:"tags"`
}

type imageRequest struct {
	Image  assist.Image `json:"image"`
	Prompt string       `json:"prompt"`
}

type imageResponse struct {
	assist.Image
	DataURL string `json:"dataUrl"`
}

type analysisRequest struct {
	CraftType string `json:"craftType"`
}

type textResponse struct {
	Text string `json:"text"`
}

func (h *AssistHandler) badRequest(w http.ResponseWriter, r *http.Request) {
	response.Error(w, http.StatusBadRequest, i18n.T("request.invalid", nil, middleware.LanguageFrom(r.Context())))
}

func (h *AssistHandler) failed(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error("Assist request failed", zap.String("op", op), zap.Error(err))
	response.Error(w, http.StatusBadGateway, i18n.T("assist.failed", nil, middleware.LanguageFrom(r.Context())))
}

func supportedLanguage(lang string) bool {
	for _, l := range assist.Languages {
		if strings.EqualFold(l, lang) {
			return true
		}
	}
	return false
}

func (h *AssistHandler) translate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := response.Decode(w, r, &req); err != nil || strings.TrimSpace(req.Text) == "" || !supportedLanguage(req.Language) {
		h.badRequest(w, r)
		return
	}
	out, err := h.gw.Translate(r.Context(), req.Text, req.Language)
	if err != nil {
		h.failed(w, r, "translate", err)
		return
	}
	response.JSON(w, http.StatusOK, textResponse{Text: out})
}

func (h *AssistHandler) story(w http.ResponseWriter, r *http.Request) {
	var req storyRequest
	if err := response.Decode(w, r, &req); err != nil || strings.TrimSpace(req.Title) == "" || !model.IsArtType(req.ArtType) {
		h.badRequest(w, r)
		return
	}
	out, err := h.gw.GenerateStory(r.Context(), req.Title, req.ArtType, req.Tags)
	if err != nil {
		h.failed(w, r, "story", err)
		return
	}
	response.JSON(w, http.StatusOK, textResponse{Text: out})
}

func (h *AssistHandler) editImage(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if err := response.DecodeLimit(w, r, &req, maxImageBytes*4/3+4096); err != nil || len(req.Image.Data) == 0 || req.Image.MIMEType == "" || strings.TrimSpace(req.Prompt) == "" {
		h.badRequest(w, r)
		return
	}
	img, err := h.gw.EditImage(r.Context(), req.Image, req.Prompt)
	if err != nil {
		if errors.Is(err, assist.ErrNoImage) {
			response.Error(w, http.StatusUnprocessableEntity, i18n.T("assist.failed", nil, middleware.LanguageFrom(r.Context())))
			return
		}
		h.failed(w, r, "image", err)
		return
	}
	response.JSON(w, http.StatusOK, imageResponse{Image: *img, DataURL: img.DataURL()})
}

func (h *AssistHandler) analysis(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if err := response.Decode(w, r, &req); err != nil || strings.TrimSpace(req.CraftType) == "" {
		h.badRequest(w, r)
		return
	}
	a, err := h.gw.AnalyzeMarket(r.Context(), strings.TrimSpace(req.CraftType))
	if err != nil {
		h.failed(w, r, "analysis", err)
		return
	}
	response.JSON(w, http.StatusOK, a)
}
