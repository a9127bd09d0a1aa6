package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/fekuna/artista-service/internal/model"
	"github.com/fekuna/artista-service/internal/product"
	"github.com/fekuna/artista-service/internal/product/dto"
	"github.com/fekuna/artista-service/pkg/logger"
	"github.com/fekuna/artista-service/pkg/response"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxPageSize = 100

type ProductHandler struct {
	uc     product.UseCase
	logger logger.ZapLogger
}

func NewProductHandler(uc product.UseCase, log logger.ZapLogger) *ProductHandler {
	return &ProductHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/search", h.searchProducts)
		r.Get("/{id}", h.getProduct)
	})
}

type listResponse struct {
	Products   []model.Product `json:"products"`
	TotalCount int             `json:"totalCount"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
}

func (h *ProductHandler) searchProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := &dto.ProductFilters{
		OwnerID:     q.Get("owner"),
		ArtType:     q.Get("artType"),
		SearchQuery: q.Get("q"),
		SortBy:      q.Get("sort"),
		SortOrder:   q.Get("order"),
		Page:        1,
		PageSize:    20,
	}
	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			response.Error(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		filters.Page = page
	}
	if v := q.Get("pageSize"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 || size > maxPageSize {
			response.Error(w, http.StatusBadRequest, "pageSize must be between 1 and 100")
			return
		}
		filters.PageSize = size
	}

	products, total, err := h.uc.ListProducts(r.Context(), filters)
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	if products == nil {
		products = []model.Product{}
	}
	response.JSON(w, http.StatusOK, listResponse{
		Products:   products,
		TotalCount: total,
		Page:       filters.Page,
		PageSize:   filters.PageSize,
	})
}

func (h *ProductHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.uc.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			response.Error(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("Failed to get product", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "failed to get product")
		return
	}
	response.JSON(w, http.StatusOK, p)
}
