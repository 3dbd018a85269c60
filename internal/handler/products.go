package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Criezzz/auctionBackend/internal/models"
	"github.com/Criezzz/auctionBackend/internal/repository"
)

type ProductHandler struct {
	Repo repository.Store
}

func (h *ProductHandler) Register(r *gin.Engine) {
	group := r.Group("/api/products")
	group.GET("", h.list)
	group.GET("/:id", h.get)
	group.POST("", RequireAdmin(), h.create)
	group.PUT("/:id", RequireAdmin(), h.update)
}

// @Summary List products
// @Tags products
// @Router /api/products [get]
func (h *ProductHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListProductsParams{
		Limit:   limit,
		Offset:  offset,
		Type:    strQueryPtr(c, "type"),
		Name:    strQueryPtr(c, "q"),
		OrderBy: "created_at",
		Asc:     boolPtr(false),
	}
	items, err := h.Repo.ListProducts(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountProducts(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

// @Summary Product detail
// @Tags products
// @Router /api/products/{id} [get]
func (h *ProductHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetProductByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "product not found", nil)
		return
	}
	Ok(c, item, nil)
}

type createProductRequest struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

// @Summary Create product (admin)
// @Tags products
// @Router /api/products [post]
func (h *ProductHandler) create(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		Error(c, http.StatusBadRequest, "name required", nil)
		return
	}
	item := &models.Product{
		Name:           req.Name,
		Type:           strings.TrimSpace(req.Type),
		Description:    strings.TrimSpace(req.Description),
		ImageURL:       strings.TrimSpace(req.ImageURL),
		ShippingStatus: models.ShippingStatusInStock,
	}
	if err := h.Repo.CreateProduct(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

type updateProductRequest struct {
	Name           *string `json:"name"`
	Type           *string `json:"type"`
	Description    *string `json:"description"`
	ImageURL       *string `json:"image_url"`
	ShippingStatus *string `json:"shipping_status"`
}

// @Summary Update product (admin)
// @Tags products
// @Router /api/products/{id} [put]
func (h *ProductHandler) update(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	existing, err := h.Repo.GetProductByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if existing == nil {
		Error(c, http.StatusNotFound, "product not found", nil)
		return
	}
	var req updateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	updates := map[string]any{}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Type != nil {
		updates["type"] = strings.TrimSpace(*req.Type)
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if req.ImageURL != nil {
		updates["image_url"] = strings.TrimSpace(*req.ImageURL)
	}
	if req.ShippingStatus != nil {
		switch *req.ShippingStatus {
		case models.ShippingStatusInStock, models.ShippingStatusSold, models.ShippingStatusShipped:
			updates["shipping_status"] = *req.ShippingStatus
		default:
			Error(c, http.StatusBadRequest, "invalid shipping_status", nil)
			return
		}
	}
	if len(updates) == 0 {
		Ok(c, existing, nil)
		return
	}
	if err := h.Repo.UpdateProduct(c.Request.Context(), id, updates); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	item, err := h.Repo.GetProductByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}
