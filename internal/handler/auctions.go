package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/Criezzz/auctionBackend/internal/auction"
	"github.com/Criezzz/auctionBackend/internal/models"
	"github.com/Criezzz/auctionBackend/internal/repository"
)

type AuctionHandler struct {
	Repo    repository.Store
	Arbiter *auction.Arbiter
}

func (h *AuctionHandler) Register(r *gin.Engine) {
	group := r.Group("/api/auctions")
	group.GET("", h.list)
	group.GET("/:id", h.get)
	group.POST("", RequireAdmin(), h.create)
	group.PUT("/:id", RequireAdmin(), h.update)
	group.DELETE("/:id", RequireAdmin(), h.remove)
	group.POST("/:id/cancel", RequireAdmin(), h.cancel)
	group.POST("/:id/finalize", RequireAdmin(), h.finalize)
}

// @Summary List auctions
// @Tags auctions
// @Success 200 {object} map[string]any
// @Router /api/auctions [get]
func (h *AuctionHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListAuctionsParams{
		Limit:        limit,
		Offset:       offset,
		Status:       strQueryPtr(c, "status"),
		Name:         strQueryPtr(c, "q"),
		ProductID:    uint64QueryPtr(c, "product_id"),
		MinPriceStep: decimalQueryPtr(c, "price_min"),
		MaxPriceStep: decimalQueryPtr(c, "price_max"),
		OrderBy:      orderColumn(c.Query("order_by")),
		Asc:          boolPtr(strings.EqualFold(c.Query("order"), "asc")),
	}
	items, err := h.Repo.ListAuctions(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountAuctions(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

func orderColumn(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "start_time":
		return "start_time"
	case "end_time":
		return "end_time"
	case "price_step":
		return "price_step"
	default:
		return "created_at"
	}
}

type auctionDetail struct {
	Auction      *models.Auction `json:"auction"`
	Product      *models.Product `json:"product,omitempty"`
	HighestBid   *models.Bid     `json:"highest_bid,omitempty"`
	BidCount     int64           `json:"bid_count"`
	MinNextPrice decimal.Decimal `json:"min_next_price"`
	Participants int64           `json:"participants"`
}

// @Summary Auction detail with product, highest bid and participation counters
// @Tags auctions
// @Success 200 {object} map[string]any
// @Router /api/auctions/{id} [get]
func (h *AuctionHandler) get(c *gin.Context) {
	if h.Repo == nil || h.Arbiter == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	snap, err := h.Arbiter.Snapshot(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	product, err := h.Repo.GetProductByID(c.Request.Context(), snap.Auction.ProductID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	participants, err := h.Repo.CountDepositHolders(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, auctionDetail{
		Auction:      snap.Auction,
		Product:      product,
		HighestBid:   snap.Highest,
		BidCount:     snap.BidCount,
		MinNextPrice: snap.MinNext,
		Participants: participants,
	}, nil)
}

type createAuctionRequest struct {
	Name      string `json:"name"`
	ProductID uint64 `json:"product_id"`
	PriceStep string `json:"price_step"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// @Summary Create auction (admin)
// @Tags auctions
// @Router /api/auctions [post]
func (h *AuctionHandler) create(c *gin.Context) {
	if h.Arbiter == nil {
		Error(c, http.StatusServiceUnavailable, "arbiter unavailable", nil)
		return
	}
	var req createAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.ProductID == 0 {
		Error(c, http.StatusBadRequest, "name and product_id required", nil)
		return
	}
	step, err := decimal.NewFromString(strings.TrimSpace(req.PriceStep))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid price_step", nil)
		return
	}
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartTime))
	if err != nil {
		Error(c, http.StatusBadRequest, "start_time must be RFC3339", nil)
		return
	}
	end, err := time.Parse(time.RFC3339, strings.TrimSpace(req.EndTime))
	if err != nil {
		Error(c, http.StatusBadRequest, "end_time must be RFC3339", nil)
		return
	}
	item, err := h.Arbiter.CreateAuction(c.Request.Context(), auction.CreateParams{
		Name:      req.Name,
		ProductID: req.ProductID,
		PriceStep: step,
		StartTime: start,
		EndTime:   end,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	Ok(c, item, nil)
}

type updateAuctionRequest struct {
	Name      *string `json:"name"`
	PriceStep *string `json:"price_step"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
}

// @Summary Update a pending auction (admin)
// @Tags auctions
// @Router /api/auctions/{id} [put]
func (h *AuctionHandler) update(c *gin.Context) {
	if h.Arbiter == nil {
		Error(c, http.StatusServiceUnavailable, "arbiter unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var req updateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	var params auction.UpdateParams
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		params.Name = &name
	}
	if req.PriceStep != nil {
		step, err := decimal.NewFromString(strings.TrimSpace(*req.PriceStep))
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid price_step", nil)
			return
		}
		params.PriceStep = &step
	}
	if req.StartTime != nil {
		start, err := time.Parse(time.RFC3339, strings.TrimSpace(*req.StartTime))
		if err != nil {
			Error(c, http.StatusBadRequest, "start_time must be RFC3339", nil)
			return
		}
		params.StartTime = &start
	}
	if req.EndTime != nil {
		end, err := time.Parse(time.RFC3339, strings.TrimSpace(*req.EndTime))
		if err != nil {
			Error(c, http.StatusBadRequest, "end_time must be RFC3339", nil)
			return
		}
		params.EndTime = &end
	}
	item, err := h.Arbiter.UpdateAuction(c.Request.Context(), id, params)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	Ok(c, item, nil)
}

// @Summary Delete a pending auction (admin)
// @Tags auctions
// @Router /api/auctions/{id} [delete]
func (h *AuctionHandler) remove(c *gin.Context) {
	if h.Arbiter == nil {
		Error(c, http.StatusServiceUnavailable, "arbiter unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	if err := h.Arbiter.DeleteAuction(c.Request.Context(), id); err != nil {
		respondDomainError(c, err)
		return
	}
	Ok(c, gin.H{"deleted": id}, nil)
}

// @Summary Cancel an auction (admin)
// @Tags auctions
// @Router /api/auctions/{id}/cancel [post]
func (h *AuctionHandler) cancel(c *gin.Context) {
	if h.Arbiter == nil {
		Error(c, http.StatusServiceUnavailable, "arbiter unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Arbiter.CancelAuction(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	Ok(c, item, nil)
}

// @Summary Finalize an ended auction, freezing the winner (admin)
// @Tags auctions
// @Router /api/auctions/{id}/finalize [post]
func (h *AuctionHandler) finalize(c *gin.Context) {
	if h.Arbiter == nil {
		Error(c, http.StatusServiceUnavailable, "arbiter unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Arbiter.Finalize(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	Ok(c, item, nil)
}
