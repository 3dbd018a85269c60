package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/Criezzz/auctionBackend/internal/auction"
	"github.com/Criezzz/auctionBackend/internal/models"
	"github.com/Criezzz/auctionBackend/internal/repository"
)

type BidHandler struct {
	Repo    repository.Store
	Arbiter *auction.Arbiter
}

func (h *BidHandler) Register(r *gin.Engine) {
	b := r.Group("/api/bids")
	b.POST("", RequireAccount(), h.place)
	b.POST("/:id/cancel", RequireAccount(), h.cancel)
	b.GET("/my", RequireAccount(), h.myBids)

	a := r.Group("/api/auctions")
	a.GET("/:id/bids", h.auctionBids)
	a.GET("/:id/bids/highest", h.highest)
}

type placeBidRequest struct {
	AuctionID uint64 `json:"auction_id"`
	Price     string `json:"price"`
}

type placeBidResponse struct {
	Bid      *models.Bid `json:"bid"`
	EndTime  string      `json:"end_time"`
	Extended bool        `json:"extended"`
}

// @Summary Place a bid
// @Tags bids
// @Router /api/bids [post]
func (h *BidHandler) place(c *gin.Context) {
	if h.Arbiter == nil {
		Error(c, http.StatusServiceUnavailable, "arbiter unavailable", nil)
		return
	}
	var req placeBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if req.AuctionID == 0 {
		Error(c, http.StatusBadRequest, "auction_id required", nil)
		return
	}
	price, err := decimal.NewFromString(strings.TrimSpace(req.Price))
	if err != nil || !price.IsPositive() {
		Error(c, http.StatusBadRequest, "invalid price", nil)
		return
	}
	result, err := h.Arbiter.Submit(c.Request.Context(), req.AuctionID, accountID(c), price)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	Ok(c, placeBidResponse{
		Bid:      result.Bid,
		EndTime:  result.Auction.EndTime.Format(timeFormat),
		Extended: result.Extended,
	}, nil)
}

// @Summary Cancel an own active bid
// @Tags bids
// @Router /api/bids/{id}/cancel [post]
func (h *BidHandler) cancel(c *gin.Context) {
	if h.Arbiter == nil {
		Error(c, http.StatusServiceUnavailable, "arbiter unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Arbiter.Cancel(c.Request.Context(), id, accountID(c))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	Ok(c, item, nil)
}

// @Summary List own bids
// @Tags bids
// @Router /api/bids/my [get]
func (h *BidHandler) myBids(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	account := accountID(c)
	params := repository.ListBidsParams{
		Limit:     limit,
		Offset:    offset,
		AccountID: &account,
		AuctionID: uint64QueryPtr(c, "auction_id"),
		Status:    strQueryPtr(c, "status"),
		OrderBy:   "created_at",
		Asc:       boolPtr(false),
	}
	items, err := h.Repo.ListBids(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountBids(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

// @Summary Bid history for an auction
// @Tags bids
// @Router /api/auctions/{id}/bids [get]
func (h *BidHandler) auctionBids(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	limit := intQuery(c, "limit", 100)
	offset := intQuery(c, "offset", 0)
	params := repository.ListBidsParams{
		Limit:     limit,
		Offset:    offset,
		AuctionID: &id,
		Status:    strQueryPtr(c, "status"),
		OrderBy:   "price",
		Asc:       boolPtr(false),
	}
	items, err := h.Repo.ListBids(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountBids(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

// @Summary Current highest active bid
// @Tags bids
// @Router /api/auctions/{id}/bids/highest [get]
func (h *BidHandler) highest(c *gin.Context) {
	if h.Arbiter == nil {
		Error(c, http.StatusServiceUnavailable, "arbiter unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Arbiter.HighestBid(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "no active bids", nil)
		return
	}
	Ok(c, item, nil)
}
