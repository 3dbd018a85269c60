package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Criezzz/auctionBackend/internal/auction"
	"github.com/Criezzz/auctionBackend/internal/models"
	"github.com/Criezzz/auctionBackend/internal/paytoken"
	"github.com/Criezzz/auctionBackend/internal/repository"
)

type PaymentHandler struct {
	Repo        repository.Store
	Arbiter     *auction.Arbiter
	Coordinator *paytoken.Coordinator
}

func (h *PaymentHandler) Register(r *gin.Engine) {
	group := r.Group("/api/payments")
	group.POST("", RequireAccount(), h.createFinal)
	group.GET("", RequireAdmin(), h.listAll)
	group.GET("/my", RequireAccount(), h.myPayments)
	group.GET("/:id", RequireAccount(), h.get)
	group.POST("/:id/token", RequireAccount(), h.reissueToken)
	group.POST("/:id/process", RequireAccount(), h.process)

	// The bank reaches these without a session.
	group.POST("/qr-callback/:token", h.qrCallback)
	group.GET("/token/:token/status", h.tokenStatus)
}

type invoiceResponse struct {
	Payment   *models.Payment `json:"payment"`
	Token     string          `json:"token"`
	ExpiresAt string          `json:"expires_at"`
	QRCode    string          `json:"qr_code,omitempty"`
	BankRef   string          `json:"bank_ref,omitempty"`
}

func toInvoiceResponse(inv *paytoken.Invoice) invoiceResponse {
	return invoiceResponse{
		Payment:   inv.Payment,
		Token:     inv.Token,
		ExpiresAt: inv.ExpiresAt.Format(timeFormat),
		QRCode:    inv.QRCode,
		BankRef:   inv.BankRef,
	}
}

type createPaymentRequest struct {
	AuctionID uint64 `json:"auction_id"`
}

// @Summary Open the final payment for a won auction
// @Tags payments
// @Router /api/payments [post]
func (h *PaymentHandler) createFinal(c *gin.Context) {
	if h.Arbiter == nil || h.Coordinator == nil {
		Error(c, http.StatusServiceUnavailable, "payment coordinator unavailable", nil)
		return
	}
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AuctionID == 0 {
		Error(c, http.StatusBadRequest, "auction_id required", nil)
		return
	}
	// Settles the auction if the sweep has not caught it yet; a no-op once
	// ended.
	item, err := h.Arbiter.Finalize(c.Request.Context(), req.AuctionID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	account := accountID(c)
	if item.WinnerID == nil || *item.WinnerID != account {
		Error(c, http.StatusForbidden, "only the auction winner can open this payment", nil)
		return
	}
	highest, err := h.Arbiter.HighestBid(c.Request.Context(), req.AuctionID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if highest == nil {
		Error(c, http.StatusBadRequest, "auction closed without bids", nil)
		return
	}
	inv, err := h.Coordinator.CreateFinalPayment(c.Request.Context(), item, account, highest.Price)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	Ok(c, toInvoiceResponse(inv), nil)
}

// @Summary List payments (admin)
// @Tags payments
// @Router /api/payments [get]
func (h *PaymentHandler) listAll(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListPaymentsParams{
		Limit:     limit,
		Offset:    offset,
		AuctionID: uint64QueryPtr(c, "auction_id"),
		AccountID: uint64QueryPtr(c, "account_id"),
		Kind:      strQueryPtr(c, "kind"),
		Status:    strQueryPtr(c, "status"),
		OrderBy:   "created_at",
		Asc:       boolPtr(false),
	}
	items, err := h.Repo.ListPayments(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountPayments(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

// @Summary List own payments
// @Tags payments
// @Router /api/payments/my [get]
func (h *PaymentHandler) myPayments(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	account := accountID(c)
	params := repository.ListPaymentsParams{
		Limit:     limit,
		Offset:    offset,
		AccountID: &account,
		AuctionID: uint64QueryPtr(c, "auction_id"),
		Kind:      strQueryPtr(c, "kind"),
		Status:    strQueryPtr(c, "status"),
		OrderBy:   "created_at",
		Asc:       boolPtr(false),
	}
	items, err := h.Repo.ListPayments(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountPayments(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

// loadOwnPayment fetches a payment the caller may act on: the owner, or an
// admin. Writes the error response itself and returns nil when it did.
func (h *PaymentHandler) loadOwnPayment(c *gin.Context) *models.Payment {
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return nil
	}
	item, err := h.Repo.GetPaymentByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return nil
	}
	if item == nil {
		Error(c, http.StatusNotFound, "payment not found", nil)
		return nil
	}
	if item.AccountID != accountID(c) && !isAdmin(c) {
		Error(c, http.StatusForbidden, "not your payment", nil)
		return nil
	}
	return item
}

// @Summary Payment detail
// @Tags payments
// @Router /api/payments/{id} [get]
func (h *PaymentHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	item := h.loadOwnPayment(c)
	if item == nil {
		return
	}
	Ok(c, item, nil)
}

// @Summary Fresh token and QR for a pending payment
// @Tags payments
// @Router /api/payments/{id}/token [post]
func (h *PaymentHandler) reissueToken(c *gin.Context) {
	if h.Repo == nil || h.Coordinator == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	item := h.loadOwnPayment(c)
	if item == nil {
		return
	}
	inv, err := h.Coordinator.Reissue(c.Request.Context(), item)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	Ok(c, toInvoiceResponse(inv), nil)
}

type processPaymentRequest struct {
	Token string `json:"token"`
}

// @Summary Settle a payment from the web flow
// @Tags payments
// @Router /api/payments/{id}/process [post]
func (h *PaymentHandler) process(c *gin.Context) {
	if h.Repo == nil || h.Coordinator == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	item := h.loadOwnPayment(c)
	if item == nil {
		return
	}
	var req processPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		Error(c, http.StatusBadRequest, "token required", nil)
		return
	}
	red, err := h.Coordinator.Redeem(c.Request.Context(), strings.TrimSpace(req.Token))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if red.Payment == nil || red.Payment.ID != item.ID {
		Error(c, http.StatusBadRequest, "token does not belong to this payment", nil)
		return
	}
	Ok(c, redemptionPayload(red), nil)
}

// @Summary Bank QR callback; racing scans settle the payment exactly once
// @Tags payments
// @Router /api/payments/qr-callback/{token} [post]
func (h *PaymentHandler) qrCallback(c *gin.Context) {
	if h.Coordinator == nil {
		Error(c, http.StatusServiceUnavailable, "payment coordinator unavailable", nil)
		return
	}
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		Error(c, http.StatusBadRequest, "token required", nil)
		return
	}
	red, err := h.Coordinator.Redeem(c.Request.Context(), token)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	Ok(c, redemptionPayload(red), nil)
}

func redemptionPayload(red *paytoken.Redemption) gin.H {
	out := gin.H{"status": string(red.Outcome)}
	if red.Payment != nil {
		out["payment_id"] = red.Payment.ID
		out["payment_status"] = red.Payment.Status
		out["amount"] = red.Payment.Amount.String()
		out["kind"] = red.Payment.Kind
	}
	return out
}

// @Summary Read-only token status for polling clients
// @Tags payments
// @Router /api/payments/token/{token}/status [get]
func (h *PaymentHandler) tokenStatus(c *gin.Context) {
	if h.Coordinator == nil {
		Error(c, http.StatusServiceUnavailable, "payment coordinator unavailable", nil)
		return
	}
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		Error(c, http.StatusBadRequest, "token required", nil)
		return
	}
	st, err := h.Coordinator.Status(c.Request.Context(), token)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	Ok(c, gin.H{
		"valid":             st.Valid,
		"used":              st.Used,
		"expired":           st.Expired,
		"remaining_seconds": st.RemainingSeconds,
		"expires_at":        st.ExpiresAt.Format(timeFormat),
	}, nil)
}
