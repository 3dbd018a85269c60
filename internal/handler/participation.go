package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Criezzz/auctionBackend/internal/deposit"
	"github.com/Criezzz/auctionBackend/internal/models"
	"github.com/Criezzz/auctionBackend/internal/repository"
)

type ParticipationHandler struct {
	Repo repository.Store
	Gate *deposit.Gate
}

func (h *ParticipationHandler) Register(r *gin.Engine) {
	a := r.Group("/api/auctions")
	a.POST("/:id/register", RequireAccount(), h.register)
	a.DELETE("/:id/register", RequireAccount(), h.unregister)
	a.GET("/:id/registration", RequireAccount(), h.status)
	a.GET("/:id/participants", RequireAdmin(), h.participants)
}

type registrationResponse struct {
	Payment   *models.Payment `json:"payment"`
	Token     string          `json:"token"`
	ExpiresAt string          `json:"expires_at"`
	QRCode    string          `json:"qr_code,omitempty"`
	BankRef   string          `json:"bank_ref,omitempty"`
}

// @Summary Register for an auction: opens the deposit payment and its QR
// @Tags participation
// @Router /api/auctions/{id}/register [post]
func (h *ParticipationHandler) register(c *gin.Context) {
	if h.Gate == nil {
		Error(c, http.StatusServiceUnavailable, "deposit gate unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	reg, err := h.Gate.Register(c.Request.Context(), id, accountID(c))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	Ok(c, registrationResponse{
		Payment:   reg.Payment,
		Token:     reg.Token,
		ExpiresAt: reg.ExpiresAt.Format(timeFormat),
		QRCode:    reg.QRCode,
		BankRef:   reg.BankRef,
	}, nil)
}

// @Summary Unregister before the start; the deposit is refunded
// @Tags participation
// @Router /api/auctions/{id}/register [delete]
func (h *ParticipationHandler) unregister(c *gin.Context) {
	if h.Gate == nil {
		Error(c, http.StatusServiceUnavailable, "deposit gate unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	if err := h.Gate.Unregister(c.Request.Context(), id, accountID(c)); err != nil {
		respondDomainError(c, err)
		return
	}
	Ok(c, gin.H{"refunded": true}, nil)
}

// @Summary Own registration standing for an auction
// @Tags participation
// @Router /api/auctions/{id}/registration [get]
func (h *ParticipationHandler) status(c *gin.Context) {
	if h.Gate == nil {
		Error(c, http.StatusServiceUnavailable, "deposit gate unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	st, err := h.Gate.Status(c.Request.Context(), id, accountID(c))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, st, nil)
}

// @Summary Deposit payments for an auction (admin)
// @Tags participation
// @Router /api/auctions/{id}/participants [get]
func (h *ParticipationHandler) participants(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	kind := models.PaymentKindDeposit
	items, err := h.Repo.ListPayments(c.Request.Context(), repository.ListPaymentsParams{
		Limit:     intQuery(c, "limit", 100),
		Offset:    intQuery(c, "offset", 0),
		AuctionID: &id,
		Kind:      &kind,
		OrderBy:   "created_at",
		Asc:       boolPtr(true),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	holders, err := h.Repo.CountDepositHolders(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"active_holders": holders})
}
