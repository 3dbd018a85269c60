package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Criezzz/auctionBackend/internal/repository"
)

type NotificationHandler struct {
	Repo repository.Store
}

func (h *NotificationHandler) Register(r *gin.Engine) {
	group := r.Group("/api/notifications", RequireAccount())
	group.GET("", h.list)
	group.GET("/unread-count", h.unreadCount)
	group.POST("/:id/read", h.markRead)
	group.POST("/read-all", h.markAllRead)
	group.DELETE("/:id", h.remove)
}

// @Summary List own notifications
// @Tags notifications
// @Router /api/notifications [get]
func (h *NotificationHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	account := accountID(c)
	params := repository.ListNotificationsParams{
		Limit:      limit,
		Offset:     offset,
		AccountID:  &account,
		AuctionID:  uint64QueryPtr(c, "auction_id"),
		UnreadOnly: c.Query("unread") == "true",
		OrderBy:    "created_at",
		Asc:        boolPtr(false),
	}
	items, err := h.Repo.ListNotifications(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountNotifications(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

// @Summary Unread notification count
// @Tags notifications
// @Router /api/notifications/unread-count [get]
func (h *NotificationHandler) unreadCount(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	count, err := h.Repo.CountUnreadNotifications(c.Request.Context(), accountID(c))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"unread": count}, nil)
}

// @Summary Mark one notification read
// @Tags notifications
// @Router /api/notifications/{id}/read [post]
func (h *NotificationHandler) markRead(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	rows, err := h.Repo.MarkNotificationRead(c.Request.Context(), id, accountID(c), time.Now().UTC())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if rows == 0 {
		Error(c, http.StatusNotFound, "notification not found", nil)
		return
	}
	Ok(c, gin.H{"read": id}, nil)
}

// @Summary Mark all notifications read
// @Tags notifications
// @Router /api/notifications/read-all [post]
func (h *NotificationHandler) markAllRead(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	rows, err := h.Repo.MarkAllNotificationsRead(c.Request.Context(), accountID(c), time.Now().UTC())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"marked": rows}, nil)
}

// @Summary Delete an own notification
// @Tags notifications
// @Router /api/notifications/{id} [delete]
func (h *NotificationHandler) remove(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	rows, err := h.Repo.DeleteNotification(c.Request.Context(), id, accountID(c))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if rows == 0 {
		Error(c, http.StatusNotFound, "notification not found", nil)
		return
	}
	Ok(c, gin.H{"deleted": id}, nil)
}
