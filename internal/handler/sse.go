package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Criezzz/auctionBackend/internal/fanout"
)

const sseHeartbeat = 15 * time.Second

// @Summary Auction room event stream
// @Tags stream
// @Router /sse/auctions/{id} [get]
func (h *StreamHandler) auctionStream(c *gin.Context) {
	if h.Bus == nil || h.Arbiter == nil {
		Error(c, http.StatusServiceUnavailable, "stream unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	sub := h.Bus.SubscribeAuction(id)
	snap, err := h.Arbiter.Snapshot(c.Request.Context(), id)
	if err != nil {
		h.Bus.Unsubscribe(sub.ID)
		respondDomainError(c, err)
		return
	}
	h.serveSSE(c, sub.ID, sub.C, auctionStateEvent(snap))
}

// @Summary Account notification event stream
// @Tags stream
// @Router /sse/notifications [get]
func (h *StreamHandler) notificationStream(c *gin.Context) {
	if h.Bus == nil || h.Repo == nil {
		Error(c, http.StatusServiceUnavailable, "stream unavailable", nil)
		return
	}
	account := accountID(c)
	sub := h.Bus.SubscribeAccount(account)
	unread, err := h.Repo.CountUnreadNotifications(c.Request.Context(), account)
	if err != nil {
		h.Bus.Unsubscribe(sub.ID)
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	first := fanout.Event{
		Kind:      "connected",
		AccountID: account,
		At:        time.Now().UTC(),
		Payload:   map[string]any{"unread": unread},
	}
	h.serveSSE(c, sub.ID, sub.C, first)
}

// serveSSE writes the snapshot frame, then relays bus events until the client
// disconnects. The heartbeat keeps intermediaries from timing the stream out
// and gives gin a chance to notice a gone client between events.
func (h *StreamHandler) serveSSE(c *gin.Context, subID string, events <-chan fanout.Event, first fanout.Event) {
	defer h.Bus.Unsubscribe(subID)

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	c.SSEvent(first.Kind, first)
	c.Writer.Flush()

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(ev.Kind, ev)
			return true
		case <-heartbeat.C:
			c.SSEvent("heartbeat", time.Now().UTC().Format(timeFormat))
			return true
		}
	})
}
