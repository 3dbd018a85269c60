package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Criezzz/auctionBackend/internal/auction"
	"github.com/Criezzz/auctionBackend/internal/fanout"
	"github.com/Criezzz/auctionBackend/internal/repository"
)

const (
	streamWriteWait = 10 * time.Second
	streamPongWait  = 60 * time.Second
	streamPingEvery = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The gateway terminates origins; the service accepts whatever it forwards.
	CheckOrigin: func(*http.Request) bool { return true },
}

// StreamHandler exposes the fanout bus over websocket and SSE transports.
// Auction rooms are public spectator streams; the notification stream carries
// the calling account's events only.
type StreamHandler struct {
	Bus     *fanout.Bus
	Repo    repository.Store
	Arbiter *auction.Arbiter
	Logger  *zap.Logger
}

func (h *StreamHandler) Register(r *gin.Engine) {
	r.GET("/ws/auctions/:id", h.auctionSocket)
	r.GET("/ws/notifications", RequireAccount(), h.notificationSocket)
	r.GET("/sse/auctions/:id", h.auctionStream)
	r.GET("/sse/notifications", RequireAccount(), h.notificationStream)
}

// @Summary Auction room websocket
// @Tags stream
// @Router /ws/auctions/{id} [get]
func (h *StreamHandler) auctionSocket(c *gin.Context) {
	if h.Bus == nil || h.Arbiter == nil {
		Error(c, http.StatusServiceUnavailable, "stream unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	// Subscribe before the snapshot so nothing published in between is lost;
	// queued events drain right after the first frame.
	sub := h.Bus.SubscribeAuction(id)
	snap, err := h.Arbiter.Snapshot(c.Request.Context(), id)
	if err != nil {
		h.Bus.Unsubscribe(sub.ID)
		respondDomainError(c, err)
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Bus.Unsubscribe(sub.ID)
		if h.Logger != nil {
			h.Logger.Warn("websocket upgrade failed", zap.Uint64("auction_id", id), zap.Error(err))
		}
		return
	}
	go h.readPump(conn, sub.ID)
	go h.writePump(conn, sub, auctionStateEvent(snap))
}

// @Summary Account notification websocket
// @Tags stream
// @Router /ws/notifications [get]
func (h *StreamHandler) notificationSocket(c *gin.Context) {
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
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Bus.Unsubscribe(sub.ID)
		if h.Logger != nil {
			h.Logger.Warn("websocket upgrade failed", zap.Uint64("account_id", account), zap.Error(err))
		}
		return
	}
	first := fanout.Event{
		Kind:      "connected",
		AccountID: account,
		At:        time.Now().UTC(),
		Payload:   map[string]any{"unread": unread},
	}
	go h.readPump(conn, sub.ID)
	go h.writePump(conn, sub, first)
}

// auctionStateEvent is the resync anchor: everything a late joiner needs to
// render the room before incremental events apply.
func auctionStateEvent(snap *auction.Snapshot) fanout.Event {
	ev := fanout.Event{
		Kind:      "auction_state",
		AuctionID: snap.Auction.ID,
		At:        time.Now().UTC(),
		Payload: map[string]any{
			"status":         snap.Auction.Status,
			"end_time":       snap.Auction.EndTime.UTC().Format(timeFormat),
			"bid_count":      snap.BidCount,
			"min_next_price": snap.MinNext,
		},
	}
	if snap.Highest != nil {
		ev.Payload["highest_price"] = snap.Highest.Price
		ev.Payload["highest_account_id"] = snap.Highest.AccountID
	}
	return ev
}

func (h *StreamHandler) writePump(conn *websocket.Conn, sub *fanout.Subscription, first fanout.Event) {
	ticker := time.NewTicker(streamPingEvery)
	defer func() {
		ticker.Stop()
		h.Bus.Unsubscribe(sub.ID)
		conn.Close()
	}()

	if err := writeEvent(conn, first); err != nil {
		return
	}
	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := writeEvent(conn, ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, ev fanout.Event) error {
	conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(ev)
}

// readPump drains inbound frames so pongs are processed and the close
// handshake is seen. The stream is one way; client payloads are ignored.
func (h *StreamHandler) readPump(conn *websocket.Conn, subID string) {
	defer func() {
		h.Bus.Unsubscribe(subID)
		conn.Close()
	}()
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && h.Logger != nil {
				h.Logger.Debug("websocket closed", zap.String("sub_id", subID), zap.Error(err))
			}
			return
		}
	}
}
