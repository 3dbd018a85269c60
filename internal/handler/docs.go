package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func RegisterDocs(r *gin.Engine) {
	r.GET("/docs", func(c *gin.Context) {
		c.Header("Content-Type", "text/markdown; charset=utf-8")
		c.String(http.StatusOK, `# Auction Backend

Bid arbitration, deposit gating and payment settlement for timed auctions.
The service sits behind a gateway that authenticates callers and forwards
identity in the X-Account-ID and X-Account-Role headers.

## Auth

All /api/* routes expect a forwarded account identity. Admin routes require
role "admin". Health endpoints, QR callbacks, token status checks and the
auction room streams are public.

## Notable Routes

- GET /healthz
- GET /readyz
- GET /api/auctions
- GET /api/auctions/{id}
- POST /api/auctions (admin)
- PUT /api/auctions/{id} (admin)
- DELETE /api/auctions/{id} (admin)
- POST /api/auctions/{id}/cancel (admin)
- POST /api/auctions/{id}/finalize (admin)
- GET /api/auctions/{id}/bids
- GET /api/auctions/{id}/bids/highest
- POST /api/auctions/{id}/register
- DELETE /api/auctions/{id}/register
- GET /api/auctions/{id}/registration
- GET /api/auctions/{id}/participants (admin)
- POST /api/bids
- POST /api/bids/{id}/cancel
- GET /api/bids/my
- POST /api/payments
- GET /api/payments (admin)
- GET /api/payments/my
- GET /api/payments/{id}
- POST /api/payments/{id}/token
- POST /api/payments/{id}/process
- POST /api/payments/qr-callback/{token}
- GET /api/payments/token/{token}/status
- GET /api/products
- GET /api/products/{id}
- POST /api/products (admin)
- PUT /api/products/{id} (admin)
- GET /api/notifications
- GET /api/notifications/unread-count
- POST /api/notifications/{id}/read
- POST /api/notifications/read-all
- DELETE /api/notifications/{id}
- GET /ws/auctions/{id}
- GET /ws/notifications
- GET /sse/auctions/{id}
- GET /sse/notifications
`)
	})
}
