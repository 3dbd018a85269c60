package handler

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	headerAccountID   = "X-Account-ID"
	headerAccountRole = "X-Account-Role"

	ctxAccountID   = "account_id"
	ctxAccountRole = "account_role"
)

// AccountMiddleware copies the identity headers injected by the upstream
// gateway into the request context. The gateway owns authentication; this
// service only trusts what it forwards.
func AccountMiddleware() gin.HandlerFunc {
	devAccount := parseUint64(os.Getenv("AUCTION_DEV_ACCOUNT"))
	devRole := strings.ToLower(strings.TrimSpace(os.Getenv("AUCTION_DEV_ROLE")))

	return func(c *gin.Context) {
		id := parseUint64(c.GetHeader(headerAccountID))
		role := strings.ToLower(strings.TrimSpace(c.GetHeader(headerAccountRole)))
		if id == 0 && devAccount > 0 {
			id = devAccount
			role = devRole
		}
		if id > 0 {
			c.Set(ctxAccountID, id)
		}
		if role != "" {
			c.Set(ctxAccountRole, role)
		}
		c.Next()
	}
}

func RequireAccount() gin.HandlerFunc {
	return func(c *gin.Context) {
		if accountID(c) == 0 {
			Error(c, http.StatusUnauthorized, "account identity required", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if accountID(c) == 0 {
			Error(c, http.StatusUnauthorized, "account identity required", nil)
			c.Abort()
			return
		}
		if !isAdmin(c) {
			Error(c, http.StatusForbidden, "admin access required", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// WriteAuditMiddleware logs every API write after the handler finishes.
func WriteAuditMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		method := strings.ToUpper(c.Request.Method)
		if !strings.HasPrefix(path, "/api/") {
			return
		}
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			return
		}

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.Uint64("account_id", accountID(c)),
		}
		switch {
		case status >= 500:
			logger.Error("api write", fields...)
		case status >= 400:
			logger.Warn("api write", fields...)
		default:
			logger.Info("api write", fields...)
		}
	}
}

func accountID(c *gin.Context) uint64 {
	if v, ok := c.Get(ctxAccountID); ok {
		if id, ok := v.(uint64); ok {
			return id
		}
	}
	return 0
}

func accountRole(c *gin.Context) string {
	if v, ok := c.Get(ctxAccountRole); ok {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}

func isAdmin(c *gin.Context) bool {
	return accountRole(c) == "admin"
}
