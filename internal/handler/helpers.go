package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/Criezzz/auctionBackend/internal/auction"
	"github.com/Criezzz/auctionBackend/internal/deposit"
	"github.com/Criezzz/auctionBackend/internal/paytoken"
)

const timeFormat = time.RFC3339

func parseUint64(v string) uint64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	var out uint64
	for i := 0; i < len(v); i++ {
		ch := v[i]
		if ch < '0' || ch > '9' {
			return 0
		}
		out = out*10 + uint64(ch-'0')
	}
	return out
}

func uint64Param(c *gin.Context, key string) uint64 {
	return parseUint64(c.Param(key))
}

func uint64QueryPtr(c *gin.Context, key string) *uint64 {
	if v := strings.TrimSpace(c.Query(key)); v != "" {
		if id := parseUint64(v); id > 0 {
			return &id
		}
	}
	return nil
}

func intQuery(c *gin.Context, key string, def int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

func strQueryPtr(c *gin.Context, key string) *string {
	if val := strings.TrimSpace(c.Query(key)); val != "" {
		return &val
	}
	return nil
}

func boolPtr(v bool) *bool { return &v }

func decimalQueryPtr(c *gin.Context, key string) *decimal.Decimal {
	if val := strings.TrimSpace(c.Query(key)); val != "" {
		if d, err := decimal.NewFromString(val); err == nil {
			return &d
		}
	}
	return nil
}

func paginationMeta(limit, offset int, total int64) map[string]any {
	if limit <= 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	hasNext := int64(offset+limit) < total
	return map[string]any{
		"limit":    limit,
		"offset":   offset,
		"total":    total,
		"has_next": hasNext,
	}
}

// respondDomainError maps business sentinels to client-facing status codes.
// Anything unrecognized is an infrastructure failure.
func respondDomainError(c *gin.Context, err error) {
	Error(c, domainStatus(err), err.Error(), nil)
}

func domainStatus(err error) int {
	switch {
	case errors.Is(err, auction.ErrAuctionNotFound),
		errors.Is(err, auction.ErrBidNotFound),
		errors.Is(err, auction.ErrProductNotFound),
		errors.Is(err, paytoken.ErrTokenNotFound),
		errors.Is(err, deposit.ErrNotRegistered):
		return http.StatusNotFound
	case errors.Is(err, auction.ErrNotOwner),
		errors.Is(err, auction.ErrDepositRequired):
		return http.StatusForbidden
	case errors.Is(err, auction.ErrAuctionNotOpen),
		errors.Is(err, auction.ErrAuctionNotEnded),
		errors.Is(err, auction.ErrBidTooLow),
		errors.Is(err, auction.ErrCancelNotAllowed),
		errors.Is(err, auction.ErrInvalidSchedule),
		errors.Is(err, auction.ErrNotEditable),
		errors.Is(err, deposit.ErrRegistrationClosed),
		errors.Is(err, deposit.ErrAlreadyRegistered),
		errors.Is(err, deposit.ErrAuctionFull),
		errors.Is(err, paytoken.ErrTokenExpired),
		errors.Is(err, paytoken.ErrPaymentNotPending),
		errors.Is(err, paytoken.ErrPaymentExists):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}
