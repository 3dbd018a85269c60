package paytoken

import "errors"

var (
	ErrTokenNotFound = errors.New("payment token not found")
	ErrTokenExpired  = errors.New("payment token expired")

	// ErrPaymentNotPending aborts a redemption whose payment already left
	// pending through another path, for example a refund. The transaction
	// rolls back so the token survives.
	ErrPaymentNotPending = errors.New("payment is not pending")

	ErrPaymentExists = errors.New("payment already exists for this auction")
)
