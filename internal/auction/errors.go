package auction

import "errors"

var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrBidNotFound     = errors.New("bid not found")

	// ErrAuctionNotOpen rejects bids outside the active window and finalize
	// on a cancelled auction.
	ErrAuctionNotOpen = errors.New("auction is not open for bidding")

	// ErrAuctionNotEnded rejects finalize while the auction can still take
	// bids.
	ErrAuctionNotEnded = errors.New("auction has not ended")

	ErrDepositRequired  = errors.New("completed deposit required before bidding")
	ErrBidTooLow        = errors.New("bid is below the minimum price")
	ErrNotOwner         = errors.New("caller does not own this bid")
	ErrCancelNotAllowed = errors.New("bid cannot be cancelled")

	ErrNotEditable     = errors.New("auction can no longer be edited")
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidSchedule = errors.New("end time must be after start time")
)
