package fanout

import "time"

const (
	EventBidCommitted     = "bid_committed"
	EventOutbid           = "outbid"
	EventAuctionExtended  = "auction_extended"
	EventAuctionEnded     = "auction_ended"
	EventPaymentCompleted = "payment_completed"

	// EventResync tells a subscriber that earlier events were dropped and it
	// should re-fetch current state before trusting the stream again.
	EventResync = "resync"
)

// Event is an immutable fact published by the arbiter or the payment
// coordinator. Routing is structural: a non-zero AccountID targets that
// account's channels only; otherwise a non-zero AuctionID broadcasts to the
// auction's group.
type Event struct {
	Kind      string         `json:"kind"`
	AuctionID uint64         `json:"auction_id,omitempty"`
	AccountID uint64         `json:"account_id,omitempty"`
	At        time.Time      `json:"at"`
	Payload   map[string]any `json:"payload,omitempty"`
}
