package fanout

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Bus decouples event producers from connected observers. Producers publish
// onto a bounded intake queue and never block; a single consumer routes each
// event to the registered subscriptions. A slow subscriber loses events for
// itself only and is handed a resync marker once its channel drains.
type Bus struct {
	queue  chan Event
	subBuf int
	logger *zap.Logger

	mu        sync.RWMutex
	byAuction map[uint64]map[string]*subscription
	byAccount map[uint64]map[string]*subscription

	droppedIntake uint64
	droppedFanout uint64
}

type subscription struct {
	id         string
	auctionID  uint64
	accountID  uint64
	ch         chan Event
	needResync uint32
}

// Subscription is the receiver half handed to a transport. Events arrive on C
// in publish order until Unsubscribe closes it.
type Subscription struct {
	ID string
	C  <-chan Event
}

func New(queueSize, subscriberBuffer int, logger *zap.Logger) *Bus {
	if queueSize <= 0 {
		queueSize = 256
	}
	if subscriberBuffer <= 0 {
		subscriberBuffer = 32
	}
	return &Bus{
		queue:     make(chan Event, queueSize),
		subBuf:    subscriberBuffer,
		logger:    logger,
		byAuction: map[uint64]map[string]*subscription{},
		byAccount: map[uint64]map[string]*subscription{},
	}
}

// Publish enqueues without blocking. When the intake queue is saturated the
// event is dropped and counted; the arbitration path is never slowed down.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	select {
	case b.queue <- ev:
	default:
		atomic.AddUint64(&b.droppedIntake, 1)
	}
}

func (b *Bus) SubscribeAuction(auctionID uint64) *Subscription {
	return b.subscribe(auctionID, 0)
}

func (b *Bus) SubscribeAccount(accountID uint64) *Subscription {
	return b.subscribe(0, accountID)
}

func (b *Bus) subscribe(auctionID, accountID uint64) *Subscription {
	sub := &subscription{
		id:        uuid.NewString(),
		auctionID: auctionID,
		accountID: accountID,
		ch:        make(chan Event, b.subBuf),
	}
	b.mu.Lock()
	if auctionID != 0 {
		group, ok := b.byAuction[auctionID]
		if !ok {
			group = map[string]*subscription{}
			b.byAuction[auctionID] = group
		}
		group[sub.id] = sub
	}
	if accountID != 0 {
		group, ok := b.byAccount[accountID]
		if !ok {
			group = map[string]*subscription{}
			b.byAccount[accountID] = group
		}
		group[sub.id] = sub
	}
	b.mu.Unlock()
	return &Subscription{ID: sub.id, C: sub.ch}
}

// Unsubscribe removes the subscription and closes its channel. Safe against
// concurrent routing: removal happens under the write lock, so no send can be
// in flight when the channel closes.
func (b *Bus) Unsubscribe(id string) {
	if b == nil || id == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for auctionID, group := range b.byAuction {
		if sub, ok := group[id]; ok {
			delete(group, id)
			if len(group) == 0 {
				delete(b.byAuction, auctionID)
			}
			close(sub.ch)
			return
		}
	}
	for accountID, group := range b.byAccount {
		if sub, ok := group[id]; ok {
			delete(group, id)
			if len(group) == 0 {
				delete(b.byAccount, accountID)
			}
			close(sub.ch)
			return
		}
	}
}

func (b *Bus) Run(ctx context.Context) error {
	if b == nil {
		return nil
	}
	statsTicker := time.NewTicker(60 * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-statsTicker.C:
			if b.logger != nil {
				b.logger.Info("fanout stats",
					zap.Int("queued", len(b.queue)),
					zap.Int("subscriptions", b.SubscriptionCount()),
					zap.Uint64("dropped_intake", atomic.LoadUint64(&b.droppedIntake)),
					zap.Uint64("dropped_fanout", atomic.LoadUint64(&b.droppedFanout)),
				)
			}
		case ev := <-b.queue:
			b.route(ev)
		}
	}
}

func (b *Bus) route(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if ev.AccountID != 0 {
		for _, sub := range b.byAccount[ev.AccountID] {
			b.send(sub, ev)
		}
		return
	}
	if ev.AuctionID != 0 {
		for _, sub := range b.byAuction[ev.AuctionID] {
			b.send(sub, ev)
		}
	}
}

func (b *Bus) send(sub *subscription, ev Event) {
	if atomic.LoadUint32(&sub.needResync) == 1 {
		marker := Event{
			Kind:      EventResync,
			AuctionID: sub.auctionID,
			AccountID: sub.accountID,
			At:        ev.At,
		}
		select {
		case sub.ch <- marker:
			atomic.StoreUint32(&sub.needResync, 0)
		default:
			atomic.AddUint64(&b.droppedFanout, 1)
			return
		}
	}
	select {
	case sub.ch <- ev:
	default:
		// Drop when the subscriber is slow; the bus must not block.
		atomic.StoreUint32(&sub.needResync, 1)
		atomic.AddUint64(&b.droppedFanout, 1)
	}
}

func (b *Bus) SubscriptionCount() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	total := 0
	for _, group := range b.byAuction {
		total += len(group)
	}
	for _, group := range b.byAccount {
		total += len(group)
	}
	return total
}

func (b *Bus) Dropped() (intake, fanout uint64) {
	if b == nil {
		return 0, 0
	}
	return atomic.LoadUint64(&b.droppedIntake), atomic.LoadUint64(&b.droppedFanout)
}
