package match

import "sync"

// OrderBook holds the resting bid and ask sides for one instrument behind
// a single sync.RWMutex. Every operation that can observe or mutate book
// state — submit, cancel, fill, depth, snapshot — takes that one lock for
// its entire duration: exclusively for mutations, shared for read-only
// queries. There is no per-call relock anywhere in
// this type: a caller driving a multi-step operation (match, then apply
// fills, then rest the remainder) does so while holding the lock once,
// using the unexported locked* methods below, rather than re-entering
// through the public API and taking the lock again for each step.
type OrderBook struct {
	mu sync.RWMutex

	bids *side
	asks *side

	// Running statistics. The source keeps these as process-wide atomics;
	// here they are plain fields guarded by the same lock as everything
	// else, since every update already happens inside a locked section.
	tradeCount    int64
	totalVolume   uint64
	totalNotional uint64
}

// NewOrderBook creates an empty order book for a single instrument.
func NewOrderBook() *OrderBook {
	return &OrderBook{
		bids: newBidSide(),
		asks: newAskSide(),
	}
}

func (b *OrderBook) sideFor(s Side) *side {
	if s == Buy {
		return b.bids
	}
	return b.asks
}

func (b *OrderBook) oppositeSideFor(s Side) *side {
	if s == Buy {
		return b.asks
	}
	return b.bids
}

// --- locked* methods assume the caller already holds b.mu. They exist so
// the matching engine can drive a full submit (scan opposite side, fill,
// rest remainder) under one lock acquisition instead of one per step.

func (b *OrderBook) lockedHasOrder(id uint64) bool {
	if _, ok := b.bids.order(id); ok {
		return true
	}
	_, ok := b.asks.order(id)
	return ok
}

func (b *OrderBook) lockedRest(o *Order) {
	b.sideFor(o.Side).add(o)
}

func (b *OrderBook) lockedBestOpposite(s Side) *priceLevel {
	return b.oppositeSideFor(s).best()
}

func (b *OrderBook) lockedApplyFill(restingOrderSide Side, o *Order, fillQty uint64) {
	b.sideFor(restingOrderSide).applyFill(o, fillQty)
}

// lockedCancel removes a resting order by id and returns a copy of it as
// it stood immediately before removal, so the caller can report its
// actual remaining quantity at the moment of cancellation rather than
// assuming it was never filled.
func (b *OrderBook) lockedCancel(id uint64) (Order, bool) {
	if o, ok := b.bids.cancel(id); ok {
		return o, true
	}
	return b.asks.cancel(id)
}

func (b *OrderBook) lockedRecordTrade(price, quantity uint64) {
	b.tradeCount++
	b.totalVolume += quantity
	b.totalNotional += price * quantity
}

// TradeCount returns the number of trades executed since the last Clear.
func (b *OrderBook) TradeCount() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tradeCount
}

// TotalVolume returns the total quantity traded since the last Clear.
func (b *OrderBook) TotalVolume() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.totalVolume
}

// TotalNotional returns the total price*quantity traded since the last
// Clear.
func (b *OrderBook) TotalNotional() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.totalNotional
}

// --- self-locking public methods, for standalone inspection/tests.

// BestBid returns the highest resting bid price and its aggregate
// quantity. ok is false if there are no bids.
func (b *OrderBook) BestBid() (price, quantity uint64, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	lvl := b.bids.best()
	if lvl == nil {
		return 0, 0, false
	}
	return lvl.price, lvl.totalQty, true
}

// BestAsk returns the lowest resting ask price and its aggregate
// quantity. ok is false if there are no asks.
func (b *OrderBook) BestAsk() (price, quantity uint64, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	lvl := b.asks.best()
	if lvl == nil {
		return 0, 0, false
	}
	return lvl.price, lvl.totalQty, true
}

// Spread returns BestAsk - BestBid. ok is false unless both sides have
// at least one resting order.
func (b *OrderBook) Spread() (spread uint64, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	bidLvl := b.bids.best()
	askLvl := b.asks.best()
	if bidLvl == nil || askLvl == nil {
		return 0, false
	}
	return askLvl.price - bidLvl.price, true
}

// Depth returns up to limit price levels for each side, best price
// first.
func (b *OrderBook) Depth(limit int) (bids, asks []DepthLevel) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.bids.depth(limit), b.asks.depth(limit)
}

// FrontOfBest returns a copy of the price-time priority head on the
// given side, or false if that side is empty.
func (b *OrderBook) FrontOfBest(s Side) (Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	lvl := b.sideFor(s).best()
	if lvl == nil || lvl.head == nil {
		return Order{}, false
	}
	return *lvl.head, true
}

// OrdersAtBest returns a copy of every order resting at the best price on
// the given side, in FIFO order, or nil if that side is empty.
func (b *OrderBook) OrdersAtBest(s Side) []Order {
	b.mu.RLock()
	defer b.mu.RUnlock()

	lvl := b.sideFor(s).best()
	if lvl == nil {
		return nil
	}

	orders := make([]Order, 0, lvl.count)
	for o := lvl.head; o != nil; o = o.next {
		orders = append(orders, *o)
	}
	return orders
}

// Order returns a copy of a resting order's public fields by id.
func (b *OrderBook) Order(id uint64) (Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if o, ok := b.bids.order(id); ok {
		return *o, true
	}
	if o, ok := b.asks.order(id); ok {
		return *o, true
	}
	return Order{}, false
}

// Cancel removes a resting order by id. It reports whether the order was
// found and removed.
func (b *OrderBook) Cancel(id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, ok := b.lockedCancel(id)
	return ok
}

// OrderCount returns the total number of resting orders across both
// sides.
func (b *OrderBook) OrderCount() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.bids.orderCount() + b.asks.orderCount()
}

// IsEmpty reports whether the book has no resting orders on either side.
func (b *OrderBook) IsEmpty() bool {
	return b.OrderCount() == 0
}

// Clear removes every resting order from both sides.
func (b *OrderBook) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.bids = newBidSide()
	b.asks = newAskSide()
	b.tradeCount = 0
	b.totalVolume = 0
	b.totalNotional = 0
}

// Snapshot renders the book as human-readable text for symbol, showing up
// to levels best price levels per side, each side listed highest price
// first (so asks run worst to best and bids best to worst).
func (b *OrderBook) Snapshot(symbol string, levels int) string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	bidLvl := b.bids.best()
	askLvl := b.asks.best()
	spread, hasSpread := uint64(0), false
	if bidLvl != nil && askLvl != nil {
		spread, hasSpread = askLvl.price-bidLvl.price, true
	}

	totalOrders := b.bids.orderCount() + b.asks.orderCount()

	return renderSnapshot(symbol, b.bids.depth(levels), b.asks.depth(levels), spread, hasSpread, totalOrders)
}
