package match

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// MatchingEngine drives price-time-priority matching for a single
// instrument's OrderBook. Submit and Cancel each hold the book's lock for
// their entire duration — scanning the opposite side, applying fills,
// invoking sinks, and resting any remainder all happen under one lock
// acquisition, never a relock per step.
type MatchingEngine struct {
	Symbol string

	book *OrderBook

	sinkMu    sync.RWMutex
	tradeSink TradeSink
	orderSink OrderSink

	seq atomic.Int64
}

// NewMatchingEngine creates an engine for symbol with an empty book and
// sinks that discard everything until set.
func NewMatchingEngine(symbol string) *MatchingEngine {
	return &MatchingEngine{
		Symbol:    symbol,
		book:      NewOrderBook(),
		tradeSink: DiscardTradeSink{},
		orderSink: DiscardOrderSink{},
	}
}

// SetTradeSink installs the sink invoked for every trade. nil installs a
// sink that discards trades.
func (e *MatchingEngine) SetTradeSink(sink TradeSink) {
	e.sinkMu.Lock()
	defer e.sinkMu.Unlock()

	if sink == nil {
		sink = DiscardTradeSink{}
	}
	e.tradeSink = sink
}

// SetOrderSink installs the sink invoked for every order lifecycle event.
// nil installs a sink that discards events.
func (e *MatchingEngine) SetOrderSink(sink OrderSink) {
	e.sinkMu.Lock()
	defer e.sinkMu.Unlock()

	if sink == nil {
		sink = DiscardOrderSink{}
	}
	e.orderSink = sink
}

func (e *MatchingEngine) nextTimestamp() int64 {
	return e.seq.Add(1)
}

// Submit accepts a new limit order, matches it against the book under a
// single lock acquisition, and rests whatever quantity remains
// unfilled. It returns ErrInvalidQuantity, ErrInvalidPrice, or
// ErrDuplicateID without touching the book — each rejection also
// delivers an OrderRejected event to the order sink. A successful
// submission delivers exactly one terminal event for o: OrderFilled if
// the match loop consumed it entirely, OrderAccepted (carrying whatever
// quantity is left) once it rests. ErrSinkFailure is returned if a sink
// rejected an event mid-match (in which case any fills already applied
// before the failing callback stand — the engine does not roll back).
func (e *MatchingEngine) Submit(o *Order) error {
	e.book.mu.Lock()
	defer e.book.mu.Unlock()

	e.sinkMu.RLock()
	tradeSink := e.tradeSink
	orderSink := e.orderSink
	e.sinkMu.RUnlock()

	if o.Price == 0 {
		_ = orderSink.OnOrderEvent(OrderEvent{OrderID: o.ID, Kind: OrderRejected, Timestamp: e.nextTimestamp()})
		return ErrInvalidPrice
	}
	if o.OriginalQuantity == 0 {
		_ = orderSink.OnOrderEvent(OrderEvent{OrderID: o.ID, Kind: OrderRejected, Timestamp: e.nextTimestamp()})
		return ErrInvalidQuantity
	}
	if o.RemainingQuantity == 0 {
		o.RemainingQuantity = o.OriginalQuantity
	}
	if o.Timestamp == 0 {
		o.Timestamp = e.nextTimestamp()
	}

	if e.book.lockedHasOrder(o.ID) {
		logger.Warn("rejected duplicate order", "symbol", e.Symbol, "order_id", o.ID)
		_ = orderSink.OnOrderEvent(OrderEvent{OrderID: o.ID, Kind: OrderRejected, Timestamp: e.nextTimestamp()})
		return ErrDuplicateID
	}

	if err := e.match(o, tradeSink, orderSink); err != nil {
		return err
	}

	if o.IsFilled() {
		if err := orderSink.OnOrderEvent(OrderEvent{
			OrderID:   o.ID,
			Kind:      OrderFilled,
			Timestamp: o.Timestamp,
		}); err != nil {
			return errors.Join(ErrSinkFailure, err)
		}
		return nil
	}

	e.book.lockedRest(o)
	if err := orderSink.OnOrderEvent(OrderEvent{
		OrderID:           o.ID,
		Kind:              OrderAccepted,
		RemainingQuantity: o.RemainingQuantity,
		Timestamp:         o.Timestamp,
	}); err != nil {
		return errors.Join(ErrSinkFailure, err)
	}

	return nil
}

// match repeatedly crosses o against the best opposite price level while
// a cross exists and o still has quantity left. The caller must already
// hold e.book.mu.
func (e *MatchingEngine) match(o *Order, tradeSink TradeSink, orderSink OrderSink) error {
	for !o.IsFilled() {
		lvl := e.book.lockedBestOpposite(o.Side)
		if lvl == nil {
			return nil
		}
		if !crosses(o.Side, o.Price, lvl.price) {
			return nil
		}

		resting := lvl.head
		for resting != nil && !o.IsFilled() {
			next := resting.next
			fillQty := min(o.RemainingQuantity, resting.RemainingQuantity)

			o.RemainingQuantity -= fillQty
			e.book.lockedApplyFill(oppositeOf(o.Side), resting, fillQty)

			trade := Trade{
				Price:     resting.Price,
				Quantity:  fillQty,
				Timestamp: e.nextTimestamp(),
			}
			if o.Side == Buy {
				trade.BuyOrderID = o.ID
				trade.SellOrderID = resting.ID
			} else {
				trade.BuyOrderID = resting.ID
				trade.SellOrderID = o.ID
			}

			if err := tradeSink.OnTrade(trade); err != nil {
				logger.Error("trade sink failed mid-match", "symbol", e.Symbol, "buy_id", trade.BuyOrderID, "sell_id", trade.SellOrderID, "error", err)
				return errors.Join(ErrSinkFailure, err)
			}

			e.book.lockedRecordTrade(trade.Price, fillQty)

			restingEventKind := OrderPartiallyFilled
			if resting.IsFilled() {
				restingEventKind = OrderFilled
			}
			if err := orderSink.OnOrderEvent(OrderEvent{
				OrderID:           resting.ID,
				Kind:              restingEventKind,
				RemainingQuantity: resting.RemainingQuantity,
				Timestamp:         trade.Timestamp,
			}); err != nil {
				return errors.Join(ErrSinkFailure, err)
			}

			resting = next
		}
	}

	return nil
}

func crosses(incomingSide Side, incomingPrice, restingPrice uint64) bool {
	if incomingSide == Buy {
		return incomingPrice >= restingPrice
	}
	return incomingPrice <= restingPrice
}

// Cancel removes a resting order by id. It reports whether the order was
// found.
func (e *MatchingEngine) Cancel(id uint64) bool {
	e.book.mu.Lock()
	defer e.book.mu.Unlock()

	removed, ok := e.book.lockedCancel(id)
	if !ok {
		return false
	}

	e.sinkMu.RLock()
	orderSink := e.orderSink
	e.sinkMu.RUnlock()

	_ = orderSink.OnOrderEvent(OrderEvent{
		OrderID:           id,
		Kind:              OrderCancelled,
		RemainingQuantity: removed.RemainingQuantity,
		Timestamp:         e.nextTimestamp(),
	})

	return true
}

// Order returns a copy of a resting order's public fields by id, or
// ErrOrderNotFound if no such order is resting on either side of the
// book.
func (e *MatchingEngine) Order(id uint64) (Order, error) {
	o, ok := e.book.Order(id)
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return o, nil
}

// BestBid returns the highest resting bid price and quantity.
func (e *MatchingEngine) BestBid() (price, quantity uint64, ok bool) {
	return e.book.BestBid()
}

// BestAsk returns the lowest resting ask price and quantity.
func (e *MatchingEngine) BestAsk() (price, quantity uint64, ok bool) {
	return e.book.BestAsk()
}

// Spread returns BestAsk - BestBid.
func (e *MatchingEngine) Spread() (uint64, bool) {
	return e.book.Spread()
}

// Depth returns up to limit price levels per side.
func (e *MatchingEngine) Depth(limit int) (bids, asks []DepthLevel) {
	return e.book.Depth(limit)
}

// OrderBookSnapshot renders the top levels levels as text.
func (e *MatchingEngine) OrderBookSnapshot(levels int) string {
	return e.book.Snapshot(e.Symbol, levels)
}

// TradeCount returns the number of trades executed since the last Clear.
func (e *MatchingEngine) TradeCount() int64 {
	return e.book.TradeCount()
}

// TotalVolume returns the total quantity traded since the last Clear.
func (e *MatchingEngine) TotalVolume() uint64 {
	return e.book.TotalVolume()
}

// TotalNotional returns the total price*quantity traded since the last
// Clear.
func (e *MatchingEngine) TotalNotional() uint64 {
	return e.book.TotalNotional()
}

// Clear removes every resting order and resets all counters.
func (e *MatchingEngine) Clear() {
	e.book.Clear()
}

// MarketStats renders the engine's running statistics as text.
func (e *MatchingEngine) MarketStats() string {
	tradeCount := e.TradeCount()
	volume := e.TotalVolume()
	notional := e.TotalNotional()
	activeOrders := e.book.OrderCount()

	bidPrice, bidQty, hasBid := e.BestBid()
	askPrice, askQty, hasAsk := e.BestAsk()

	var sb []byte
	writeLine := func(s string) { sb = append(sb, s...) }

	writeLine("=== Market Statistics ===\n")
	writeLine(fmt.Sprintf("Symbol: %s\n", e.Symbol))
	writeLine(fmt.Sprintf("Total Trades: %d\n", tradeCount))
	writeLine(fmt.Sprintf("Total Volume: %d\n", volume))
	writeLine(fmt.Sprintf("Total Value: %d\n", notional))
	writeLine(fmt.Sprintf("Active Orders: %d\n", activeOrders))

	if hasBid {
		writeLine(fmt.Sprintf("Best Bid: %d (Qty: %d)\n", bidPrice, bidQty))
	} else {
		writeLine("Best Bid: N/A\n")
	}
	if hasAsk {
		writeLine(fmt.Sprintf("Best Ask: %d (Qty: %d)\n", askPrice, askQty))
	} else {
		writeLine("Best Ask: N/A\n")
	}
	if hasBid && hasAsk {
		writeLine(fmt.Sprintf("Spread: %d\n", askPrice-bidPrice))
	} else {
		writeLine("Spread: N/A\n")
	}

	if tradeCount > 0 {
		writeLine(fmt.Sprintf("Average Trade Price: %s\n", FormatAveragePrice(notional, volume)))
	}

	writeLine("========================\n")

	return string(sb)
}
