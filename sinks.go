package match

// TradeSink receives every trade the engine executes, synchronously,
// under the same lock that produced it. Implementations must not call
// back into the engine or order book that invoked them — doing so would
// deadlock against the held lock.
type TradeSink interface {
	OnTrade(t Trade) error
}

// OrderSink receives lifecycle notifications for orders: accepted,
// partially filled, filled, cancelled. It is invoked synchronously from
// inside the same locked section as the change it reports.
type OrderSink interface {
	OnOrderEvent(e OrderEvent) error
}

// OrderEventKind identifies what happened to an order.
type OrderEventKind uint8

const (
	OrderAccepted OrderEventKind = iota
	OrderPartiallyFilled
	OrderFilled
	OrderCancelled
	OrderRejected
)

func (k OrderEventKind) String() string {
	switch k {
	case OrderAccepted:
		return "ACCEPTED"
	case OrderPartiallyFilled:
		return "PARTIALLY_FILLED"
	case OrderFilled:
		return "FILLED"
	case OrderCancelled:
		return "CANCELLED"
	case OrderRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// OrderEvent describes one lifecycle transition for an order.
type OrderEvent struct {
	OrderID           uint64
	Kind              OrderEventKind
	RemainingQuantity uint64
	Timestamp         int64
}

// MemoryTradeSink keeps every trade it receives in memory, in arrival
// order. It never returns an error from OnTrade.
type MemoryTradeSink struct {
	trades []Trade
}

// NewMemoryTradeSink creates an empty MemoryTradeSink.
func NewMemoryTradeSink() *MemoryTradeSink {
	return &MemoryTradeSink{}
}

// OnTrade implements TradeSink.
func (s *MemoryTradeSink) OnTrade(t Trade) error {
	s.trades = append(s.trades, t)
	return nil
}

// Trades returns every trade recorded so far.
func (s *MemoryTradeSink) Trades() []Trade {
	return s.trades
}

// DiscardTradeSink drops every trade it receives. Useful when a caller
// wants matching without CSV logging or any bookkeeping.
type DiscardTradeSink struct{}

// OnTrade implements TradeSink.
func (DiscardTradeSink) OnTrade(Trade) error { return nil }

// MemoryOrderSink keeps every order event it receives in memory.
type MemoryOrderSink struct {
	events []OrderEvent
}

// NewMemoryOrderSink creates an empty MemoryOrderSink.
func NewMemoryOrderSink() *MemoryOrderSink {
	return &MemoryOrderSink{}
}

// OnOrderEvent implements OrderSink.
func (s *MemoryOrderSink) OnOrderEvent(e OrderEvent) error {
	s.events = append(s.events, e)
	return nil
}

// Events returns every order event recorded so far.
func (s *MemoryOrderSink) Events() []OrderEvent {
	return s.events
}

// DiscardOrderSink drops every order event it receives.
type DiscardOrderSink struct{}

// OnOrderEvent implements OrderSink.
func (DiscardOrderSink) OnOrderEvent(OrderEvent) error { return nil }
