package match

// Side identifies which side of the book an order rests on.
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// Order is a resting or incoming limit order. Price and Quantity are
// integer minor units (e.g. cents, satoshis) — the engine never does
// floating-point arithmetic when deciding whether or how much to match.
type Order struct {
	ID                uint64
	Side              Side
	Price             uint64
	OriginalQuantity  uint64
	RemainingQuantity uint64
	Timestamp         int64 // arrival sequence, assigned by Submit when zero; FIFO position within a level follows insertion order, not this field

	// next/prev thread this order into its price level's FIFO queue.
	// Unexported: only the level a resting order belongs to may touch them.
	next, prev *Order
}

// IsFilled reports whether the order has no quantity left to match.
func (o *Order) IsFilled() bool {
	return o.RemainingQuantity == 0
}

// IsPartiallyFilled reports whether the order has matched some but not
// all of its original quantity.
func (o *Order) IsPartiallyFilled() bool {
	return o.RemainingQuantity > 0 && o.RemainingQuantity < o.OriginalQuantity
}

// FilledQuantity returns how much of the order has matched so far.
func (o *Order) FilledQuantity() uint64 {
	return o.OriginalQuantity - o.RemainingQuantity
}
