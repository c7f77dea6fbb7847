package match

import "fmt"

// Trade records one execution between a resting order and an incoming
// order. Price is the resting order's price, per price-time priority —
// the aggressor takes the price of whoever was there first.
type Trade struct {
	BuyOrderID  uint64
	SellOrderID uint64
	Price       uint64
	Quantity    uint64
	Timestamp   int64
}

// String renders a Trade for logs, matching the original engine's debug
// representation.
func (t Trade) String() string {
	return fmt.Sprintf("Trade{Buy:%d, Sell:%d, Price:%d, Qty:%d}", t.BuyOrderID, t.SellOrderID, t.Price, t.Quantity)
}
