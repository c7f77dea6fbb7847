package match

import "github.com/huandu/skiplist"

// priceLevel holds every resting order at one exact price, in strict
// arrival order. Orders are threaded together with intrusive next/prev
// pointers instead of living in a slice, so removing an order from the
// middle of the level (cancel) and popping the front (match) are both
// O(1) once the order is located.
type priceLevel struct {
	price        uint64
	totalQty     uint64
	count        int64
	head, tail   *Order
}

func newPriceLevel(price uint64) *priceLevel {
	return &priceLevel{price: price}
}

// pushBack appends an order to the end of the level, preserving
// price-time priority for new arrivals.
func (lvl *priceLevel) pushBack(o *Order) {
	o.prev = lvl.tail
	o.next = nil
	if lvl.tail != nil {
		lvl.tail.next = o
	}
	lvl.tail = o
	if lvl.head == nil {
		lvl.head = o
	}
	lvl.totalQty += o.RemainingQuantity
	lvl.count++
}

// remove unlinks an order from the level's FIFO chain. It does not touch
// the level's bookkeeping quantity for the order beyond subtracting its
// current remaining quantity.
func (lvl *priceLevel) remove(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		lvl.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		lvl.tail = o.prev
	}
	o.next = nil
	o.prev = nil

	lvl.totalQty -= o.RemainingQuantity
	lvl.count--
}

// applyFill reduces the front order's remaining quantity by fillQty,
// keeping the level's aggregate quantity consistent with the sum of its
// resting orders.
func (lvl *priceLevel) applyFill(o *Order, fillQty uint64) {
	o.RemainingQuantity -= fillQty
	lvl.totalQty -= fillQty
}

func (lvl *priceLevel) isEmpty() bool {
	return lvl.count == 0
}

// side is one half of the book (bids or asks): a skiplist of price
// levels kept in matching priority order, plus an index from order id to
// the order's node so cancel and fill lookups are O(1) (amortized, given
// the skiplist's O(log n) price lookup). Price ordering lives in the
// skiplist; time ordering within a level lives in the intrusive
// next/prev chain on each priceLevel.
type side struct {
	kind       Side
	byPrice    *skiplist.SkipList // uint64 price -> *priceLevel
	levels     map[uint64]*skiplist.Element
	orders     map[uint64]*Order
	totalOrders int64
}

func newBidSide() *side {
	return &side{
		kind: Buy,
		byPrice: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			a, b := lhs.(uint64), rhs.(uint64)
			switch {
			case a > b:
				return -1 // higher price sorts first for bids
			case a < b:
				return 1
			default:
				return 0
			}
		})),
		levels: make(map[uint64]*skiplist.Element),
		orders: make(map[uint64]*Order),
	}
}

func newAskSide() *side {
	return &side{
		kind: Sell,
		byPrice: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			a, b := lhs.(uint64), rhs.(uint64)
			switch {
			case a < b:
				return -1 // lower price sorts first for asks
			case a > b:
				return 1
			default:
				return 0
			}
		})),
		levels: make(map[uint64]*skiplist.Element),
		orders: make(map[uint64]*Order),
	}
}

// add inserts a brand new resting order into its price level, creating
// the level if this is the first order at that price.
func (s *side) add(o *Order) {
	el, ok := s.levels[o.Price]
	var lvl *priceLevel
	if ok {
		lvl, _ = el.Value.(*priceLevel)
	} else {
		lvl = newPriceLevel(o.Price)
		el = s.byPrice.Set(o.Price, lvl)
		s.levels[o.Price] = el
	}

	lvl.pushBack(o)
	s.orders[o.ID] = o
	s.totalOrders++
}

// best returns the level at the front of matching priority, or nil if
// the side is empty.
func (s *side) best() *priceLevel {
	el := s.byPrice.Front()
	if el == nil {
		return nil
	}
	lvl, _ := el.Value.(*priceLevel)
	return lvl
}

// order looks up a resting order by id.
func (s *side) order(id uint64) (*Order, bool) {
	o, ok := s.orders[id]
	return o, ok
}

// cancel removes a resting order, dropping its price level if it is now
// empty. Returns the order as it stood immediately before removal (its
// RemainingQuantity reflects any fills applied before the cancel), or
// false if the id wasn't found.
func (s *side) cancel(id uint64) (Order, bool) {
	o, ok := s.orders[id]
	if !ok {
		return Order{}, false
	}

	el, ok := s.levels[o.Price]
	if !ok {
		return Order{}, false
	}
	lvl, _ := el.Value.(*priceLevel)

	removed := *o
	lvl.remove(o)
	delete(s.orders, id)
	s.totalOrders--

	if lvl.isEmpty() {
		s.byPrice.RemoveElement(el)
		delete(s.levels, o.Price)
	}

	return removed, true
}

// applyFill reduces the front-most resting order's remaining quantity by
// fillQty. If the order is now fully filled it is removed from the book
// (and its now-empty level too, if applicable).
func (s *side) applyFill(o *Order, fillQty uint64) {
	el, ok := s.levels[o.Price]
	if !ok {
		return
	}
	lvl, _ := el.Value.(*priceLevel)

	lvl.applyFill(o, fillQty)

	if o.IsFilled() {
		lvl.remove(o)
		delete(s.orders, o.ID)
		s.totalOrders--

		if lvl.isEmpty() {
			s.byPrice.RemoveElement(el)
			delete(s.levels, o.Price)
		}
	}
}

// depth returns up to limit price levels, best-first, as (price,
// aggregate quantity) pairs.
func (s *side) depth(limit int) []DepthLevel {
	result := make([]DepthLevel, 0, limit)

	el := s.byPrice.Front()
	for i := 0; i < limit && el != nil; i++ {
		lvl, _ := el.Value.(*priceLevel)
		result = append(result, DepthLevel{Price: lvl.price, Quantity: lvl.totalQty})
		el = el.Next()
	}

	return result
}

func (s *side) levelCount() int64 {
	return int64(s.byPrice.Len())
}

func (s *side) orderCount() int64 {
	return s.totalOrders
}

// oppositeOf returns the other side of the book.
func oppositeOf(s Side) Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// DepthLevel is one row of a market-depth snapshot.
type DepthLevel struct {
	Price    uint64
	Quantity uint64
}
