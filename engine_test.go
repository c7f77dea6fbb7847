package match

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
)

type EngineTestSuite struct {
	suite.Suite
	engine *MatchingEngine
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, &EngineTestSuite{})
}

func (s *EngineTestSuite) SetupTest() {
	s.engine = NewMatchingEngine("TEST")
}

// Scenario 1: simple cross.
func (s *EngineTestSuite) TestSimpleCross() {
	trades := NewMemoryTradeSink()
	s.engine.SetTradeSink(trades)

	s.Require().NoError(s.engine.Submit(&Order{ID: 1, Side: Buy, Price: 100, OriginalQuantity: 10}))
	s.Require().NoError(s.engine.Submit(&Order{ID: 2, Side: Sell, Price: 100, OriginalQuantity: 4}))

	s.Require().Len(trades.Trades(), 1)
	trade := trades.Trades()[0]
	s.Equal(uint64(1), trade.BuyOrderID)
	s.Equal(uint64(2), trade.SellOrderID)
	s.Equal(uint64(100), trade.Price)
	s.Equal(uint64(4), trade.Quantity)

	bidPrice, bidQty, ok := s.engine.BestBid()
	s.True(ok)
	s.Equal(uint64(100), bidPrice)
	s.Equal(uint64(6), bidQty)

	_, _, ok = s.engine.BestAsk()
	s.False(ok)
}

// Scenario 2: sweep multiple levels.
func (s *EngineTestSuite) TestSweepMultipleLevels() {
	trades := NewMemoryTradeSink()
	s.engine.SetTradeSink(trades)

	s.Require().NoError(s.engine.Submit(&Order{ID: 1, Side: Sell, Price: 101, OriginalQuantity: 3, Timestamp: 1}))
	s.Require().NoError(s.engine.Submit(&Order{ID: 2, Side: Sell, Price: 102, OriginalQuantity: 5, Timestamp: 2}))
	s.Require().NoError(s.engine.Submit(&Order{ID: 3, Side: Sell, Price: 102, OriginalQuantity: 2, Timestamp: 3}))

	s.Require().NoError(s.engine.Submit(&Order{ID: 4, Side: Buy, Price: 102, OriginalQuantity: 8}))

	s.Require().Len(trades.Trades(), 2)
	s.Equal(Trade{BuyOrderID: 4, SellOrderID: 1, Price: 101, Quantity: 3, Timestamp: trades.Trades()[0].Timestamp}, trades.Trades()[0])
	s.Equal(Trade{BuyOrderID: 4, SellOrderID: 2, Price: 102, Quantity: 5, Timestamp: trades.Trades()[1].Timestamp}, trades.Trades()[1])

	askPrice, askQty, ok := s.engine.BestAsk()
	s.True(ok)
	s.Equal(uint64(102), askPrice)
	s.Equal(uint64(2), askQty)
}

// Scenario 3: rest residue.
func (s *EngineTestSuite) TestRestResidue() {
	s.Require().NoError(s.engine.Submit(&Order{ID: 1, Side: Buy, Price: 99, OriginalQuantity: 5}))

	s.Equal(int64(0), s.engine.TradeCount())

	bidPrice, bidQty, ok := s.engine.BestBid()
	s.True(ok)
	s.Equal(uint64(99), bidPrice)
	s.Equal(uint64(5), bidQty)
}

// Scenario 4: cancel before match.
func (s *EngineTestSuite) TestCancelBeforeMatch() {
	s.Require().NoError(s.engine.Submit(&Order{ID: 1, Side: Buy, Price: 100, OriginalQuantity: 10}))
	s.True(s.engine.Cancel(1))
	s.Require().NoError(s.engine.Submit(&Order{ID: 2, Side: Sell, Price: 100, OriginalQuantity: 5}))

	s.Equal(int64(0), s.engine.TradeCount())

	_, _, ok := s.engine.BestBid()
	s.False(ok)

	askPrice, askQty, ok := s.engine.BestAsk()
	s.True(ok)
	s.Equal(uint64(100), askPrice)
	s.Equal(uint64(5), askQty)
}

// Scenario 5: time priority within a level.
func (s *EngineTestSuite) TestTimePriorityWithinLevel() {
	trades := NewMemoryTradeSink()
	s.engine.SetTradeSink(trades)

	s.Require().NoError(s.engine.Submit(&Order{ID: 1, Side: Buy, Price: 100, OriginalQuantity: 4, Timestamp: 1}))
	s.Require().NoError(s.engine.Submit(&Order{ID: 2, Side: Buy, Price: 100, OriginalQuantity: 4, Timestamp: 2}))

	s.Require().NoError(s.engine.Submit(&Order{ID: 3, Side: Sell, Price: 100, OriginalQuantity: 5}))

	s.Require().Len(trades.Trades(), 2)
	s.Equal(uint64(1), trades.Trades()[0].BuyOrderID)
	s.Equal(uint64(4), trades.Trades()[0].Quantity)
	s.Equal(uint64(2), trades.Trades()[1].BuyOrderID)
	s.Equal(uint64(1), trades.Trades()[1].Quantity)

	bidPrice, bidQty, ok := s.engine.BestBid()
	s.True(ok)
	s.Equal(uint64(100), bidPrice)
	s.Equal(uint64(3), bidQty)
}

// Exercises the order sink's half of the Sinks contract: accepted
// (rests), filled (fully matched as taker), and cancelled all deliver
// the event kind §4.3 documents.
func (s *EngineTestSuite) TestOrderSinkReceivesLifecycleEvents() {
	orders := NewMemoryOrderSink()
	s.engine.SetOrderSink(orders)

	s.Require().NoError(s.engine.Submit(&Order{ID: 1, Side: Buy, Price: 100, OriginalQuantity: 10}))
	s.Require().Len(orders.Events(), 1)
	s.Equal(OrderAccepted, orders.Events()[0].Kind)
	s.Equal(uint64(10), orders.Events()[0].RemainingQuantity)

	s.Require().NoError(s.engine.Submit(&Order{ID: 2, Side: Sell, Price: 100, OriginalQuantity: 10}))
	// order 2 fully matches as taker; order 1 fully matches as maker.
	s.Require().Len(orders.Events(), 3)
	s.Equal(OrderFilled, orders.Events()[1].Kind)
	s.Equal(uint64(1), orders.Events()[1].OrderID)
	s.Equal(OrderFilled, orders.Events()[2].Kind)
	s.Equal(uint64(2), orders.Events()[2].OrderID)

	s.Require().NoError(s.engine.Submit(&Order{ID: 3, Side: Buy, Price: 90, OriginalQuantity: 5}))
	s.Require().Len(orders.Events(), 4)
	s.True(s.engine.Cancel(3))
	s.Require().Len(orders.Events(), 5)
	s.Equal(OrderCancelled, orders.Events()[4].Kind)
	s.Equal(uint64(3), orders.Events()[4].OrderID)
}

// A rejected submission still reaches the order sink, carrying the
// rejected id so a caller watching only the sink (not the return error)
// can still observe it.
func (s *EngineTestSuite) TestOrderSinkReceivesRejectedEvent() {
	orders := NewMemoryOrderSink()
	s.engine.SetOrderSink(orders)

	s.ErrorIs(s.engine.Submit(&Order{ID: 1, Side: Buy, Price: 0, OriginalQuantity: 1}), ErrInvalidPrice)
	s.ErrorIs(s.engine.Submit(&Order{ID: 2, Side: Buy, Price: 100, OriginalQuantity: 0}), ErrInvalidQuantity)

	s.Require().NoError(s.engine.Submit(&Order{ID: 3, Side: Buy, Price: 100, OriginalQuantity: 1}))
	s.ErrorIs(s.engine.Submit(&Order{ID: 3, Side: Buy, Price: 101, OriginalQuantity: 1}), ErrDuplicateID)

	s.Require().Len(orders.Events(), 4)
	s.Equal(OrderRejected, orders.Events()[0].Kind)
	s.Equal(uint64(1), orders.Events()[0].OrderID)
	s.Equal(OrderRejected, orders.Events()[1].Kind)
	s.Equal(uint64(2), orders.Events()[1].OrderID)
	s.Equal(OrderAccepted, orders.Events()[2].Kind)
	s.Equal(OrderRejected, orders.Events()[3].Kind)
	s.Equal(uint64(3), orders.Events()[3].OrderID)
}

func (s *EngineTestSuite) TestInvalidQuantityRejected() {
	err := s.engine.Submit(&Order{ID: 1, Side: Buy, Price: 100, OriginalQuantity: 0})
	s.ErrorIs(err, ErrInvalidQuantity)
}

func (s *EngineTestSuite) TestInvalidPriceRejected() {
	err := s.engine.Submit(&Order{ID: 1, Side: Buy, Price: 0, OriginalQuantity: 1})
	s.ErrorIs(err, ErrInvalidPrice)
}

func (s *EngineTestSuite) TestDuplicateIDRejected() {
	s.Require().NoError(s.engine.Submit(&Order{ID: 1, Side: Buy, Price: 100, OriginalQuantity: 1}))
	err := s.engine.Submit(&Order{ID: 1, Side: Buy, Price: 101, OriginalQuantity: 1})
	s.ErrorIs(err, ErrDuplicateID)
}

func (s *EngineTestSuite) TestOrderLookupByID() {
	s.Require().NoError(s.engine.Submit(&Order{ID: 1, Side: Buy, Price: 100, OriginalQuantity: 5}))

	resting, err := s.engine.Order(1)
	s.Require().NoError(err)
	s.Equal(uint64(5), resting.RemainingQuantity)

	_, err = s.engine.Order(999)
	s.ErrorIs(err, ErrOrderNotFound)
}

func (s *EngineTestSuite) TestIdempotentCancel() {
	s.False(s.engine.Cancel(999))

	s.Require().NoError(s.engine.Submit(&Order{ID: 1, Side: Buy, Price: 100, OriginalQuantity: 5}))
	s.Require().NoError(s.engine.Submit(&Order{ID: 2, Side: Sell, Price: 100, OriginalQuantity: 5}))

	s.False(s.engine.Cancel(1)) // already fully filled, no longer resting
}

func (s *EngineTestSuite) TestPricingRuleUsesMakerPrice() {
	trades := NewMemoryTradeSink()
	s.engine.SetTradeSink(trades)

	s.Require().NoError(s.engine.Submit(&Order{ID: 1, Side: Sell, Price: 95, OriginalQuantity: 5}))
	s.Require().NoError(s.engine.Submit(&Order{ID: 2, Side: Buy, Price: 100, OriginalQuantity: 5}))

	s.Require().Len(trades.Trades(), 1)
	s.Equal(uint64(95), trades.Trades()[0].Price)
}

func (s *EngineTestSuite) TestClearResetsEverything() {
	s.Require().NoError(s.engine.Submit(&Order{ID: 1, Side: Buy, Price: 100, OriginalQuantity: 5}))
	s.Require().NoError(s.engine.Submit(&Order{ID: 2, Side: Sell, Price: 100, OriginalQuantity: 5}))

	s.Equal(int64(1), s.engine.TradeCount())

	s.engine.Clear()

	s.Equal(int64(0), s.engine.TradeCount())
	s.Equal(uint64(0), s.engine.TotalVolume())
	s.Equal(uint64(0), s.engine.TotalNotional())
	_, _, ok := s.engine.BestBid()
	s.False(ok)
}

func (s *EngineTestSuite) TestMarketStatsFormat() {
	s.Require().NoError(s.engine.Submit(&Order{ID: 1, Side: Buy, Price: 100, OriginalQuantity: 5}))
	s.Require().NoError(s.engine.Submit(&Order{ID: 2, Side: Sell, Price: 105, OriginalQuantity: 3}))

	stats := s.engine.MarketStats()
	s.Contains(stats, "=== Market Statistics ===")
	s.Contains(stats, "Symbol: TEST")
	s.Contains(stats, "Best Bid: 100 (Qty: 5)")
	s.Contains(stats, "Best Ask: 105 (Qty: 3)")
	s.Contains(stats, "Spread: 5")
}

// Scenario 6: invariants hold under concurrent submit/cancel from many
// goroutines, and the quantity-conservation equation balances.
//
// Orders are drawn from two disjoint pools so the accounting never races
// against the matching loop: "trade" orders sit in a shared price band
// where any side can cross any other goroutine's orders, and "rest"
// orders sit at a price no order in the trade band can ever reach, so a
// rest order is provably unfilled at the moment it is (maybe) cancelled.
func (s *EngineTestSuite) TestConcurrentSubmitCancelConservesQuantity() {
	const goroutines = 8
	const opsPerGoroutine = 250
	const tradeBasePrice = 1000
	const tradeRange = 20
	const restPrice = 99999

	trades := NewMemoryTradeSink()
	s.engine.SetTradeSink(trades)

	var (
		mu                sync.Mutex
		nextID            uint64
		totalOriginal     uint64
		cancelledOriginal uint64
	)
	allocID := func() uint64 {
		mu.Lock()
		defer mu.Unlock()
		nextID++
		return nextID
	}
	addOriginal := func(qty uint64) {
		mu.Lock()
		totalOriginal += qty
		mu.Unlock()
	}
	addCancelled := func(qty uint64) {
		mu.Lock()
		cancelledOriginal += qty
		mu.Unlock()
	}

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))

			for i := 0; i < opsPerGoroutine; i++ {
				id := allocID()
				qty := uint64(rng.Intn(5) + 1)

				if rng.Intn(2) == 0 {
					side := Buy
					if rng.Intn(2) == 0 {
						side = Sell
					}
					price := uint64(tradeBasePrice + rng.Intn(2*tradeRange+1) - tradeRange)

					addOriginal(qty)
					s.Require().NoError(s.engine.Submit(&Order{ID: id, Side: side, Price: price, OriginalQuantity: qty}))
					continue
				}

				addOriginal(qty)
				s.Require().NoError(s.engine.Submit(&Order{ID: id, Side: Sell, Price: restPrice, OriginalQuantity: qty}))
				if rng.Intn(2) == 0 && s.engine.Cancel(id) {
					addCancelled(qty)
				}
			}
		}(int64(g))
	}
	wg.Wait()

	var tradeVolume uint64
	for _, t := range trades.Trades() {
		tradeVolume += t.Quantity
	}

	bids, asks := s.engine.Depth(1 << 20)
	var restingQty uint64
	for _, lvl := range bids {
		restingQty += lvl.Quantity
	}
	for _, lvl := range asks {
		restingQty += lvl.Quantity
	}

	s.Equal(totalOriginal, 2*tradeVolume+restingQty+cancelledOriginal)

	bidPrice, _, hasBid := s.engine.BestBid()
	askPrice, _, hasAsk := s.engine.BestAsk()
	if hasBid && hasAsk {
		s.Less(bidPrice, askPrice)
	}
}

func (s *EngineTestSuite) TestOrderBookSnapshotFormat() {
	s.Require().NoError(s.engine.Submit(&Order{ID: 1, Side: Buy, Price: 100, OriginalQuantity: 5}))
	s.Require().NoError(s.engine.Submit(&Order{ID: 2, Side: Sell, Price: 105, OriginalQuantity: 3}))

	snap := s.engine.OrderBookSnapshot(5)
	s.Contains(snap, "=== Order Book: TEST ===")
	s.Contains(snap, "ASKS:")
	s.Contains(snap, "BIDS:")
	s.Contains(snap, "SPREAD: 5")
	s.Contains(snap, "Total Orders: 2")
}
