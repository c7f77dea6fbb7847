// Package ordergen produces synthetic orders for driving a matching
// engine simulation: uniformly random orders for a baseline load, and
// "aggressive" orders that deliberately cross the spread to exercise the
// matching loop.
package ordergen

import (
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/rs/xid"
	match "github.com/flux-markets/matching-engine"
)

// Config controls the shape of generated orders.
type Config struct {
	BasePrice   uint64
	PriceRange  uint64
	MinQuantity uint64
	MaxQuantity uint64
}

// DefaultConfig mirrors the source simulator's defaults.
func DefaultConfig() Config {
	return Config{
		BasePrice:   10000,
		PriceRange:  1000,
		MinQuantity: 1,
		MaxQuantity: 1000,
	}
}

// Generator produces Order values with monotonically increasing ids,
// starting at 1 for every Generator. RunID identifies the generation run;
// it is not folded into the order ids, so two Generators produce the
// same ids.
type Generator struct {
	cfg   Config
	rng   *rand.Rand
	next  atomic.Uint64
	RunID xid.ID
}

// New creates a Generator seeded from the current time.
func New(cfg Config) *Generator {
	return &Generator{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		RunID: xid.New(),
	}
}

func (g *Generator) nextID() uint64 {
	return g.next.Add(1)
}

// Order produces one uniformly random order within the generator's
// configured price and quantity ranges.
func (g *Generator) Order() *match.Order {
	price := g.cfg.BasePrice - g.cfg.PriceRange + uint64(g.rng.Int63n(int64(2*g.cfg.PriceRange+1)))
	quantity := g.randomQuantity()
	side := match.Buy
	if g.rng.Intn(2) == 1 {
		side = match.Sell
	}

	return &match.Order{
		ID:               g.nextID(),
		Side:             side,
		Price:            price,
		OriginalQuantity: quantity,
	}
}

func (g *Generator) randomQuantity() uint64 {
	span := g.cfg.MaxQuantity - g.cfg.MinQuantity + 1
	return g.cfg.MinQuantity + uint64(g.rng.Int63n(int64(span)))
}

// Batch produces n uniformly random orders.
func (g *Generator) Batch(n int) []*match.Order {
	orders := make([]*match.Order, n)
	for i := range orders {
		orders[i] = g.Order()
	}
	return orders
}

// AggressiveBatch produces n orders designed to cross the spread. The
// first n-n/2 orders are priced beyond the configured range (buys above
// it, sells below it), so each crosses every opposite-side order from
// this generator; the remaining n/2 are an ordinary random batch.
func (g *Generator) AggressiveBatch(n int) []*match.Order {
	restingCount := n / 2
	aggressiveCount := n - restingCount

	orders := make([]*match.Order, 0, n)

	aggressive := make([]*match.Order, aggressiveCount)
	for i := range aggressive {
		side := match.Buy
		if g.rng.Intn(2) == 1 {
			side = match.Sell
		}

		var price uint64
		extra := uint64(g.rng.Int63n(500))
		if side == match.Buy {
			price = g.cfg.BasePrice + g.cfg.PriceRange + extra
		} else {
			price = uint64(1)
			if g.cfg.BasePrice > g.cfg.PriceRange+extra+1 {
				price = g.cfg.BasePrice - g.cfg.PriceRange - extra
			}
		}

		aggressive[i] = &match.Order{
			ID:               g.nextID(),
			Side:             side,
			Price:            price,
			OriginalQuantity: g.randomQuantity(),
		}
	}

	resting := g.Batch(restingCount)

	orders = append(orders, aggressive...)
	orders = append(orders, resting...)

	return orders
}
