package match

import (
	"fmt"
	"strings"
)

// renderSnapshot formats an order book's top levels as text, asks above
// bids with the worst ask first so the spread sits visually in the
// middle, the way a trader reading top-down expects a depth ladder to
// look.
func renderSnapshot(symbol string, bids, asks []DepthLevel, spread uint64, hasSpread bool, totalOrders int64) string {
	var b strings.Builder

	fmt.Fprintf(&b, "=== Order Book: %s ===\n", symbol)
	b.WriteString("ASKS:\n")
	for i := len(asks) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "  %d | %d\n", asks[i].Price, asks[i].Quantity)
	}
	b.WriteString("--------|------------\n")
	if hasSpread {
		fmt.Fprintf(&b, "SPREAD: %d\n", spread)
	} else {
		b.WriteString("SPREAD: N/A\n")
	}
	b.WriteString("--------|------------\n")
	b.WriteString("BIDS:\n")
	for _, lvl := range bids {
		fmt.Fprintf(&b, "  %d | %d\n", lvl.Price, lvl.Quantity)
	}
	fmt.Fprintf(&b, "Total Orders: %d\n", totalOrders)
	b.WriteString("==================\n")

	return b.String()
}
