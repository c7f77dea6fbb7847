package match

import "github.com/shopspring/decimal"

// DisplayScale is the number of minor-unit digits past the decimal point
// used when rendering prices for humans (e.g. 2 for
// cents). It never participates in a matching decision — every compare
// and arithmetic operation in the engine stays on raw integers.
var DisplayScale int32 = 2

// FormatPrice renders a raw integer price as a decimal string for
// display, e.g. FormatPrice(10050) with DisplayScale 2 -> "100.50".
func FormatPrice(price uint64) string {
	return decimal.New(int64(price), -DisplayScale).StringFixed(DisplayScale)
}

// FormatAveragePrice renders notional/volume — both in the same raw
// minor-unit scale as Order.Price — as a decimal string at DisplayScale
// precision. Unlike plain integer division it does not truncate a
// fractional average down to a whole minor unit.
func FormatAveragePrice(notional, volume uint64) string {
	if volume == 0 {
		return FormatPrice(0)
	}
	avg := decimal.New(int64(notional), 0).DivRound(decimal.New(int64(volume), 0), DisplayScale+4)
	return avg.Shift(-DisplayScale).StringFixed(DisplayScale)
}
