package orderbook

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatPrice renders a level price with two decimals, or "N/A".
func FormatPrice(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *v)
}

// FormatSize renders a size as whole dollars with thousands separators,
// or an empty string when missing.
func FormatSize(v *float64) string {
	if v == nil {
		return ""
	}
	return FormatAmount(*v)
}

// FormatAmount renders v as whole dollars with thousands separators.
func FormatAmount(v float64) string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("$%d", int64(math.Round(v)))
}
