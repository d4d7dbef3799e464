package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const rupeeGlyph = "₹"

// FormatRupees renders an amount for display, e.g. "₹285.50".
func FormatRupees(amount decimal.Decimal) string {
	return rupeeGlyph + amount.StringFixed(2)
}

// ParsePrice accepts "120", "120.50" and the legacy "₹120" form.
func ParsePrice(s string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), rupeeGlyph))
	raw = strings.TrimSuffix(raw, "/meal")
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q: %w", s, err)
	}
	return d, nil
}
