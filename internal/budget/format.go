// Package budget holds the pure formatting and aggregation rules behind every
// number the site shows: magnitude-suffixed amounts, percentages, growth and
// chart-ready category records. Nothing here performs I/O or returns errors.
package budget

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultLocale is used when a caller passes an empty or unparsable locale.
const DefaultLocale = "id-ID"

// Magnitude suffixes, largest first. "M" is the local convention for milyar.
var magnitudes = []struct {
	threshold float64
	suffix    string
}{
	{1e15, "PB"},
	{1e12, "T"},
	{1e9, "M"},
	{1e6, "Jt"},
}

// FormatBudgetAmount renders an IDR amount with a magnitude suffix, or as a
// full currency string below one million.
//
// Negative amounts never reach a suffix branch and always render as plain
// negative currency. Deficits are sometimes stored as negative amounts, so
// this fall-through is kept as is.
func FormatBudgetAmount(amount float64, locale string) string {
	for _, m := range magnitudes {
		if amount >= m.threshold {
			return formatDecimal(amount/m.threshold, locale, 1) + " " + m.suffix
		}
	}
	return FormatCurrency(amount, locale)
}

// FormatCurrency renders amount as IDR with zero fraction digits, e.g.
// "Rp50.000" for id-ID and "IDR 50,000" for en-US.
func FormatCurrency(amount float64, locale string) string {
	symbol := currencySymbol(ResolveLocale(locale))
	digits := formatDecimal(amount, locale, 0)
	if rest, neg := strings.CutPrefix(digits, "-"); neg {
		return "-" + symbol + rest
	}
	return symbol + digits
}

// FormatNumber renders n with the locale's default grouping and up to three
// fraction digits.
func FormatNumber(n float64, locale string) string {
	return formatDecimal(n, locale, 3)
}

// ResolveLocale parses a BCP-47 locale, falling back to DefaultLocale.
func ResolveLocale(locale string) language.Tag {
	if locale == "" {
		locale = DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return language.MustParse(DefaultLocale)
	}
	return tag
}

// IsIndonesian reports whether the locale's base language is Indonesian.
func IsIndonesian(tag language.Tag) bool {
	base, _ := tag.Base()
	return base.String() == "id"
}

func currencySymbol(tag language.Tag) string {
	if IsIndonesian(tag) {
		return "Rp"
	}
	return currency.IDR.String() + " "
}

// formatDecimal rounds half away from zero to maxFrac digits, then lets
// x/text apply the locale's separators.
func formatDecimal(v float64, locale string, maxFrac int) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "∞"
	case math.IsInf(v, -1):
		return "-∞"
	}

	rounded := decimal.NewFromFloat(v).Round(int32(maxFrac))
	neg := rounded.IsNegative()

	p := message.NewPrinter(ResolveLocale(locale))
	s := p.Sprintf("%v", number.Decimal(rounded.Abs().InexactFloat64(), number.MaxFractionDigits(maxFrac)))
	if neg {
		return "-" + s
	}
	return s
}
