package insights

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"finplan/internal/core"
)

// Palette is cycled by slice index so colours stay stable across renders.
var Palette = []string{"#8884d8", "#82ca9d", "#ffc658", "#ff8042", "#00C49F", "#FFBB28", "#FF6F61", "#6B7280"}

// Slice is one pie segment.
type Slice struct {
	Label        string
	Value        core.Money
	Percent      int64
	PercentLabel string
	Color        string
}

// Point is one sample of a line series.
type Point struct {
	Label string
	Value core.Money
}

// PieSlices converts category totals into chart slices. Percentages are
// value/sum*100 rounded half-up to whole numbers; an all-zero series gives 0%.
func PieSlices(totals []CategoryTotal) []Slice {
	var sum int64
	for _, t := range totals {
		sum += t.Amount.Cents
	}
	out := make([]Slice, 0, len(totals))
	for i, t := range totals {
		pct := int64(0)
		if sum > 0 {
			pct = percentOf(t.Amount.Cents, sum)
		}
		out = append(out, Slice{
			Label:        t.Category,
			Value:        t.Amount,
			Percent:      pct,
			PercentLabel: t.Category + " (" + strconv.FormatInt(pct, 10) + "%)",
			Color:        ColorAt(i),
		})
	}
	return out
}

// TrendSeries keeps the chronological order of the savings trend.
func TrendSeries(trend []MonthlySavings) []Point {
	out := make([]Point, 0, len(trend))
	for _, s := range trend {
		out = append(out, Point{Label: string(s.Month), Value: s.Savings})
	}
	return out
}

// ColorAt returns the palette colour for position i.
func ColorAt(i int) string {
	if i < 0 {
		i = -i
	}
	return Palette[i%len(Palette)]
}

// percentOf returns part/whole*100 rounded to zero decimals. whole must be positive.
func percentOf(part, whole int64) int64 {
	return decimal.NewFromInt(part).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(whole)).
		Round(0).
		IntPart()
}

// FormatCurrency renders m as US dollars, e.g. "$1,234.56".
func FormatCurrency(m core.Money) string {
	s := decimal.New(m.Cents, -2).StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}
