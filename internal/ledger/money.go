package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits kept on every computed amount.
const Scale = 2

var hundred = decimal.NewFromInt(100)

func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// Percent returns pct percent of d, rounded.
func Percent(d decimal.Decimal, pct int) decimal.Decimal {
	return Round(d.Mul(decimal.NewFromInt(int64(pct))).Div(hundred))
}

// ProRata prices dur at an hourly rate, by the minute.
func ProRata(perHour decimal.Decimal, dur time.Duration) decimal.Decimal {
	minutes := decimal.NewFromInt(int64(dur / time.Minute))
	return Round(perHour.Mul(minutes).Div(decimal.NewFromInt(60)))
}
