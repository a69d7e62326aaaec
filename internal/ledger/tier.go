package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Tier string

const (
	Standard Tier = "standard"
	Silver   Tier = "silver"
	Gold     Tier = "gold"
	Diamond  Tier = "diamond"
)

// tierLadder is ordered from the highest threshold down. A member reaches a
// tier once total spend strictly exceeds its threshold.
var tierLadder = []struct {
	tier  Tier
	above decimal.Decimal
}{
	{Diamond, decimal.NewFromInt(8_000_000)},
	{Gold, decimal.NewFromInt(5_000_000)},
	{Silver, decimal.NewFromInt(3_000_000)},
}

var tierRank = map[Tier]int{
	Standard: 0,
	Silver:   1,
	Gold:     2,
	Diamond:  3,
}

func TierFor(totalSpent decimal.Decimal) Tier {
	for _, step := range tierLadder {
		if totalSpent.GreaterThan(step.above) {
			return step.tier
		}
	}
	return Standard
}

func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if _, ok := tierRank[t]; !ok {
		return "", fmt.Errorf("unknown tier %q", s)
	}
	return t, nil
}

// AtLeast reports whether t ranks at or above min.
func (t Tier) AtLeast(min Tier) bool {
	return tierRank[t] >= tierRank[min]
}

// MaxTier returns the higher of a and b.
func MaxTier(a, b Tier) Tier {
	if tierRank[b] > tierRank[a] {
		return b
	}
	return a
}
