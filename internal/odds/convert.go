// Package odds converts bookmaker quotes into fair probabilities and best prices.
package odds

import (
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/yourusername/nhl-picks/internal/models"
)

// AmericanToDecimal converts American odds to decimal odds
// American +150 → Decimal 2.50
// American -150 → Decimal 1.67
func AmericanToDecimal(american int) (decimal.Decimal, error) {
	if american == 0 {
		return decimal.Zero, fmt.Errorf("%w: American odds cannot be 0", models.ErrInvalidInput)
	}
	hundred := decimal.NewFromInt(100)
	if american > 0 {
		return decimal.NewFromInt(int64(american)).Div(hundred).Add(decimal.NewFromInt(1)), nil
	}
	return hundred.Div(decimal.NewFromInt(int64(-american))).Add(decimal.NewFromInt(1)), nil
}

// DecimalToAmerican converts decimal odds to American odds
// Decimal 2.50 → American +150
// Decimal 1.67 → American -149
func DecimalToAmerican(price float64) (int, error) {
	if price <= 1.0 {
		return 0, fmt.Errorf("%w: decimal odds must be > 1.0", models.ErrInvalidInput)
	}
	if price >= 2.0 {
		return int(math.Round((price - 1.0) * 100.0)), nil
	}
	return int(math.Round(-100.0 / (price - 1.0))), nil
}

// ImpliedProbability returns 1/price, or 0 for prices that cannot be bet
func ImpliedProbability(price float64) float64 {
	if price <= 1.0 {
		return 0
	}
	return 1.0 / price
}

// Overround returns the sum of raw implied probabilities minus one
func Overround(prices []float64) float64 {
	var total float64
	for _, p := range prices {
		total += ImpliedProbability(p)
	}
	return total - 1.0
}

// EdgeVsBook is the model probability minus the book's implied probability.
// Prices at or below 1.0 have no edge.
func EdgeVsBook(prob, price float64) float64 {
	if price <= 1.0 {
		return 0
	}
	return prob - 1.0/price
}

// ExpectedValue is the expected profit per unit staked at price
func ExpectedValue(prob, price float64) float64 {
	if price <= 1.0 {
		return 0
	}
	return prob*price - 1.0
}

// MarketID builds the market key used for player prop markets
func MarketID(stat models.StatKind, playerID string, line float64) string {
	return fmt.Sprintf("%s:%s:%s", stat, playerID, strconv.FormatFloat(line, 'f', -1, 64))
}

// OutcomeID builds the outcome key for one side of a player prop market
func OutcomeID(stat models.StatKind, playerID string, line float64, side string) string {
	return MarketID(stat, playerID, line) + ":" + side
}

// FirstGoalMarketID builds the market key for a game's first goalscorer market
func FirstGoalMarketID(gameID string) string {
	return fmt.Sprintf("%s:%s", models.StatFirstGoal, gameID)
}

// FirstGoalNoneID builds the "no goal" outcome key that closes a first
// goalscorer market
func FirstGoalNoneID(marketID string) string {
	return marketID + ":" + models.SideNone
}

// ClosedOutcomes derives the full outcome set for every market in quotes.
// Over/under props need both sides. A first goalscorer market needs every
// player any book quotes plus the "no goal" outcome.
func ClosedOutcomes(quotes []models.OddsQuote) map[string][]string {
	out := make(map[string][]string)
	seen := make(map[string]bool)
	var firstGoal []string
	add := func(marketID, outcomeID string) {
		if seen[outcomeID] {
			return
		}
		seen[outcomeID] = true
		out[marketID] = append(out[marketID], outcomeID)
	}
	for _, q := range quotes {
		switch {
		case q.StatKind == models.StatFirstGoal:
			if _, ok := out[q.MarketID]; !ok {
				firstGoal = append(firstGoal, q.MarketID)
			}
			add(q.MarketID, q.OutcomeID)
		case q.StatKind.IsCount() && q.Line != nil && q.PlayerID != "" &&
			q.MarketID == MarketID(q.StatKind, q.PlayerID, *q.Line):
			add(q.MarketID, OutcomeID(q.StatKind, q.PlayerID, *q.Line, models.SideOver))
			add(q.MarketID, OutcomeID(q.StatKind, q.PlayerID, *q.Line, models.SideUnder))
		}
	}
	for _, marketID := range firstGoal {
		add(marketID, FirstGoalNoneID(marketID))
	}
	return out
}
