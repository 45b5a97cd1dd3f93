package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Outcome sides for over/under and yes/no markets
const (
	SideOver  = "over"
	SideUnder = "under"
	SideYes   = "yes"
	SideNone  = "none"
)

// OddsQuote is one bookmaker's price for one outcome at one moment.
// PlayerID, StatKind, Line and Side are join keys supplied by the adapter
// that produced the quote; the normalizer does not interpret them.
type OddsQuote struct {
	MarketID     string          `json:"market_id" csv:"market_id" validate:"required"`
	OutcomeID    string          `json:"outcome_id" csv:"outcome_id" validate:"required"`
	BookName     string          `json:"book_name" csv:"book_name" validate:"required"`
	DecimalPrice decimal.Decimal `json:"decimal_price" csv:"decimal_price"`
	Timestamp    time.Time       `json:"timestamp" csv:"timestamp" validate:"required"`
	PlayerID     string          `json:"player_id,omitempty" csv:"player_id"`
	StatKind     StatKind        `json:"stat_kind,omitempty" csv:"stat_kind"`
	Line         *float64        `json:"line,omitempty" csv:"line"`
	Side         string          `json:"side,omitempty" csv:"side"`
}

// FairPrice is the de-vigged consensus for one outcome plus the best price
// any fresh quote offers for it.
type FairPrice struct {
	MarketID           string          `json:"market_id"`
	OutcomeID          string          `json:"outcome_id"`
	ImpliedProbability float64         `json:"implied_probability"`
	FairDecimalPrice   float64         `json:"fair_decimal_price"`
	BestDecimalPrice   decimal.Decimal `json:"best_decimal_price"`
	SourceBook         string          `json:"source_book"`
	BookCount          int             `json:"book_count"`
	Overround          float64         `json:"overround"`
	PlayerID           string          `json:"player_id,omitempty"`
	StatKind           StatKind        `json:"stat_kind,omitempty"`
	Line               *float64        `json:"line,omitempty"`
	Side               string          `json:"side,omitempty"`
}

// BestPriceFloat returns the best price as a float64
func (f *FairPrice) BestPriceFloat() float64 {
	return f.BestDecimalPrice.InexactFloat64()
}

// Pick pairs a model probability with the market's view of the same outcome
type Pick struct {
	PlayerID         string   `json:"player_id"`
	PlayerName       string   `json:"player_name,omitempty"`
	Team             string   `json:"team,omitempty"`
	Opponent         string   `json:"opponent,omitempty"`
	StatKind         StatKind `json:"stat_kind"`
	Line             *float64 `json:"line,omitempty"`
	ModelProbability float64  `json:"model_probability"`
	FairOdds         float64  `json:"fair_odds"`
	FairProbability  *float64 `json:"fair_probability,omitempty"`
	BestPrice        *float64 `json:"best_price,omitempty"`
	SourceBook       string   `json:"source_book,omitempty"`
	Edge             *float64 `json:"edge,omitempty"`
	ExpectedValue    *float64 `json:"expected_value,omitempty"`
}
