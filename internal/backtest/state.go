package backtest

import (
	"time"

	"github.com/yourusername/nhl-picks/internal/models"
)

// SettledBet is a simulated flat-stake bet on a backtest record
type SettledBet struct {
	PlayerID    string          `json:"player_id"`
	Date        time.Time       `json:"date"`
	StatKind    models.StatKind `json:"stat_kind"`
	Price       float64         `json:"price"`
	Stake       float64         `json:"stake"`
	Probability float64         `json:"probability"`
	Edge        float64         `json:"edge"`
	Won         bool            `json:"won"`
	ProfitLoss  float64         `json:"profit_loss"`
}

// BettingState tracks the bankroll through a simulation
type BettingState struct {
	CurrentBankroll float64
	PeakBankroll    float64
	Bets            []SettledBet
	EquityCurve     EquityCurve
	DailyPnL        map[time.Time]float64
}

// NewBettingState initializes the state with an opening equity point dated
// the day before start, so bets settled on start form their own return
func NewBettingState(initialBankroll float64, start time.Time) *BettingState {
	state := &BettingState{
		CurrentBankroll: initialBankroll,
		PeakBankroll:    initialBankroll,
		Bets:            []SettledBet{},
		EquityCurve:     EquityCurve{},
		DailyPnL:        make(map[time.Time]float64),
	}
	state.RecordEquityPoint(models.DateOnly(start).AddDate(0, 0, -1), initialBankroll)
	return state
}

// UpdateState applies a settled bet to the bankroll
func (s *BettingState) UpdateState(bet SettledBet) {
	s.CurrentBankroll += bet.ProfitLoss
	if s.CurrentBankroll > s.PeakBankroll {
		s.PeakBankroll = s.CurrentBankroll
	}
	s.Bets = append(s.Bets, bet)
	s.DailyPnL[models.DateOnly(bet.Date)] += bet.ProfitLoss
}

// GetCurrentDrawdown calculates peak-to-trough drawdown
func (s *BettingState) GetCurrentDrawdown() float64 {
	if s.PeakBankroll == 0 {
		return 0
	}
	drawdown := (s.PeakBankroll - s.CurrentBankroll) / s.PeakBankroll
	if drawdown < 0 {
		return 0
	}
	return drawdown
}

// RecordEquityPoint adds an equity point to the curve
func (s *BettingState) RecordEquityPoint(t time.Time, value float64) {
	drawdown := 0.0
	if value < s.PeakBankroll && s.PeakBankroll > 0 {
		drawdown = (s.PeakBankroll - value) / s.PeakBankroll
	}
	s.EquityCurve = append(s.EquityCurve, EquityPoint{
		Time:     t,
		Value:    value,
		Drawdown: drawdown,
		DailyPnL: s.DailyPnL[models.DateOnly(t)],
	})
}
