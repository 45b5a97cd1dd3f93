package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/nhl-picks/internal/backtest"
	"github.com/yourusername/nhl-picks/internal/datasource"
	"github.com/yourusername/nhl-picks/internal/models"
	"github.com/yourusername/nhl-picks/internal/odds"
	"github.com/yourusername/nhl-picks/internal/projection"
)

func newBacktestService(t *testing.T, src datasource.DataSource, start, end time.Time) *BacktestService {
	t.Helper()
	projector, err := projection.NewProjector(projection.DefaultConfig(), nil)
	require.NoError(t, err)

	engine, err := backtest.NewEngine(backtest.BacktestConfig{
		StartDate:    start,
		EndDate:      end,
		HalfLifeDays: 10,
		LookbackDays: 30,
		Workers:      4,
		Bins:         10,
		MinRecords:   5,
		Stats:        []models.StatKind{models.StatShots, models.StatPoints, models.StatFirstGoal},
		Lines: map[models.StatKind]float64{
			models.StatShots:  2.5,
			models.StatPoints: 0.5,
		},
		MinEdge:             0.02,
		Stake:               10,
		InitialBankroll:     1000,
		BootstrapIterations: 20,
		ConfidenceLevel:     0.9,
		Seed:                7,
		RollingWindowDays:   2,
	}, projector, nil)
	require.NoError(t, err)

	svc, err := NewBacktestService(src, engine, odds.Config{Staleness: 90 * time.Minute, Workers: 2}, nil)
	require.NoError(t, err)
	return svc
}

func TestNewBacktestServiceValidation(t *testing.T) {
	_, err := NewBacktestService(nil, nil, odds.Config{}, nil)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestBacktestWithMockLeague(t *testing.T) {
	src, err := datasource.NewMockSource(datasource.DefaultMockConfig(), nil)
	require.NoError(t, err)
	src.WithClock(func() time.Time { return time.Date(2024, 12, 1, 9, 0, 0, 0, time.UTC) })

	start := time.Date(2024, 10, 14, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 10, 16, 0, 0, 0, 0, time.UTC)
	svc := newBacktestService(t, src, start, end)

	prices, err := svc.historicalPrices(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, prices, 3, "each replayed date is priced")
	for d, list := range prices {
		assert.Equal(t, models.DateOnly(d), d)
		require.NotEmpty(t, list)
		for i := 1; i < len(list); i++ {
			assert.Less(t, list[i-1].OutcomeID, list[i].OutcomeID)
		}
	}

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, result.Records)
	assert.NotEmpty(t, result.Stats)
	assert.NotEmpty(t, result.Recommendation)

	priced := 0
	for _, r := range result.Records {
		assert.False(t, r.Date.Before(start))
		assert.False(t, r.Date.After(end))
		if r.BookPrice != nil {
			priced++
		}
	}
	assert.Positive(t, priced)
}

func TestBacktestWithoutOdds(t *testing.T) {
	start := slateDay.AddDate(0, 0, -3)
	end := slateDay.AddDate(0, 0, -1)

	src := &mockSource{}
	src.On("FetchGameLogs", mock.Anything, mock.MatchedBy(func(q datasource.GameLogQuery) bool {
		return q.To.Equal(slateDay) && q.From.Equal(start.AddDate(0, 0, -30))
	})).Return(bosNyrLogs(), nil)
	src.On("FetchOdds", mock.Anything, start).Return(nil, datasource.ErrNotSupported).Once()

	result, err := newBacktestService(t, src, start, end).Run(context.Background())
	require.NoError(t, err)
	src.AssertExpectations(t)
	src.AssertNumberOfCalls(t, "FetchOdds", 1)

	require.NotEmpty(t, result.Records)
	for _, r := range result.Records {
		assert.Nil(t, r.BookPrice)
	}
}

func TestBacktestSkipsMissingOddsDates(t *testing.T) {
	start := slateDay.AddDate(0, 0, -3)
	end := slateDay.AddDate(0, 0, -1)

	src := &mockSource{}
	src.On("FetchOdds", mock.Anything, start).Return(nil, datasource.ErrNotFound)
	src.On("FetchOdds", mock.Anything, start.AddDate(0, 0, 1)).Return(nil, errors.New("timeout"))
	src.On("FetchOdds", mock.Anything, end).Return([]models.OddsQuote{}, nil)

	prices, err := newBacktestService(t, src, start, end).historicalPrices(context.Background(), start, end)
	require.NoError(t, err)
	assert.Empty(t, prices)
	src.AssertNumberOfCalls(t, "FetchOdds", 3)
}

func TestBacktestLogFailure(t *testing.T) {
	src := &mockSource{}
	src.On("FetchGameLogs", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	_, err := newBacktestService(t, src, slateDay.AddDate(0, 0, -3), slateDay).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
