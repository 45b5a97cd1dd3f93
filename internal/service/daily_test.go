package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/nhl-picks/internal/datasource"
	"github.com/yourusername/nhl-picks/internal/models"
	"github.com/yourusername/nhl-picks/internal/odds"
	"github.com/yourusername/nhl-picks/internal/projection"
)

// mockSource is a testify mock of datasource.DataSource
type mockSource struct {
	mock.Mock
}

func (m *mockSource) FetchSlate(ctx context.Context, date time.Time) ([]models.Game, error) {
	args := m.Called(ctx, date)
	games, _ := args.Get(0).([]models.Game)
	return games, args.Error(1)
}

func (m *mockSource) FetchGameLogs(ctx context.Context, q datasource.GameLogQuery) ([]models.GameLogRow, error) {
	args := m.Called(ctx, q)
	rows, _ := args.Get(0).([]models.GameLogRow)
	return rows, args.Error(1)
}

func (m *mockSource) FetchOdds(ctx context.Context, date time.Time) ([]models.OddsQuote, error) {
	args := m.Called(ctx, date)
	quotes, _ := args.Get(0).([]models.OddsQuote)
	return quotes, args.Error(1)
}

func (m *mockSource) Name() string { return "test_source" }

var (
	slateDay = time.Date(2024, 10, 15, 0, 0, 0, 0, time.UTC)
	runClock = time.Date(2024, 10, 15, 16, 0, 0, 0, time.UTC)
)

func testDailyConfig() DailyConfig {
	return DailyConfig{HalfLifeDays: 10, LookbackDays: 30, Workers: 4, ShotsLine: 2.5, PointsLine: 0.5}
}

func newDailyService(t *testing.T, src datasource.DataSource) *DailyService {
	t.Helper()
	projector, err := projection.NewProjector(projection.DefaultConfig(), nil)
	require.NoError(t, err)
	normalizer := odds.NewNormalizer(odds.Config{Staleness: 90 * time.Minute, Workers: 4}, nil).
		WithClock(func() time.Time { return runClock })

	svc, err := NewDailyService(src, testDailyConfig(), projector, normalizer, nil)
	require.NoError(t, err)
	return svc.WithClock(func() time.Time { return runClock })
}

// bosNyrLogs is a week of one BOS skater facing one NYR skater
func bosNyrLogs() []models.GameLogRow {
	var rows []models.GameLogRow
	for i := 1; i <= 7; i++ {
		d := slateDay.AddDate(0, 0, -i)
		gameID := fmt.Sprintf("g%d", i)
		rows = append(rows,
			models.GameLogRow{PlayerID: "A", PlayerName: "Skater A", GameID: gameID, Team: "BOS", Opponent: "NYR",
				Home: true, Date: d, Shots: 3 + i%2, Goals: i % 2, Points: i % 2, Minutes: 18},
			models.GameLogRow{PlayerID: "B", PlayerName: "Skater B", GameID: gameID, Team: "NYR", Opponent: "BOS",
				Date: d, Shots: 1 + i%3, Goals: i % 3 / 2, Assists: 1, Points: 1 + i%3/2, Minutes: 16},
		)
	}
	return rows
}

func TestNewDailyServiceValidation(t *testing.T) {
	projector, err := projection.NewProjector(projection.DefaultConfig(), nil)
	require.NoError(t, err)
	normalizer := odds.NewNormalizer(odds.Config{}, nil)

	_, err = NewDailyService(nil, testDailyConfig(), projector, normalizer, nil)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = NewDailyService(&mockSource{}, testDailyConfig(), nil, normalizer, nil)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	cfg := testDailyConfig()
	cfg.HalfLifeDays = 0
	_, err = NewDailyService(&mockSource{}, cfg, projector, normalizer, nil)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestRunDailyWithMockLeague(t *testing.T) {
	src, err := datasource.NewMockSource(datasource.DefaultMockConfig(), nil)
	require.NoError(t, err)
	src.WithClock(func() time.Time { return runClock })

	res, err := newDailyService(t, src).RunDaily(context.Background(), slateDay)
	require.NoError(t, err)

	assert.False(t, res.Degraded)
	assert.Equal(t, "mock", res.Source)
	assert.Equal(t, "Slate date: 2024-10-15 • Source: mock", res.Notice)
	assert.Len(t, res.Games, 4)
	assert.NotEmpty(t, res.Projections)
	assert.NotEmpty(t, res.FirstGoal)
	assert.Equal(t, len(res.FirstGoal), res.Stats.FirstGoalMarkets)
	assert.Positive(t, res.Stats.MarketsPriced)

	for _, stat := range []models.StatKind{models.StatShots, models.StatPoints, models.StatFirstGoal} {
		picks := res.Picks[stat]
		require.NotEmpty(t, picks, stat)
		for i := 1; i < len(picks); i++ {
			assert.GreaterOrEqual(t, picks[i-1].ModelProbability, picks[i].ModelProbability, "%s ranked", stat)
		}
	}

	priced := 0
	for _, p := range res.Picks[models.StatShots] {
		assert.NotEmpty(t, p.Opponent)
		if p.BestPrice != nil {
			priced++
			require.NotNil(t, p.FairProbability)
			require.NotNil(t, p.Edge)
			require.NotNil(t, p.ExpectedValue)
			assert.InDelta(t, p.ModelProbability-1/(*p.BestPrice), *p.Edge, 1e-9)
			assert.InDelta(t, p.ModelProbability*(*p.BestPrice)-1, *p.ExpectedValue, 1e-9)
		}
	}
	assert.Positive(t, priced)

	for _, m := range res.FirstGoal {
		assert.InDelta(t, 1.0, m.Total(), 1e-9, m.GameID+":"+m.Team)
	}
}

func TestRunDailyIsDeterministic(t *testing.T) {
	run := func() *DailyResult {
		src, err := datasource.NewMockSource(datasource.DefaultMockConfig(), nil)
		require.NoError(t, err)
		src.WithClock(func() time.Time { return runClock })
		res, err := newDailyService(t, src).RunDaily(context.Background(), slateDay)
		require.NoError(t, err)
		return res
	}

	a, b := run(), run()
	assert.Equal(t, a.Projections, b.Projections)
	assert.Equal(t, a.Picks, b.Picks)
}

func TestRunDailyDegradedOnSlateFailure(t *testing.T) {
	src := &mockSource{}
	src.On("FetchSlate", mock.Anything, slateDay).
		Return(nil, datasource.DataSourceError{Source: "test_source", Code: datasource.ErrCodeNetworkError, Message: "dial failed"})

	res, err := newDailyService(t, src).RunDaily(context.Background(), slateDay)
	require.NoError(t, err)

	assert.True(t, res.Degraded)
	assert.Empty(t, res.Picks)
	assert.Empty(t, res.Games)
	assert.Contains(t, res.Notice, "Slate date: 2024-10-15 • Live test_source fetch FAILED")
	assert.Contains(t, res.Notice, "Showing no picks.")
	src.AssertExpectations(t)
	src.AssertNotCalled(t, "FetchGameLogs", mock.Anything, mock.Anything)
}

func TestRunDailyDegradedOnLogFailure(t *testing.T) {
	src := &mockSource{}
	src.On("FetchSlate", mock.Anything, slateDay).
		Return([]models.Game{{GameID: "g0", Date: slateDay, HomeTeam: "BOS", AwayTeam: "NYR"}}, nil)
	src.On("FetchGameLogs", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	res, err := newDailyService(t, src).RunDaily(context.Background(), slateDay)
	require.NoError(t, err)

	assert.True(t, res.Degraded)
	assert.Empty(t, res.Games)
	assert.Contains(t, res.Notice, "FAILED (boom)")
	src.AssertNotCalled(t, "FetchOdds", mock.Anything, mock.Anything)
}

func TestRunDailyNoGames(t *testing.T) {
	src := &mockSource{}
	src.On("FetchSlate", mock.Anything, slateDay).Return([]models.Game{}, nil)

	res, err := newDailyService(t, src).RunDaily(context.Background(), slateDay)
	require.NoError(t, err)

	assert.False(t, res.Degraded)
	assert.Equal(t, "Slate date: 2024-10-15 • No games scheduled", res.Notice)
	assert.Empty(t, res.Picks)
	src.AssertNotCalled(t, "FetchGameLogs", mock.Anything, mock.Anything)
}

func TestRunDailyWithoutOdds(t *testing.T) {
	src := &mockSource{}
	src.On("FetchSlate", mock.Anything, slateDay).
		Return([]models.Game{{GameID: "g0", Date: slateDay, HomeTeam: "BOS", AwayTeam: "NYR"}}, nil)
	src.On("FetchGameLogs", mock.Anything, mock.MatchedBy(func(q datasource.GameLogQuery) bool {
		return q.To.Equal(slateDay) && q.From.Equal(slateDay.AddDate(0, 0, -30)) &&
			assert.ObjectsAreEqual([]string{"BOS", "NYR"}, q.Teams)
	})).Return(bosNyrLogs(), nil)
	src.On("FetchOdds", mock.Anything, slateDay).Return(nil, datasource.ErrNotSupported)

	res, err := newDailyService(t, src).RunDaily(context.Background(), slateDay)
	require.NoError(t, err)
	src.AssertExpectations(t)

	assert.False(t, res.Degraded)
	assert.Equal(t, "Slate date: 2024-10-15 • Source: test_source", res.Notice)
	assert.Equal(t, 2, res.Stats.Players)
	assert.Len(t, res.Projections, 4)
	assert.Len(t, res.FirstGoal, 2)
	assert.Zero(t, res.Stats.PricedPicks)

	shots := res.Picks[models.StatShots]
	require.Len(t, shots, 2)
	assert.Equal(t, "A", shots[0].PlayerID, "the higher-volume shooter ranks first")
	assert.Equal(t, "NYR", shots[0].Opponent)
	for _, p := range shots {
		assert.Nil(t, p.BestPrice)
		assert.Nil(t, p.Edge)
		assert.InDelta(t, 1/p.ModelProbability, p.FairOdds, 1e-9)
	}
}

func TestRunDailySkipsPartialMarkets(t *testing.T) {
	ts := runClock.Add(-10 * time.Minute)
	line := 2.5
	fgLine := 0.5
	fg := odds.FirstGoalMarketID("g0")
	q := func(market, outcome, book, player string, stat models.StatKind, l *float64, side string, price float64) models.OddsQuote {
		return models.OddsQuote{MarketID: market, OutcomeID: outcome, BookName: book, DecimalPrice: decimal.NewFromFloat(price),
			Timestamp: ts, PlayerID: player, StatKind: stat, Line: l, Side: side}
	}
	shotsA := odds.MarketID(models.StatShots, "A", line)
	shotsB := odds.MarketID(models.StatShots, "B", line)
	quotes := []models.OddsQuote{
		q(shotsA, odds.OutcomeID(models.StatShots, "A", line, models.SideOver), "book1", "A", models.StatShots, &line, models.SideOver, 1.8),
		q(shotsA, odds.OutcomeID(models.StatShots, "A", line, models.SideUnder), "book1", "A", models.StatShots, &line, models.SideUnder, 2.0),
		q(shotsB, odds.OutcomeID(models.StatShots, "B", line, models.SideOver), "book1", "B", models.StatShots, &line, models.SideOver, 3.0),
		q(fg, odds.OutcomeID(models.StatFirstGoal, "A", fgLine, models.SideYes), "book1", "A", models.StatFirstGoal, &fgLine, models.SideYes, 2.2),
		q(fg, odds.OutcomeID(models.StatFirstGoal, "B", fgLine, models.SideYes), "book1", "B", models.StatFirstGoal, &fgLine, models.SideYes, 2.2),
	}

	src := &mockSource{}
	src.On("FetchSlate", mock.Anything, slateDay).
		Return([]models.Game{{GameID: "g0", Date: slateDay, HomeTeam: "BOS", AwayTeam: "NYR"}}, nil)
	src.On("FetchGameLogs", mock.Anything, mock.Anything).Return(bosNyrLogs(), nil)
	src.On("FetchOdds", mock.Anything, slateDay).Return(quotes, nil)

	res, err := newDailyService(t, src).RunDaily(context.Background(), slateDay)
	require.NoError(t, err)

	skipped := map[string]string{}
	for _, item := range res.Skipped {
		if item.Kind == models.SkipMarket {
			skipped[item.Key] = item.Reason
		}
	}
	require.Contains(t, skipped, fg, "a first goal market without its no-goal outcome is incomplete")
	assert.Contains(t, skipped[fg], odds.FirstGoalNoneID(fg))
	require.Contains(t, skipped, shotsB)
	assert.Contains(t, skipped[shotsB], odds.OutcomeID(models.StatShots, "B", line, models.SideUnder))
	assert.Equal(t, 1, res.Stats.MarketsPriced)

	for _, p := range res.Picks[models.StatFirstGoal] {
		assert.Nil(t, p.BestPrice, p.PlayerID)
	}
	for _, p := range res.Picks[models.StatShots] {
		if p.PlayerID == "A" {
			assert.NotNil(t, p.BestPrice)
		} else {
			assert.Nil(t, p.BestPrice)
		}
	}
}

func TestRunDailyRejectsBadRows(t *testing.T) {
	logs := append(bosNyrLogs(), models.GameLogRow{
		PlayerID: "C", Team: "BOS", Date: slateDay.AddDate(0, 0, -1), Goals: 2, Points: 1,
	})

	src := &mockSource{}
	src.On("FetchSlate", mock.Anything, slateDay).
		Return([]models.Game{{GameID: "g0", Date: slateDay, HomeTeam: "BOS", AwayTeam: "NYR"}}, nil)
	src.On("FetchGameLogs", mock.Anything, mock.Anything).Return(logs, nil)
	src.On("FetchOdds", mock.Anything, slateDay).Return(nil, datasource.ErrNotFound)

	res, err := newDailyService(t, src).RunDaily(context.Background(), slateDay)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Stats.RejectedRows)
	for _, p := range res.Projections {
		assert.NotEqual(t, "C", p.PlayerID)
	}
}

func TestRunDailyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &mockSource{}
	src.On("FetchSlate", mock.Anything, slateDay).Return(nil, context.Canceled)

	_, err := newDailyService(t, src).RunDaily(ctx, slateDay)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChooseSlateDate(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	tests := []struct {
		name     string
		now      time.Time
		loc      *time.Location
		rollover int
		want     time.Time
	}{
		{"before rollover", time.Date(2024, 10, 15, 22, 59, 0, 0, chicago), chicago, 23, slateDay},
		{"at rollover", time.Date(2024, 10, 15, 23, 0, 0, 0, chicago), chicago, 23, slateDay.AddDate(0, 0, 1)},
		{"utc instant in chicago evening", time.Date(2024, 10, 16, 3, 30, 0, 0, time.UTC), chicago, 23, slateDay},
		{"rollover disabled", time.Date(2024, 10, 15, 23, 59, 0, 0, chicago), chicago, 24, slateDay},
		{"nil location is utc", time.Date(2024, 10, 15, 12, 0, 0, 0, time.UTC), nil, 23, slateDay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChooseSlateDate(tt.now, tt.loc, tt.rollover))
		})
	}
}

func TestRunStatsString(t *testing.T) {
	start := time.Date(2024, 10, 15, 16, 0, 0, 0, time.UTC)
	stats := NewRunStats(start)
	stats.Games = 4
	stats.RecordProjection()
	stats.RecordProjection()
	stats.PricedPicks = 1
	stats.RecordRejected(3)
	stats.RecordSkipped(2)
	stats.Finish(start.Add(1500 * time.Millisecond))

	s := stats.String()
	assert.Contains(t, s, "Games=4")
	assert.Contains(t, s, "Projections=2")
	assert.Contains(t, s, "Priced=1 (50.0%)")
	assert.Contains(t, s, "Rejected=3")
	assert.Contains(t, s, "Skipped=2")
	assert.Contains(t, s, "Duration=1.5s")
}
