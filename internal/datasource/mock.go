package datasource

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/yourusername/nhl-picks/internal/logger"
	"github.com/yourusername/nhl-picks/internal/models"
	"github.com/yourusername/nhl-picks/internal/odds"
)

const mockSourceName = "mock"

// Lines the mock books post for count props
const (
	mockShotsLine  = 2.5
	mockPointsLine = 0.5
)

// MockConfig shapes the synthetic league
type MockConfig struct {
	Seed           int64
	Teams          []string
	PlayersPerTeam int
	SeasonStart    time.Time
	Books          []string
	Margin         float64
}

// DefaultMockConfig returns an eight-team league starting 2024-10-08
func DefaultMockConfig() MockConfig {
	return MockConfig{
		Seed:           42,
		Teams:          []string{"BOS", "NYR", "TOR", "MTL", "EDM", "VGK", "COL", "DAL"},
		PlayersPerTeam: 6,
		SeasonStart:    time.Date(2024, 10, 8, 0, 0, 0, 0, time.UTC),
		Books:          []string{"book_a", "book_b"},
		Margin:         0.05,
	}
}

type mockPlayer struct {
	id          string
	name        string
	team        string
	shotsPer60  float64
	minutes     float64
	shootingPct float64
	assistsPG   float64
}

func (p mockPlayer) shotsMean() float64 {
	return p.shotsPer60 * p.minutes / 60
}

func (p mockPlayer) goalsMean() float64 {
	return p.shotsMean() * p.shootingPct
}

// MockSource is a reproducible synthetic league. Every team plays every
// day from SeasonStart; a given seed always yields the same games, box
// scores and prices.
type MockSource struct {
	cfg     MockConfig
	players []mockPlayer
	byTeam  map[string][]mockPlayer
	now     func() time.Time
	logger  *logrus.Entry
}

// NewMockSource builds the league rosters from cfg.Seed
func NewMockSource(cfg MockConfig, log *logrus.Logger) (*MockSource, error) {
	defaults := DefaultMockConfig()
	if len(cfg.Teams) == 0 {
		cfg.Teams = defaults.Teams
	}
	if len(cfg.Teams) < 2 {
		return nil, fmt.Errorf("%w: mock league needs at least two teams", models.ErrInvalidInput)
	}
	if cfg.PlayersPerTeam <= 0 {
		cfg.PlayersPerTeam = defaults.PlayersPerTeam
	}
	if cfg.SeasonStart.IsZero() {
		cfg.SeasonStart = defaults.SeasonStart
	}
	cfg.SeasonStart = models.DateOnly(cfg.SeasonStart)
	if len(cfg.Books) == 0 {
		cfg.Books = defaults.Books
	}
	if cfg.Margin < 0 || cfg.Margin >= 0.5 {
		return nil, fmt.Errorf("%w: mock margin %v outside [0, 0.5)", models.ErrInvalidInput, cfg.Margin)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	src := &MockSource{
		cfg:    cfg,
		byTeam: make(map[string][]mockPlayer, len(cfg.Teams)),
		now:    time.Now,
		logger: logger.OrDiscard(log).WithField("source", mockSourceName),
	}
	for ti, team := range cfg.Teams {
		for j := 0; j < cfg.PlayersPerTeam; j++ {
			p := mockPlayer{
				id:          fmt.Sprintf("%d", 8470000+ti*100+j),
				name:        fmt.Sprintf("%s Skater %d", team, j+1),
				team:        team,
				shotsPer60:  4 + rng.Float64()*8,
				minutes:     13 + rng.Float64()*9,
				shootingPct: 0.06 + rng.Float64()*0.08,
				assistsPG:   0.1 + rng.Float64()*0.4,
			}
			src.players = append(src.players, p)
			src.byTeam[team] = append(src.byTeam[team], p)
		}
	}
	return src, nil
}

// WithClock overrides the clock used to timestamp same-day quotes
func (m *MockSource) WithClock(now func() time.Time) *MockSource {
	m.now = now
	return m
}

// Name returns the name of the data source
func (m *MockSource) Name() string {
	return mockSourceName
}

// FetchSlate returns the synthetic games on date
func (m *MockSource) FetchSlate(ctx context.Context, date time.Time) ([]models.Game, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.games(models.DateOnly(date)), nil
}

// FetchGameLogs simulates every game in the query window
func (m *MockSource) FetchGameLogs(ctx context.Context, query GameLogQuery) ([]models.GameLogRow, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	start := m.cfg.SeasonStart
	if !query.From.IsZero() && models.DateOnly(query.From).After(start) {
		start = models.DateOnly(query.From)
	}
	end := models.DateOnly(query.To)

	var rows []models.GameLogRow
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, g := range m.games(d) {
			for _, row := range m.simulate(g) {
				if query.Matches(row) {
					rows = append(rows, row)
				}
			}
		}
	}
	m.logger.WithFields(logrus.Fields{
		"from": start.Format(time.DateOnly),
		"to":   end.Format(time.DateOnly),
		"rows": len(rows),
	}).Debug("Simulated game logs")
	return rows, nil
}

// FetchOdds prices shots, points and first-goal markets for every game on
// date at each configured book, with the book margin applied per outcome.
func (m *MockSource) FetchOdds(ctx context.Context, date time.Time) ([]models.OddsQuote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	date = models.DateOnly(date)
	posted := m.postedAt(date)

	var quotes []models.OddsQuote
	for _, g := range m.games(date) {
		roster := append(append([]mockPlayer{}, m.byTeam[g.HomeTeam]...), m.byTeam[g.AwayTeam]...)
		for bi, book := range m.cfg.Books {
			rng := rand.New(rand.NewSource(m.cfg.Seed ^ int64(hashString(g.GameID+"|"+book))))
			ts := posted.Add(-time.Duration(bi*5) * time.Minute)
			price := func(p float64) decimal.Decimal {
				return bookPrice(p, m.cfg.Margin+(rng.Float64()-0.5)*0.02)
			}

			for _, p := range roster {
				over := 1 - distuv.Poisson{Lambda: p.shotsMean()}.CDF(math.Floor(mockShotsLine))
				quotes = append(quotes, overUnder(p, models.StatShots, mockShotsLine, over, book, ts, price)...)

				pointsMean := p.goalsMean() + p.assistsPG
				quotes = append(quotes, overUnder(p, models.StatPoints, mockPointsLine, 1-math.Exp(-pointsMean), book, ts, price)...)
			}

			marketID := odds.FirstGoalMarketID(g.GameID)
			total := 0.0
			for _, p := range roster {
				total += p.goalsMean()
			}
			anyGoal := 1 - math.Exp(-total)
			line := 0.5
			for _, p := range roster {
				l := line
				quotes = append(quotes, models.OddsQuote{
					MarketID:     marketID,
					OutcomeID:    odds.OutcomeID(models.StatFirstGoal, p.id, line, models.SideYes),
					BookName:     book,
					DecimalPrice: price(p.goalsMean() / total * anyGoal),
					Timestamp:    ts,
					PlayerID:     p.id,
					StatKind:     models.StatFirstGoal,
					Line:         &l,
					Side:         models.SideYes,
				})
			}
			quotes = append(quotes, models.OddsQuote{
				MarketID:     marketID,
				OutcomeID:    odds.FirstGoalNoneID(marketID),
				BookName:     book,
				DecimalPrice: price(1 - anyGoal),
				Timestamp:    ts,
				StatKind:     models.StatFirstGoal,
				Side:         models.SideNone,
			})
		}
	}
	return quotes, nil
}

// postedAt is the source clock for today or later and 17:00 UTC on past dates
func (m *MockSource) postedAt(date time.Time) time.Time {
	now := m.now()
	if !date.Before(models.DateOnly(now)) {
		return now
	}
	return date.Add(17 * time.Hour)
}

func overUnder(p mockPlayer, stat models.StatKind, line, over float64, book string, ts time.Time, price func(float64) decimal.Decimal) []models.OddsQuote {
	marketID := odds.MarketID(stat, p.id, line)
	quotes := make([]models.OddsQuote, 0, 2)
	for _, side := range []struct {
		name string
		prob float64
	}{{models.SideOver, over}, {models.SideUnder, 1 - over}} {
		l := line
		quotes = append(quotes, models.OddsQuote{
			MarketID:     marketID,
			OutcomeID:    odds.OutcomeID(stat, p.id, line, side.name),
			BookName:     book,
			DecimalPrice: price(side.prob),
			Timestamp:    ts,
			PlayerID:     p.id,
			StatKind:     stat,
			Line:         &l,
			Side:         side.name,
		})
	}
	return quotes
}

// bookPrice converts a fair probability into a two-decimal price carrying margin
func bookPrice(p, margin float64) decimal.Decimal {
	implied := math.Min(math.Max(p*(1+margin), 1e-4), 0.99)
	price := decimal.NewFromFloat(1 / implied).Round(2)
	if floor := decimal.NewFromFloat(1.01); price.LessThan(floor) {
		return floor
	}
	return price
}

// games pairs teams for date by a permutation seeded from the day index
func (m *MockSource) games(date time.Time) []models.Game {
	if date.Before(m.cfg.SeasonStart) {
		return nil
	}
	day := int64(date.Sub(m.cfg.SeasonStart).Hours() / 24)
	rng := rand.New(rand.NewSource(m.cfg.Seed*31 + day))
	perm := rng.Perm(len(m.cfg.Teams))

	games := make([]models.Game, 0, len(perm)/2)
	for i := 0; i+1 < len(perm); i += 2 {
		home, away := m.cfg.Teams[perm[i]], m.cfg.Teams[perm[i+1]]
		games = append(games, models.Game{
			GameID:   fmt.Sprintf("%s-%s-%s", date.Format("20060102"), away, home),
			Date:     date,
			HomeTeam: home,
			AwayTeam: away,
		})
	}
	sort.Slice(games, func(i, j int) bool { return games[i].GameID < games[j].GameID })
	return games
}

// simulate draws one box score per rostered skater for g
func (m *MockSource) simulate(g models.Game) []models.GameLogRow {
	rng := rand.New(rand.NewSource(m.cfg.Seed ^ int64(hashString(g.GameID))))

	var rows []models.GameLogRow
	var goalSlots []int
	for _, team := range g.Teams() {
		opponent, _ := g.Opponent(team)
		for _, p := range m.byTeam[team] {
			shots := poisson(rng, p.shotsMean())
			goals := 0
			for s := 0; s < shots; s++ {
				if rng.Float64() < p.shootingPct {
					goals++
				}
			}
			assists := poisson(rng, p.assistsPG)
			minutes := math.Round(math.Min(math.Max(p.minutes+rng.NormFloat64()*1.5, 5), 30)*10) / 10

			for k := 0; k < goals; k++ {
				goalSlots = append(goalSlots, len(rows))
			}
			rows = append(rows, models.GameLogRow{
				PlayerID:   p.id,
				PlayerName: p.name,
				GameID:     g.GameID,
				Team:       team,
				Date:       g.Date,
				Shots:      shots,
				Points:     goals + assists,
				Goals:      goals,
				Assists:    assists,
				Opponent:   opponent,
				Home:       team == g.HomeTeam,
				Minutes:    minutes,
			})
		}
	}
	if len(goalSlots) > 0 {
		rows[goalSlots[rng.Intn(len(goalSlots))]].FirstGoal = true
	}
	return rows
}

// poisson draws from Poisson(lambda) by Knuth's multiplication method
func poisson(rng *rand.Rand, lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	limit := math.Exp(-lambda)
	k := 0
	p := rng.Float64()
	for p > limit {
		k++
		p *= rng.Float64()
	}
	return k
}

func hashString(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
