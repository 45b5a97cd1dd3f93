package report

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/nhl-picks/internal/models"
	"github.com/yourusername/nhl-picks/internal/service"
)

func ptr(v float64) *float64 { return &v }

func sampleResult() *service.DailyResult {
	slate := time.Date(2024, 10, 15, 0, 0, 0, 0, time.UTC)
	return &service.DailyResult{
		RunID:       uuid.MustParse("6f1c7c8e-4a55-4a8e-9a44-2f0c4a7f9f11"),
		SlateDate:   slate,
		GeneratedAt: time.Date(2024, 10, 15, 16, 0, 0, 0, time.UTC),
		Source:      "mock",
		Games:       []models.Game{{GameID: "g1", Date: slate, HomeTeam: "BOS", AwayTeam: "FLA"}},
		Projections: []models.ProjectedDistribution{
			{PlayerID: "p1", StatKind: models.StatShots, Mean: 3.4},
			{PlayerID: "p2", StatKind: models.StatShots, Mean: 2.1},
		},
		Picks: map[models.StatKind][]models.Pick{
			models.StatShots: {
				{PlayerID: "p1", PlayerName: "Alpha <One>", Team: "BOS", Opponent: "FLA", StatKind: models.StatShots,
					Line: ptr(2.5), ModelProbability: 0.62, FairOdds: 1 / 0.62, BestPrice: ptr(1.9), SourceBook: "book_a", Edge: ptr(0.09)},
				{PlayerID: "p2", Team: "FLA", Opponent: "BOS", StatKind: models.StatShots,
					Line: ptr(2.5), ModelProbability: 0.41, FairOdds: 1 / 0.41},
			},
			models.StatFirstGoal: {
				{PlayerID: "p1", PlayerName: "Alpha <One>", Team: "BOS", StatKind: models.StatFirstGoal,
					Line: ptr(0.5), ModelProbability: 0, FairOdds: math.Inf(1)},
			},
		},
		Notice: "Slate date: 2024-10-15 • Source: mock",
	}
}

func TestBuild(t *testing.T) {
	site := Build(sampleResult(), Options{TopN: 1, SOGLine: 2.5})

	assert.Equal(t, defaultTitle, site.Title)
	assert.Equal(t, "2024-10-15", site.SlateDate)
	assert.Equal(t, "2024-10-15T16:00:00Z", site.GeneratedAt)
	assert.Equal(t, 1, site.Games)

	require.Len(t, site.TopSOG, 1, "top N trims the table")
	row := site.TopSOG[0]
	assert.Equal(t, 1, row.Rank)
	assert.Equal(t, "Alpha <One>", row.Player)
	assert.InDelta(t, 3.4, row.Mean, 1e-9)
	assert.InDelta(t, 0.62, row.Probability, 1e-9)
	require.NotNil(t, row.BestPrice)
	assert.InDelta(t, 1.9, *row.BestPrice, 1e-9)

	assert.Empty(t, site.TopPoints)
	assert.NotNil(t, site.TopPoints)

	require.Len(t, site.TopFGS, 1)
	assert.Nil(t, site.TopFGS[0].FairOdds, "infinite fair odds are omitted")
	assert.Zero(t, site.TopFGS[0].Mean)
}

func TestBuildFallsBackToPlayerID(t *testing.T) {
	site := Build(sampleResult(), Options{})
	require.Len(t, site.TopSOG, 2)
	assert.Equal(t, "p2", site.TopSOG[1].Player)
	assert.Equal(t, 2, site.TopSOG[1].Rank)
}

func TestWriteSite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "site")

	paths, err := WriteSite(dir, sampleResult(), Options{Title: "Picks", TopN: 10, SOGLine: 2.5})
	require.NoError(t, err)
	require.Len(t, paths, 2)

	data, err := os.ReadFile(filepath.Join(dir, PicksFile))
	require.NoError(t, err)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &payload))
	for _, key := range []string{"generated_at", "sog_line", "top_sog", "top_points", "top_fgs", "notice"} {
		assert.Contains(t, payload, key)
	}
	assert.Equal(t, 2.5, payload["sog_line"])

	page, err := os.ReadFile(filepath.Join(dir, IndexFile))
	require.NoError(t, err)
	html := string(page)
	assert.Contains(t, html, "<title>Picks</title>")
	assert.Contains(t, html, "Shots on goal: over 2.50")
	assert.Contains(t, html, "Alpha &lt;One&gt;", "player names are escaped")
	assert.Contains(t, html, "62.0%")
	assert.Contains(t, html, "+9.0%")
	assert.Contains(t, html, "No picks.", "empty points table")
	assert.Contains(t, html, "Source: mock")
}

func TestWriteSiteDegraded(t *testing.T) {
	res := &service.DailyResult{
		SlateDate: time.Date(2024, 10, 15, 0, 0, 0, 0, time.UTC),
		Source:    "nhl_web",
		Degraded:  true,
		Notice:    "Slate date: 2024-10-15 • Live nhl_web fetch FAILED (boom). Showing no picks.",
	}
	dir := t.TempDir()

	_, err := WriteSite(dir, res, Options{})
	require.NoError(t, err)

	var site Site
	data, err := os.ReadFile(filepath.Join(dir, PicksFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &site))
	assert.True(t, site.Degraded)
	assert.Empty(t, site.TopSOG)
	assert.Contains(t, site.Notice, "FAILED")

	page, err := os.ReadFile(filepath.Join(dir, IndexFile))
	require.NoError(t, err)
	assert.Contains(t, string(page), "degraded")
}

func TestWriteSiteNil(t *testing.T) {
	_, err := WriteSite(t.TempDir(), nil, Options{})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}
