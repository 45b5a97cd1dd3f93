// Package report renders a daily run as a static site: picks.json for
// machines and index.html for people.
package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/yourusername/nhl-picks/internal/models"
	"github.com/yourusername/nhl-picks/internal/service"
)

const (
	// PicksFile is the JSON payload written next to the HTML page
	PicksFile = "picks.json"
	// IndexFile is the rendered HTML page
	IndexFile = "index.html"

	defaultTitle = "NHL Player Picks"
	defaultTopN  = 25
)

// Options controls what the site shows
type Options struct {
	Title   string
	TopN    int
	SOGLine float64
}

func (o Options) withDefaults() Options {
	if o.Title == "" {
		o.Title = defaultTitle
	}
	if o.TopN <= 0 {
		o.TopN = defaultTopN
	}
	return o
}

// Row is one ranked pick in a published table
type Row struct {
	Rank          int      `json:"rank"`
	PlayerID      string   `json:"player_id"`
	Player        string   `json:"player"`
	Team          string   `json:"team"`
	Opponent      string   `json:"opponent,omitempty"`
	Mean          float64  `json:"mean"`
	Probability   float64  `json:"probability"`
	FairOdds      *float64 `json:"fair_odds,omitempty"`
	BestPrice     *float64 `json:"best_price,omitempty"`
	SourceBook    string   `json:"source_book,omitempty"`
	Edge          *float64 `json:"edge,omitempty"`
	ExpectedValue *float64 `json:"expected_value,omitempty"`
}

// Site is the published document. picks.json is this struct; index.html is
// rendered from it.
type Site struct {
	Title       string  `json:"title"`
	RunID       string  `json:"run_id"`
	GeneratedAt string  `json:"generated_at"`
	SlateDate   string  `json:"slate_date"`
	Source      string  `json:"source"`
	SOGLine     float64 `json:"sog_line"`
	Games       int     `json:"games"`
	Degraded    bool    `json:"degraded"`
	Notice      string  `json:"notice"`
	TopSOG      []Row   `json:"top_sog"`
	TopPoints   []Row   `json:"top_points"`
	TopFGS      []Row   `json:"top_fgs"`
}

// Build assembles the published view of a daily result
func Build(res *service.DailyResult, opts Options) Site {
	opts = opts.withDefaults()
	site := Site{
		Title:       opts.Title,
		RunID:       res.RunID.String(),
		GeneratedAt: res.GeneratedAt.UTC().Format(time.RFC3339),
		SlateDate:   res.SlateDate.Format(time.DateOnly),
		Source:      res.Source,
		SOGLine:     opts.SOGLine,
		Games:       len(res.Games),
		Degraded:    res.Degraded,
		Notice:      res.Notice,
		TopSOG:      []Row{},
		TopPoints:   []Row{},
		TopFGS:      []Row{},
	}

	means := make(map[string]float64, len(res.Projections))
	for _, d := range res.Projections {
		means[d.PlayerID+":"+string(d.StatKind)] = d.Mean
	}

	site.TopSOG = rows(res.Picks[models.StatShots], opts.TopN, means)
	site.TopPoints = rows(res.Picks[models.StatPoints], opts.TopN, means)
	site.TopFGS = rows(res.Picks[models.StatFirstGoal], opts.TopN, means)
	return site
}

// rows keeps the first n picks, which arrive ranked
func rows(picks []models.Pick, n int, means map[string]float64) []Row {
	if len(picks) > n {
		picks = picks[:n]
	}
	out := make([]Row, 0, len(picks))
	for i, p := range picks {
		name := p.PlayerName
		if name == "" {
			name = p.PlayerID
		}
		var fair *float64
		if !math.IsInf(p.FairOdds, 0) && !math.IsNaN(p.FairOdds) {
			v := p.FairOdds
			fair = &v
		}
		mean, ok := means[p.PlayerID+":"+string(p.StatKind)]
		if !ok {
			mean = p.ModelProbability
		}
		out = append(out, Row{
			Rank:          i + 1,
			PlayerID:      p.PlayerID,
			Player:        name,
			Team:          p.Team,
			Opponent:      p.Opponent,
			Mean:          mean,
			Probability:   p.ModelProbability,
			FairOdds:      fair,
			BestPrice:     p.BestPrice,
			SourceBook:    p.SourceBook,
			Edge:          p.Edge,
			ExpectedValue: p.ExpectedValue,
		})
	}
	return out
}

// WriteSite writes picks.json and index.html into dir and returns their paths
func WriteSite(dir string, res *service.DailyResult, opts Options) ([]string, error) {
	if res == nil {
		return nil, fmt.Errorf("%w: nothing to publish", models.ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	site := Build(res, opts)

	jsonPath := filepath.Join(dir, PicksFile)
	data, err := json.MarshalIndent(site, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode picks: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", PicksFile, err)
	}

	htmlPath := filepath.Join(dir, IndexFile)
	f, err := os.Create(htmlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", IndexFile, err)
	}
	defer f.Close()
	if err := pageTemplate.Execute(f, site); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", IndexFile, err)
	}

	return []string{jsonPath, htmlPath}, nil
}

type table struct {
	Heading string
	Line    float64
	Rows    []Row
}

var pageTemplate = template.Must(template.New("index").Funcs(template.FuncMap{
	"tableOf": func(heading string, line float64, rows []Row) table {
		return table{Heading: heading, Line: line, Rows: rows}
	},
	"pct": func(p float64) string { return fmt.Sprintf("%.1f%%", p*100) },
	"num": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"price": func(p *float64) string {
		if p == nil {
			return "-"
		}
		return fmt.Sprintf("%.2f", *p)
	},
	"signed": func(p *float64) string {
		if p == nil {
			return "-"
		}
		return fmt.Sprintf("%+.1f%%", *p*100)
	},
}).Parse(pageHTML))

const pageHTML = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; color: #1b1b1b; }
table { border-collapse: collapse; margin-bottom: 2rem; min-width: 40rem; }
th, td { border-bottom: 1px solid #ddd; padding: 0.35rem 0.6rem; text-align: right; }
th:nth-child(2), td:nth-child(2) { text-align: left; }
.notice { color: #555; margin-bottom: 1.5rem; }
.degraded { color: #a00; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="notice{{if .Degraded}} degraded{{end}}">{{.Notice}}</p>
<p class="notice">Generated {{.GeneratedAt}}</p>
{{template "table" (tableOf "Shots on goal: over " .SOGLine .TopSOG)}}
{{template "table" (tableOf "Points: 1+" 0.0 .TopPoints)}}
{{template "table" (tableOf "First goalscorer" 0.0 .TopFGS)}}
</body>
</html>
{{define "table"}}
<h2>{{.Heading}}{{if gt .Line 0.0}}{{num .Line}}{{end}}</h2>
{{if .Rows}}
<table>
<thead><tr><th>#</th><th>Player</th><th>Team</th><th>Opp</th><th>Mean</th><th>Prob</th><th>Fair</th><th>Best</th><th>Book</th><th>Edge</th></tr></thead>
<tbody>
{{range .Rows}}<tr><td>{{.Rank}}</td><td>{{.Player}}</td><td>{{.Team}}</td><td>{{.Opponent}}</td><td>{{num .Mean}}</td><td>{{pct .Probability}}</td><td>{{price .FairOdds}}</td><td>{{price .BestPrice}}</td><td>{{.SourceBook}}</td><td>{{signed .Edge}}</td></tr>
{{end}}</tbody>
</table>
{{else}}
<p>No picks.</p>
{{end}}
{{end}}`
