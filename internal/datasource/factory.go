package datasource

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/nhl-picks/internal/config"
	"github.com/yourusername/nhl-picks/internal/logger"
)

// SourceType represents the type of data source
type SourceType string

const (
	// MockSourceType is the seeded synthetic league
	MockSourceType SourceType = "mock"
	// CSVSourceType reads exported files from a directory
	CSVSourceType SourceType = "csv"
	// NHLWebSourceType reads the public ESPN and NHL web endpoints
	NHLWebSourceType SourceType = "nhl_web"
)

// Factory creates DataSource implementations based on configuration
type Factory struct {
	logger *logrus.Logger
	config config.DataSourceConfig
}

// NewFactory creates a new data source factory
func NewFactory(cfg *config.Config, log *logrus.Logger) *Factory {
	f := &Factory{logger: logger.OrDiscard(log)}
	if cfg != nil {
		f.config = cfg.DataSource
	}
	return f
}

// New creates the data source named by the configured type
func (f *Factory) New() (DataSource, error) {
	return f.Create(SourceType(f.config.Type))
}

// Create creates a new data source based on the type
func (f *Factory) Create(sourceType SourceType) (DataSource, error) {
	switch sourceType {
	case MockSourceType:
		return f.createMockSource()
	case CSVSourceType:
		return f.createCSVSource()
	case NHLWebSourceType:
		return f.createNHLWebSource()
	default:
		return nil, fmt.Errorf("unknown data source type: %s", sourceType)
	}
}

func (f *Factory) createMockSource() (DataSource, error) {
	mc := f.config.Mock
	cfg := MockConfig{
		Seed:           mc.Seed,
		Teams:          mc.Teams,
		PlayersPerTeam: mc.PlayersPerTeam,
		Books:          mc.Books,
		Margin:         mc.Margin,
	}
	if mc.SeasonStart != "" {
		start, err := time.Parse(time.DateOnly, mc.SeasonStart)
		if err != nil {
			return nil, fmt.Errorf("invalid mock season start: %w", err)
		}
		cfg.SeasonStart = start
	}
	if cfg.Margin == 0 {
		cfg.Margin = DefaultMockConfig().Margin
	}
	return NewMockSource(cfg, f.logger)
}

func (f *Factory) createCSVSource() (DataSource, error) {
	if f.config.CSVDir == "" {
		return nil, fmt.Errorf("csv source requires csv_dir")
	}
	return NewCSVSource(f.config.CSVDir, f.logger)
}

func (f *Factory) createNHLWebSource() (DataSource, error) {
	web := f.config.NHLWeb
	httpCfg := DefaultHTTPClientConfig()
	if web.TimeoutSeconds > 0 {
		httpCfg.Timeout = time.Duration(web.TimeoutSeconds) * time.Second
	}
	if web.MaxRetries > 0 {
		httpCfg.MaxRetries = web.MaxRetries
	}
	if web.RateLimit > 0 {
		httpCfg.RateLimit = web.RateLimit
	}

	return NewNHLWebSource(NewRateLimitedHTTPClient(httpCfg, f.logger), NHLWebConfig{
		BaseURL:  web.BaseURL,
		ESPNURL:  web.ESPNURL,
		CacheTTL: time.Duration(web.CacheTTLSeconds) * time.Second,
	}, f.logger)
}

// ListAvailableSources returns the source types this build can create
func (f *Factory) ListAvailableSources() []SourceType {
	return []SourceType{MockSourceType, CSVSourceType, NHLWebSourceType}
}
