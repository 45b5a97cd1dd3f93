package odds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/nhl-picks/internal/logger"
	"github.com/yourusername/nhl-picks/internal/models"
)

var one = decimal.NewFromInt(1)

// Config holds normalizer settings
type Config struct {
	// Staleness drops quotes older than this relative to the clock. Zero keeps all quotes.
	Staleness time.Duration
	Workers   int
	// RequiredOutcomes lists the full outcome set per market id. Markets not
	// listed must quote at least two outcomes and use what was quoted.
	RequiredOutcomes map[string][]string
}

// Result is the outcome of normalizing a batch of quotes
type Result struct {
	Prices  map[string]models.FairPrice
	Markets []string
	Skipped []models.SkippedItem
}

// Normalizer de-vigs multi-book quotes into fair prices
type Normalizer struct {
	cfg    Config
	now    func() time.Time
	logger *logger.EngineLogger
}

// NewNormalizer creates a normalizer using the wall clock
func NewNormalizer(cfg Config, log *logrus.Logger) *Normalizer {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Normalizer{
		cfg:    cfg,
		now:    time.Now,
		logger: logger.NewEngineLogger(log),
	}
}

// WithClock replaces the clock used for staleness checks
func (n *Normalizer) WithClock(now func() time.Time) *Normalizer {
	n.now = now
	return n
}

// RegisterMarket records the full outcome set for a market id
func (n *Normalizer) RegisterMarket(marketID string, outcomes ...string) {
	if n.cfg.RequiredOutcomes == nil {
		n.cfg.RequiredOutcomes = make(map[string][]string)
	}
	n.cfg.RequiredOutcomes[marketID] = append([]string(nil), outcomes...)
}

// Normalize validates the batch, then normalizes every market. Incomplete
// markets are reported in Result.Skipped; only malformed input fails the call.
func (n *Normalizer) Normalize(ctx context.Context, quotes []models.OddsQuote) (*Result, error) {
	return n.normalize(ctx, quotes, nil)
}

// NormalizeClosed is Normalize with extra per-call outcome sets. Entries in
// required take precedence over registered markets.
func (n *Normalizer) NormalizeClosed(ctx context.Context, quotes []models.OddsQuote, required map[string][]string) (*Result, error) {
	return n.normalize(ctx, quotes, required)
}

func (n *Normalizer) normalize(ctx context.Context, quotes []models.OddsQuote, required map[string][]string) (*Result, error) {
	order, byMarket, err := groupQuotes(quotes)
	if err != nil {
		return nil, err
	}

	type marketResult struct {
		prices []models.FairPrice
		err    error
	}
	results := make([]marketResult, len(order))
	now := n.now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(n.cfg.Workers)
	for i, marketID := range order {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			prices, err := n.normalizeMarket(marketID, byMarket[marketID], n.requiredFor(marketID, required), now)
			results[i] = marketResult{prices: prices, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to normalize odds: %w", err)
	}

	res := &Result{Prices: make(map[string]models.FairPrice)}
	for i, marketID := range order {
		r := results[i]
		if r.err != nil {
			var incomplete *models.MarketIncompleteError
			if !errors.As(r.err, &incomplete) {
				return nil, fmt.Errorf("market %s: %w", marketID, r.err)
			}
			n.logger.LogMarketIncomplete(marketID, incomplete.Missing, incomplete.Reason)
			res.Skipped = append(res.Skipped, models.SkippedItem{
				Kind:   models.SkipMarket,
				Key:    marketID,
				Reason: incomplete.Error(),
			})
			continue
		}
		res.Markets = append(res.Markets, marketID)
		for _, fp := range r.prices {
			res.Prices[fp.OutcomeID] = fp
		}
	}
	return res, nil
}

// NormalizeMarket normalizes the quotes of a single market
func (n *Normalizer) NormalizeMarket(marketID string, quotes []models.OddsQuote) (map[string]models.FairPrice, error) {
	for _, q := range quotes {
		if q.MarketID != marketID {
			return nil, fmt.Errorf("%w: quote for market %q passed to market %q", models.ErrInvalidInput, q.MarketID, marketID)
		}
	}
	if _, _, err := groupQuotes(quotes); err != nil {
		return nil, err
	}
	prices, err := n.normalizeMarket(marketID, quotes, n.requiredFor(marketID, nil), n.now())
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.FairPrice, len(prices))
	for _, fp := range prices {
		out[fp.OutcomeID] = fp
	}
	return out, nil
}

// groupQuotes checks structural validity and buckets quotes by market in
// first-seen order
func groupQuotes(quotes []models.OddsQuote) ([]string, map[string][]models.OddsQuote, error) {
	var order []string
	byMarket := make(map[string][]models.OddsQuote)
	outcomeMarket := make(map[string]string)

	for i, q := range quotes {
		if q.MarketID == "" || q.OutcomeID == "" || q.BookName == "" {
			return nil, nil, fmt.Errorf("%w: quote %d has an empty market, outcome or book", models.ErrInvalidInput, i)
		}
		if q.DecimalPrice.LessThanOrEqual(one) {
			return nil, nil, fmt.Errorf("%w: quote %d for %s has decimal price %s", models.ErrInvalidInput, i, q.OutcomeID, q.DecimalPrice)
		}
		if m, ok := outcomeMarket[q.OutcomeID]; ok && m != q.MarketID {
			return nil, nil, fmt.Errorf("%w: outcome %s appears in markets %s and %s", models.ErrInvalidInput, q.OutcomeID, m, q.MarketID)
		}
		outcomeMarket[q.OutcomeID] = q.MarketID

		if _, ok := byMarket[q.MarketID]; !ok {
			order = append(order, q.MarketID)
		}
		byMarket[q.MarketID] = append(byMarket[q.MarketID], q)
	}
	return order, byMarket, nil
}

// bookQuotes keeps the latest quote per outcome for one book
type bookQuotes struct {
	name   string
	quotes map[string]models.OddsQuote
}

// requiredFor returns the closed outcome set for a market, or nil when the
// quoted outcomes define it
func (n *Normalizer) requiredFor(marketID string, extra map[string][]string) []string {
	if outcomes, ok := extra[marketID]; ok {
		return outcomes
	}
	return n.cfg.RequiredOutcomes[marketID]
}

func (n *Normalizer) normalizeMarket(marketID string, quotes []models.OddsQuote, required []string, now time.Time) ([]models.FairPrice, error) {
	var (
		outcomes []string
		books    []*bookQuotes
		stale    int
	)
	seen := make(map[string]models.OddsQuote)
	bookIndex := make(map[string]*bookQuotes)
	for _, q := range quotes {
		if n.cfg.Staleness > 0 && now.Sub(q.Timestamp) > n.cfg.Staleness {
			stale++
			continue
		}
		if _, ok := seen[q.OutcomeID]; !ok {
			outcomes = append(outcomes, q.OutcomeID)
			seen[q.OutcomeID] = q
		}
		b, ok := bookIndex[q.BookName]
		if !ok {
			b = &bookQuotes{name: q.BookName, quotes: make(map[string]models.OddsQuote)}
			bookIndex[q.BookName] = b
			books = append(books, b)
		}
		if prev, ok := b.quotes[q.OutcomeID]; !ok || q.Timestamp.After(prev.Timestamp) {
			b.quotes[q.OutcomeID] = q
		}
	}

	if len(required) == 0 {
		required = outcomes
	}

	if len(outcomes) == 0 {
		return nil, &models.MarketIncompleteError{
			MarketID: marketID,
			Missing:  append([]string(nil), required...),
			Reason:   fmt.Sprintf("all %d quotes are stale", stale),
		}
	}
	if len(required) < 2 {
		return nil, &models.MarketIncompleteError{MarketID: marketID, Reason: "need at least two outcomes"}
	}

	var missing []string
	for _, id := range required {
		if _, ok := seen[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &models.MarketIncompleteError{MarketID: marketID, Missing: missing}
	}

	// Per-book multiplicative de-vig, averaged across complete books.
	fairSum := make([]float64, len(required))
	var (
		complete     int
		overroundSum float64
	)
	for _, b := range books {
		implied := make([]float64, len(required))
		var total float64
		full := true
		for j, id := range required {
			q, ok := b.quotes[id]
			if !ok {
				full = false
				break
			}
			implied[j] = 1.0 / q.DecimalPrice.InexactFloat64()
			total += implied[j]
		}
		if !full {
			continue
		}
		for j := range required {
			fairSum[j] += implied[j] / total
		}
		overroundSum += total - 1.0
		complete++
	}
	if complete == 0 {
		return nil, &models.MarketIncompleteError{MarketID: marketID, Reason: "no book quotes the full outcome set"}
	}

	prices := make([]models.FairPrice, 0, len(required))
	for j, id := range required {
		prob := fairSum[j] / float64(complete)
		best, source := bestPrice(books, id)
		ref := seen[id]
		prices = append(prices, models.FairPrice{
			MarketID:           marketID,
			OutcomeID:          id,
			ImpliedProbability: prob,
			FairDecimalPrice:   1.0 / prob,
			BestDecimalPrice:   best,
			SourceBook:         source,
			BookCount:          complete,
			Overround:          overroundSum / float64(complete),
			PlayerID:           ref.PlayerID,
			StatKind:           ref.StatKind,
			Line:               ref.Line,
			Side:               ref.Side,
		})
	}
	return prices, nil
}

// bestPrice returns the highest fresh price for an outcome and the book
// offering it. Ties go to the book seen first.
func bestPrice(books []*bookQuotes, outcomeID string) (decimal.Decimal, string) {
	best := decimal.Zero
	var source string
	for _, b := range books {
		q, ok := b.quotes[outcomeID]
		if !ok {
			continue
		}
		if q.DecimalPrice.GreaterThan(best) {
			best = q.DecimalPrice
			source = b.name
		}
	}
	return best, source
}
