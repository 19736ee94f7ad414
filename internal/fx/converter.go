// Package fx resolves foreign-currency amounts to the reference currency.
// Pegged currencies use a fixed policy ratio and never touch the network;
// floating currencies go through a cached external rate table with a chain of
// local fallbacks, so rate-source unavailability is never a fatal error.
package fx

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kbarry/remitax-go/internal/domain"
	"github.com/kbarry/remitax-go/internal/infra/observability"
	"github.com/kbarry/remitax-go/internal/port"
)

// ReferenceCurrency is the currency every amount is normalized to.
const ReferenceCurrency = "EUR"

const ratesCacheKey = "rates:" + ReferenceCurrency

// peggedRates are fixed-peg ratios to the reference currency (units of
// foreign currency per euro). These are policy constants, not market rates.
var peggedRates = map[string]float64{
	"XOF": 655.957,
	"XAF": 655.957,
	"KMF": 491.96775,
}

// fallbackRates are approximate rates for commonly seen currencies, used only
// when no rate table was ever cached. Precision doesn't matter here; being
// roughly right beats failing.
var fallbackRates = map[string]float64{
	"USD": 1.08,
	"GBP": 0.85,
	"CHF": 0.94,
	"CAD": 1.47,
	"MAD": 10.9,
	"DZD": 145.0,
	"TND": 3.35,
	"GNF": 9300.0,
	"MGA": 4900.0,
	"CNY": 7.8,
}

// Converter turns source-currency amounts into reference-currency amounts.
// The rate cache is shared process-wide state refreshed lazily; concurrent
// refreshes may race and the last writer wins, which is acceptable for
// read-mostly rates.
type Converter struct {
	fetcher port.RateFetcher
	cache   port.Cache[domain.RateTable]
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewConverter creates a converter with all dependencies injected.
func NewConverter(fetcher port.RateFetcher, cache port.Cache[domain.RateTable], metrics *observability.Metrics, logger *zap.Logger) *Converter {
	return &Converter{
		fetcher: fetcher,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
	}
}

// Convert resolves amount in the given currency to the reference currency.
// Zero and negative amounts short-circuit to a zero result without any
// lookup. The result always carries the rate that was applied.
func (c *Converter) Convert(ctx context.Context, amount float64, currencyCode string) domain.Conversion {
	if amount <= 0 {
		return domain.Conversion{AmountEUR: 0, Rate: 1}
	}

	code := strings.ToUpper(strings.TrimSpace(currencyCode))
	if code == "" || code == ReferenceCurrency {
		return domain.Conversion{AmountEUR: amount, Rate: 1}
	}

	if rate, ok := peggedRates[code]; ok {
		return domain.Conversion{AmountEUR: divide(amount, rate), Rate: rate}
	}

	rate := c.lookupRate(ctx, code)
	return domain.Conversion{AmountEUR: divide(amount, rate), Rate: rate}
}

// lookupRate walks the degradation chain: fresh cache, external fetch, stale
// cache, built-in table, and finally rate 1 for an entirely unknown currency.
func (c *Converter) lookupRate(ctx context.Context, code string) float64 {
	if table, ok := c.cache.Get(ratesCacheKey); ok {
		c.metrics.IncrCacheHit("rates")
		return rateFrom(table, code)
	}
	c.metrics.IncrCacheMiss("rates")

	table, err := c.fetcher.FetchRates(ctx, ReferenceCurrency)
	if err == nil {
		c.cache.Set(ratesCacheKey, table)
		return rateFrom(table, code)
	}

	c.metrics.IncrRateFetchError()
	c.logger.Warn("rate fetch failed, falling back",
		zap.String("currency", code),
		zap.Error(err),
	)

	if stale, ok := c.cache.GetStale(ratesCacheKey); ok {
		return rateFrom(stale, code)
	}
	return builtinRate(code)
}

// rateFrom reads a usable rate out of a table, falling through to the
// built-in approximations when the table doesn't carry the currency.
func rateFrom(table domain.RateTable, code string) float64 {
	if rate, ok := table.Rates[code]; ok && rate > 0 {
		return rate
	}
	return builtinRate(code)
}

func builtinRate(code string) float64 {
	if rate, ok := fallbackRates[code]; ok {
		return rate
	}
	return 1
}

// divide converts by dividing amount by rate, rounded to 2 decimal places.
func divide(amount, rate float64) float64 {
	return decimal.NewFromFloat(amount).
		Div(decimal.NewFromFloat(rate)).
		Round(2).
		InexactFloat64()
}
