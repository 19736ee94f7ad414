// Package client implements HTTP adapters for the engine's external
// collaborators. Currently that's just the currency-rate source.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbarry/remitax-go/internal/domain"
	"github.com/kbarry/remitax-go/internal/infra/resilience"
)

var tracer = otel.Tracer("client/rates")

// RatesClient fetches rate tables from the external currency-rate API.
type RatesClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewRatesClient creates a new RatesClient.
func NewRatesClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *RatesClient {
	return &RatesClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
	}
}

// ratesPayload is the rate source's wire format.
type ratesPayload struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// FetchRates fetches the rate table keyed by the reference currency, with
// retry, circuit breaker, and tracing.
func (c *RatesClient) FetchRates(ctx context.Context, base string) (domain.RateTable, error) {
	ctx, span := tracer.Start(ctx, "RatesClient.FetchRates")
	defer span.End()
	span.SetAttributes(attribute.String("rates.base", base))

	var payload ratesPayload

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			endpoint := fmt.Sprintf("%s/v1/latest?base=%s", c.baseURL, url.QueryEscape(base))
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return err
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("rates API returned status %d", resp.StatusCode)
			}

			return json.NewDecoder(resp.Body).Decode(&payload)
		})
	})

	if err != nil {
		return domain.RateTable{}, &domain.ErrExternalService{Service: "rates", Err: err}
	}
	if len(payload.Rates) == 0 {
		return domain.RateTable{}, &domain.ErrExternalService{
			Service: "rates",
			Err:     fmt.Errorf("empty rate table for base %s", base),
		}
	}

	return domain.RateTable{
		Base:      payload.Base,
		Rates:     payload.Rates,
		FetchedAt: time.Now(),
	}, nil
}
