package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/irfndi/sector-rotation-go/internal/models"
	"github.com/irfndi/sector-rotation-go/internal/utils"
	"github.com/irfndi/sector-rotation-go/pkg/interfaces"
	"github.com/irfndi/sector-rotation-go/pkg/yahoo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultFetchConcurrency bounds in-flight ticker fetches when none is configured.
const DefaultFetchConcurrency = 8

// ObservationCollector fetches monthly volume and sector labels for a ticker
// set, tolerating per-ticker failures.
type ObservationCollector struct {
	provider    interfaces.MarketDataProvider
	cache       interfaces.ObservationCache
	breaker     *CircuitBreaker
	concurrency int
	logger      *logrus.Logger
}

// NewObservationCollector creates a collector. cache and breaker may be nil.
func NewObservationCollector(
	provider interfaces.MarketDataProvider,
	cache interfaces.ObservationCache,
	breaker *CircuitBreaker,
	concurrency int,
	logger *logrus.Logger,
) *ObservationCollector {
	if concurrency <= 0 {
		concurrency = DefaultFetchConcurrency
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ObservationCollector{
		provider:    provider,
		cache:       cache,
		breaker:     breaker,
		concurrency: concurrency,
		logger:      logger,
	}
}

// IsUpstreamFailure reports whether err indicates an unhealthy provider, as
// opposed to a bad ticker or a cancelled request.
func IsUpstreamFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *yahoo.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return true
}

type tickerFetch struct {
	observations []models.RawObservation
	sector       string
	failure      string
}

// Collect returns observations for every ticker that could be fetched and a
// failure record for every one that could not. It only errors when ctx ends.
func (c *ObservationCollector) Collect(ctx context.Context, tickers []string, start, end time.Time) (*models.FetchResult, error) {
	tickers = utils.NormalizeTickers(tickers)

	if c.cache != nil {
		cached, found, err := c.cache.GetObservations(ctx, tickers, start, end)
		if err != nil {
			c.logger.WithError(err).Warn("Observation cache read failed, fetching from provider")
		} else if found {
			c.logger.WithField("tickers", len(tickers)).Debug("Observation cache hit")
			return cached, nil
		}
	}

	fetches := make([]tickerFetch, len(tickers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, ticker := range tickers {
		g.Go(func() error {
			fetches[i] = c.fetchTicker(gctx, ticker, start, end)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("failed to collect observations: %w", err)
	}

	result := &models.FetchResult{}
	sectors := make(map[string]string, len(tickers))
	for i, ticker := range tickers {
		f := fetches[i]
		if f.failure != "" {
			result.Failures = append(result.Failures, models.FetchFailure{Ticker: ticker, Reason: f.failure})
			continue
		}
		result.Observations = append(result.Observations, f.observations...)
		sectors[ticker] = f.sector
	}
	result.Categories = models.NewTickerCategory(sectors)

	c.logger.WithFields(logrus.Fields{
		"tickers":      len(tickers),
		"observations": len(result.Observations),
		"failures":     len(result.Failures),
	}).Info("Collected market observations")

	// Partial results are not cached so a transient failure is retried next time.
	if c.cache != nil && len(result.Failures) == 0 {
		if err := c.cache.SetObservations(ctx, tickers, start, end, result); err != nil {
			c.logger.WithError(err).Warn("Failed to cache observations")
		}
	}
	return result, nil
}

func (c *ObservationCollector) fetchTicker(ctx context.Context, ticker string, start, end time.Time) tickerFetch {
	var out tickerFetch
	log := c.logger.WithField("ticker", ticker)

	err := c.guard(ctx, func(ctx context.Context) error {
		obs, err := c.provider.FetchMonthlyVolume(ctx, ticker, start, end)
		out.observations = obs
		return err
	})
	if err != nil {
		log.WithError(err).Warn("Failed to fetch monthly volume")
		out.failure = err.Error()
		return out
	}
	if len(out.observations) == 0 {
		out.failure = "no volume data in range"
		return out
	}

	err = c.guard(ctx, func(ctx context.Context) error {
		sector, err := c.provider.FetchSector(ctx, ticker)
		out.sector = sector
		return err
	})
	if err != nil {
		// Volume is usable without a label; the ticker falls into Unknown.
		log.WithError(err).Warn("Failed to fetch sector, using Unknown")
		out.sector = ""
	}
	return out
}

func (c *ObservationCollector) guard(ctx context.Context, fn func(context.Context) error) error {
	if c.breaker == nil {
		return fn(ctx)
	}
	return c.breaker.Execute(ctx, fn)
}
