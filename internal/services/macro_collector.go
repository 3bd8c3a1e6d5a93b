package services

import (
	"context"
	"fmt"
	"time"

	"github.com/irfndi/sector-rotation-go/internal/config"
	"github.com/irfndi/sector-rotation-go/internal/models"
	"github.com/irfndi/sector-rotation-go/pkg/interfaces"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// MacroCollector loads the configured macro indicator series.
type MacroCollector struct {
	provider interfaces.MacroDataProvider
	cache    interfaces.ObservationCache
	series   []config.SeriesConfig
	logger   *logrus.Logger
}

// NewMacroCollector creates a collector for series. provider and cache may be nil;
// a nil provider disables macro correlation.
func NewMacroCollector(provider interfaces.MacroDataProvider, cache interfaces.ObservationCache, series []config.SeriesConfig, logger *logrus.Logger) *MacroCollector {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &MacroCollector{
		provider: provider,
		cache:    cache,
		series:   append([]config.SeriesConfig(nil), series...),
		logger:   logger,
	}
}

// Collect fetches every configured series from start onwards, in configuration
// order. Series that fail are reported and omitted.
func (m *MacroCollector) Collect(ctx context.Context, start time.Time) ([]models.MacroSeries, []models.FetchFailure, error) {
	if m.provider == nil || len(m.series) == 0 {
		return nil, nil, nil
	}

	results := make([]models.MacroSeries, len(m.series))
	failures := make([]string, len(m.series))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range m.series {
		g.Go(func() error {
			obs, err := m.fetch(gctx, s.ID, start)
			switch {
			case err != nil:
				failures[i] = err.Error()
			case len(obs) == 0:
				failures[i] = "no observations in range"
			default:
				results[i] = models.MacroSeries{Name: s.Name, SourceID: s.ID, Observations: obs}
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to collect macro series: %w", err)
	}

	var series []models.MacroSeries
	var failed []models.FetchFailure
	for i, s := range m.series {
		if failures[i] != "" {
			m.logger.WithFields(logrus.Fields{
				"series_id": s.ID,
				"reason":    failures[i],
			}).Warn("Macro series unavailable")
			failed = append(failed, models.FetchFailure{Ticker: s.ID, Reason: failures[i]})
			continue
		}
		series = append(series, results[i])
	}
	return series, failed, nil
}

func (m *MacroCollector) fetch(ctx context.Context, seriesID string, start time.Time) ([]models.MacroObservation, error) {
	if m.cache != nil {
		cached, found, err := m.cache.GetMacroSeries(ctx, seriesID, start)
		if err != nil {
			m.logger.WithError(err).WithField("series_id", seriesID).Warn("Macro cache read failed")
		} else if found {
			return cached, nil
		}
	}

	obs, err := m.provider.FetchSeries(ctx, seriesID, start)
	if err != nil {
		return nil, err
	}

	if m.cache != nil && len(obs) > 0 {
		if err := m.cache.SetMacroSeries(ctx, seriesID, start, obs); err != nil {
			m.logger.WithError(err).WithField("series_id", seriesID).Warn("Failed to cache macro series")
		}
	}
	return obs, nil
}
