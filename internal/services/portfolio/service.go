// Package portfolio values investment records against live prices
package portfolio

import (
	"context"
	"time"

	"github.com/bobmcallan/coinfolio/internal/common"
	"github.com/bobmcallan/coinfolio/internal/interfaces"
	"github.com/bobmcallan/coinfolio/internal/models"
)

// Service implements PortfolioService
type Service struct {
	prices interfaces.PriceService
	logger *common.Logger
}

var _ interfaces.PortfolioService = (*Service)(nil)

// NewService creates a new portfolio service
func NewService(prices interfaces.PriceService, logger *common.Logger) *Service {
	return &Service{
		prices: prices,
		logger: logger,
	}
}

// Valuate resolves prices for every distinct asset in every currency the
// records use, then aggregates. Unresolved prices fall back to buy price.
func (s *Service) Valuate(ctx context.Context, records []models.InvestmentRecord) (*models.Portfolio, error) {
	if len(records) == 0 {
		return ComputePortfolio(records, models.PricePoints{}), nil
	}

	symbols, currencies := pricingRequest(records)
	prices, err := s.prices.ResolvePrices(ctx, symbols, currencies)
	if err != nil {
		return nil, err
	}

	p := ComputePortfolio(records, prices)
	if p.MixedCurrencies {
		s.logger.Debug().Int("currencies", len(p.Currencies)).Msg("Portfolio mixes currencies, totals are unconverted")
	}
	return p, nil
}

// Watch re-values the latest snapshot whenever a new one arrives and on every
// refresh tick. Ticks before the first snapshot are ignored; refresh <= 0
// disables ticking. The output closes when ctx is done or snapshots closes.
func (s *Service) Watch(ctx context.Context, snapshots <-chan []models.InvestmentRecord, refresh time.Duration) <-chan *models.Portfolio {
	out := make(chan *models.Portfolio, 1)

	go func() {
		defer close(out)

		var tick <-chan time.Time
		if refresh > 0 {
			ticker := time.NewTicker(refresh)
			defer ticker.Stop()
			tick = ticker.C
		}

		var current []models.InvestmentRecord
		received := false

		emit := func() bool {
			p, err := s.Valuate(ctx, current)
			if err != nil {
				s.logger.Warn().Err(err).Msg("Portfolio valuation failed")
				return true
			}
			select {
			case out <- p:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case records, ok := <-snapshots:
				if !ok {
					return
				}
				current = records
				received = true
				if !emit() {
					return
				}
			case <-tick:
				if !received {
					continue
				}
				if !emit() {
					return
				}
			}
		}
	}()

	return out
}
