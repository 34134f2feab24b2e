package app

import (
	"context"
	"time"

	"github.com/bobmcallan/coinfolio/internal/common"
	"github.com/bobmcallan/coinfolio/internal/interfaces"
	"github.com/bobmcallan/coinfolio/internal/models"
)

// warmPrices resolves the USD price of every distinct stored asset so that
// dashboards opening afterwards hit a fresh cache.
func warmPrices(ctx context.Context, investments interfaces.InvestmentService, prices interfaces.PriceService, logger *common.Logger) {
	start := time.Now()

	records, err := investments.ListAll(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Price warmer: failed to list investments")
		return
	}

	symbols := distinctSymbols(records)
	if len(symbols) == 0 {
		return
	}

	points, err := prices.ResolvePrices(ctx, symbols, []string{models.USD.Lower()})
	if err != nil {
		logger.Warn().Err(err).Msg("Price warmer: resolve failed")
		return
	}

	logger.Info().
		Int("symbols", len(symbols)).
		Int("resolved", len(points)).
		Dur("elapsed", time.Since(start)).
		Msg("Price warmer: complete")
}

func distinctSymbols(records []models.InvestmentRecord) []string {
	seen := make(map[string]bool, len(records))
	var out []string
	for i := range records {
		key := records[i].AssetKey()
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}
