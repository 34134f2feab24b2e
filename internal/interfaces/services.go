package interfaces

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/coinfolio/internal/models"
)

// PriceService resolves live prices through the freshness cache
type PriceService interface {
	// ResolvePrices returns whatever prices could be resolved. Transport
	// failures degrade to cached results; only invalid input is an error.
	ResolvePrices(ctx context.Context, symbols, currencies []string) (models.PricePoints, error)

	// ResolvePrice returns the USD price of one asset, ok=false when unresolved
	ResolvePrice(ctx context.Context, symbol string) (decimal.Decimal, bool, error)

	// AssetDetail returns market detail for an asset id, nil when unresolved
	AssetDetail(ctx context.Context, id, currency string) (*models.CoinMarket, error)

	// Search returns up to ten matching coins
	Search(ctx context.Context, query string) ([]models.Coin, error)

	// ClearCache drops every cached price
	ClearCache()
}

// PortfolioService values investment records against live prices
type PortfolioService interface {
	Valuate(ctx context.Context, records []models.InvestmentRecord) (*models.Portfolio, error)

	// Watch re-values on every snapshot and every refresh tick until ctx is
	// done or snapshots is closed.
	Watch(ctx context.Context, snapshots <-chan []models.InvestmentRecord, refresh time.Duration) <-chan *models.Portfolio

	// RenderAllocationChart draws current value per asset as a PNG
	RenderAllocationChart(p *models.Portfolio) ([]byte, error)
}

// InvestmentService manages investment records with ownership checks
type InvestmentService interface {
	Create(ctx context.Context, in models.NewInvestment) (*models.InvestmentRecord, error)
	Update(ctx context.Context, actorID, id string, patch models.InvestmentPatch) (*models.InvestmentRecord, error)
	Delete(ctx context.Context, actorID, id string) error
	Get(ctx context.Context, id string) (*models.InvestmentRecord, error)
	ListByOwner(ctx context.Context, userID string) ([]models.InvestmentRecord, error)
	ListShared(ctx context.Context, shareCodes []string) ([]models.InvestmentRecord, error)
	ListAll(ctx context.Context) ([]models.InvestmentRecord, error)

	// Subscribe* return a stream of record-list snapshots and a cancel func.
	// The stream closes after cancel is called or ctx is done.
	SubscribeUser(ctx context.Context, userID string) (<-chan []models.InvestmentRecord, func(), error)
	SubscribeShared(ctx context.Context, shareCodes []string) (<-chan []models.InvestmentRecord, func(), error)
	SubscribeAll(ctx context.Context) (<-chan []models.InvestmentRecord, func(), error)
}

// UserService manages profiles and portfolio sharing
type UserService interface {
	EnsureProfile(ctx context.Context, id, email, displayName string) (*models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
	OwnerNameByShareCode(ctx context.Context, code string) (string, bool, error)
	JoinShared(ctx context.Context, userID, code string) (bool, error)
}
