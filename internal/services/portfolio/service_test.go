package portfolio

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/coinfolio/internal/common"
	"github.com/bobmcallan/coinfolio/internal/models"
)

// --- Mocks ---

type mockPriceService struct {
	mu     sync.Mutex
	prices models.PricePoints
	err    error
	calls  [][2][]string
}

func (m *mockPriceService) ResolvePrices(_ context.Context, symbols, currencies []string) (models.PricePoints, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, [2][]string{symbols, currencies})
	if m.err != nil {
		return nil, m.err
	}
	return m.prices, nil
}

func (m *mockPriceService) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockPriceService) ResolvePrice(_ context.Context, _ string) (decimal.Decimal, bool, error) {
	return decimal.Zero, false, nil
}
func (m *mockPriceService) AssetDetail(_ context.Context, _, _ string) (*models.CoinMarket, error) {
	return nil, nil
}
func (m *mockPriceService) Search(_ context.Context, _ string) ([]models.Coin, error) {
	return nil, nil
}
func (m *mockPriceService) ClearCache() {}

func livePrices() models.PricePoints {
	p := models.PricePoints{}
	p.Set("bitcoin", "usd", d("60000"))
	p.Set("ethereum", "usd", d("3500"))
	return p
}

func twoRecords() []models.InvestmentRecord {
	return []models.InvestmentRecord{
		record("1", "bitcoin", "50000", "0.02", models.USD),
		record("2", "ethereum", "3000", "1", models.USD),
	}
}

// --- Tests ---

func TestValuate_ResolvesDistinctSymbolsOnce(t *testing.T) {
	prices := &mockPriceService{prices: livePrices()}
	svc := NewService(prices, common.NewSilentLogger())

	p, err := svc.Valuate(context.Background(), twoRecords())
	require.NoError(t, err)

	require.Equal(t, 1, prices.callCount())
	assert.Equal(t, []string{"bitcoin", "ethereum"}, prices.calls[0][0])
	assert.Equal(t, []string{"usd"}, prices.calls[0][1])
	assertDec(t, "4700", p.TotalValue, "total value")
}

func TestValuate_EmptySkipsPriceLookup(t *testing.T) {
	prices := &mockPriceService{}
	svc := NewService(prices, common.NewSilentLogger())

	p, err := svc.Valuate(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, p.TotalValue.IsZero())
	assert.Equal(t, 0, prices.callCount())
}

func TestValuate_PropagatesInvalidArgument(t *testing.T) {
	prices := &mockPriceService{err: common.InvalidArgument("invalid currencies: XYZ")}
	svc := NewService(prices, common.NewSilentLogger())

	_, err := svc.Valuate(context.Background(), twoRecords())
	assert.True(t, errors.Is(err, common.ErrInvalidArgument))
}

func TestWatch_EmitsPerSnapshot(t *testing.T) {
	prices := &mockPriceService{prices: livePrices()}
	svc := NewService(prices, common.NewSilentLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots := make(chan []models.InvestmentRecord)
	out := svc.Watch(ctx, snapshots, 0)

	snapshots <- twoRecords()[:1]
	first := <-out
	assertDec(t, "1200", first.TotalValue, "first snapshot")

	snapshots <- twoRecords()
	second := <-out
	assertDec(t, "4700", second.TotalValue, "second snapshot")

	close(snapshots)
	_, open := <-out
	assert.False(t, open, "output closes with the snapshot stream")
}

func TestWatch_RefreshTickRevalues(t *testing.T) {
	prices := &mockPriceService{prices: livePrices()}
	svc := NewService(prices, common.NewSilentLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots := make(chan []models.InvestmentRecord, 1)
	snapshots <- twoRecords()
	out := svc.Watch(ctx, snapshots, 10*time.Millisecond)

	for i := 0; i < 3; i++ {
		select {
		case p := <-out:
			require.NotNil(t, p)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for valuation %d", i)
		}
	}
	assert.GreaterOrEqual(t, prices.callCount(), 3)
}

func TestWatch_StopsOnCancel(t *testing.T) {
	svc := NewService(&mockPriceService{prices: livePrices()}, common.NewSilentLogger())
	ctx, cancel := context.WithCancel(context.Background())

	out := svc.Watch(ctx, make(chan []models.InvestmentRecord), time.Hour)
	cancel()

	select {
	case _, open := <-out:
		assert.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestRenderAllocationChart_PNG(t *testing.T) {
	p := ComputePortfolio(twoRecords(), livePrices())
	png, err := RenderAllocationChart(p)
	require.NoError(t, err)
	require.Greater(t, len(png), 8)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestRenderAllocationChart_Empty(t *testing.T) {
	_, err := RenderAllocationChart(ComputePortfolio(nil, nil))
	assert.ErrorIs(t, err, ErrNothingToChart)
}

func TestAllocations_GroupsLotsLargestFirst(t *testing.T) {
	records := append(twoRecords(), record("3", "ethereum", "3000", "1", models.USD))
	allocs := allocations(ComputePortfolio(records, livePrices()))
	require.Len(t, allocs, 2)
	assert.Equal(t, "ethereum", allocs[0].symbol)
	assertDec(t, "7000", allocs[0].value, "ethereum allocation")
}
