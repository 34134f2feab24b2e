package surrealdb

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/coinfolio/internal/common"
	"github.com/bobmcallan/coinfolio/internal/interfaces"
	"github.com/bobmcallan/coinfolio/internal/models"
)

// InvestmentStore implements interfaces.InvestmentStore using SurrealDB.
type InvestmentStore struct {
	db           *surrealdb.DB
	logger       *common.Logger
	pollInterval time.Duration
}

// investmentRow is the record shape of the investment table. Decimals are
// stored as strings so no precision is lost on the wire.
type investmentRow struct {
	InvestmentID     string    `json:"investment_id"`
	UserID           string    `json:"user_id"`
	UserName         string    `json:"user_name"`
	AssetName        string    `json:"asset_name"`
	AssetSymbol      string    `json:"asset_symbol"`
	BuyPrice         string    `json:"buy_price"`
	InvestmentAmount string    `json:"investment_amount"`
	Quantity         string    `json:"quantity"`
	Currency         string    `json:"currency"`
	Label            string    `json:"label"`
	PurchaseDate     time.Time `json:"purchase_date"`
	CreatedAt        time.Time `json:"created_at"`
}

func toInvestmentRow(r *models.InvestmentRecord) investmentRow {
	return investmentRow{
		InvestmentID:     r.ID,
		UserID:           r.OwnerID,
		UserName:         r.OwnerName,
		AssetName:        r.AssetName,
		AssetSymbol:      r.AssetSymbol,
		BuyPrice:         r.BuyPrice.String(),
		InvestmentAmount: r.InvestmentAmount.String(),
		Quantity:         r.Quantity.String(),
		Currency:         string(r.Currency),
		Label:            r.Label,
		PurchaseDate:     r.PurchaseDate.UTC(),
		CreatedAt:        r.CreatedAt.UTC(),
	}
}

func (row *investmentRow) record() (models.InvestmentRecord, error) {
	r := models.InvestmentRecord{
		ID:           row.InvestmentID,
		OwnerID:      row.UserID,
		OwnerName:    row.UserName,
		AssetName:    row.AssetName,
		AssetSymbol:  row.AssetSymbol,
		Currency:     models.Currency(row.Currency),
		Label:        row.Label,
		PurchaseDate: row.PurchaseDate,
		CreatedAt:    row.CreatedAt,
	}
	var err error
	if r.BuyPrice, err = decimal.NewFromString(row.BuyPrice); err != nil {
		return r, fmt.Errorf("investment %s buy_price: %w", row.InvestmentID, err)
	}
	if r.InvestmentAmount, err = decimal.NewFromString(row.InvestmentAmount); err != nil {
		return r, fmt.Errorf("investment %s investment_amount: %w", row.InvestmentID, err)
	}
	if r.Quantity, err = decimal.NewFromString(row.Quantity); err != nil {
		return r, fmt.Errorf("investment %s quantity: %w", row.InvestmentID, err)
	}
	return r, nil
}

// NewInvestmentStore creates a store whose watches poll every pollInterval.
func NewInvestmentStore(db *surrealdb.DB, logger *common.Logger, pollInterval time.Duration) *InvestmentStore {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &InvestmentStore{
		db:           db,
		logger:       logger,
		pollInterval: pollInterval,
	}
}

// Create inserts r, assigning an ID when it has none. CREATE fails when the
// record already exists.
func (s *InvestmentStore) Create(ctx context.Context, r *models.InvestmentRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	sql := "CREATE type::record('investment', $id) CONTENT $row"
	vars := map[string]any{"id": r.ID, "row": toInvestmentRow(r)}

	if _, err := surrealdb.Query[[]investmentRow](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to create investment %s: %w", r.ID, err)
	}
	return nil
}

func (s *InvestmentStore) Get(ctx context.Context, id string) (*models.InvestmentRecord, error) {
	row, err := surrealdb.Select[investmentRow](ctx, s.db, surrealmodels.NewRecordID(investmentTable, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to select investment %s: %w", id, err)
	}
	if row == nil || row.InvestmentID == "" {
		return nil, nil
	}
	r, err := row.record()
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Update replaces an existing record. UPDATE on a missing record matches
// nothing, which is reported as ErrNotFound.
func (s *InvestmentStore) Update(ctx context.Context, r *models.InvestmentRecord) error {
	sql := "UPDATE type::record('investment', $id) CONTENT $row"
	vars := map[string]any{"id": r.ID, "row": toInvestmentRow(r)}

	results, err := surrealdb.Query[[]investmentRow](ctx, s.db, sql, vars)
	if err != nil {
		return fmt.Errorf("failed to update investment %s: %w", r.ID, err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return fmt.Errorf("investment %s: %w", r.ID, common.ErrNotFound)
	}
	return nil
}

func (s *InvestmentStore) Delete(ctx context.Context, id string) error {
	_, err := surrealdb.Delete[investmentRow](ctx, s.db, surrealmodels.NewRecordID(investmentTable, id))
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete investment %s: %w", id, err)
	}
	return nil
}

func (s *InvestmentStore) ListByOwner(ctx context.Context, ownerID string) ([]models.InvestmentRecord, error) {
	return s.list(ctx, interfaces.Criterion{OwnerIDs: []string{ownerID}})
}

func (s *InvestmentStore) ListByOwners(ctx context.Context, ownerIDs []string) ([]models.InvestmentRecord, error) {
	return s.list(ctx, interfaces.Criterion{OwnerIDs: ownerIDs})
}

func (s *InvestmentStore) ListAll(ctx context.Context) ([]models.InvestmentRecord, error) {
	return s.list(ctx, interfaces.Criterion{All: true})
}

// list runs the equality-filtered query for c, oldest record first.
func (s *InvestmentStore) list(ctx context.Context, c interfaces.Criterion) ([]models.InvestmentRecord, error) {
	var sql string
	vars := map[string]any{}
	switch {
	case c.All:
		sql = "SELECT * FROM investment ORDER BY created_at ASC, investment_id ASC"
	case len(c.OwnerIDs) == 0:
		return []models.InvestmentRecord{}, nil
	case len(c.OwnerIDs) == 1:
		sql = "SELECT * FROM investment WHERE user_id = $owner ORDER BY created_at ASC, investment_id ASC"
		vars["owner"] = c.OwnerIDs[0]
	default:
		sql = "SELECT * FROM investment WHERE user_id IN $owners ORDER BY created_at ASC, investment_id ASC"
		vars["owners"] = c.OwnerIDs
	}

	results, err := surrealdb.Query[[]investmentRow](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list investments: %w", err)
	}

	out := make([]models.InvestmentRecord, 0)
	if results == nil || len(*results) == 0 {
		return out, nil
	}
	for i := range (*results)[0].Result {
		r, err := (*results)[0].Result[i].record()
		if err != nil {
			s.logger.Warn().Err(err).Msg("Skipping unreadable investment row")
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Watch emits the current snapshot for c, then polls every pollInterval and
// emits again only when the snapshot changed. A pending unread snapshot is
// replaced by a newer one. The channel closes when ctx is done.
func (s *InvestmentStore) Watch(ctx context.Context, c interfaces.Criterion) (<-chan []models.InvestmentRecord, error) {
	initial, err := s.list(ctx, c)
	if err != nil {
		return nil, err
	}

	ch := make(chan []models.InvestmentRecord, 1)
	ch <- initial

	go func() {
		defer close(ch)

		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		last := fingerprint(initial)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			snap, err := s.list(ctx, c)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Warn().Err(err).Msg("Investment watch poll failed")
				continue
			}

			fp := fingerprint(snap)
			if fp == last {
				continue
			}
			last = fp

			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}()

	return ch, nil
}

// fingerprint hashes a snapshot for change detection.
func fingerprint(records []models.InvestmentRecord) string {
	data, err := json.Marshal(records)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Compile-time check
var _ interfaces.InvestmentStore = (*InvestmentStore)(nil)
