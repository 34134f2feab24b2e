// Package models defines data structures for coinfolio
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/coinfolio/internal/common"
)

// QuantityPlaces is the precision quantities are stored with.
const QuantityPlaces = 8

// InvestmentRecord is one purchase lot of an asset.
// Amount, price and quantity are stored independently and never re-derived.
type InvestmentRecord struct {
	ID               string          `json:"id"`
	OwnerID          string          `json:"user_id"`
	OwnerName        string          `json:"user_name"`
	AssetName        string          `json:"asset_name"`
	AssetSymbol      string          `json:"asset_symbol"`
	BuyPrice         decimal.Decimal `json:"buy_price"`
	InvestmentAmount decimal.Decimal `json:"investment_amount"`
	Quantity         decimal.Decimal `json:"quantity"`
	Currency         Currency        `json:"currency"`
	Label            string          `json:"label,omitempty"`
	PurchaseDate     time.Time       `json:"purchase_date"`
	CreatedAt        time.Time       `json:"created_at"`
}

// AssetKey returns the lower-cased symbol used to join the record with prices.
func (r *InvestmentRecord) AssetKey() string {
	return AssetKey(r.AssetSymbol)
}

// AssetKey normalises a symbol into a price-lookup key.
func AssetKey(symbol string) string {
	return strings.ToLower(strings.TrimSpace(symbol))
}

// NewInvestment is the input for creating an InvestmentRecord.
type NewInvestment struct {
	OwnerID          string          `json:"user_id"`
	OwnerName        string          `json:"user_name"`
	AssetName        string          `json:"asset_name"`
	AssetSymbol      string          `json:"asset_symbol"`
	BuyPrice         decimal.Decimal `json:"buy_price"`
	InvestmentAmount decimal.Decimal `json:"investment_amount"`
	Quantity         decimal.Decimal `json:"quantity"` // derived from amount / price when zero
	Currency         string          `json:"currency"` // defaults to USD
	Label            string          `json:"label,omitempty"`
	PurchaseDate     time.Time       `json:"purchase_date"`
}

// Validate checks the creation invariants and fills derived defaults.
func (n *NewInvestment) Validate() error {
	if strings.TrimSpace(n.OwnerID) == "" || strings.TrimSpace(n.OwnerName) == "" ||
		strings.TrimSpace(n.AssetName) == "" || strings.TrimSpace(n.AssetSymbol) == "" {
		return common.InvalidArgument("missing required fields")
	}
	if !n.BuyPrice.IsPositive() {
		return common.InvalidArgument("buy price must be greater than 0")
	}
	if !n.InvestmentAmount.IsPositive() {
		return common.InvalidArgument("investment amount must be greater than 0")
	}
	if n.Quantity.IsZero() {
		n.Quantity = n.InvestmentAmount.DivRound(n.BuyPrice, QuantityPlaces)
	}
	if !n.Quantity.IsPositive() {
		return common.InvalidArgument("quantity must be greater than 0")
	}

	if strings.TrimSpace(n.Currency) == "" {
		n.Currency = string(USD)
	}
	c, err := ParseCurrency(n.Currency)
	if err != nil {
		return common.InvalidArgument("invalid currency: %s", n.Currency)
	}
	n.Currency = string(c)
	return nil
}

// Record builds the stored record. Call Validate first.
func (n *NewInvestment) Record(id string, now time.Time) *InvestmentRecord {
	purchased := n.PurchaseDate
	if purchased.IsZero() {
		purchased = now
	}
	return &InvestmentRecord{
		ID:               id,
		OwnerID:          n.OwnerID,
		OwnerName:        n.OwnerName,
		AssetName:        strings.TrimSpace(n.AssetName),
		AssetSymbol:      strings.TrimSpace(n.AssetSymbol),
		BuyPrice:         n.BuyPrice,
		InvestmentAmount: n.InvestmentAmount,
		Quantity:         n.Quantity,
		Currency:         Currency(n.Currency),
		Label:            n.Label,
		PurchaseDate:     purchased,
		CreatedAt:        now,
	}
}

// InvestmentPatch is a partial update. Nil fields are left untouched; every
// present field is validated against the creation invariants. Ownership and
// identity are not patchable.
type InvestmentPatch struct {
	AssetName        *string          `json:"asset_name,omitempty"`
	AssetSymbol      *string          `json:"asset_symbol,omitempty"`
	BuyPrice         *decimal.Decimal `json:"buy_price,omitempty"`
	InvestmentAmount *decimal.Decimal `json:"investment_amount,omitempty"`
	Quantity         *decimal.Decimal `json:"quantity,omitempty"`
	Currency         *string          `json:"currency,omitempty"`
	Label            *string          `json:"label,omitempty"`
	PurchaseDate     *time.Time       `json:"purchase_date,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p *InvestmentPatch) IsEmpty() bool {
	return p.AssetName == nil && p.AssetSymbol == nil && p.BuyPrice == nil &&
		p.InvestmentAmount == nil && p.Quantity == nil && p.Currency == nil &&
		p.Label == nil && p.PurchaseDate == nil
}

// Validate checks each present field and normalises the currency code.
func (p *InvestmentPatch) Validate() error {
	if p.AssetName != nil && strings.TrimSpace(*p.AssetName) == "" {
		return common.InvalidArgument("asset name must not be empty")
	}
	if p.AssetSymbol != nil && strings.TrimSpace(*p.AssetSymbol) == "" {
		return common.InvalidArgument("asset symbol must not be empty")
	}
	if p.BuyPrice != nil && !p.BuyPrice.IsPositive() {
		return common.InvalidArgument("buy price must be greater than 0")
	}
	if p.InvestmentAmount != nil && !p.InvestmentAmount.IsPositive() {
		return common.InvalidArgument("investment amount must be greater than 0")
	}
	if p.Quantity != nil && !p.Quantity.IsPositive() {
		return common.InvalidArgument("quantity must be greater than 0")
	}
	if p.Currency != nil {
		c, err := ParseCurrency(*p.Currency)
		if err != nil {
			return common.InvalidArgument("invalid currency: %s", *p.Currency)
		}
		code := string(c)
		p.Currency = &code
	}
	if p.PurchaseDate != nil && p.PurchaseDate.IsZero() {
		return common.InvalidArgument("purchase date must be set")
	}
	return nil
}

// Apply copies the present fields onto r. Call Validate first.
func (p *InvestmentPatch) Apply(r *InvestmentRecord) {
	if p.AssetName != nil {
		r.AssetName = strings.TrimSpace(*p.AssetName)
	}
	if p.AssetSymbol != nil {
		r.AssetSymbol = strings.TrimSpace(*p.AssetSymbol)
	}
	if p.BuyPrice != nil {
		r.BuyPrice = *p.BuyPrice
	}
	if p.InvestmentAmount != nil {
		r.InvestmentAmount = *p.InvestmentAmount
	}
	if p.Quantity != nil {
		r.Quantity = *p.Quantity
	}
	if p.Currency != nil {
		r.Currency = Currency(*p.Currency)
	}
	if p.Label != nil {
		r.Label = *p.Label
	}
	if p.PurchaseDate != nil {
		r.PurchaseDate = *p.PurchaseDate
	}
}
