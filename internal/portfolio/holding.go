// Package portfolio holds the user's positions and their cost/value totals.
package portfolio

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInvalidHolding = errors.New("invalid holding")

// Holding is one ticker-quantity-cost record.
type Holding struct {
	ID            string    `json:"id"`
	Symbol        string    `json:"symbol"`
	Quantity      float64   `json:"quantity"`
	PurchasePrice float64   `json:"purchase_price"`
	CurrentPrice  float64   `json:"current_price"`
	CreatedAt     time.Time `json:"created_at"`
}

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// NewHolding validates the inputs and assigns a fresh id.
func NewHolding(symbol string, quantity, purchasePrice, currentPrice float64, now time.Time) (Holding, error) {
	sym := NormalizeSymbol(symbol)
	if sym == "" {
		return Holding{}, fmt.Errorf("%w: empty symbol", ErrInvalidHolding)
	}
	for name, v := range map[string]float64{
		"quantity":       quantity,
		"purchase price": purchasePrice,
		"current price":  currentPrice,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return Holding{}, fmt.Errorf("%w: %s %v for %s", ErrInvalidHolding, name, v, sym)
		}
	}
	return Holding{
		ID:            uuid.NewString(),
		Symbol:        sym,
		Quantity:      quantity,
		PurchasePrice: purchasePrice,
		CurrentPrice:  currentPrice,
		CreatedAt:     now.UTC(),
	}, nil
}

func (h Holding) Cost() float64  { return h.Quantity * h.PurchasePrice }
func (h Holding) Value() float64 { return h.Quantity * h.CurrentPrice }
func (h Holding) PnL() float64   { return h.Value() - h.Cost() }

// PnLPercent is P&L over cost in percent, 0 when the cost is 0.
func (h Holding) PnLPercent() float64 {
	cost := h.Cost()
	if cost <= 0 {
		return 0
	}
	return h.PnL() / cost * 100
}

// ShortID is the prefix shown to users; ResolveID accepts any unique prefix.
func (h Holding) ShortID() string {
	if len(h.ID) > 8 {
		return h.ID[:8]
	}
	return h.ID
}

// ResolveID finds the single holding whose id starts with prefix.
func ResolveID(holdings []Holding, prefix string) (Holding, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return Holding{}, fmt.Errorf("empty holding id")
	}
	var found []Holding
	for _, h := range holdings {
		if strings.HasPrefix(strings.ToLower(h.ID), prefix) {
			found = append(found, h)
		}
	}
	switch len(found) {
	case 0:
		return Holding{}, fmt.Errorf("no holding with id %q", prefix)
	case 1:
		return found[0], nil
	default:
		return Holding{}, fmt.Errorf("id %q matches %d holdings, use more characters", prefix, len(found))
	}
}

// Symbols returns the distinct tickers in holding order.
func Symbols(holdings []Holding) []string {
	seen := make(map[string]struct{}, len(holdings))
	out := make([]string, 0, len(holdings))
	for _, h := range holdings {
		if _, ok := seen[h.Symbol]; ok {
			continue
		}
		seen[h.Symbol] = struct{}{}
		out = append(out, h.Symbol)
	}
	return out
}

// Summary totals a portfolio. Money is summed in decimal so totals of many
// positions do not drift in the last cent.
type Summary struct {
	TotalCost  decimal.Decimal `json:"total_cost"`
	TotalValue decimal.Decimal `json:"total_value"`
	PnL        decimal.Decimal `json:"pnl"`
	PnLPercent float64         `json:"pnl_percent"`
}

func Summarize(holdings []Holding) Summary {
	cost := decimal.Zero
	value := decimal.Zero
	for _, h := range holdings {
		qty := decimal.NewFromFloat(h.Quantity)
		cost = cost.Add(qty.Mul(decimal.NewFromFloat(h.PurchasePrice)))
		value = value.Add(qty.Mul(decimal.NewFromFloat(h.CurrentPrice)))
	}
	pnl := value.Sub(cost)
	s := Summary{TotalCost: cost, TotalValue: value, PnL: pnl}
	if cost.IsPositive() {
		s.PnLPercent = pnl.Div(cost).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}
	return s
}
