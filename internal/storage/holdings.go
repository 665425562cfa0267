package storage

import (
	"context"
	"fmt"
	"time"

	"portfolioTracker/internal/portfolio"
)

// AddHolding stores h for chatID.
func (s *Store) AddHolding(ctx context.Context, chatID int64, h portfolio.Holding) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO holdings(id,chat_id,symbol,quantity,purchase_price,current_price,created_at) VALUES(?,?,?,?,?,?,?)`,
		h.ID, chatID, h.Symbol, h.Quantity, h.PurchasePrice, h.CurrentPrice, h.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert holding %s: %w", h.Symbol, err)
	}
	return nil
}

// RemoveHolding deletes the holding id of chatID.
func (s *Store) RemoveHolding(ctx context.Context, chatID int64, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM holdings WHERE chat_id=? AND id=?`, chatID, id)
	if err != nil {
		return fmt.Errorf("delete holding: %w", err)
	}
	return expectOne(res, id)
}

// UpdateCurrentPrice sets the current price of holding id of chatID.
func (s *Store) UpdateCurrentPrice(ctx context.Context, chatID int64, id string, price float64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE holdings SET current_price=? WHERE chat_id=? AND id=?`, price, chatID, id)
	if err != nil {
		return fmt.Errorf("update holding price: %w", err)
	}
	return expectOne(res, id)
}

// ListHoldings returns the holdings of chatID oldest first.
func (s *Store) ListHoldings(ctx context.Context, chatID int64) ([]portfolio.Holding, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,symbol,quantity,purchase_price,current_price,created_at FROM holdings WHERE chat_id=? ORDER BY created_at ASC, id ASC`,
		chatID)
	if err != nil {
		return nil, fmt.Errorf("list holdings: %w", err)
	}
	defer rows.Close()

	out := []portfolio.Holding{}
	for rows.Next() {
		var h portfolio.Holding
		var created int64
		if err := rows.Scan(&h.ID, &h.Symbol, &h.Quantity, &h.PurchasePrice, &h.CurrentPrice, &created); err != nil {
			return nil, fmt.Errorf("scan holding: %w", err)
		}
		h.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, h)
	}
	return out, rows.Err()
}

func expectOne(res interface{ RowsAffected() (int64, error) }, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrHoldingNotFound, id)
	}
	return nil
}
