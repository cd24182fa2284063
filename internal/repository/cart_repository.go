package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mahmoudaladin7/E-Commerce/internal/domain"
	"github.com/mahmoudaladin7/E-Commerce/internal/port"
	"golang.org/x/text/currency"
)

type cartRepository struct {
	pool *pgxpool.Pool
}

func NewCartReader(pool *pgxpool.Pool) port.CartReader {
	return &cartRepository{pool: pool}
}

// GetCartSummary reads the user's cart lines priced at the catalog's current
// values. Unit prices are resolved at read time; checkout snapshots them.
func (r *cartRepository) GetCartSummary(ctx context.Context, userID string) (domain.CartSnapshot, error) {
	if userID == "" {
		return domain.CartSnapshot{}, fmt.Errorf("userID is empty")
	}

	rows, err := r.pool.Query(ctx,
		`SELECT ci.product_id, p.name, p.price_minor, p.currency, ci.quantity
		 FROM cart_items ci
		 JOIN products p ON p.id = ci.product_id
		 WHERE ci.owner_id = $1 AND p.active
		 ORDER BY ci.created_at`,
		userID,
	)
	if err != nil {
		return domain.CartSnapshot{}, fmt.Errorf("query cart items: %w", err)
	}

	lines, err := pgx.CollectRows(rows, mapCartRowToLine)
	if err != nil {
		return domain.CartSnapshot{}, fmt.Errorf("pgx.CollectRows: %w", err)
	}

	return domain.CartSnapshot{
		UserID: userID,
		Lines:  lines,
	}, nil
}

func mapCartRowToLine(row pgx.CollectableRow) (domain.CartLine, error) {
	var (
		line        domain.CartLine
		currencyRaw string
	)

	err := row.Scan(&line.ProductID, &line.Name, &line.UnitPrice.AmountMinor, &currencyRaw, &line.Quantity)
	if err != nil {
		return domain.CartLine{}, err
	}

	line.UnitPrice.Currency, err = currency.ParseISO(currencyRaw)
	if err != nil {
		return domain.CartLine{}, fmt.Errorf("currency[%s] is not valid: %w", currencyRaw, err)
	}

	return line, nil
}
