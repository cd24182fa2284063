package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mahmoudaladin7/E-Commerce/internal/domain"
	"github.com/mahmoudaladin7/E-Commerce/internal/port"
	"golang.org/x/text/currency"
)

type orderRepository struct {
	pool *pgxpool.Pool
}

func NewOrder(pool *pgxpool.Pool) port.OrderRepository {
	return &orderRepository{pool: pool}
}

func (r *orderRepository) CreateOrderWithPayment(
	ctx context.Context,
	order domain.Order,
	items []domain.OrderLineItem,
	payment domain.Payment,
) (domain.Order, error) {
	if order.UserID == "" {
		return domain.Order{}, fmt.Errorf("userID is empty")
	}
	if len(items) == 0 {
		return domain.Order{}, fmt.Errorf("order has no line items")
	}
	if payment.OrderID != order.ID {
		return domain.Order{}, fmt.Errorf("payment.OrderID[%s] does not match order.ID[%s]", payment.OrderID, order.ID)
	}
	if payment.AmountMinor != order.TotalMinor || payment.Currency != order.Currency {
		return domain.Order{}, fmt.Errorf("payment amount/currency does not match order totals")
	}

	var itemsTotal int64
	for _, item := range items {
		itemsTotal += item.PriceMinorSnapshot * int64(item.Quantity)
	}
	if itemsTotal != order.TotalMinor {
		return domain.Order{}, fmt.Errorf("line items total[%d] does not match order total[%d]", itemsTotal, order.TotalMinor)
	}

	return withTx(ctx, r.pool, func(tx pgx.Tx) (domain.Order, error) {
		err := tx.QueryRow(ctx,
			`INSERT INTO orders (id, user_id, total_minor, currency, status)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING created_at`,
			order.ID, order.UserID, order.TotalMinor, order.Currency.String(), order.Status.String(),
		).Scan(&order.CreatedAt)
		if err != nil {
			return domain.Order{}, fmt.Errorf("insert order: %w", err)
		}

		batch := &pgx.Batch{}
		for _, item := range items {
			batch.Queue(
				`INSERT INTO order_items (order_id, product_id, name_snapshot, price_minor_snapshot, quantity)
				 VALUES ($1, $2, $3, $4, $5)`,
				order.ID, item.ProductID, item.NameSnapshot, item.PriceMinorSnapshot, item.Quantity,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return domain.Order{}, fmt.Errorf("insert order items: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO payments (order_id, provider, amount_minor, currency, status)
			 VALUES ($1, $2, $3, $4, $5)`,
			payment.OrderID, payment.Provider.String(), payment.AmountMinor, payment.Currency.String(), payment.Status.String(),
		)
		if err != nil {
			return domain.Order{}, fmt.Errorf("insert payment: %w", err)
		}

		return order, nil
	})
}

func (r *orderRepository) UpdatePaymentStatus(
	ctx context.Context,
	orderID uuid.UUID,
	paymentStatus domain.PaymentStatus,
	orderStatus domain.OrderStatus,
	providerRef string,
) error {
	_, err := withTx(ctx, r.pool, func(tx pgx.Tx) (struct{}, error) {
		var zero struct{}

		// A terminal payment status is sticky: it can be re-applied
		// identically (no-op) but never replaced by a different one.
		tag, err := tx.Exec(ctx,
			`UPDATE payments
			 SET status = $2,
			     provider_ref = CASE WHEN provider_ref IS NULL AND $3 <> '' THEN $3 ELSE provider_ref END
			 WHERE order_id = $1
			   AND (status = $2 OR status NOT IN ('SUCCEEDED', 'FAILED'))`,
			orderID, paymentStatus.String(), providerRef,
		)
		if err != nil {
			return zero, fmt.Errorf("update payment: %w", err)
		}

		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM payments WHERE order_id = $1)`, orderID,
			).Scan(&exists); err != nil {
				return zero, fmt.Errorf("check payment exists: %w", err)
			}
			if !exists {
				return zero, fmt.Errorf("orderID[%s]: %w", orderID, domain.ErrOrderNotFound)
			}
			// Payment is already in a different terminal state; leave the
			// order untouched so the pair stays consistent.
			return zero, nil
		}

		if _, err := tx.Exec(ctx,
			`UPDATE orders SET status = $2 WHERE id = $1`,
			orderID, orderStatus.String(),
		); err != nil {
			return zero, fmt.Errorf("update order: %w", err)
		}

		return zero, nil
	})
	return err
}

func (r *orderRepository) GetPaymentByProviderRef(ctx context.Context, provider domain.Provider, providerRef string) (domain.Payment, error) {
	if providerRef == "" {
		return domain.Payment{}, fmt.Errorf("providerRef is empty")
	}

	row := r.pool.QueryRow(ctx,
		`SELECT order_id, provider, amount_minor, currency, provider_ref, status
		 FROM payments
		 WHERE provider = $1 AND provider_ref = $2`,
		provider.String(), providerRef,
	)

	payment, err := scanPayment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Payment{}, fmt.Errorf("providerRef[%s]: %w", providerRef, domain.ErrUnknownTransaction)
	}
	if err != nil {
		return domain.Payment{}, fmt.Errorf("scanPayment: %w", err)
	}

	return payment, nil
}

func (r *orderRepository) GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	var (
		order       domain.Order
		currencyRaw string
		statusRaw   string
	)

	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, total_minor, currency, status, created_at
		 FROM orders
		 WHERE id = $1`,
		orderID,
	).Scan(&order.ID, &order.UserID, &order.TotalMinor, &currencyRaw, &statusRaw, &order.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, fmt.Errorf("orderID[%s]: %w", orderID, domain.ErrOrderNotFound)
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	order.Currency, err = currency.ParseISO(currencyRaw)
	if err != nil {
		return domain.Order{}, fmt.Errorf("currency[%s] is not valid: %w", currencyRaw, err)
	}
	order.Status = domain.OrderStatus(statusRaw)

	return order, nil
}

func scanPayment(row pgx.Row) (domain.Payment, error) {
	var (
		payment     domain.Payment
		providerRaw string
		currencyRaw string
		providerRef *string
		statusRaw   string
	)

	err := row.Scan(&payment.OrderID, &providerRaw, &payment.AmountMinor, &currencyRaw, &providerRef, &statusRaw)
	if err != nil {
		return domain.Payment{}, err
	}

	payment.Currency, err = currency.ParseISO(currencyRaw)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("currency[%s] is not valid: %w", currencyRaw, err)
	}

	payment.Provider = domain.Provider(providerRaw)
	payment.Status = domain.PaymentStatus(statusRaw)
	if providerRef != nil {
		payment.ProviderRef = *providerRef
	}

	return payment, nil
}
