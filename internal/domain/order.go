package domain

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/currency"
)

type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "PENDING_PAYMENT"
	OrderStatusPaid           OrderStatus = "PAID"
	OrderStatusFailed         OrderStatus = "FAILED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusPaid || s == OrderStatusFailed || s == OrderStatusCancelled
}

func (s OrderStatus) String() string {
	return string(s)
}

// Order is created once per checkout attempt and is immutable afterwards
// except for its status.
type Order struct {
	ID         uuid.UUID
	UserID     string
	TotalMinor int64
	Currency   currency.Unit
	Status     OrderStatus
	CreatedAt  time.Time
}

// OrderLineItem freezes the catalog name and price of one cart line at
// purchase time. Later catalog changes never alter a placed order.
type OrderLineItem struct {
	OrderID            uuid.UUID
	ProductID          uuid.UUID
	NameSnapshot       string
	PriceMinorSnapshot int64
	Quantity           int32
}
