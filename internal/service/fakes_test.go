package service_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mahmoudaladin7/E-Commerce/internal/domain"
	"github.com/mahmoudaladin7/E-Commerce/internal/port"
)

type fakeCartReader struct {
	snapshot domain.CartSnapshot
	err      error
}

func (f *fakeCartReader) GetCartSummary(_ context.Context, userID string) (domain.CartSnapshot, error) {
	if f.err != nil {
		return domain.CartSnapshot{}, f.err
	}
	snapshot := f.snapshot
	snapshot.UserID = userID
	return snapshot, nil
}

type fakeGateway struct {
	name     domain.Provider
	initiate func(ctx context.Context, req port.InitiateRequest) (port.InitiateResult, error)
	verify   func(payload []byte, signatureHeader string) (port.ConfirmationEvent, error)

	mu            sync.Mutex
	initiateCalls int
}

func (f *fakeGateway) Name() domain.Provider {
	return f.name
}

func (f *fakeGateway) Initiate(ctx context.Context, req port.InitiateRequest) (port.InitiateResult, error) {
	f.mu.Lock()
	f.initiateCalls++
	f.mu.Unlock()
	return f.initiate(ctx, req)
}

func (f *fakeGateway) VerifyConfirmation(payload []byte, signatureHeader string) (port.ConfirmationEvent, error) {
	return f.verify(payload, signatureHeader)
}

func (f *fakeGateway) initiated() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initiateCalls
}

// memOrderRepository mirrors the store contract in memory: atomic creation,
// sticky terminal statuses and an immutable provider reference.
type memOrderRepository struct {
	mu       sync.Mutex
	orders   map[uuid.UUID]domain.Order
	items    map[uuid.UUID][]domain.OrderLineItem
	payments map[uuid.UUID]domain.Payment

	failUpdates int
}

func newMemOrderRepository() *memOrderRepository {
	return &memOrderRepository{
		orders:   make(map[uuid.UUID]domain.Order),
		items:    make(map[uuid.UUID][]domain.OrderLineItem),
		payments: make(map[uuid.UUID]domain.Payment),
	}
}

func (m *memOrderRepository) CreateOrderWithPayment(
	_ context.Context,
	order domain.Order,
	items []domain.OrderLineItem,
	payment domain.Payment,
) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order.CreatedAt = time.Now()
	m.orders[order.ID] = order
	m.items[order.ID] = append([]domain.OrderLineItem(nil), items...)
	m.payments[order.ID] = payment

	return order, nil
}

func (m *memOrderRepository) UpdatePaymentStatus(
	_ context.Context,
	orderID uuid.UUID,
	paymentStatus domain.PaymentStatus,
	orderStatus domain.OrderStatus,
	providerRef string,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failUpdates > 0 {
		m.failUpdates--
		return fmt.Errorf("store temporarily unavailable")
	}

	payment, ok := m.payments[orderID]
	if !ok {
		return fmt.Errorf("orderID[%s]: %w", orderID, domain.ErrOrderNotFound)
	}

	if payment.Status.IsTerminal() && payment.Status != paymentStatus {
		return nil
	}

	payment.Status = paymentStatus
	if payment.ProviderRef == "" && providerRef != "" {
		payment.ProviderRef = providerRef
	}
	m.payments[orderID] = payment

	order := m.orders[orderID]
	order.Status = orderStatus
	m.orders[orderID] = order

	return nil
}

func (m *memOrderRepository) GetPaymentByProviderRef(_ context.Context, provider domain.Provider, providerRef string) (domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, payment := range m.payments {
		if payment.Provider == provider && payment.ProviderRef == providerRef && providerRef != "" {
			return payment, nil
		}
	}

	return domain.Payment{}, fmt.Errorf("providerRef[%s]: %w", providerRef, domain.ErrUnknownTransaction)
}

func (m *memOrderRepository) GetOrder(_ context.Context, orderID uuid.UUID) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return domain.Order{}, fmt.Errorf("orderID[%s]: %w", orderID, domain.ErrOrderNotFound)
	}

	return order, nil
}

func (m *memOrderRepository) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *memOrderRepository) payment(orderID uuid.UUID) domain.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payments[orderID]
}

func (m *memOrderRepository) order(orderID uuid.UUID) domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[orderID]
}

func (m *memOrderRepository) lineItems(orderID uuid.UUID) []domain.OrderLineItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[orderID]
}
