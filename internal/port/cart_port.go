package port

import (
	"context"

	"github.com/mahmoudaladin7/E-Commerce/internal/domain"
)

// CartReader is the cart collaborator boundary. It is a pure read: checkout
// never mutates the cart through this port.
type CartReader interface {
	GetCartSummary(ctx context.Context, userID string) (domain.CartSnapshot, error)
}
