package repository

import (
	"context"
	"errors"

	"storefront-service/internal/entity"
)

// ErrDuplicateOrderNumber signals a uniqueness violation on the
// human-facing order number during concurrent creation. The checkout
// service retries with a fresh sequence scan.
var ErrDuplicateOrderNumber = errors.New("duplicate order number")

// Store is the persistence surface the order path consumes. Every order
// mutation is keyed by order id; a single-row update is the unit of
// atomicity, no multi-row transactions are required above this layer.
type Store interface {
	GetProduct(ctx context.Context, id string) (*entity.Product, error)
	GetVariant(ctx context.Context, id string) (*entity.Variant, error)
	GetPromoCode(ctx context.Context, code string) (*entity.PromoCode, error)
	IncrementSoldCount(ctx context.Context, productID string, delta int) error

	CreateOrder(ctx context.Context, order *entity.Order) error
	GetOrder(ctx context.Context, id string) (*entity.Order, error)
	GetOrderByPaymentIntent(ctx context.Context, intentID string) (*entity.Order, error)
	GetOrderByFulfillmentID(ctx context.Context, fulfillmentID string) (*entity.Order, error)
	MaxOrderSeq(ctx context.Context) (int, error)
	UpdateOrder(ctx context.Context, order *entity.Order) error
	DeleteOrder(ctx context.Context, id string) error
	ListOrders(ctx context.Context, limit, offset int) ([]*entity.Order, error)

	InsertWebhookEvent(ctx context.Context, event *entity.WebhookEvent) error
}
