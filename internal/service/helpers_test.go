package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/segmentio/kafka-go"

	"storefront-service/internal/entity"
	"storefront-service/internal/fulfillment"
	"storefront-service/internal/payment"
	"storefront-service/internal/repository"
)

type fakeGateway struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeGateway) CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*payment.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &payment.PaymentIntent{
		ID:           fmt.Sprintf("pi_test_%d", f.calls),
		ClientSecret: fmt.Sprintf("pi_test_%d_secret", f.calls),
	}, nil
}

type fakeProvider struct {
	mu          sync.Mutex
	submits     int
	submitErr   error
	cancelErr   error
	nextID      string
	listPages   [][]fulfillment.OrderSummary
	cancelled   []string
	lastRequest *fulfillment.OrderRequest
}

func (f *fakeProvider) SubmitOrder(ctx context.Context, req *fulfillment.OrderRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	f.lastRequest = req
	if f.submitErr != nil {
		return "", f.submitErr
	}
	if f.nextID == "" {
		return "pfy-1", nil
	}
	return f.nextID, nil
}

func (f *fakeProvider) CancelOrder(ctx context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, orderID)
	return nil
}

func (f *fakeProvider) ListOrders(ctx context.Context, page, limit int) ([]fulfillment.OrderSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if page-1 < len(f.listPages) {
		return f.listPages[page-1], nil
	}
	return nil, nil
}

type fakeWriter struct {
	mu       sync.Mutex
	err      error
	messages []kafka.Message
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

// seedCatalog loads the two-variant catalog most tests work against:
// variant var-a (1680) on prod-a, variant var-b (680) on prod-b.
func seedCatalog(store *repository.MemoryStore) {
	store.Products["prod-a"] = &entity.Product{ID: "prod-a", Title: "Heavyweight Tee", Enabled: true}
	store.Products["prod-b"] = &entity.Product{ID: "prod-b", Title: "Logo Socks", Enabled: true}
	store.Variants["var-a"] = &entity.Variant{
		ID: "var-a", ProductID: "prod-a", Title: "Black / L", Price: 1680, Enabled: true,
		ExternalProductID: "ext-prod-a", ExternalVariantID: 101,
	}
	store.Variants["var-b"] = &entity.Variant{
		ID: "var-b", ProductID: "prod-b", Title: "White / One Size", Price: 680, Enabled: true,
		ExternalProductID: "ext-prod-b", ExternalVariantID: 202,
	}
}

func validCheckoutRequest() *CheckoutRequest {
	return &CheckoutRequest{
		Items: []CheckoutItem{
			{ProductID: "prod-a", VariantID: "var-a", Quantity: 1},
			{ProductID: "prod-b", VariantID: "var-b", Quantity: 2},
		},
		CustomerName:  "Ada Lovelace",
		CustomerEmail: "ada@example.com",
		ShippingAddr: entity.Address{
			Address1: "12 Analytical Way",
			City:     "London",
			Country:  "GB",
			Zip:      "N1 9GU",
		},
	}
}

// seedPaidOrder stores an order ready for fulfillment submission.
func seedPaidOrder(store *repository.MemoryStore, id string) *entity.Order {
	order := &entity.Order{
		ID:                id,
		OrderNumber:       entity.FormatOrderNumber(1001),
		OrderSeq:          1001,
		Subtotal:          3040,
		Total:             3040,
		CustomerName:      "Ada Lovelace",
		CustomerEmail:     "ada@example.com",
		ShippingAddr:      entity.Address{Address1: "12 Analytical Way", City: "London", Country: "GB", Zip: "N1 9GU"},
		PaymentIntentID:   "pi_test_1",
		PaymentStatus:     entity.PaymentPaid,
		FulfillmentStatus: entity.FulfillmentProcessing,
		LineItems: []entity.LineItem{
			{ProductID: "prod-a", VariantID: "var-a", UnitPrice: 1680, Quantity: 1, ExternalProductID: "ext-prod-a", ExternalVariantID: 101},
			{ProductID: "prod-b", VariantID: "var-b", UnitPrice: 680, Quantity: 2, ExternalProductID: "ext-prod-b", ExternalVariantID: 202},
		},
	}
	store.Orders[id] = order
	return order
}
