package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront-service/internal/entity"
)

// MemoryStore is an in-memory Store used by tests and by local runs
// without a database. It enforces the same order-number uniqueness the
// MySQL schema does.
type MemoryStore struct {
	mu sync.Mutex

	Products   map[string]*entity.Product
	Variants   map[string]*entity.Variant
	PromoCodes map[string]*entity.PromoCode
	Orders     map[string]*entity.Order
	Events     []*entity.WebhookEvent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Products:   make(map[string]*entity.Product),
		Variants:   make(map[string]*entity.Variant),
		PromoCodes: make(map[string]*entity.PromoCode),
		Orders:     make(map[string]*entity.Order),
	}
}

func (m *MemoryStore) GetProduct(ctx context.Context, id string) (*entity.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Products[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) GetVariant(ctx context.Context, id string) (*entity.Variant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.Variants[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *MemoryStore) GetPromoCode(ctx context.Context, code string) (*entity.PromoCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.PromoCodes[code]
	if !ok {
		return nil, entity.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) IncrementSoldCount(ctx context.Context, productID string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Products[productID]
	if !ok {
		return entity.ErrNotFound
	}
	p.SoldCount += delta
	return nil
}

func (m *MemoryStore) CreateOrder(ctx context.Context, order *entity.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.Orders {
		if existing.OrderNumber == order.OrderNumber {
			return ErrDuplicateOrderNumber
		}
	}
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now
	cp := *order
	cp.LineItems = append([]entity.LineItem(nil), order.LineItems...)
	m.Orders[order.ID] = &cp
	return nil
}

func (m *MemoryStore) GetOrder(ctx context.Context, id string) (*entity.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.Orders[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return copyOrder(o), nil
}

func (m *MemoryStore) GetOrderByPaymentIntent(ctx context.Context, intentID string) (*entity.Order, error) {
	return m.findOrder(func(o *entity.Order) bool {
		return intentID != "" && o.PaymentIntentID == intentID
	})
}

func (m *MemoryStore) GetOrderByFulfillmentID(ctx context.Context, fulfillmentID string) (*entity.Order, error) {
	return m.findOrder(func(o *entity.Order) bool {
		return fulfillmentID != "" && o.FulfillmentID == fulfillmentID
	})
}

func (m *MemoryStore) findOrder(match func(*entity.Order) bool) (*entity.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.Orders {
		if match(o) {
			return copyOrder(o), nil
		}
	}
	return nil, entity.ErrNotFound
}

func (m *MemoryStore) MaxOrderSeq(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	max := 0
	for _, o := range m.Orders {
		if o.OrderSeq > max {
			max = o.OrderSeq
		}
	}
	return max, nil
}

func (m *MemoryStore) UpdateOrder(ctx context.Context, order *entity.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.Orders[order.ID]
	if !ok {
		return entity.ErrNotFound
	}
	order.UpdatedAt = time.Now().UTC()
	existing.PaymentIntentID = order.PaymentIntentID
	existing.PaymentStatus = order.PaymentStatus
	existing.FulfillmentID = order.FulfillmentID
	existing.FulfillmentStatus = order.FulfillmentStatus
	existing.TrackingCarrier = order.TrackingCarrier
	existing.TrackingNumber = order.TrackingNumber
	existing.TrackingURL = order.TrackingURL
	existing.UpdatedAt = order.UpdatedAt
	return nil
}

func (m *MemoryStore) DeleteOrder(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Orders, id)
	return nil
}

func (m *MemoryStore) ListOrders(ctx context.Context, limit, offset int) ([]*entity.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]*entity.Order, 0, len(m.Orders))
	for _, o := range m.Orders {
		all = append(all, copyOrder(o))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].OrderSeq > all[j].OrderSeq })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (m *MemoryStore) InsertWebhookEvent(ctx context.Context, event *entity.WebhookEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now().UTC()
	}
	event.ID = len(m.Events) + 1
	m.Events = append(m.Events, event)
	return nil
}

func copyOrder(o *entity.Order) *entity.Order {
	cp := *o
	cp.LineItems = append([]entity.LineItem(nil), o.LineItems...)
	return &cp
}
