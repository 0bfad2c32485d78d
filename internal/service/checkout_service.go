package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"storefront-service/internal/entity"
	"storefront-service/internal/repository"
)

// orderNumberBaseSeq is where the sequence starts on an empty store.
const orderNumberBaseSeq = 1000

// orderNumberAttempts bounds the retry loop on order-number collisions.
const orderNumberAttempts = 5

// CheckoutService turns a client cart into a reserved, unpaid order with
// an open payment intent.
type CheckoutService struct {
	store        repository.Store
	gateway      PaymentGateway
	kafkaWriter  EventWriter
	rdb          *redis.Client
	currency     string
	shippingFlat int64
	taxFor       TaxCalculator
}

// NewCheckoutService creates a new instance of CheckoutService. The
// kafka writer and redis client may be nil; the corresponding concerns
// (lifecycle events, idempotency keys) are then skipped.
func NewCheckoutService(store repository.Store, gateway PaymentGateway, kafkaWriter EventWriter, rdb *redis.Client, currency string, shippingFlat int64, taxFor TaxCalculator) *CheckoutService {
	if taxFor == nil {
		taxFor = FlatTax(0)
	}
	return &CheckoutService{
		store:        store,
		gateway:      gateway,
		kafkaWriter:  kafkaWriter,
		rdb:          rdb,
		currency:     currency,
		shippingFlat: shippingFlat,
		taxFor:       taxFor,
	}
}

type CheckoutItem struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

type CheckoutRequest struct {
	Items         []CheckoutItem `json:"items"`
	PromoCode     string         `json:"promo_code,omitempty"`
	CustomerName  string         `json:"customer_name"`
	CustomerEmail string         `json:"customer_email"`
	CustomerPhone string         `json:"customer_phone,omitempty"`
	ShippingAddr  entity.Address `json:"shipping_address"`

	// IdempotentKey comes from the Idempotent-Key header, not the body.
	IdempotentKey string `json:"-"`
}

type CheckoutResult struct {
	OrderID      string `json:"order_id"`
	ClientSecret string `json:"client_secret"`
}

// Checkout validates and re-prices the cart against catalog truth, opens
// a payment intent for the computed total, then persists the order with
// payment PENDING and fulfillment DRAFT. The intent is opened before the
// order row: a gateway failure leaves nothing behind, and an order whose
// intent never completes is just an abandoned checkout the reconciler
// will never advance.
func (s *CheckoutService) Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutResult, error) {
	if err := validateCheckoutRequest(req); err != nil {
		return nil, err
	}

	ok, err := s.validateIdempotentKey(ctx, req.IdempotentKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &entity.ConflictError{Msg: "checkout already submitted with this idempotent key"}
	}

	items, subtotal, err := s.priceItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	if subtotal <= 0 {
		return nil, entity.Validationf("invalid cart: computed subtotal must be positive")
	}

	var discount int64
	if req.PromoCode != "" {
		discount, err = s.promoDiscount(ctx, req.PromoCode, subtotal)
		if err != nil {
			return nil, err
		}
	}

	tax := s.taxFor(subtotal-discount, req.ShippingAddr)
	shipping := s.shippingFlat
	total := subtotal - discount + tax + shipping

	order := &entity.Order{
		ID:                uuid.NewString(),
		Subtotal:          subtotal,
		Discount:          discount,
		Tax:               tax,
		Shipping:          shipping,
		Total:             total,
		CustomerName:      req.CustomerName,
		CustomerEmail:     req.CustomerEmail,
		CustomerPhone:     req.CustomerPhone,
		ShippingAddr:      req.ShippingAddr,
		PaymentStatus:     entity.PaymentPending,
		FulfillmentStatus: entity.FulfillmentDraft,
		LineItems:         items,
	}
	if !order.CheckTotals() {
		return nil, entity.Validationf("invalid cart: inconsistent totals")
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, total, s.currency, map[string]string{
		"order_id": order.ID,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Error creating payment intent")
		return nil, err
	}
	order.PaymentIntentID = intent.ID

	if err := s.createWithOrderNumber(ctx, order); err != nil {
		return nil, err
	}

	if err := publishOrderEvent(ctx, s.kafkaWriter, order, "created"); err != nil {
		logger.Error().Err(err).Msgf("Error publishing order-created event for %s", order.OrderNumber)
	}

	return &CheckoutResult{OrderID: order.ID, ClientSecret: intent.ClientSecret}, nil
}

func validateCheckoutRequest(req *CheckoutRequest) error {
	if len(req.Items) == 0 {
		return entity.Validationf("invalid cart: no items")
	}
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return entity.Validationf("invalid cart: quantity must be at least 1")
		}
	}

	required := []struct {
		field, value string
	}{
		{"customer_name", req.CustomerName},
		{"customer_email", req.CustomerEmail},
		{"address1", req.ShippingAddr.Address1},
		{"city", req.ShippingAddr.City},
		{"country", req.ShippingAddr.Country},
		{"zip", req.ShippingAddr.Zip},
	}
	missing := []string{}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.field)
		}
	}
	if len(missing) > 0 {
		return entity.Validationf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// priceItems re-prices every line from current variant truth; client
// prices are never trusted.
func (s *CheckoutService) priceItems(ctx context.Context, items []CheckoutItem) ([]entity.LineItem, int64, error) {
	var lines []entity.LineItem
	var subtotal int64

	for _, item := range items {
		variant, err := s.store.GetVariant(ctx, item.VariantID)
		if entity.IsNotFound(err) {
			return nil, 0, entity.Validationf("invalid cart: unknown variant %s", item.VariantID)
		}
		if err != nil {
			return nil, 0, err
		}
		if !variant.Enabled {
			return nil, 0, entity.Validationf("invalid cart: variant %s is not available", item.VariantID)
		}
		if variant.ProductID != item.ProductID {
			return nil, 0, entity.Validationf("invalid cart: variant %s does not belong to product %s", item.VariantID, item.ProductID)
		}

		product, err := s.store.GetProduct(ctx, variant.ProductID)
		if entity.IsNotFound(err) {
			return nil, 0, entity.Validationf("invalid cart: unknown product %s", variant.ProductID)
		}
		if err != nil {
			return nil, 0, err
		}
		if !product.Enabled {
			return nil, 0, entity.Validationf("invalid cart: product %s is not available", product.ID)
		}

		lines = append(lines, entity.LineItem{
			ProductID:         product.ID,
			VariantID:         variant.ID,
			Title:             product.Title,
			VariantTitle:      variant.Title,
			UnitPrice:         variant.Price,
			Quantity:          item.Quantity,
			ImageURL:          variant.ImageURL,
			ExternalProductID: variant.ExternalProductID,
			ExternalVariantID: variant.ExternalVariantID,
		})
		subtotal += variant.Price * int64(item.Quantity)
	}
	return lines, subtotal, nil
}

func (s *CheckoutService) promoDiscount(ctx context.Context, code string, subtotal int64) (int64, error) {
	promo, err := s.store.GetPromoCode(ctx, code)
	if entity.IsNotFound(err) {
		return 0, entity.Validationf("unknown promo code %q", code)
	}
	if err != nil {
		return 0, err
	}
	if !promo.Enabled {
		return 0, entity.Validationf("promo code %q is no longer active", code)
	}
	return promo.DiscountFor(subtotal), nil
}

// createWithOrderNumber issues max+1 from a scan of issued sequence
// values and retries on a uniqueness violation. The uniqueness
// constraint in the store, not the scan, is what makes this correct
// under concurrent checkouts.
func (s *CheckoutService) createWithOrderNumber(ctx context.Context, order *entity.Order) error {
	for attempt := 1; attempt <= orderNumberAttempts; attempt++ {
		max, err := s.store.MaxOrderSeq(ctx)
		if err != nil {
			return err
		}
		if max < orderNumberBaseSeq {
			max = orderNumberBaseSeq
		}
		order.OrderSeq = max + 1
		order.OrderNumber = entity.FormatOrderNumber(order.OrderSeq)

		err = s.store.CreateOrder(ctx, order)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicateOrderNumber) {
			return err
		}
		logger.Warn().Msgf("Order number %s taken, retrying (attempt %d)", order.OrderNumber, attempt)
		time.Sleep(time.Duration(attempt) * 5 * time.Millisecond)
	}
	return &entity.ConflictError{Msg: fmt.Sprintf("could not assign a unique order number after %d attempts", orderNumberAttempts)}
}

// validateIdempotentKey rejects a re-submitted checkout carrying a key
// already seen within the TTL window. An empty key or absent redis
// client skips the check.
func (s *CheckoutService) validateIdempotentKey(ctx context.Context, key string) (bool, error) {
	if s.rdb == nil || key == "" {
		return true, nil
	}
	redisKey := fmt.Sprintf("idempotent-key:%s", key)
	val, err := s.rdb.Get(ctx, redisKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}
	if val != "" {
		return false, nil
	}

	err = s.rdb.Set(ctx, redisKey, "exists", 24*time.Hour).Err()
	if err != nil {
		return false, err
	}
	return true, nil
}
