package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"storefront-service/internal/entity"
	"storefront-service/internal/fulfillment"
	"storefront-service/internal/payment"
	"storefront-service/internal/repository"
)

// WebhookService reconciles asynchronous provider notifications onto
// order state. Deliveries are at-least-once and unordered: every mutation
// below is guarded by a status-equality check so re-delivery is a no-op,
// and fulfillment status is last-write-wins except that CANCELLED is
// terminal. There is deliberately no forward-only transition table;
// events are applied in arrival order, not reordered.
type WebhookService struct {
	store       repository.Store
	submitter   *FulfillmentService
	kafkaWriter EventWriter
	rdb         *redis.Client
}

// NewWebhookService creates a new instance of WebhookService. The kafka
// writer and redis client may be nil.
func NewWebhookService(store repository.Store, submitter *FulfillmentService, kafkaWriter EventWriter, rdb *redis.Client) *WebhookService {
	return &WebhookService{store: store, submitter: submitter, kafkaWriter: kafkaWriter, rdb: rdb}
}

// LogEvent appends a raw delivery to the audit log. Failures are logged
// and swallowed: the audit trail must never turn a good webhook into a
// provider-side retry storm.
func (s *WebhookService) LogEvent(ctx context.Context, source, eventType string, payload []byte) {
	err := s.store.InsertWebhookEvent(ctx, &entity.WebhookEvent{
		Source:    source,
		EventType: eventType,
		Payload:   string(payload),
	})
	if err != nil {
		logger.Error().Err(err).Msgf("Error logging %s webhook event", source)
	}
}

// HandlePaymentEvent applies a verified payment gateway event.
func (s *WebhookService) HandlePaymentEvent(ctx context.Context, event *payment.Event, raw []byte) error {
	s.LogEvent(ctx, entity.WebhookSourcePayment, event.Type, raw)

	if s.seenEvent(ctx, entity.WebhookSourcePayment, event.ID) {
		return nil
	}

	var err error
	switch event.Type {
	case payment.EventPaymentSucceeded:
		err = s.paymentSucceeded(ctx, event)
	case payment.EventPaymentFailed:
		err = s.paymentFailed(ctx, event)
	default:
		// Unknown gateway events are acknowledged and ignored.
		return nil
	}
	if err != nil {
		return err
	}

	// Marked only after processing succeeds: a transient failure leaves
	// the id unmarked so the provider's redelivery gets a clean retry.
	s.markEventSeen(ctx, entity.WebhookSourcePayment, event.ID)
	return nil
}

func (s *WebhookService) paymentSucceeded(ctx context.Context, event *payment.Event) error {
	order, err := s.findByPayment(ctx, event)
	if err != nil {
		return err
	}
	if order == nil {
		// Foreign or test event; expected, not an error.
		return nil
	}

	// Idempotency guard: a re-delivered success event finds the order
	// already PAID and does nothing, including no second submission and
	// no second sold-count increment.
	if order.PaymentStatus == entity.PaymentPaid {
		return nil
	}

	// An order cancelled while payment was in flight records the payment
	// but stays CANCELLED: nothing is sold and nothing is sent to
	// production.
	if order.FulfillmentStatus == entity.FulfillmentCancelled {
		order.PaymentStatus = entity.PaymentPaid
		return s.store.UpdateOrder(ctx, order)
	}

	order.PaymentStatus = entity.PaymentPaid
	order.FulfillmentStatus = entity.FulfillmentProcessing
	if err := s.store.UpdateOrder(ctx, order); err != nil {
		return err
	}

	for _, item := range order.LineItems {
		if err := s.store.IncrementSoldCount(ctx, item.ProductID, item.Quantity); err != nil {
			logger.Error().Err(err).Msgf("Error incrementing sold count for product %s", item.ProductID)
		}
	}

	if err := publishOrderEvent(ctx, s.kafkaWriter, order, "paid"); err != nil {
		logger.Error().Err(err).Msgf("Error publishing order-paid event for %s", order.OrderNumber)
	}

	// Auto-submission is best-effort: a provider failure here leaves the
	// order PAID/PROCESSING and independently retryable from the admin
	// layer. The webhook must still acknowledge.
	if s.submitter != nil {
		if _, err := s.submitter.Submit(ctx, order.ID); err != nil {
			logger.Error().Err(err).Msgf("Error auto-submitting order %s to fulfillment", order.OrderNumber)
		}
	}
	return nil
}

func (s *WebhookService) paymentFailed(ctx context.Context, event *payment.Event) error {
	order, err := s.findByPayment(ctx, event)
	if err != nil {
		return err
	}
	if order == nil {
		return nil
	}
	if order.PaymentStatus == entity.PaymentFailed {
		return nil
	}

	order.PaymentStatus = entity.PaymentFailed
	return s.store.UpdateOrder(ctx, order)
}

// findByPayment locates the order by payment intent reference, falling
// back to the correlation id embedded in event metadata. A miss on both
// returns nil, nil: foreign and test-mode events are routine.
func (s *WebhookService) findByPayment(ctx context.Context, event *payment.Event) (*entity.Order, error) {
	if event.IntentID != "" {
		order, err := s.store.GetOrderByPaymentIntent(ctx, event.IntentID)
		if err == nil {
			return order, nil
		}
		if !entity.IsNotFound(err) {
			return nil, err
		}
	}
	if id := event.Metadata["order_id"]; id != "" {
		order, err := s.store.GetOrder(ctx, id)
		if err == nil {
			return order, nil
		}
		if !entity.IsNotFound(err) {
			return nil, err
		}
	}
	return nil, nil
}

// HandleFulfillmentEvent applies a verified fulfillment provider event.
func (s *WebhookService) HandleFulfillmentEvent(ctx context.Context, event *fulfillment.Event, raw []byte) error {
	s.LogEvent(ctx, entity.WebhookSourceFulfillment, event.Type, raw)

	status, known := fulfillment.MapStatus(event)
	if !known {
		return nil
	}

	order, err := s.findByFulfillment(ctx, event)
	if err != nil {
		return err
	}
	if order == nil {
		return nil
	}

	// CANCELLED is sticky: once there, no mapped status is applied.
	if order.FulfillmentStatus == entity.FulfillmentCancelled {
		return nil
	}

	// Adopt the provider reference when we matched by correlation id and
	// a prior local commit of the reference was lost. Never overwrite an
	// existing one.
	if order.FulfillmentID == "" && event.OrderID != "" {
		order.FulfillmentID = event.OrderID
	}

	order.FulfillmentStatus = status
	if event.TrackingCarrier != "" {
		order.TrackingCarrier = event.TrackingCarrier
	}
	if event.TrackingNumber != "" {
		order.TrackingNumber = event.TrackingNumber
	}
	if event.TrackingURL != "" {
		order.TrackingURL = event.TrackingURL
	}

	if err := s.store.UpdateOrder(ctx, order); err != nil {
		return err
	}

	if err := publishOrderEvent(ctx, s.kafkaWriter, order, "updated"); err != nil {
		logger.Error().Err(err).Msgf("Error publishing order-updated event for %s", order.OrderNumber)
	}
	return nil
}

func (s *WebhookService) findByFulfillment(ctx context.Context, event *fulfillment.Event) (*entity.Order, error) {
	if event.OrderID != "" {
		order, err := s.store.GetOrderByFulfillmentID(ctx, event.OrderID)
		if err == nil {
			return order, nil
		}
		if !entity.IsNotFound(err) {
			return nil, err
		}
	}
	if event.ExternalID != "" {
		order, err := s.store.GetOrder(ctx, event.ExternalID)
		if err == nil {
			return order, nil
		}
		if !entity.IsNotFound(err) {
			return nil, err
		}
	}
	return nil, nil
}

// seenEvent reports whether a provider event id is already marked in
// redis. Redis being down degrades to the status-equality guards, which
// are the actual correctness mechanism; this is only a shortcut.
func (s *WebhookService) seenEvent(ctx context.Context, source, eventID string) bool {
	if s.rdb == nil || eventID == "" {
		return false
	}
	val, err := s.rdb.Get(ctx, eventKey(source, eventID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		logger.Error().Err(err).Msg("Error checking webhook event marker")
		return false
	}
	return val != ""
}

// markEventSeen records a processed event id. Called only after the
// event applied cleanly, so a transient failure never pins a marker that
// would swallow the redelivery.
func (s *WebhookService) markEventSeen(ctx context.Context, source, eventID string) {
	if s.rdb == nil || eventID == "" {
		return
	}
	if err := s.rdb.Set(ctx, eventKey(source, eventID), "seen", 48*time.Hour).Err(); err != nil {
		logger.Error().Err(err).Msg("Error writing webhook event marker")
	}
}

func eventKey(source, eventID string) string {
	return fmt.Sprintf("webhook-event:%s:%s", source, eventID)
}
