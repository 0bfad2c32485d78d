package service

import (
	"context"

	"storefront-service/internal/entity"
	"storefront-service/internal/repository"
)

// AdminService exposes the operator-triggered order transitions. Each is
// independently guarded and safe to race against webhook delivery: the
// same write-once fulfillment reference and terminal CANCELLED rules
// apply on both sides.
type AdminService struct {
	store       repository.Store
	provider    FulfillmentProvider
	submitter   *FulfillmentService
	kafkaWriter EventWriter
}

func NewAdminService(store repository.Store, provider FulfillmentProvider, submitter *FulfillmentService, kafkaWriter EventWriter) *AdminService {
	return &AdminService{store: store, provider: provider, submitter: submitter, kafkaWriter: kafkaWriter}
}

func (s *AdminService) GetOrder(ctx context.Context, id string) (*entity.Order, error) {
	return s.store.GetOrder(ctx, id)
}

func (s *AdminService) ListOrders(ctx context.Context, limit, offset int) ([]*entity.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.store.ListOrders(ctx, limit, offset)
}

// SubmitToFulfillment retries a submission that the automatic
// paid-webhook path failed or skipped.
func (s *AdminService) SubmitToFulfillment(ctx context.Context, id string) (*entity.Order, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.FulfillmentStatus == entity.FulfillmentCancelled {
		return nil, entity.Validationf("order %s is cancelled", order.OrderNumber)
	}
	if order.FulfillmentID != "" {
		return nil, &entity.ConflictError{Msg: "order " + order.OrderNumber + " was already submitted to fulfillment"}
	}
	return s.submitter.Submit(ctx, id)
}

// Cancel cancels an order locally, with a best-effort provider cancel
// first when a reference exists. The local system is the source of truth
// for whether the order is still actionable, so a provider failure is
// logged and does not block the local cancellation.
func (s *AdminService) Cancel(ctx context.Context, id string) (*entity.Order, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.FulfillmentStatus != entity.FulfillmentDraft && order.FulfillmentStatus != entity.FulfillmentProcessing {
		return nil, entity.Validationf("order %s cannot be cancelled from status %s", order.OrderNumber, order.FulfillmentStatus)
	}

	if order.FulfillmentID != "" {
		if err := s.provider.CancelOrder(ctx, order.FulfillmentID); err != nil {
			logger.Error().Err(err).Msgf("Error cancelling order %s at provider, cancelling locally anyway", order.OrderNumber)
		}
	}

	order.FulfillmentStatus = entity.FulfillmentCancelled
	if err := s.store.UpdateOrder(ctx, order); err != nil {
		return nil, err
	}

	if err := publishOrderEvent(ctx, s.kafkaWriter, order, "cancelled"); err != nil {
		logger.Error().Err(err).Msgf("Error publishing order-cancelled event for %s", order.OrderNumber)
	}
	return order, nil
}

// CancelAtProvider cancels the provider-side order and only then the
// local one. Stricter than Cancel: a provider failure surfaces to the
// caller and leaves local state untouched.
func (s *AdminService) CancelAtProvider(ctx context.Context, id string) (*entity.Order, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.FulfillmentID == "" {
		return nil, entity.Validationf("order %s has no fulfillment reference", order.OrderNumber)
	}

	if err := s.provider.CancelOrder(ctx, order.FulfillmentID); err != nil {
		return nil, err
	}

	order.FulfillmentStatus = entity.FulfillmentCancelled
	if err := s.store.UpdateOrder(ctx, order); err != nil {
		return nil, err
	}

	if err := publishOrderEvent(ctx, s.kafkaWriter, order, "cancelled"); err != nil {
		logger.Error().Err(err).Msgf("Error publishing order-cancelled event for %s", order.OrderNumber)
	}
	return order, nil
}

// Delete hard-deletes an order at any status. An explicit escape hatch
// outside the lifecycle, not gated by any invariant.
func (s *AdminService) Delete(ctx context.Context, id string) error {
	return s.store.DeleteOrder(ctx, id)
}
