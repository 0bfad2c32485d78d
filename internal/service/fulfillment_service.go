package service

import (
	"context"
	"errors"
	"strings"

	"storefront-service/internal/entity"
	"storefront-service/internal/fulfillment"
	"storefront-service/internal/repository"
)

// recoveryPageLimit caps how far the already-exists recovery path pages
// through the provider's order list.
const recoveryPageLimit = 10

// FulfillmentService submits paid orders to the fulfillment provider.
type FulfillmentService struct {
	store    repository.Store
	provider FulfillmentProvider
}

func NewFulfillmentService(store repository.Store, provider FulfillmentProvider) *FulfillmentService {
	return &FulfillmentService{store: store, provider: provider}
}

// Submit sends an order to the provider for production. It refuses
// unpaid orders and orders that already carry a provider reference; the
// reference is write-once. When the provider reports the order already
// exists (a prior submission succeeded remotely but the local commit was
// lost), the existing provider order is located by correlation id and
// adopted instead of failing.
func (s *FulfillmentService) Submit(ctx context.Context, orderID string) (*entity.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.PaymentStatus != entity.PaymentPaid {
		return nil, entity.Validationf("order %s is not paid", order.OrderNumber)
	}
	if order.FulfillmentID != "" {
		return nil, &entity.ConflictError{Msg: "order " + order.OrderNumber + " was already submitted to fulfillment"}
	}

	externalID, err := s.provider.SubmitOrder(ctx, buildOrderRequest(order))
	if err != nil {
		var perr *entity.FulfillmentProviderError
		if errors.As(err, &perr) && perr.Reason == fulfillment.ReasonAlreadyExists {
			externalID, err = s.findExistingOrder(ctx, order.ID)
		}
		if err != nil {
			logger.Error().Err(err).Msgf("Error submitting order %s to fulfillment", order.OrderNumber)
			return nil, err
		}
	}

	order.FulfillmentID = externalID
	order.FulfillmentStatus = entity.FulfillmentSubmitted
	if err := s.store.UpdateOrder(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// findExistingOrder pages the provider order list for an entry whose
// external_id matches our order id.
func (s *FulfillmentService) findExistingOrder(ctx context.Context, orderID string) (string, error) {
	for page := 1; page <= recoveryPageLimit; page++ {
		summaries, err := s.provider.ListOrders(ctx, page, 50)
		if err != nil {
			return "", err
		}
		if len(summaries) == 0 {
			break
		}
		for _, summary := range summaries {
			if summary.ExternalID == orderID {
				return summary.ID, nil
			}
		}
	}
	return "", &entity.FulfillmentProviderError{
		Reason: fulfillment.ReasonAlreadyExists,
		Msg:    "provider reports order exists but it was not found in the order list",
	}
}

func buildOrderRequest(order *entity.Order) *fulfillment.OrderRequest {
	first, last := splitName(order.CustomerName)
	req := &fulfillment.OrderRequest{
		ExternalID: order.ID,
		AddressTo: fulfillment.ShippingAddress{
			FirstName: first,
			LastName:  last,
			Email:     order.CustomerEmail,
			Phone:     order.CustomerPhone,
			Address1:  order.ShippingAddr.Address1,
			Address2:  order.ShippingAddr.Address2,
			City:      order.ShippingAddr.City,
			Region:    order.ShippingAddr.Region,
			Country:   order.ShippingAddr.Country,
			Zip:       order.ShippingAddr.Zip,
		},
	}
	for _, item := range order.LineItems {
		req.LineItems = append(req.LineItems, fulfillment.LineItem{
			ProductID: item.ExternalProductID,
			VariantID: item.ExternalVariantID,
			Quantity:  item.Quantity,
		})
	}
	return req
}

func splitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	idx := strings.LastIndex(full, " ")
	if idx < 0 {
		return full, ""
	}
	return full[:idx], full[idx+1:]
}
