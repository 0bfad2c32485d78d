package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/entity"
	"storefront-service/internal/repository"
)

func newAdminFixture() (*repository.MemoryStore, *fakeProvider, *AdminService) {
	store := repository.NewMemoryStore()
	provider := &fakeProvider{}
	submitter := NewFulfillmentService(store, provider)
	return store, provider, NewAdminService(store, provider, submitter, nil)
}

func TestAdminSubmitToFulfillment(t *testing.T) {
	store, provider, svc := newAdminFixture()
	seedPaidOrder(store, "ord-1")

	order, err := svc.SubmitToFulfillment(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, "pfy-1", order.FulfillmentID)
	assert.Equal(t, 1, provider.submits)
}

func TestAdminSubmitRejectsCancelledOrder(t *testing.T) {
	store, provider, svc := newAdminFixture()
	order := seedPaidOrder(store, "ord-1")
	order.FulfillmentStatus = entity.FulfillmentCancelled

	_, err := svc.SubmitToFulfillment(context.Background(), "ord-1")
	var verr *entity.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, provider.submits)
}

func TestAdminSubmitRejectsExistingReference(t *testing.T) {
	store, provider, svc := newAdminFixture()
	order := seedPaidOrder(store, "ord-1")
	order.FulfillmentID = "pfy-1"

	_, err := svc.SubmitToFulfillment(context.Background(), "ord-1")
	var cerr *entity.ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Zero(t, provider.submits)
}

func TestAdminCancelFromProcessing(t *testing.T) {
	store, provider, svc := newAdminFixture()
	order := seedPaidOrder(store, "ord-1")
	order.FulfillmentID = "pfy-1"
	order.FulfillmentStatus = entity.FulfillmentProcessing

	got, err := svc.Cancel(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, entity.FulfillmentCancelled, got.FulfillmentStatus)
	assert.Equal(t, []string{"pfy-1"}, provider.cancelled)
}

// Provider failure does not block the local cancel; the local system is
// the source of truth for whether the order is still actionable.
func TestAdminCancelSurvivesProviderFailure(t *testing.T) {
	store, provider, svc := newAdminFixture()
	order := seedPaidOrder(store, "ord-1")
	order.FulfillmentID = "pfy-1"
	order.FulfillmentStatus = entity.FulfillmentProcessing
	provider.cancelErr = &entity.FulfillmentProviderError{StatusCode: 502, Msg: "bad gateway"}

	got, err := svc.Cancel(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, entity.FulfillmentCancelled, got.FulfillmentStatus)
}

func TestAdminCancelRejectsShippedOrder(t *testing.T) {
	store, _, svc := newAdminFixture()
	order := seedPaidOrder(store, "ord-1")
	order.FulfillmentStatus = entity.FulfillmentShipped

	_, err := svc.Cancel(context.Background(), "ord-1")
	var verr *entity.ValidationError
	require.ErrorAs(t, err, &verr)

	got, _ := store.GetOrder(context.Background(), "ord-1")
	assert.Equal(t, entity.FulfillmentShipped, got.FulfillmentStatus)
}

func TestCancelAtProviderRequiresReference(t *testing.T) {
	store, provider, svc := newAdminFixture()
	seedPaidOrder(store, "ord-1")

	_, err := svc.CancelAtProvider(context.Background(), "ord-1")
	var verr *entity.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, provider.cancelled)

	got, _ := store.GetOrder(context.Background(), "ord-1")
	assert.Equal(t, entity.FulfillmentProcessing, got.FulfillmentStatus, "no state change on precondition failure")
}

func TestCancelAtProviderSurfacesProviderError(t *testing.T) {
	store, provider, svc := newAdminFixture()
	order := seedPaidOrder(store, "ord-1")
	order.FulfillmentID = "pfy-1"
	provider.cancelErr = &entity.FulfillmentProviderError{StatusCode: 409, Msg: "order already in production"}

	_, err := svc.CancelAtProvider(context.Background(), "ord-1")
	var perr *entity.FulfillmentProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 409, perr.StatusCode)

	got, _ := store.GetOrder(context.Background(), "ord-1")
	assert.NotEqual(t, entity.FulfillmentCancelled, got.FulfillmentStatus, "provider failure makes no local change")
}

func TestCancelAtProviderSuccess(t *testing.T) {
	store, provider, svc := newAdminFixture()
	order := seedPaidOrder(store, "ord-1")
	order.FulfillmentID = "pfy-1"

	got, err := svc.CancelAtProvider(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, entity.FulfillmentCancelled, got.FulfillmentStatus)
	assert.Equal(t, []string{"pfy-1"}, provider.cancelled)
}

func TestAdminDeleteIsUnconditional(t *testing.T) {
	store, _, svc := newAdminFixture()
	order := seedPaidOrder(store, "ord-1")
	order.FulfillmentStatus = entity.FulfillmentShipped

	require.NoError(t, svc.Delete(context.Background(), "ord-1"))
	_, err := store.GetOrder(context.Background(), "ord-1")
	assert.True(t, entity.IsNotFound(err))
}

func TestAdminListOrdersNewestFirst(t *testing.T) {
	store, _, svc := newAdminFixture()
	for i, id := range []string{"ord-1", "ord-2", "ord-3"} {
		order := seedPaidOrder(store, id)
		order.OrderSeq = 1001 + i
		order.OrderNumber = entity.FormatOrderNumber(order.OrderSeq)
	}

	orders, err := svc.ListOrders(context.Background(), 2, 0)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, 1003, orders[0].OrderSeq)
	assert.Equal(t, 1002, orders[1].OrderSeq)
}
