package fulfillment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/entity"
)

const testSecret = "pfy_secret"

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"type":"order:created"}`)
	header := SignPayload(body, testSecret)

	assert.True(t, VerifySignature(body, header, testSecret))
	assert.False(t, VerifySignature([]byte(`{"type":"other"}`), header, testSecret))
	assert.False(t, VerifySignature(body, "", testSecret))
	assert.False(t, VerifySignature(body, header, "wrong"))
	assert.False(t, VerifySignature(body, header, ""))
}

func TestSubmitOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/shops/shop-1/orders.json", r.URL.Path)
		require.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":"pfy-42"}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL("key-1", "shop-1", server.URL)
	id, err := client.SubmitOrder(context.Background(), &OrderRequest{ExternalID: "ord-1"})
	require.NoError(t, err)
	assert.Equal(t, "pfy-42", id)
}

func TestSubmitOrderAlreadyExistsReason(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Order was already created","reason":"ORDER_ALREADY_EXISTS"}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL("key-1", "shop-1", server.URL)
	_, err := client.SubmitOrder(context.Background(), &OrderRequest{ExternalID: "ord-1"})

	var perr *entity.FulfillmentProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ReasonAlreadyExists, perr.Reason)
	assert.Equal(t, "Order was already created", perr.Msg)
}

func TestListOrders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		w.Write([]byte(`{"data":[{"id":"pfy-1","external_id":"ord-1"},{"id":"pfy-2","external_id":"ord-2"}]}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL("key-1", "shop-1", server.URL)
	orders, err := client.ListOrders(context.Background(), 2, 50)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "ord-2", orders[1].ExternalID)
}

func TestCancelOrderMissingCredentialsIsConfigError(t *testing.T) {
	client := NewClient("", "")
	err := client.CancelOrder(context.Background(), "pfy-1")

	var cerr *entity.ConfigurationError
	assert.ErrorAs(t, err, &cerr)
}

func TestParseEventNormalizesTrackingKeys(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{
			name: "shipment object with number/url",
			payload: `{"type":"order:shipment:created","resource":{"id":"pfy-1","data":{
				"shipment":{"carrier":"usps","number":"9400","url":"https://t.example/9400"}}}}`,
		},
		{
			name: "shipment object with tracking_ prefixed keys",
			payload: `{"type":"order:shipment:created","resource":{"id":"pfy-1","data":{
				"shipment":{"carrier":"usps","tracking_number":"9400","tracking_url":"https://t.example/9400"}}}}`,
		},
		{
			name: "shipments array",
			payload: `{"type":"order:shipment:created","resource":{"id":"pfy-1","data":{
				"shipments":[{"carrier":"usps","number":"9400","url":"https://t.example/9400"}]}}}`,
		},
		{
			name: "flat keys on data",
			payload: `{"type":"order:shipment:created","resource":{"id":"pfy-1","data":{
				"carrier":"usps","tracking_number":"9400","tracking_url":"https://t.example/9400"}}}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event, err := ParseEvent([]byte(tc.payload))
			require.NoError(t, err)
			assert.Equal(t, "pfy-1", event.OrderID)
			assert.Equal(t, "usps", event.TrackingCarrier)
			assert.Equal(t, "9400", event.TrackingNumber)
			assert.Equal(t, "https://t.example/9400", event.TrackingURL)
		})
	}
}

func TestParseEventExtractsCorrelationID(t *testing.T) {
	payload := `{"type":"order:created","resource":{"id":"pfy-9","data":{"external_id":"ord-1","status":"pending"}}}`

	event, err := ParseEvent([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, "pfy-9", event.OrderID)
	assert.Equal(t, "ord-1", event.ExternalID)
}

func TestMapStatus(t *testing.T) {
	cases := []struct {
		eventType string
		status    string
		want      entity.FulfillmentStatus
		known     bool
	}{
		{"order:created", "", entity.FulfillmentSubmitted, true},
		{"order:sent-to-production", "", entity.FulfillmentProcessing, true},
		{"order:in-production", "", entity.FulfillmentProcessing, true},
		{"order:shipment:created", "", entity.FulfillmentShipped, true},
		{"order:shipment:delivered", "", entity.FulfillmentDelivered, true},
		{"order:canceled", "", entity.FulfillmentCancelled, true},
		{"order:cancelled", "", entity.FulfillmentCancelled, true},
		{"order:updated", "shipped", entity.FulfillmentShipped, true},
		{"order:updated", "Delivered", entity.FulfillmentDelivered, true},
		{"order:updated", "in-production", entity.FulfillmentProcessing, true},
		{"order:updated", "something-new", "", false},
		{"shop:disconnected", "", "", false},
	}

	for _, tc := range cases {
		got, known := MapStatus(&Event{Type: tc.eventType, Status: tc.status})
		assert.Equal(t, tc.known, known, "%s/%s", tc.eventType, tc.status)
		if tc.known {
			assert.Equal(t, tc.want, got, "%s/%s", tc.eventType, tc.status)
		}
	}
}
