package fulfillment

import (
	"encoding/json"
	"fmt"
	"strings"

	"storefront-service/internal/entity"
)

// Event is a provider webhook notification normalized into canonical
// fields. Provider payloads are duck-typed: the same concept shows up
// under several alternate keys depending on event age and type, so all
// of that variance is absorbed here and nowhere else.
type Event struct {
	Type       string
	OrderID    string
	ExternalID string
	Status     string

	TrackingCarrier string
	TrackingNumber  string
	TrackingURL     string
}

type rawShipment struct {
	Carrier        string `json:"carrier"`
	Number         string `json:"number"`
	TrackingNumber string `json:"tracking_number"`
	URL            string `json:"url"`
	TrackingURL    string `json:"tracking_url"`
}

type rawEvent struct {
	Type     string `json:"type"`
	Resource struct {
		ID   string `json:"id"`
		Data struct {
			ExternalID string        `json:"external_id"`
			Status     string        `json:"status"`
			Shipment   rawShipment   `json:"shipment"`
			Shipments  []rawShipment `json:"shipments"`

			Carrier        string `json:"carrier"`
			TrackingNumber string `json:"tracking_number"`
			TrackingURL    string `json:"tracking_url"`
		} `json:"data"`
	} `json:"resource"`
}

// ParseEvent decodes a raw webhook body into a normalized Event.
func ParseEvent(payload []byte) (*Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decoding event: %w", err)
	}

	e := &Event{
		Type:       raw.Type,
		OrderID:    raw.Resource.ID,
		ExternalID: raw.Resource.Data.ExternalID,
		Status:     raw.Resource.Data.Status,
	}

	shipments := append([]rawShipment{raw.Resource.Data.Shipment}, raw.Resource.Data.Shipments...)
	for _, s := range shipments {
		e.TrackingCarrier = firstNonEmpty(e.TrackingCarrier, s.Carrier)
		e.TrackingNumber = firstNonEmpty(e.TrackingNumber, s.TrackingNumber, s.Number)
		e.TrackingURL = firstNonEmpty(e.TrackingURL, s.TrackingURL, s.URL)
	}
	e.TrackingCarrier = firstNonEmpty(e.TrackingCarrier, raw.Resource.Data.Carrier)
	e.TrackingNumber = firstNonEmpty(e.TrackingNumber, raw.Resource.Data.TrackingNumber)
	e.TrackingURL = firstNonEmpty(e.TrackingURL, raw.Resource.Data.TrackingURL)

	return e, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// statusByEventType maps provider event-type strings onto canonical
// fulfillment statuses. Types absent here are acknowledged and ignored.
var statusByEventType = map[string]entity.FulfillmentStatus{
	"order:created":            entity.FulfillmentSubmitted,
	"order:sent-to-production": entity.FulfillmentProcessing,
	"order:in-production":      entity.FulfillmentProcessing,
	"order:shipment:created":   entity.FulfillmentShipped,
	"order:shipment:delivered": entity.FulfillmentDelivered,
	"order:canceled":           entity.FulfillmentCancelled,
	"order:cancelled":          entity.FulfillmentCancelled,
}

// statusBySynonym maps the status strings that ride on generic
// "order:updated" events onto canonical statuses.
var statusBySynonym = map[string]entity.FulfillmentStatus{
	"pending":               entity.FulfillmentSubmitted,
	"on-hold":               entity.FulfillmentSubmitted,
	"in-production":         entity.FulfillmentProcessing,
	"sending-to-production": entity.FulfillmentProcessing,
	"fulfilled":             entity.FulfillmentShipped,
	"shipped":               entity.FulfillmentShipped,
	"delivered":             entity.FulfillmentDelivered,
	"canceled":              entity.FulfillmentCancelled,
	"cancelled":             entity.FulfillmentCancelled,
}

// MapStatus resolves a normalized event onto a canonical fulfillment
// status. The second return is false for unknown event types, which the
// reconciler acknowledges without applying.
func MapStatus(e *Event) (entity.FulfillmentStatus, bool) {
	if status, ok := statusByEventType[e.Type]; ok {
		return status, true
	}
	if e.Type == "order:updated" {
		if status, ok := statusBySynonym[strings.ToLower(e.Status)]; ok {
			return status, true
		}
	}
	return "", false
}
