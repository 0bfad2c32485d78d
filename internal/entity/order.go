package entity

import (
	"fmt"
	"time"
)

// PaymentStatus tracks the state of money changing hands.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentFailed  PaymentStatus = "FAILED"
)

// FulfillmentStatus tracks the state of physical production and shipping.
type FulfillmentStatus string

const (
	FulfillmentDraft      FulfillmentStatus = "DRAFT"
	FulfillmentSubmitted  FulfillmentStatus = "SUBMITTED"
	FulfillmentProcessing FulfillmentStatus = "PROCESSING"
	FulfillmentShipped    FulfillmentStatus = "SHIPPED"
	FulfillmentDelivered  FulfillmentStatus = "DELIVERED"
	FulfillmentCancelled  FulfillmentStatus = "CANCELLED"
)

// Order is the persisted record of a customer's purchase attempt and its
// lifecycle. Monetary fields are integer cents. Customer and shipping
// fields are a snapshot taken at creation time, never re-derived from a
// live profile.
type Order struct {
	ID          string `json:"id"`
	OrderNumber string `json:"order_number"`
	OrderSeq    int    `json:"order_seq"`

	Subtotal int64 `json:"subtotal"`
	Discount int64 `json:"discount"`
	Tax      int64 `json:"tax"`
	Shipping int64 `json:"shipping"`
	Total    int64 `json:"total"`

	CustomerName  string  `json:"customer_name"`
	CustomerEmail string  `json:"customer_email"`
	CustomerPhone string  `json:"customer_phone,omitempty"`
	ShippingAddr  Address `json:"shipping_address"`

	PaymentIntentID string        `json:"payment_intent_id,omitempty"`
	PaymentStatus   PaymentStatus `json:"payment_status"`

	FulfillmentID     string            `json:"fulfillment_id,omitempty"`
	FulfillmentStatus FulfillmentStatus `json:"fulfillment_status"`

	TrackingCarrier string `json:"tracking_carrier,omitempty"`
	TrackingNumber  string `json:"tracking_number,omitempty"`
	TrackingURL     string `json:"tracking_url,omitempty"`

	LineItems []LineItem `json:"line_items"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LineItem is a receipt line, not a live join to the catalog: title,
// price and image are frozen at order creation.
type LineItem struct {
	ProductID    string `json:"product_id"`
	VariantID    string `json:"variant_id"`
	Title        string `json:"title"`
	VariantTitle string `json:"variant_title"`
	UnitPrice    int64  `json:"unit_price"`
	Quantity     int    `json:"quantity"`
	ImageURL     string `json:"image_url,omitempty"`
	Options      string `json:"options,omitempty"`

	// Provider references captured at checkout so a later submission
	// does not depend on the catalog still agreeing with the receipt.
	ExternalProductID string `json:"external_product_id,omitempty"`
	ExternalVariantID int    `json:"external_variant_id,omitempty"`
}

type Address struct {
	Address1 string `json:"address1"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city"`
	Region   string `json:"region,omitempty"`
	Country  string `json:"country"`
	Zip      string `json:"zip"`
}

// OrderNumberPrefix is the human-facing prefix on sequential order numbers.
const OrderNumberPrefix = "LKH"

// FormatOrderNumber renders a sequence value as a human-facing order
// number, e.g. 1001 -> "LKH-01001".
func FormatOrderNumber(seq int) string {
	return fmt.Sprintf("%s-%05d", OrderNumberPrefix, seq)
}

// CheckTotals reports whether the order's monetary fields are consistent:
// every amount non-negative and total = subtotal - discount + tax + shipping.
func (o *Order) CheckTotals() bool {
	if o.Subtotal < 0 || o.Discount < 0 || o.Tax < 0 || o.Shipping < 0 || o.Total < 0 {
		return false
	}
	return o.Total == o.Subtotal-o.Discount+o.Tax+o.Shipping
}
