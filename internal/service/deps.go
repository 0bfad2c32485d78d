package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"storefront-service/internal/entity"
	"storefront-service/internal/fulfillment"
	"storefront-service/internal/payment"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// PaymentGateway is the slice of the payment provider the checkout flow
// consumes.
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*payment.PaymentIntent, error)
}

// FulfillmentProvider is the slice of the print-on-demand provider the
// order lifecycle consumes.
type FulfillmentProvider interface {
	SubmitOrder(ctx context.Context, req *fulfillment.OrderRequest) (string, error)
	CancelOrder(ctx context.Context, orderID string) error
	ListOrders(ctx context.Context, page, limit int) ([]fulfillment.OrderSummary, error)
}

// EventWriter is satisfied by *kafka.Writer.
type EventWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// TaxCalculator computes tax cents for a taxable amount and destination.
// The lookup itself is opaque to the order path.
type TaxCalculator func(taxable int64, addr entity.Address) int64

// FlatTax returns a calculator applying a fixed percentage.
func FlatTax(percent int) TaxCalculator {
	return func(taxable int64, _ entity.Address) int64 {
		if percent <= 0 {
			return 0
		}
		return taxable * int64(percent) / 100
	}
}

func publishOrderEvent(ctx context.Context, w EventWriter, order *entity.Order, key string) error {
	if w == nil {
		return nil
	}
	orderJSON, err := json.Marshal(order)
	if err != nil {
		return err
	}

	// order-created-LKH-01001, order-paid-LKH-01001, ...
	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("order-%s-%s", key, order.OrderNumber)),
		Value: orderJSON,
	}
	return w.WriteMessages(ctx, msg)
}
