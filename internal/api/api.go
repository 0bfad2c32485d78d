package api

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"storefront-service/internal/config"
	"storefront-service/internal/entity"
	"storefront-service/internal/fulfillment"
	"storefront-service/internal/payment"
	"storefront-service/internal/service"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

type OrderHandler struct {
	checkout *service.CheckoutService
	webhooks *service.WebhookService
	admin    *service.AdminService
	cfg      *config.Config
}

func NewOrderHandler(checkout *service.CheckoutService, webhooks *service.WebhookService, admin *service.AdminService, cfg *config.Config) *OrderHandler {
	return &OrderHandler{checkout: checkout, webhooks: webhooks, admin: admin, cfg: cfg}
}

// errStatus maps the error taxonomy onto HTTP status codes.
func errStatus(err error) int {
	var (
		validation *entity.ValidationError
		conflict   *entity.ConflictError
		notFound   *entity.NotFoundError
		gateway    *entity.GatewayError
		provider   *entity.FulfillmentProviderError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &gateway):
		return http.StatusInternalServerError
	case errors.As(err, &provider):
		if provider.StatusCode >= 400 {
			return provider.StatusCode
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func errJSON(c echo.Context, err error) error {
	return c.JSON(errStatus(err), map[string]string{"error": err.Error()})
}

// CreateCheckout handles POST /checkout/create.
func (h *OrderHandler) CreateCheckout(c echo.Context) error {
	ctx := c.Request().Context()
	req := service.CheckoutRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}
	req.IdempotentKey = c.Request().Header.Get("Idempotent-Key")

	result, err := h.checkout.Checkout(ctx, &req)
	if err != nil {
		return errJSON(c, err)
	}

	return c.JSON(200, map[string]string{
		"orderId":      result.OrderID,
		"clientSecret": result.ClientSecret,
	})
}

// PaymentWebhook handles POST /webhooks/payment. Once the signature
// checks out, the delivery is always acknowledged with received:true,
// even when processing fails, so the gateway does not retry-storm us.
func (h *OrderHandler) PaymentWebhook(c echo.Context) error {
	ctx := c.Request().Context()
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request body"})
	}

	sig := c.Request().Header.Get("Stripe-Signature")
	if err := payment.VerifySignature(body, sig, h.cfg.StripeWebhookSecret); err != nil {
		var cerr *entity.ConfigurationError
		if errors.As(err, &cerr) {
			return c.JSON(500, map[string]string{"error": cerr.Error()})
		}
		return c.JSON(401, map[string]string{"error": "Invalid signature"})
	}

	event, err := payment.ParseEvent(body)
	if err != nil {
		logger.Error().Err(err).Msg("Error parsing payment webhook payload")
		h.webhooks.LogEvent(ctx, entity.WebhookSourcePayment, "unparseable", body)
		return c.JSON(200, map[string]bool{"received": true})
	}

	if err := h.webhooks.HandlePaymentEvent(ctx, event, body); err != nil {
		logger.Error().Err(err).Msgf("Error processing payment event %s", event.Type)
	}
	return c.JSON(200, map[string]bool{"received": true})
}

// FulfillmentWebhook handles POST /webhooks/fulfillment with the same
// acknowledge-once-verified contract as the payment webhook.
func (h *OrderHandler) FulfillmentWebhook(c echo.Context) error {
	ctx := c.Request().Context()
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request body"})
	}

	sig := c.Request().Header.Get("X-Pfy-Signature")
	if err := config.Require("PRINTIFY_WEBHOOK_SECRET", h.cfg.PrintifyWebhookSecret); err != nil {
		return c.JSON(500, map[string]string{"error": err.Error()})
	}
	if !fulfillment.VerifySignature(body, sig, h.cfg.PrintifyWebhookSecret) {
		return c.JSON(401, map[string]string{"error": "Invalid signature"})
	}

	event, err := fulfillment.ParseEvent(body)
	if err != nil {
		logger.Error().Err(err).Msg("Error parsing fulfillment webhook payload")
		h.webhooks.LogEvent(ctx, entity.WebhookSourceFulfillment, "unparseable", body)
		return c.JSON(200, map[string]bool{"received": true})
	}

	if err := h.webhooks.HandleFulfillmentEvent(ctx, event, body); err != nil {
		logger.Error().Err(err).Msgf("Error processing fulfillment event %s", event.Type)
	}
	return c.JSON(200, map[string]bool{"received": true})
}

// ListOrders handles GET /admin/orders.
func (h *OrderHandler) ListOrders(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	orders, err := h.admin.ListOrders(c.Request().Context(), limit, offset)
	if err != nil {
		return errJSON(c, err)
	}
	return c.JSON(200, orders)
}

// GetOrder handles GET /admin/orders/:id.
func (h *OrderHandler) GetOrder(c echo.Context) error {
	order, err := h.admin.GetOrder(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errJSON(c, err)
	}
	return c.JSON(200, order)
}

// SubmitToFulfillment handles POST /admin/orders/:id/submit-to-fulfillment.
func (h *OrderHandler) SubmitToFulfillment(c echo.Context) error {
	order, err := h.admin.SubmitToFulfillment(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errJSON(c, err)
	}
	return c.JSON(200, order)
}

// CancelOrder handles POST /admin/orders/:id/cancel.
func (h *OrderHandler) CancelOrder(c echo.Context) error {
	order, err := h.admin.Cancel(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errJSON(c, err)
	}
	return c.JSON(200, order)
}

// CancelAtProvider handles POST /admin/orders/:id/cancel-at-provider.
// Provider failures surface verbatim; the admin audience is operators.
func (h *OrderHandler) CancelAtProvider(c echo.Context) error {
	order, err := h.admin.CancelAtProvider(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errJSON(c, err)
	}
	return c.JSON(200, order)
}

// DeleteOrder handles DELETE /admin/orders/:id.
func (h *OrderHandler) DeleteOrder(c echo.Context) error {
	if err := h.admin.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return errJSON(c, err)
	}
	return c.JSON(200, map[string]bool{"deleted": true})
}
