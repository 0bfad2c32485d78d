package fulfillment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"storefront-service/internal/entity"
)

// ReasonAlreadyExists is the provider's error reason for an order whose
// external_id was already used by a prior creation. The submitter
// recovers by adopting the existing provider order instead of failing.
const ReasonAlreadyExists = "ORDER_ALREADY_EXISTS"

// OrderRequest is the provider's order-creation payload, built from the
// local order's line-item and shipping snapshots.
type OrderRequest struct {
	ExternalID string          `json:"external_id"`
	LineItems  []LineItem      `json:"line_items"`
	AddressTo  ShippingAddress `json:"address_to"`
}

type LineItem struct {
	ProductID string `json:"product_id"`
	VariantID int    `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

type ShippingAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2,omitempty"`
	City      string `json:"city"`
	Region    string `json:"region,omitempty"`
	Country   string `json:"country"`
	Zip       string `json:"zip"`
}

// OrderSummary is one entry of the provider's order list, carrying the
// correlation id the submitter embedded at creation time.
type OrderSummary struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id"`
}

type Client struct {
	apiKey     string
	shopID     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey, shopID string) *Client {
	return &Client{
		apiKey:     apiKey,
		shopID:     shopID,
		baseURL:    "https://api.printify.com/v1",
		httpClient: http.DefaultClient,
	}
}

// NewClientWithBaseURL is used by tests to point the client at a stub
// server.
func NewClientWithBaseURL(apiKey, shopID, baseURL string) *Client {
	c := NewClient(apiKey, shopID)
	c.baseURL = baseURL
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	if c.apiKey == "" || c.shopID == "" {
		return &entity.ConfigurationError{Msg: "missing required setting PRINTIFY_API_KEY or PRINTIFY_SHOP_ID"}
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &entity.FulfillmentProviderError{Msg: fmt.Sprintf("fulfillment provider unreachable: %v", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &entity.FulfillmentProviderError{StatusCode: resp.StatusCode, Msg: "reading provider response: " + err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var detail struct {
			Message string `json:"message"`
			Reason  string `json:"reason"`
			Errors  struct {
				Reason string `json:"reason"`
			} `json:"errors"`
		}
		perr := &entity.FulfillmentProviderError{StatusCode: resp.StatusCode, Msg: "fulfillment provider error"}
		if json.Unmarshal(raw, &detail) == nil {
			if detail.Message != "" {
				perr.Msg = detail.Message
			}
			perr.Reason = detail.Reason
			if perr.Reason == "" {
				perr.Reason = detail.Errors.Reason
			}
		}
		return perr
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &entity.FulfillmentProviderError{StatusCode: resp.StatusCode, Msg: "decoding provider response: " + err.Error()}
		}
	}
	return nil
}

// SubmitOrder creates a provider order and returns its id.
func (c *Client) SubmitOrder(ctx context.Context, req *OrderRequest) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	path := fmt.Sprintf("/shops/%s/orders.json", c.shopID)
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// CancelOrder cancels a provider order that has not shipped yet.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	path := fmt.Sprintf("/shops/%s/orders/%s/cancel.json", c.shopID, orderID)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// ListOrders pages through the provider's order list.
func (c *Client) ListOrders(ctx context.Context, page, limit int) ([]OrderSummary, error) {
	var out struct {
		Data []OrderSummary `json:"data"`
	}
	path := fmt.Sprintf("/shops/%s/orders.json?page=%d&limit=%d", c.shopID, page, limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// VerifySignature checks the provider's webhook signature header,
// "sha256=<hex>", an HMAC-SHA256 of the raw body.
func VerifySignature(payload []byte, header, secret string) bool {
	if secret == "" || header == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}

// SignPayload produces a valid signature header for a body; tests use it
// to exercise the webhook endpoint end to end.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
