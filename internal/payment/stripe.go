package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"storefront-service/internal/entity"
)

// Event type strings delivered by the gateway.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

// signatureTolerance bounds how stale a signed webhook timestamp may be
// before the delivery is rejected as a possible replay.
const signatureTolerance = 5 * time.Minute

// PaymentIntent is the gateway's handle for a payment in flight. The
// client secret goes back to the browser so it can confirm the payment
// directly with the gateway.
type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

// Event is a verified, parsed gateway webhook notification.
type Event struct {
	ID       string
	Type     string
	IntentID string
	Amount   int64
	Status   string
	Metadata map[string]string
}

type Client struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

func NewClient(secretKey string) *Client {
	return &Client{
		secretKey:  secretKey,
		baseURL:    "https://api.stripe.com/v1",
		httpClient: http.DefaultClient,
	}
}

// NewClientWithBaseURL is used by tests to point the client at a stub
// server.
func NewClientWithBaseURL(secretKey, baseURL string) *Client {
	c := NewClient(secretKey)
	c.baseURL = baseURL
	return c
}

// CreatePaymentIntent opens an intent for the given amount of minor
// currency units. Metadata is attached verbatim and comes back on
// webhook events, which is how the correlation id travels.
func (c *Client) CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*PaymentIntent, error) {
	if c.secretKey == "" {
		return nil, &entity.ConfigurationError{Msg: "missing required setting STRIPE_SECRET_KEY"}
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("currency", currency)
	form.Set("automatic_payment_methods[enabled]", "true")
	for k, v := range metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &entity.GatewayError{Msg: fmt.Sprintf("payment gateway unreachable: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &entity.GatewayError{StatusCode: resp.StatusCode, Msg: "reading gateway response: " + err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &entity.GatewayError{StatusCode: resp.StatusCode, Msg: gatewayErrorMessage(body)}
	}

	intent := &PaymentIntent{}
	if err := json.Unmarshal(body, intent); err != nil {
		return nil, &entity.GatewayError{StatusCode: resp.StatusCode, Msg: "decoding gateway response: " + err.Error()}
	}
	return intent, nil
}

func gatewayErrorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return "payment gateway error"
}

// VerifySignature checks the gateway's signed-webhook header against the
// raw request body. The header format is "t=<unix>,v1=<hex hmac>" with
// the HMAC-SHA256 computed over "<unix>.<body>" using the endpoint's
// shared secret. Parsing is separate: a body that authenticates but does
// not decode must still be acknowledged by the caller.
func VerifySignature(payload []byte, header, secret string) error {
	if secret == "" {
		return &entity.ConfigurationError{Msg: "missing required setting STRIPE_WEBHOOK_SECRET"}
	}
	if header == "" {
		return fmt.Errorf("missing signature header")
	}

	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return fmt.Errorf("malformed signature header")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("malformed signature timestamp")
	}
	if d := time.Since(time.Unix(ts, 0)); d > signatureTolerance || d < -signatureTolerance {
		return fmt.Errorf("signature timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	valid := false
	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

// SignPayload produces a valid signature header for a body; tests use it
// to exercise the webhook endpoint end to end.
func SignPayload(payload []byte, secret string, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

// ParseEvent decodes a verified webhook body into an Event.
func ParseEvent(payload []byte) (*Event, error) {
	var envelope struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object struct {
				ID       string            `json:"id"`
				Amount   int64             `json:"amount"`
				Status   string            `json:"status"`
				Metadata map[string]string `json:"metadata"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("decoding event: %w", err)
	}

	return &Event{
		ID:       envelope.ID,
		Type:     envelope.Type,
		IntentID: envelope.Data.Object.ID,
		Amount:   envelope.Data.Object.Amount,
		Status:   envelope.Data.Object.Status,
		Metadata: envelope.Data.Object.Metadata,
	}, nil
}
