// Package payments talks to the Cryptomus crypto payment processor.
package payments

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const DefaultBaseURL = "https://api.cryptomus.com/v1"

// Credentials identify the merchant. Enabled is false until an admin (or the
// environment) configured both values.
type Credentials struct {
	MerchantID string
	PaymentKey string
	Enabled    bool
}

// CredentialsSource is read on every request so credential edits apply
// without a restart.
type CredentialsSource interface {
	PaymentCredentials(ctx context.Context) (Credentials, error)
}

type Invoice struct {
	ID      string
	OrderID string
	PayURL  string
	Amount  decimal.Decimal
}

type Client struct {
	BaseURL    string
	ReturnURL  string
	HTTPClient *http.Client
	creds      CredentialsSource
}

func NewClient(baseURL, returnURL string, timeout time.Duration, creds CredentialsSource) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		ReturnURL:  returnURL,
		HTTPClient: &http.Client{Timeout: timeout},
		creds:      creds,
	}
}

// Sign computes the Cryptomus request signature: md5 of the base64 encoded
// body followed by the payment key, hex encoded.
func Sign(body []byte, paymentKey string) string {
	encoded := base64.StdEncoding.EncodeToString(body)
	sum := md5.Sum([]byte(encoded + paymentKey))
	return hex.EncodeToString(sum[:])
}

// Field order is the serialization order and therefore part of the signature.
type invoiceRequest struct {
	Amount            string `json:"amount"`
	Currency          string `json:"currency"`
	OrderID           string `json:"order_id"`
	URLReturn         string `json:"url_return"`
	IsPaymentMultiple bool   `json:"is_payment_multiple"`
}

type infoRequest struct {
	UUID string `json:"uuid"`
}

type paymentResult struct {
	UUID          string `json:"uuid"`
	OrderID       string `json:"order_id"`
	URL           string `json:"url"`
	PaymentStatus string `json:"payment_status"`
}

type envelope struct {
	State   int           `json:"state"`
	Message string        `json:"message"`
	Result  paymentResult `json:"result"`
}

// Marshal serializes a request body exactly as it is sent and signed.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (c *Client) CreateInvoice(ctx context.Context, amount decimal.Decimal, orderID string) (*Invoice, error) {
	req := invoiceRequest{
		Amount:            amount.StringFixed(2),
		Currency:          "USD",
		OrderID:           orderID,
		URLReturn:         c.ReturnURL,
		IsPaymentMultiple: false,
	}
	var env envelope
	if err := c.post(ctx, "CreateInvoice", "/payment", req, &env); err != nil {
		return nil, err
	}
	if env.Result.UUID == "" || env.Result.URL == "" {
		return nil, &Error{Kind: ErrRejected, Op: "CreateInvoice", Message: "response has no invoice uuid or url"}
	}
	log.WithFields(log.Fields{"invoice": env.Result.UUID, "order_id": orderID, "amount": req.Amount}).Info("invoice created")
	return &Invoice{ID: env.Result.UUID, OrderID: orderID, PayURL: env.Result.URL, Amount: amount}, nil
}

func (c *Client) GetStatus(ctx context.Context, invoiceID string) (Status, error) {
	var env envelope
	if err := c.post(ctx, "GetStatus", "/payment/info", infoRequest{UUID: invoiceID}, &env); err != nil {
		return "", err
	}
	status := MapCryptomusStatus(env.Result.PaymentStatus)
	log.Debugf("GetStatus: invoice %s is %s (%s)", invoiceID, status, env.Result.PaymentStatus)
	return status, nil
}

func (c *Client) post(ctx context.Context, op, path string, payload any, out *envelope) error {
	creds, err := c.creds.PaymentCredentials(ctx)
	if err != nil {
		return fmt.Errorf("%s: failed to load payment credentials: %w", op, err)
	}
	if !creds.Enabled || creds.MerchantID == "" || creds.PaymentKey == "" {
		return ErrDisabled
	}

	body, err := Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: failed to encode request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("merchant", creds.MerchantID)
	req.Header.Set("sign", Sign(body, creds.PaymentKey))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &Error{Kind: ErrNetwork, Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: ErrNetwork, Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Kind: ErrRejected, Op: op, StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &Error{Kind: ErrRejected, Op: op, StatusCode: resp.StatusCode, Message: "unexpected response body", Err: err}
	}
	if out.State != 0 {
		return &Error{Kind: ErrRejected, Op: op, StatusCode: resp.StatusCode, Message: out.Message}
	}
	return nil
}
