// Package payment talks to the PayPal Orders v2 REST API
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sony/gobreaker/v2"

	"github.com/khanofemperia/gethsemane-sub001/internal/config"
	"github.com/khanofemperia/gethsemane-sub001/internal/domain"
)

const StatusCompleted = "COMPLETED"

var ErrUnavailable = errors.New("payment provider unavailable")

// APIError is a non-2xx answer from PayPal
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paypal responded %d: %s", e.StatusCode, e.Body)
}

// LineItem is one priced cart line. SKU carries the cart variant id so the
// capture can tell exactly which lines were paid for.
type LineItem struct {
	SKU       string
	Name      string
	UnitPrice float64
	Quantity  int
}

// Capture is the outcome of capturing an approved order
type Capture struct {
	OrderID  string
	Status   string
	Payer    domain.Payer
	Shipping domain.ShippingAddress
	Amount   domain.Money
	// Items are the lines priced into the order when it was created
	Items []LineItem
}

// PayPalClient creates and captures orders. Access tokens are cached until
// shortly before they expire.
type PayPalClient struct {
	cfg     config.PayPalConfig
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

func NewPayPalClient(cfg config.PayPalConfig) *PayPalClient {
	return &PayPalClient{
		cfg:     cfg,
		http:    &http.Client{Timeout: 10 * time.Second},
		breaker: newCircuitBreaker("paypal"),
	}
}

type money struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type orderItem struct {
	Name       string `json:"name"`
	SKU        string `json:"sku,omitempty"`
	Quantity   string `json:"quantity"`
	UnitAmount money  `json:"unit_amount"`
}

type purchaseUnit struct {
	Amount struct {
		money
		Breakdown struct {
			ItemTotal money `json:"item_total"`
		} `json:"breakdown"`
	} `json:"amount"`
	Items []orderItem `json:"items"`
}

type createOrderRequest struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Payer  struct {
		EmailAddress string `json:"email_address"`
		Name         struct {
			GivenName string `json:"given_name"`
			Surname   string `json:"surname"`
		} `json:"name"`
	} `json:"payer"`
	PurchaseUnits []struct {
		Items    []orderItem `json:"items"`
		Shipping struct {
			Name struct {
				FullName string `json:"full_name"`
			} `json:"name"`
			Address struct {
				Line1       string `json:"address_line_1"`
				Line2       string `json:"address_line_2"`
				City        string `json:"admin_area_2"`
				State       string `json:"admin_area_1"`
				PostalCode  string `json:"postal_code"`
				CountryCode string `json:"country_code"`
			} `json:"address"`
		} `json:"shipping"`
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
				Amount money  `json:"amount"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// toCents rounds a price to whole cents. Totals are summed in cents so the
// item_total always equals the sum of the unit amounts PayPal sees.
func toCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

func formatCents(c int64) string {
	sign := ""
	if c < 0 {
		sign, c = "-", -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// CreateOrder opens a CAPTURE-intent order and returns its PayPal id
func (c *PayPalClient) CreateOrder(ctx context.Context, items []LineItem) (string, error) {
	if len(items) == 0 {
		return "", errors.New("an order needs at least one item")
	}

	unit := purchaseUnit{}
	var total int64
	for _, it := range items {
		qty := it.Quantity
		if qty < 1 {
			qty = 1
		}
		cents := toCents(it.UnitPrice)
		total += cents * int64(qty)
		unit.Items = append(unit.Items, orderItem{
			Name:       truncate(it.Name, 127),
			SKU:        truncate(it.SKU, 127),
			Quantity:   strconv.Itoa(qty),
			UnitAmount: money{CurrencyCode: c.cfg.Currency, Value: formatCents(cents)},
		})
	}
	unit.Amount.money = money{CurrencyCode: c.cfg.Currency, Value: formatCents(total)}
	unit.Amount.Breakdown.ItemTotal = unit.Amount.money

	body, err := json.Marshal(createOrderRequest{Intent: "CAPTURE", PurchaseUnits: []purchaseUnit{unit}})
	if err != nil {
		return "", fmt.Errorf("failed to encode order: %w", err)
	}

	raw, err := c.call(ctx, http.MethodPost, "/v2/checkout/orders", body)
	if err != nil {
		return "", err
	}

	var resp orderResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("failed to decode order: %w", err)
	}
	return resp.ID, nil
}

// CaptureOrder captures an order the buyer approved. The reply carries the
// order's items so callers record what was priced, not what a cart holds now.
func (c *PayPalClient) CaptureOrder(ctx context.Context, orderID string) (*Capture, error) {
	raw, err := c.call(ctx, http.MethodPost, "/v2/checkout/orders/"+url.PathEscape(orderID)+"/capture", []byte("{}"))
	if err != nil {
		return nil, err
	}

	var resp orderResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode capture: %w", err)
	}

	capture := &Capture{
		OrderID: resp.ID,
		Status:  resp.Status,
		Payer: domain.Payer{
			Email: resp.Payer.EmailAddress,
			Name:  strings.TrimSpace(resp.Payer.Name.GivenName + " " + resp.Payer.Name.Surname),
		},
	}
	if len(resp.PurchaseUnits) > 0 {
		pu := resp.PurchaseUnits[0]
		capture.Shipping = domain.ShippingAddress{
			Name:       pu.Shipping.Name.FullName,
			Line1:      pu.Shipping.Address.Line1,
			Line2:      pu.Shipping.Address.Line2,
			City:       pu.Shipping.Address.City,
			State:      pu.Shipping.Address.State,
			PostalCode: pu.Shipping.Address.PostalCode,
			Country:    pu.Shipping.Address.CountryCode,
		}
		for _, it := range pu.Items {
			qty, _ := strconv.Atoi(it.Quantity)
			value, _ := strconv.ParseFloat(it.UnitAmount.Value, 64)
			capture.Items = append(capture.Items, LineItem{SKU: it.SKU, Name: it.Name, UnitPrice: value, Quantity: qty})
		}
		if len(pu.Payments.Captures) > 0 {
			amount := pu.Payments.Captures[0].Amount
			value, _ := strconv.ParseFloat(amount.Value, 64)
			capture.Amount = domain.Money{Value: value, Currency: amount.CurrencyCode}
		}
	}
	return capture, nil
}

func (c *PayPalClient) call(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	raw, err := c.breaker.Execute(func() ([]byte, error) {
		token, err := c.token(ctx)
		if err != nil {
			return nil, err
		}
		return c.send(ctx, method, path, body, map[string]string{
			"Authorization": "Bearer " + token,
			"Content-Type":  "application/json",
			"Prefer":        "return=representation",
		})
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return raw, err
}

func (c *PayPalClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.expiresAt) {
		return c.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	raw, err := c.do(req)
	if err != nil {
		return "", err
	}

	var resp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("failed to decode token: %w", err)
	}

	c.accessToken = resp.AccessToken
	c.expiresAt = time.Now().Add(time.Duration(resp.ExpiresIn)*time.Second - time.Minute)
	return c.accessToken, nil
}

func (c *PayPalClient) send(ctx context.Context, method, path string, body []byte, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	return c.do(req)
}

func (c *PayPalClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// truncate keeps at most n runes of s
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
