package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	d "github.com/fjod/cookcart/internal/domain"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var ErrUnexpectedStatus = errors.New("unexpected backend status")

// Client talks to the REST backend of the mobile app:
// GET/POST {base}/users/{id}/addresses and POST {base}/orders.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type orderItemDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity int    `json:"quantity"`
	CookID   string `json:"cookId"`
	CookName string `json:"cookName"`
}

type placeOrderDTO struct {
	Items           []orderItemDTO `json:"items"`
	DeliveryAddress d.Address      `json:"deliveryAddress"`
	TotalAmount     json.Number    `json:"totalAmount"`
	PaymentMethod   string         `json:"paymentMethod"`
}

func (c *Client) GetAddresses(ctx context.Context, userID string) ([]d.Address, error) {
	var addresses []d.Address
	if err := c.do(ctx, http.MethodGet, c.addressesURL(userID), "", nil, &addresses); err != nil {
		return nil, fmt.Errorf("failed to fetch addresses: %w", err)
	}
	if addresses == nil {
		addresses = []d.Address{}
	}
	return addresses, nil
}

func (c *Client) SaveAddress(ctx context.Context, userID string, input d.AddressInput) (*d.Address, error) {
	var saved d.Address
	if err := c.do(ctx, http.MethodPost, c.addressesURL(userID), "", input, &saved); err != nil {
		return nil, fmt.Errorf("failed to save address: %w", err)
	}
	return &saved, nil
}

func (c *Client) PlaceOrder(ctx context.Context, req d.OrderRequest) (*d.Order, error) {
	items := req.Items()
	body := placeOrderDTO{
		Items:           make([]orderItemDTO, 0, len(items)),
		DeliveryAddress: req.DeliveryAddress(),
		TotalAmount:     json.Number(req.TotalAmount().String()),
		PaymentMethod:   req.PaymentMethod(),
	}
	for _, item := range items {
		body.Items = append(body.Items, orderItemDTO{
			ID:       item.ItemID,
			Name:     item.DisplayName,
			Price:    d.FormatRupees(item.UnitPrice),
			Quantity: item.Quantity,
			CookID:   item.VendorID,
			CookName: item.VendorName,
		})
	}

	var placed d.Order
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/orders", req.IdempotencyKey(), body, &placed); err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}
	return &placed, nil
}

func (c *Client) addressesURL(userID string) string {
	return c.baseURL + "/users/" + url.PathEscape(userID) + "/addresses"
}

func (c *Client) do(ctx context.Context, method, target, idempotencyKey string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
