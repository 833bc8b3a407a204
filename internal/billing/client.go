// Package billing is the HTTP client for the hosted billing provider:
// customer directory, plan catalog and checkout sessions.
package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradecove/tradecove-api/internal/domain"
	"github.com/tradecove/tradecove-api/internal/logging"
)

type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Plan struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	// Credits granted when a checkout for this plan completes.
	Credits int64 `json:"credits"`
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type CheckoutParams struct {
	CustomerID string            `json:"customer_id"`
	PlanID     string            `json:"plan_id"`
	SuccessURL string            `json:"success_url"`
	CancelURL  string            `json:"cancel_url"`
	Metadata   map[string]string `json:"metadata"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// FindCustomerByEmail returns domain.ErrNotFound when the provider has
// no customer for the address.
func (c *Client) FindCustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	u := c.baseURL + "/customers?email=" + url.QueryEscape(email)
	var customer Customer
	if err := c.do(ctx, http.MethodGet, u, nil, http.StatusOK, &customer); err != nil {
		return nil, fmt.Errorf("FindCustomerByEmail: %w", err)
	}
	return &customer, nil
}

func (c *Client) CreateCustomer(ctx context.Context, email, externalID string) (*Customer, error) {
	body := map[string]string{"email": email, "external_id": externalID}
	var customer Customer
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/customers", body, http.StatusCreated, &customer); err != nil {
		return nil, fmt.Errorf("CreateCustomer: %w", err)
	}
	return &customer, nil
}

// GetPlan returns domain.ErrInvalidPlan when the id does not name a
// purchasable plan.
func (c *Client) GetPlan(ctx context.Context, planID string) (*Plan, error) {
	var plan Plan
	err := c.do(ctx, http.MethodGet, c.baseURL+"/plans/"+url.PathEscape(planID), nil, http.StatusOK, &plan)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("GetPlan: %w", domain.ErrInvalidPlan)
		}
		return nil, fmt.Errorf("GetPlan: %w", err)
	}
	return &plan, nil
}

func (c *Client) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	var session CheckoutSession
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/checkout/sessions", params, http.StatusCreated, &session); err != nil {
		return nil, fmt.Errorf("CreateCheckoutSession: %w", err)
	}
	return &session, nil
}

func (c *Client) do(ctx context.Context, method, url string, body any, wantStatus int, out any) error {
	log := logging.FromContext(ctx)

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w (%w)", err, domain.ErrUpstream)
	}
	defer resp.Body.Close()

	log.Debug("billing provider response",
		"method", method,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	if resp.StatusCode != wantStatus {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s (%w)", resp.StatusCode, string(respBody), domain.ErrUpstream)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w (%w)", err, domain.ErrUpstream)
	}
	return nil
}
