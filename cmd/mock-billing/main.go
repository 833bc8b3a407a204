// mock-billing is a local stand-in for the hosted billing provider:
// an in-memory customer directory, a static plan catalog and checkout
// sessions that "complete" as soon as you open them.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradecove/tradecove-api/internal/logging"
)

type customer struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	ExternalID string `json:"external_id,omitempty"`
}

type plan struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	Credits  int64           `json:"credits"`
}

var plans = map[string]plan{
	"plan_basic_monthly": {
		ID:       "plan_basic_monthly",
		Name:     "Basic (monthly)",
		Price:    decimal.NewFromFloat(9.99),
		Currency: "USD",
		Credits:  100,
	},
	"plan_basic_yearly": {
		ID:       "plan_basic_yearly",
		Name:     "Basic (yearly)",
		Price:    decimal.NewFromFloat(99.00),
		Currency: "USD",
		Credits:  1200,
	},
}

type server struct {
	mu        sync.Mutex
	customers map[string]customer // keyed by lower-cased email
}

func main() {
	logging.Init("mock-billing", "info", os.Getenv("APP_ENV"))

	s := &server{customers: make(map[string]customer)}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /customers", s.findCustomer)
	mux.HandleFunc("POST /customers", s.createCustomer)
	mux.HandleFunc("GET /plans/{id}", getPlan)
	mux.HandleFunc("POST /checkout/sessions", createCheckoutSession)

	slog.Info("mock billing provider started", "addr", ":8081")
	if err := http.ListenAndServe(":8081", mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func (s *server) findCustomer(w http.ResponseWriter, r *http.Request) {
	email := strings.ToLower(r.URL.Query().Get("email"))
	if email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email required"})
		return
	}

	s.mu.Lock()
	c, ok := s.customers[email]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such customer"})
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *server) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email      string `json:"email"`
		ExternalID string `json:"external_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email required"})
		return
	}

	email := strings.ToLower(req.Email)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.customers[email]; ok {
		writeJSON(w, http.StatusCreated, existing)
		return
	}
	c := customer{
		ID:         "cus_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14],
		Email:      email,
		ExternalID: req.ExternalID,
	}
	s.customers[email] = c
	slog.Info("customer created", "customer_id", c.ID, "email", email)
	writeJSON(w, http.StatusCreated, c)
}

func getPlan(w http.ResponseWriter, r *http.Request) {
	p, ok := plans[r.PathValue("id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such plan"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CustomerID string            `json:"customer_id"`
		PlanID     string            `json:"plan_id"`
		SuccessURL string            `json:"success_url"`
		CancelURL  string            `json:"cancel_url"`
		Metadata   map[string]string `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CustomerID == "" || req.PlanID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "customer_id and plan_id required"})
		return
	}
	if _, ok := plans[req.PlanID]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such plan"})
		return
	}

	id := "cs_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
	slog.Info("checkout session created",
		"session_id", id,
		"customer_id", req.CustomerID,
		"plan_id", req.PlanID,
		"metadata", req.Metadata,
	)
	writeJSON(w, http.StatusCreated, map[string]string{
		"id":  id,
		"url": fmt.Sprintf("http://localhost:8081/checkout/%s", id),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
