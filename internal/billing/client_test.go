package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradecove/tradecove-api/internal/domain"
)

func TestFindCustomerByEmail(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/customers", r.URL.Path)
			assert.Equal(t, "trader@example.com", r.URL.Query().Get("email"))
			json.NewEncoder(w).Encode(Customer{ID: "cus_1", Email: "trader@example.com"})
		}))
		defer srv.Close()

		customer, err := NewClient(srv.URL).FindCustomerByEmail(context.Background(), "trader@example.com")
		require.NoError(t, err)
		assert.Equal(t, "cus_1", customer.ID)
	})

	t.Run("not found", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL).FindCustomerByEmail(context.Background(), "ghost@example.com")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestCreateCustomer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "trader@example.com", body["email"])
		assert.Equal(t, "user_123", body["external_id"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Customer{ID: "cus_new", Email: body["email"]})
	}))
	defer srv.Close()

	customer, err := NewClient(srv.URL).CreateCustomer(context.Background(), "trader@example.com", "user_123")
	require.NoError(t, err)
	assert.Equal(t, "cus_new", customer.ID)
}

func TestGetPlan(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/plans/plan_basic_monthly", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]any{
				"id": "plan_basic_monthly", "name": "Basic", "price": "9.99",
				"currency": "USD", "credits": 100,
			})
		}))
		defer srv.Close()

		plan, err := NewClient(srv.URL).GetPlan(context.Background(), "plan_basic_monthly")
		require.NoError(t, err)
		assert.Equal(t, "9.99", plan.Price.String())
		assert.Equal(t, int64(100), plan.Credits)
	})

	t.Run("unknown plan maps to ErrInvalidPlan", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL).GetPlan(context.Background(), "plan_bogus")
		assert.ErrorIs(t, err, domain.ErrInvalidPlan)
	})
}

func TestCreateCheckoutSession(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var params CheckoutParams
			require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
			assert.Equal(t, "cus_1", params.CustomerID)
			assert.Equal(t, "user_123", params.Metadata["external_id"])

			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(CheckoutSession{ID: "cs_1", URL: "https://pay.example.com/cs_1"})
		}))
		defer srv.Close()

		session, err := NewClient(srv.URL).CreateCheckoutSession(context.Background(), CheckoutParams{
			CustomerID: "cus_1",
			PlanID:     "plan_basic_monthly",
			Metadata:   map[string]string{"external_id": "user_123"},
		})
		require.NoError(t, err)
		assert.Equal(t, "https://pay.example.com/cs_1", session.URL)
	})

	t.Run("provider errors map to ErrUpstream", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL).CreateCheckoutSession(context.Background(), CheckoutParams{
			CustomerID: "cus_1",
			PlanID:     "plan_basic_monthly",
		})
		assert.ErrorIs(t, err, domain.ErrUpstream)
	})

	t.Run("unreachable provider maps to ErrUpstream", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		_, err := NewClient(srv.URL).CreateCheckoutSession(context.Background(), CheckoutParams{
			CustomerID: "cus_1",
			PlanID:     "plan_basic_monthly",
		})
		assert.ErrorIs(t, err, domain.ErrUpstream)
	})
}
