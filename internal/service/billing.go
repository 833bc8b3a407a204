package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/tradecove/tradecove-api/internal/billing"
	"github.com/tradecove/tradecove-api/internal/domain"
	"github.com/tradecove/tradecove-api/internal/logging"
)

const (
	BillingEventCheckoutCompleted    = "checkout.completed"
	BillingEventSubscriptionCanceled = "subscription.canceled"
)

type billingProvider interface {
	FindCustomerByEmail(ctx context.Context, email string) (*billing.Customer, error)
	CreateCustomer(ctx context.Context, email, externalID string) (*billing.Customer, error)
	GetPlan(ctx context.Context, planID string) (*billing.Plan, error)
	CreateCheckoutSession(ctx context.Context, params billing.CheckoutParams) (*billing.CheckoutSession, error)
}

type billingAccountStore interface {
	GetByExternalID(ctx context.Context, externalID string) (*domain.Account, error)
	GetByBillingCustomerRef(ctx context.Context, ref string) (*domain.Account, error)
	SetBillingCustomerRef(ctx context.Context, externalID, ref string) error
	SetSubscriptionTier(ctx context.Context, externalID string, tier domain.SubscriptionTier) error
}

type billingCreditGranter interface {
	Credit(ctx context.Context, externalID string, amount int64) (*domain.Account, error)
}

type BillingService struct {
	accounts   billingAccountStore
	credits    billingCreditGranter
	provider   billingProvider
	successURL string
	cancelURL  string
}

func NewBillingService(accounts billingAccountStore, credits billingCreditGranter, provider billingProvider, successURL, cancelURL string) *BillingService {
	return &BillingService{
		accounts:   accounts,
		credits:    credits,
		provider:   provider,
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

// StartCheckout locates or creates the billing customer, persists the
// reference on the account before any payment starts (the completion
// webhook correlates on it), validates the plan and opens a hosted
// session. Finding the customer by email is idempotent, so a retry
// after a partial failure picks up where it left off.
func (s *BillingService) StartCheckout(ctx context.Context, externalID, planID string) (string, error) {
	log := logging.FromContext(ctx)

	account, err := s.accounts.GetByExternalID(ctx, externalID)
	if err != nil {
		return "", fmt.Errorf("StartCheckout: %w", err)
	}

	customer, err := s.provider.FindCustomerByEmail(ctx, account.Email)
	if errors.Is(err, domain.ErrNotFound) {
		customer, err = s.provider.CreateCustomer(ctx, account.Email, externalID)
	}
	if err != nil {
		return "", fmt.Errorf("StartCheckout: customer: %w", err)
	}

	if account.BillingCustomerRef != customer.ID {
		if err := s.accounts.SetBillingCustomerRef(ctx, externalID, customer.ID); err != nil {
			return "", fmt.Errorf("StartCheckout: persist customer ref: %w", err)
		}
	}

	plan, err := s.provider.GetPlan(ctx, planID)
	if err != nil {
		return "", fmt.Errorf("StartCheckout: %w", err)
	}

	session, err := s.provider.CreateCheckoutSession(ctx, billing.CheckoutParams{
		CustomerID: customer.ID,
		PlanID:     plan.ID,
		SuccessURL: s.successURL,
		CancelURL:  s.cancelURL,
		Metadata: map[string]string{
			"external_id":  externalID,
			"customer_ref": customer.ID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("StartCheckout: session: %w", err)
	}

	log.Info("checkout session created",
		"external_id", externalID,
		"customer_ref", customer.ID,
		"plan_id", plan.ID,
		"session_id", session.ID,
	)
	return session.URL, nil
}

// HandleCheckoutCompleted upgrades the tier and grants the plan's
// credit allowance. Correlation prefers the external id from session
// metadata and falls back to the customer ref. The plan is resolved
// before any mutation so an event with a bogus plan id changes nothing.
func (s *BillingService) HandleCheckoutCompleted(ctx context.Context, externalID, customerRef, planID string) error {
	account, err := s.resolveAccount(ctx, externalID, customerRef)
	if err != nil {
		return fmt.Errorf("HandleCheckoutCompleted: %w", err)
	}

	plan, err := s.provider.GetPlan(ctx, planID)
	if err != nil {
		return fmt.Errorf("HandleCheckoutCompleted: %w", err)
	}

	if err := s.accounts.SetSubscriptionTier(ctx, account.ExternalID, domain.TierBasic); err != nil {
		return fmt.Errorf("HandleCheckoutCompleted: %w", err)
	}
	if plan.Credits > 0 {
		if _, err := s.credits.Credit(ctx, account.ExternalID, plan.Credits); err != nil {
			return fmt.Errorf("HandleCheckoutCompleted: grant credits: %w", err)
		}
	}

	logging.FromContext(ctx).Info("subscription activated",
		"external_id", account.ExternalID,
		"plan_id", planID,
		"credits_granted", plan.Credits,
	)
	return nil
}

func (s *BillingService) HandleSubscriptionCanceled(ctx context.Context, externalID, customerRef string) error {
	account, err := s.resolveAccount(ctx, externalID, customerRef)
	if err != nil {
		return fmt.Errorf("HandleSubscriptionCanceled: %w", err)
	}

	if err := s.accounts.SetSubscriptionTier(ctx, account.ExternalID, domain.TierFree); err != nil {
		return fmt.Errorf("HandleSubscriptionCanceled: %w", err)
	}

	logging.FromContext(ctx).Info("subscription canceled", "external_id", account.ExternalID)
	return nil
}

func (s *BillingService) resolveAccount(ctx context.Context, externalID, customerRef string) (*domain.Account, error) {
	if externalID != "" {
		return s.accounts.GetByExternalID(ctx, externalID)
	}
	if customerRef != "" {
		return s.accounts.GetByBillingCustomerRef(ctx, customerRef)
	}
	return nil, domain.ErrNotFound
}
