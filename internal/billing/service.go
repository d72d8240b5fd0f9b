package billing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v81"
)

// subscriptionLister is the slice of the Stripe client the service needs.
type subscriptionLister interface {
	ActiveSubscription(customerID string) (*SubscriptionInfo, error)
}

// Service keeps user roles in sync with Stripe subscription state.
type Service struct {
	stripe subscriptionLister
	roles  *RoleRepository
}

// NewService creates a new billing Service.
func NewService(stripe subscriptionLister, roles *RoleRepository) *Service {
	return &Service{stripe: stripe, roles: roles}
}

// HandleEvent applies a verified webhook event to the role store. Unknown
// event types and events for unknown customers are ignored.
func (s *Service) HandleEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("failed to decode checkout session: %w", err)
		}
		if session.ClientReferenceID == "" || session.Customer == nil || session.Customer.ID == "" {
			return nil
		}
		if err := s.roles.LinkCustomer(ctx, session.ClientReferenceID, session.Customer.ID); err != nil {
			return err
		}
		sub, err := s.stripe.ActiveSubscription(session.Customer.ID)
		if err != nil {
			return err
		}
		if sub == nil {
			return nil
		}
		return s.roles.UpdateSubscription(ctx, session.ClientReferenceID, session.Customer.ID, sub.Status, sub.PriceID, sub.CurrentPeriodEnd)

	case "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("failed to decode subscription: %w", err)
		}
		info := subscriptionInfo(&sub)
		if info.CustomerID == "" {
			return nil
		}
		role, err := s.roles.GetByCustomer(ctx, info.CustomerID)
		if err != nil {
			return err
		}
		if role == nil {
			return nil
		}
		status := info.Status
		if event.Type == "customer.subscription.deleted" {
			status = "canceled"
		}
		return s.roles.UpdateSubscription(ctx, role.UserID, info.CustomerID, status, info.PriceID, info.CurrentPeriodEnd)
	}

	return nil
}

// VerifySubscription reconciles a user's role against Stripe and returns the
// refreshed role.
func (s *Service) VerifySubscription(ctx context.Context, userID string) (*Role, error) {
	role, err := s.roles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if role.StripeCustomerID == "" {
		return role, nil
	}

	sub, err := s.stripe.ActiveSubscription(role.StripeCustomerID)
	if err != nil {
		return nil, err
	}

	if sub == nil {
		err = s.roles.UpdateSubscription(ctx, userID, role.StripeCustomerID, "canceled", "", role.CurrentPeriodEnd.Time)
	} else {
		err = s.roles.UpdateSubscription(ctx, userID, role.StripeCustomerID, sub.Status, sub.PriceID, sub.CurrentPeriodEnd)
	}
	if err != nil {
		return nil, err
	}
	return s.roles.Get(ctx, userID)
}
