package billing

import (
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
)

// SubscriptionInfo is the subset of a Stripe subscription the app cares about.
type SubscriptionInfo struct {
	ID               string
	CustomerID       string
	Status           string
	PriceID          string
	CurrentPeriodEnd time.Time
}

// StripeClient wraps the Stripe API calls used by the billing endpoints.
type StripeClient struct {
	api           *client.API
	webhookSecret string
}

// NewStripeClient creates a Stripe client with its own API instance so the
// key never leaks into package-level state.
func NewStripeClient(secretKey, webhookSecret string) *StripeClient {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeClient{api: api, webhookSecret: webhookSecret}
}

// CreateCheckoutSession starts a subscription checkout and returns its URL.
// The user ID rides along as the client reference so the completion webhook
// can link the customer back to the account.
func (c *StripeClient) CreateCheckoutSession(userID, email, priceID, successURL, cancelURL string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL:        stripe.String(successURL),
		CancelURL:         stripe.String(cancelURL),
		CustomerEmail:     stripe.String(email),
		ClientReferenceID: stripe.String(userID),
	}

	session, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}
	return session.URL, nil
}

// CreatePortalSession opens the Stripe billing portal for a customer.
func (c *StripeClient) CreatePortalSession(customerID, returnURL string) (string, error) {
	session, err := c.api.BillingPortalSessions.New(&stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create portal session: %w", err)
	}
	return session.URL, nil
}

// ActiveSubscription returns the customer's newest subscription, or nil when
// they have none.
func (c *StripeClient) ActiveSubscription(customerID string) (*SubscriptionInfo, error) {
	params := &stripe.SubscriptionListParams{Customer: stripe.String(customerID)}
	iter := c.api.Subscriptions.List(params)
	for iter.Next() {
		sub := iter.Subscription()
		return subscriptionInfo(sub), nil
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return nil, nil
}

// ParseWebhookEvent verifies the webhook signature and decodes the event.
func (c *StripeClient) ParseWebhookEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, c.webhookSecret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("invalid webhook signature: %w", err)
	}
	return event, nil
}

func subscriptionInfo(sub *stripe.Subscription) *SubscriptionInfo {
	info := &SubscriptionInfo{
		ID:               sub.ID,
		Status:           string(sub.Status),
		CurrentPeriodEnd: time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
	}
	if sub.Customer != nil {
		info.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		info.PriceID = sub.Items.Data[0].Price.ID
	}
	return info
}
