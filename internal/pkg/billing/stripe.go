package billing

import (
	"github.com/stripe/stripe-go/v76"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/customer"
	"github.com/stripe/stripe-go/v76/subscription"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/planflowhq/planflow/internal/pkg/env"
)

// Provider abstracts the Stripe API surface the service needs, so the
// sync logic is testable without network calls.
type Provider interface {
	CreateCustomer(email string, userID string) (string, error)
	CreateCheckoutSession(in CheckoutInput) (string, error)
	GetSubscription(subscriptionID string) (*stripe.Subscription, error)
}

type stripeProvider struct{}

// NewStripeProvider configures the global Stripe key from the
// environment and returns the live provider.
func NewStripeProvider() Provider {
	stripe.Key = env.GetEnv("STRIPE_SECRET_KEY", "")
	return &stripeProvider{}
}

func (p *stripeProvider) CreateCustomer(email string, userID string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	params.AddMetadata("user_id", userID)

	cust, err := customer.New(params)
	if err != nil {
		return "", err
	}
	return cust.ID, nil
}

func (p *stripeProvider) CreateCheckoutSession(in CheckoutInput) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(in.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionAuto)),
		SuccessURL:               stripe.String(in.SuccessURL),
		CancelURL:                stripe.String(in.CancelURL),
	}
	if in.CustomerID != "" {
		params.Customer = stripe.String(in.CustomerID)
	}
	params.AddMetadata("user_id", formatUserID(in.UserID))

	sess, err := checkoutsession.New(params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

func (p *stripeProvider) GetSubscription(subscriptionID string) (*stripe.Subscription, error) {
	return subscription.Get(subscriptionID, nil)
}

// VerifyWebhook checks the Stripe-Signature header against the shared
// webhook secret and returns the parsed event. Any error means the
// payload must be rejected without state change.
func VerifyWebhook(payload []byte, signatureHeader string) (stripe.Event, error) {
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")
	return webhook.ConstructEvent(payload, signatureHeader, secret)
}
