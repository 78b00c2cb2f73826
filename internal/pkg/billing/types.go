package billing

import "time"

// NormalizedSubscription is the provider-agnostic shape used by the
// billing service when syncing external subscription state into local
// tables.
type NormalizedSubscription struct {
	UserID                 uint
	Provider               string
	ProviderSubscriptionID string
	Status                 string
	CurrentPeriodEnd       *time.Time
	RawPayloadJSON         string
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}

// CheckoutInput carries what the provider needs to open a checkout session.
type CheckoutInput struct {
	UserID     uint
	CustomerID string
	PriceID    string
	SuccessURL string
	CancelURL  string
}
