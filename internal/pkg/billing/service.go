package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/planflowhq/planflow/app/models"
	"github.com/planflowhq/planflow/internal/pkg/entitlements"
)

var (
	ErrUserRequired    = errors.New("billing event is missing a user linkage")
	ErrUnknownUser     = errors.New("billing event references an unknown user")
	ErrUnknownSub      = errors.New("renewal references an unknown subscription")
	ErrCheckoutFailure = errors.New("checkout session could not be created")
)

// Service synchronizes provider billing state into the local ledger:
// Subscription rows plus the user's tier and credit balance.
type Service struct {
	repo     Repository
	provider Provider
}

// NewService creates a billing service from injected dependencies.
func NewService(repo Repository, provider Provider) *Service {
	return &Service{repo: repo, provider: provider}
}

// NewServiceFromDB creates a billing service from a GORM DB handle using
// the live Stripe provider.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db), NewStripeProvider())
}

// Provider exposes the configured billing provider.
func (s *Service) Provider() Provider {
	return s.provider
}

// CreateCheckoutSession opens a subscription checkout for the user,
// creating and persisting the provider customer on first use.
func (s *Service) CreateCheckoutSession(ctx context.Context, userID uint, priceID, origin string) (string, error) {
	_ = ctx
	user, err := s.repo.GetUser(userID)
	if err != nil {
		return "", err
	}

	customerID := user.StripeCustomerID
	if customerID == "" {
		customerID, err = s.provider.CreateCustomer(user.Email, formatUserID(user.ID))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrCheckoutFailure, err)
		}
		if err := s.repo.UpdateUserFields(user.ID, map[string]interface{}{"stripe_customer_id": customerID}); err != nil {
			return "", err
		}
	}

	url, err := s.provider.CreateCheckoutSession(CheckoutInput{
		UserID:     user.ID,
		CustomerID: customerID,
		PriceID:    priceID,
		SuccessURL: origin + "/dashboard?success=true",
		CancelURL:  origin + "/pricing?canceled=true",
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCheckoutFailure, err)
	}
	return url, nil
}

// RecordWebhookEvent persists webhook payloads idempotently.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	if in.ProviderEventID == "" {
		return false, nil, errors.New("provider_event_id is required")
	}
	event := &models.BillingWebhookEvent{
		Provider:        in.Provider,
		ProviderEventID: in.ProviderEventID,
		EventType:       in.EventType,
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed records the processing outcome for a stored event.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

// SyncCheckoutCompleted handles a completed first checkout: it creates
// (or refreshes) the Subscription row and promotes the user to PRO with
// the replenished credit balance.
func (s *Service) SyncCheckoutCompleted(ctx context.Context, norm NormalizedSubscription) error {
	_ = ctx
	if norm.UserID == 0 {
		return ErrUserRequired
	}
	if _, err := s.repo.GetUser(norm.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnknownUser
		}
		return err
	}

	sub := &models.Subscription{
		UserID:                 norm.UserID,
		Provider:               norm.Provider,
		ProviderSubscriptionID: norm.ProviderSubscriptionID,
		Status:                 norm.Status,
		CurrentPeriodEnd:       norm.CurrentPeriodEnd,
		RawPayloadJSON:         norm.RawPayloadJSON,
	}
	if err := s.repo.UpsertSubscription(sub); err != nil {
		return err
	}

	return s.repo.UpdateUserFields(norm.UserID, map[string]interface{}{
		"tier":    models.TIER_PRO,
		"credits": entitlements.ReplenishCredits(entitlements.TierPro),
	})
}

// SyncRenewal handles a successful renewal payment: it only extends the
// matching subscription's period end and refreshes its status. Credits
// are deliberately untouched here.
func (s *Service) SyncRenewal(ctx context.Context, norm NormalizedSubscription) error {
	_ = ctx
	existing, err := s.repo.GetSubscriptionByProviderSubID(norm.Provider, norm.ProviderSubscriptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnknownSub
		}
		return err
	}
	return s.repo.UpdateSubscriptionFields(existing.ID, map[string]interface{}{
		"status":             norm.Status,
		"current_period_end": norm.CurrentPeriodEnd,
	})
}

func formatUserID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseUserID reverses formatUserID for webhook metadata round-trips.
func ParseUserID(raw string) (uint, error) {
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		return 0, ErrUserRequired
	}
	return uint(v), nil
}
