package controllers

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v76"

	"github.com/planflowhq/planflow/app/models"
	"github.com/planflowhq/planflow/internal/pkg/billing"
	"github.com/planflowhq/planflow/internal/pkg/database"
	"github.com/planflowhq/planflow/internal/pkg/env"
	"github.com/planflowhq/planflow/internal/pkg/usercontext"
)

type checkoutRequest struct {
	PriceID string `json:"price_id"`
}

// HandleCreateCheckoutSession opens a Stripe subscription checkout and
// returns the redirect URL.
func HandleCreateCheckoutSession(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req checkoutRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
		}
	}
	priceID := req.PriceID
	if priceID == "" {
		priceID = env.GetEnv("STRIPE_PRICE_ID_PRO", "")
	}
	if priceID == "" {
		return jsonError(c, fiber.StatusInternalServerError, "upstream_error", "billing is not configured")
	}

	origin := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if origin == "" {
		origin = c.Protocol() + "://" + c.Hostname()
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	url, err := svc.CreateCheckoutSession(c.Context(), userCtx.UserID, priceID, origin)
	if err != nil {
		log.Errorf("checkout session failed for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "upstream_error", "could not create checkout session")
	}

	return c.JSON(fiber.Map{"url": url})
}

// HandleStripeWebhook processes signed billing events. Signature failures
// and missing user linkage are 400s; events are stored idempotently so a
// redelivery never applies twice.
func HandleStripeWebhook(c *fiber.Ctx) error {
	payload := c.Body()

	event, err := billing.VerifyWebhook(payload, c.Get("Stripe-Signature"))
	if err != nil {
		log.Warnf("stripe webhook signature rejected: %v", err)
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid webhook signature")
	}

	svc := billing.NewServiceFromDB(database.GetDB())

	created, stored, err := svc.RecordWebhookEvent(c.Context(), billing.WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: event.ID,
		EventType:       string(event.Type),
		PayloadJSON:     string(payload),
		SignatureValid:  true,
	})
	if err != nil {
		log.Errorf("stripe webhook store failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not store event")
	}
	if !created {
		// Redelivery of an already-processed event
		return c.SendStatus(fiber.StatusOK)
	}

	processErr := processStripeEvent(c, svc, event)
	if markErr := svc.MarkWebhookProcessed(c.Context(), stored.ID, processErr); markErr != nil {
		log.Errorf("stripe webhook mark processed failed: %v", markErr)
	}
	if processErr != nil {
		log.Errorf("stripe webhook %s (%s) failed: %v", event.ID, event.Type, processErr)
		if errors.Is(processErr, billing.ErrUserRequired) || errors.Is(processErr, billing.ErrUnknownUser) || errors.Is(processErr, billing.ErrUnknownSub) {
			return jsonError(c, fiber.StatusBadRequest, "bad_request", processErr.Error())
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "event processing failed")
	}

	return c.SendStatus(fiber.StatusOK)
}

func processStripeEvent(c *fiber.Ctx, svc *billing.Service, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		return processCheckoutCompleted(c, svc, event)
	case "invoice.payment_succeeded":
		return processRenewal(c, svc, event)
	default:
		// Unhandled event types are stored and acknowledged
		return nil
	}
}

func processCheckoutCompleted(c *fiber.Ctx, svc *billing.Service, event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return err
	}

	userID, err := billing.ParseUserID(sess.Metadata["user_id"])
	if err != nil {
		return err
	}

	norm := billing.NormalizedSubscription{
		UserID:         userID,
		Provider:       models.BillingProviderStripe,
		RawPayloadJSON: string(event.Data.Raw),
	}
	if sess.Subscription != nil {
		norm.ProviderSubscriptionID = sess.Subscription.ID
		// Pull the authoritative status and period end from the API; the
		// checkout payload only carries the subscription id.
		if sub, err := svc.Provider().GetSubscription(sess.Subscription.ID); err == nil {
			norm.Status = string(sub.Status)
			if sub.CurrentPeriodEnd > 0 {
				t := time.Unix(sub.CurrentPeriodEnd, 0)
				norm.CurrentPeriodEnd = &t
			}
		} else {
			log.Warnf("subscription lookup for %s failed: %v", sess.Subscription.ID, err)
			norm.Status = models.BillingStatusActive
		}
	} else {
		norm.Status = models.BillingStatusActive
	}

	return svc.SyncCheckoutCompleted(c.Context(), norm)
}

func processRenewal(c *fiber.Ctx, svc *billing.Service, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return err
	}
	if invoice.Subscription == nil {
		// Non-subscription invoice; nothing to sync
		return nil
	}

	norm := billing.NormalizedSubscription{
		Provider:               models.BillingProviderStripe,
		ProviderSubscriptionID: invoice.Subscription.ID,
		Status:                 models.BillingStatusActive,
		RawPayloadJSON:         string(event.Data.Raw),
	}
	if sub, err := svc.Provider().GetSubscription(invoice.Subscription.ID); err == nil {
		norm.Status = string(sub.Status)
		if sub.CurrentPeriodEnd > 0 {
			t := time.Unix(sub.CurrentPeriodEnd, 0)
			norm.CurrentPeriodEnd = &t
		}
	} else {
		log.Warnf("subscription lookup for %s failed: %v", invoice.Subscription.ID, err)
		if invoice.PeriodEnd > 0 {
			t := time.Unix(invoice.PeriodEnd, 0)
			norm.CurrentPeriodEnd = &t
		}
	}

	err := svc.SyncRenewal(c.Context(), norm)
	if errors.Is(err, billing.ErrUnknownSub) {
		// First invoice can arrive before checkout.session.completed; treat
		// it as the subscription-creating event in that case.
		if invoice.Customer != nil {
			if userID, uerr := billing.ParseUserID(invoice.Customer.Metadata["user_id"]); uerr == nil {
				norm.UserID = userID
				return svc.SyncCheckoutCompleted(c.Context(), norm)
			}
		}
		return err
	}
	return err
}
