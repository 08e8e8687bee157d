package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tackroom/saddletrack/internal/redisx"
	"github.com/tackroom/saddletrack/internal/shopify"
	"github.com/tackroom/saddletrack/internal/webhook"
)

// Deduper claims a webhook delivery id and can release a claim whose
// processing failed, so the platform's retry is reprocessed instead of
// swallowed.
type Deduper interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type WebhooksHandler struct {
	Reconciler *webhook.Reconciler
	Dedup      Deduper
	Secret     string
}

func (h *WebhooksHandler) Register(r *chi.Mux) {
	r.Post("/webhooks/orders/create", h.event("create"))
	r.Post("/webhooks/orders/updated", h.event("updated"))
	r.Post("/webhooks/orders/cancelled", h.event("cancelled"))
}

// event verifies the delivery, claims its webhook id, and hands the payload
// to the reconciler. Recognized-but-ignored deliveries still answer 200 so
// the platform does not retry them; only reconciler failures return 500.
// Failure branches release the claim, otherwise the retry the 500 asks for
// would be acknowledged without reprocessing.
func (h *WebhooksHandler) event(eventType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		hmacHeader := r.Header.Get("X-Shopify-Hmac-Sha256")
		shop := r.Header.Get("X-Shopify-Shop-Domain")
		if hmacHeader == "" || shop == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !shopify.VerifyWebhookHMAC(h.Secret, body, hmacHeader) {
			log.Printf("webhook: hmac validation failed for %s", shop)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		// claim the delivery id; a retry of an already-processed delivery
		// is acknowledged without reprocessing
		var dedupKey string
		if webhookID := r.Header.Get("X-Shopify-Webhook-Id"); webhookID != "" && h.Dedup != nil {
			dedupKey = fmt.Sprintf(redisx.KeyWebhookDedup, webhookID)
			claimed, err := h.Dedup.Claim(r.Context(), dedupKey)
			if err == nil && !claimed {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("OK"))
				return
			}
		}

		var payload webhook.OrderPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			h.release(r.Context(), dedupKey)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		outcome := h.Reconciler.Reconcile(r.Context(), payload, eventType, shop)
		if outcome.Status == webhook.StatusFailed {
			log.Printf("webhook: %s %s: %v", eventType, shop, outcome.Err)
			h.release(r.Context(), dedupKey)
			http.Error(w, "error", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

func (h *WebhooksHandler) release(ctx context.Context, key string) {
	if key == "" || h.Dedup == nil {
		return
	}
	if err := h.Dedup.Release(ctx, key); err != nil {
		log.Printf("webhook: release dedup %s: %v", key, err)
	}
}
