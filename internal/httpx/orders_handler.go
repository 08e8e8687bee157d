package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/tackroom/saddletrack/internal/kafka"
	"github.com/tackroom/saddletrack/internal/orders"
	"github.com/tackroom/saddletrack/internal/redisx"
	"github.com/tackroom/saddletrack/internal/shopify"
	syncx "github.com/tackroom/saddletrack/internal/sync"
)

type OrdersHandler struct {
	Repo           *orders.Repo
	Engine         *syncx.Engine
	Sessions       *shopify.SessionStore
	ProducerSynced *kafkax.Producer
	Redis          *redis.Client
	Service        string
	SyncOpts       syncx.Options
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/sync", h.triggerSync)
	r.Get("/sync/status", h.syncStatus)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// triggerSync runs a full order import for the shop and returns the engine
// result. Failures come back as success:false with a reason; pages already
// committed stay committed.
func (h *OrdersHandler) triggerSync(w http.ResponseWriter, r *http.Request) {
	shop := r.URL.Query().Get("shop")
	if shop == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "missing shop"})
		return
	}

	ctx := r.Context()

	sess, err := h.Sessions.ForShop(ctx, shop)
	if err != nil {
		if errors.Is(err, shopify.ErrNoSession) {
			writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
		return
	}

	result := h.Engine.Sync(ctx, sess, h.SyncOpts)

	key := fmt.Sprintf(redisx.KeySyncResult, shop)
	_ = h.Redis.Set(ctx, key, kafkax.MustMarshal(result), redisx.TTLSyncResult).Err()

	if result.Success && h.ProducerSynced != nil {
		ev := orders.Envelope{
			EventID:       uuid.NewString(),
			EventType:     orders.EventOrderSynced,
			EventVersion:  1,
			OccurredAt:    time.Now().UTC(),
			Producer:      h.Service,
			TraceID:       r.Header.Get("X-Request-Id"),
			CorrelationID: shop,
			Payload: kafkax.MustMarshal(orders.OrderSyncedPayload{
				Shop:            shop,
				TotalOrders:     result.TotalOrders,
				TotalLineItems:  result.TotalLineItems,
				SaddleLineItems: result.SaddleLineItems,
				BatchCount:      result.BatchCount,
			}),
		}
		h.ProducerSynced.Publish(orders.PartitionKey(shop), kafkax.MustMarshal(ev),
			kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderSynced)},
			kafkago.Header{Key: "x-event-version", Value: []byte("1")},
		)
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *OrdersHandler) syncStatus(w http.ResponseWriter, r *http.Request) {
	shop := r.URL.Query().Get("shop")
	if shop == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing shop"})
		return
	}
	key := fmt.Sprintf(redisx.KeySyncResult, shop)
	s, err := h.Redis.Get(r.Context(), key).Result()
	if err != nil || s == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no sync recorded"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(s))
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	out, err := h.Repo.ListSaddleOrders(r.Context(), 50)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, err := h.Repo.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, d)
}
