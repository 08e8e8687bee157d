package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/tackroom/saddletrack/internal/kafka"
	"github.com/tackroom/saddletrack/internal/orders"
	"github.com/tackroom/saddletrack/internal/serials"
)

type SerialsHandler struct {
	Serials  *serials.Service
	Producer *kafkax.Producer
	Service  string
}

type saveSerialsReq struct {
	Serials []string `json:"serials"`
}

func (h *SerialsHandler) Register(r *chi.Mux) {
	r.Post("/line-items/{id}/serials", h.saveForLineItem)
	r.Post("/orders/{id}/serials", h.saveForOrder)
}

// saveForLineItem takes the full ordered serial list for one line item.
func (h *SerialsHandler) saveForLineItem(w http.ResponseWriter, r *http.Request) {
	lineItemID := chi.URLParam(r, "id")

	var req saveSerialsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid json"})
		return
	}

	if err := h.Serials.Save(r.Context(), lineItemID, req.Serials); err != nil {
		writeJSON(w, statusForSerialErr(err), map[string]any{"success": false, "error": err.Error()})
		return
	}

	h.publishSaved(lineItemID, len(req.Serials))
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// saveForOrder handles the order detail form: repeated fields named
// serials_<lineItemID>, one value per unit in submission order. Each line
// item saves independently; the response carries a per-item verdict.
func (h *SerialsHandler) saveForOrder(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid form"})
		return
	}

	results := map[string]string{}
	ok := true
	for key, values := range r.PostForm {
		lineItemID, found := strings.CutPrefix(key, "serials_")
		if !found || lineItemID == "" {
			continue
		}
		if err := h.Serials.Save(r.Context(), lineItemID, values); err != nil {
			results[lineItemID] = err.Error()
			ok = false
			continue
		}
		results[lineItemID] = "ok"
		h.publishSaved(lineItemID, len(values))
	}

	if len(results) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "no serial fields submitted"})
		return
	}
	code := http.StatusOK
	if !ok {
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, map[string]any{"success": ok, "results": results})
}

func (h *SerialsHandler) publishSaved(lineItemID string, count int) {
	if h.Producer == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventSerialsSaved,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		CorrelationID: lineItemID,
		Payload:       kafkax.MustMarshal(orders.SerialsSavedPayload{LineItemID: lineItemID, Count: count}),
	}
	h.Producer.Publish([]byte(lineItemID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventSerialsSaved)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func statusForSerialErr(err error) int {
	var vErr *serials.ValidationError
	var cErr *serials.ConflictError
	switch {
	case errors.Is(err, serials.ErrLineItemNotFound):
		return http.StatusNotFound
	case errors.As(err, &vErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &cErr):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
