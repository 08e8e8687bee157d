package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tackroom/saddletrack/internal/review"
)

type ReviewsHandler struct {
	Repo *review.Repo
}

func (h *ReviewsHandler) Register(r *chi.Mux) {
	r.Get("/reviews", h.listOpen)
	r.Post("/reviews/{id}/resolve", h.resolve)
}

func (h *ReviewsHandler) listOpen(w http.ResponseWriter, r *http.Request) {
	flags, err := h.Repo.ListOpen(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, flags)
}

func (h *ReviewsHandler) resolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	done, err := h.Repo.Resolve(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if !done {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"resolved": true})
}
