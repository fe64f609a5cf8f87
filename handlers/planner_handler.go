package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"cloutQuestAPI/internal/grid"
	"cloutQuestAPI/internal/progress"
	"cloutQuestAPI/internal/types/endeavor"
	"cloutQuestAPI/internal/types/entry"
	"cloutQuestAPI/services"
)

// PlannerHandler is the one-shot REST mirror of the live session surface.
// Each endpoint round-trips through the document store; clients that need
// push updates use the WebSocket session instead.
type PlannerHandler struct {
	store services.EntryStore
}

func NewPlannerHandler(store services.EntryStore) *PlannerHandler {
	return &PlannerHandler{
		store: store,
	}
}

// monthParams reads year/month query params, defaulting to the current
// month.
func monthParams(r *http.Request) (int, int, bool) {
	now := time.Now()
	year, month := now.Year(), int(now.Month())

	if v := r.URL.Query().Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return 0, 0, false
		}
		year = n
	}
	if v := r.URL.Query().Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 12 {
			return 0, 0, false
		}
		month = n
	}
	return year, month, true
}

func (h *PlannerHandler) loadEndeavors(ctx context.Context) []endeavor.Endeavor {
	list, err := h.store.GetSettings(ctx)
	if err != nil {
		list = nil
	}
	norm, _ := endeavor.Normalize(list)
	return norm
}

func (h *PlannerHandler) GetMonth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	year, month, ok := monthParams(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid year or month")
		return
	}

	view, err := h.store.GetMonth(ctx, year, month)
	if err != nil {
		respondWithError(w, http.StatusServiceUnavailable, "Could not load month")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"year":  year,
		"month": month,
		"days":  view,
	})
}

func (h *PlannerHandler) GetGrid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	year, month, ok := monthParams(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid year or month")
		return
	}

	view, err := h.store.GetMonth(ctx, year, month)
	if err != nil {
		respondWithError(w, http.StatusServiceUnavailable, "Could not load month")
		return
	}

	model := grid.RenderMonth(year, month, view, h.loadEndeavors(ctx), time.Now())
	respondWithJSON(w, http.StatusOK, model)
}

func (h *PlannerHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	year, month, ok := monthParams(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid year or month")
		return
	}

	view, err := h.store.GetMonth(ctx, year, month)
	if err != nil {
		respondWithError(w, http.StatusServiceUnavailable, "Could not load month")
		return
	}

	buckets := progress.ComputeWeeklyProgress(year, month, view)
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"weeks": buckets,
		"quest": progress.BuildQuestPath(buckets),
	})
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func (h *PlannerHandler) CreateDay(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var fields entry.Fields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !validDate(fields.Date) {
		respondWithError(w, http.StatusBadRequest, "Date must be YYYY-MM-DD")
		return
	}

	id, err := h.store.CreateEntry(ctx, fields)
	if err != nil {
		respondWithError(w, http.StatusServiceUnavailable, "Could not create day entry")
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *PlannerHandler) UpdateDay(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id := mux.Vars(r)["id"]

	var fields entry.Fields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !validDate(fields.Date) {
		respondWithError(w, http.StatusBadRequest, "Date must be YYYY-MM-DD")
		return
	}

	if err := h.store.UpdateEntry(ctx, id, fields); err != nil {
		respondWithError(w, http.StatusNotFound, "Day entry not found")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *PlannerHandler) DeleteDay(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id := mux.Vars(r)["id"]

	if err := h.store.DeleteEntry(ctx, id); err != nil {
		respondWithError(w, http.StatusNotFound, "Day entry not found")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *PlannerHandler) SetDayDone(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id := mux.Vars(r)["id"]

	var req struct {
		Done bool `json:"done"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.store.SetDone(ctx, id, req.Done); err != nil {
		respondWithError(w, http.StatusNotFound, "Day entry not found")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *PlannerHandler) MoveDay(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id := mux.Vars(r)["id"]

	var req struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !validDate(req.Date) {
		respondWithError(w, http.StatusBadRequest, "Date must be YYYY-MM-DD")
		return
	}

	if err := h.store.MoveEntry(ctx, id, req.Date); err != nil {
		respondWithError(w, http.StatusNotFound, "Day entry not found")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "moved"})
}

func (h *PlannerHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"endeavors":   h.loadEndeavors(ctx),
		"iconPresets": endeavor.IconPresets,
	})
}

func (h *PlannerHandler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req struct {
		Endeavors []endeavor.Endeavor `json:"endeavors"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Endeavors) != endeavor.Count {
		respondWithError(w, http.StatusBadRequest, "Exactly 3 endeavors are required")
		return
	}

	rebuilt, _ := endeavor.Normalize(req.Endeavors)
	if err := h.store.SaveSettings(ctx, rebuilt); err != nil {
		respondWithError(w, http.StatusServiceUnavailable, "Could not save settings")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"endeavors": rebuilt})
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
