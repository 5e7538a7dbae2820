package handlers

import (
	"net/http"
	"strconv"
	"time"

	"liquidator/internal/repository"
)

// AttemptHandler отдаёт историю попыток ликвидации
type AttemptHandler struct {
	attempts *repository.AttemptRepository
}

// NewAttemptHandler создает новый экземпляр handler'а
func NewAttemptHandler(attempts *repository.AttemptRepository) *AttemptHandler {
	return &AttemptHandler{attempts: attempts}
}

// GetAttempts возвращает последние попытки
//
// GET /api/v1/attempts?chain=<slug>&limit=<n>
func (h *AttemptHandler) GetAttempts(w http.ResponseWriter, r *http.Request) {
	chain := r.URL.Query().Get("chain")

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 1000 {
			writeError(w, http.StatusBadRequest, "limit must be 1..1000")
			return
		}
		limit = parsed
	}

	attempts, err := h.attempts.ListRecent(chain, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, attempts)
}

type statsResponse struct {
	Since     time.Time `json:"since"`
	Submitted int64     `json:"submitted"`
	ProfitUSD float64   `json:"profit_usd"`
}

// GetStats возвращает агрегаты по отправленным попыткам
//
// GET /api/v1/attempts/stats?hours=<n>
func (h *AttemptHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if raw := r.URL.Query().Get("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "hours must be positive")
			return
		}
		hours = parsed
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	count, profit, err := h.attempts.SubmittedStats(since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		Since:     since,
		Submitted: count,
		ProfitUSD: profit,
	})
}
