package handlers

import (
	"net/http"
	"time"
)

// HealthHandler отдаёт liveness-статус процесса
type HealthHandler struct {
	startedAt time.Time
	chains    []string
}

// NewHealthHandler создает новый экземпляр handler'а
func NewHealthHandler(chains []string) *HealthHandler {
	return &HealthHandler{startedAt: time.Now(), chains: chains}
}

type healthResponse struct {
	Status string   `json:"status"`
	Uptime string   `json:"uptime"`
	Chains []string `json:"chains"`
}

// GetHealth возвращает статус процесса и список запущенных сетей
//
// GET /healthz
func (h *HealthHandler) GetHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Uptime: time.Since(h.startedAt).Round(time.Second).String(),
		Chains: h.chains,
	})
}
