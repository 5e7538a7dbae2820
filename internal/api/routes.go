// Package api - ops HTTP сервер: health, метрики, история попыток и
// websocket-поток событий.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"liquidator/internal/api/handlers"
	"liquidator/internal/api/middleware"
	"liquidator/internal/repository"
	"liquidator/internal/websocket"
)

// Dependencies содержит зависимости ops-сервера
//
// Attempts и Hub опциональны: без БД /api/v1/attempts не регистрируется,
// без hub'а нет /ws/attempts.
type Dependencies struct {
	Attempts     *repository.AttemptRepository
	Hub          *websocket.Hub
	Chains       []string
	APITokenHash string
	Log          *zap.Logger
}

// SetupRoutes настраивает маршруты ops-сервера
//
// Структура:
//
//	/healthz                 - liveness
//	/metrics                 - Prometheus
//	/ws/attempts             - поток событий попыток
//	/api/v1/
//	  ├── /attempts          - история попыток (bearer auth)
//	  └── /attempts/stats    - агрегаты по отправленным
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.Recovery(deps.Log))
	router.Use(middleware.Logging(deps.Log))

	healthHandler := handlers.NewHealthHandler(deps.Chains)
	router.HandleFunc("/healthz", healthHandler.GetHealth).Methods("GET")

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	if deps.Hub != nil {
		router.HandleFunc("/ws/attempts", func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWS(deps.Hub, w, r)
		})
	}

	if deps.Attempts != nil {
		api := router.PathPrefix("/api/v1").Subrouter()
		api.Use(middleware.BearerAuth(deps.APITokenHash))

		attemptHandler := handlers.NewAttemptHandler(deps.Attempts)
		api.HandleFunc("/attempts", attemptHandler.GetAttempts).Methods("GET")
		api.HandleFunc("/attempts/stats", attemptHandler.GetStats).Methods("GET")
	}

	return router
}
