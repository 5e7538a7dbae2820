package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============ Метрики Prometheus ============

var (
	attemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "liquidator_attempts_total",
		Help: "Попытки ликвидации по исходам",
	}, []string{"chain", "kind", "outcome"})

	positionsSeen = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "liquidator_positions_seen",
		Help: "Ликвидируемые позиции в последнем цикле",
	}, []string{"chain"})

	cycleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "liquidator_cycle_duration_seconds",
		Help:    "Длительность полного цикла обработки блока",
		Buckets: prometheus.DefBuckets,
	}, []string{"chain"})

	submittedProfitUSD = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "liquidator_submitted_profit_usd_total",
		Help: "Сумма оценённого профита отправленных попыток, USD",
	}, []string{"chain"})

	indexerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "liquidator_indexer_errors_total",
		Help: "Ошибки запросов к индексеру",
	}, []string{"chain"})
)
