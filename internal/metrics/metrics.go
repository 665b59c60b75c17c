package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReorderMovesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_reorder_moves_total",
		Help: "Reorder gestures by result (applied, noop, invalid_reference).",
	}, []string{"result"})

	OrderPersistsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_order_persists_total",
		Help: "Order persist calls by outcome (success, partial_failure, total_failure).",
	}, []string{"outcome"})

	OrderPersistDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "folio_order_persist_duration_seconds",
		Help:    "Time to write a full sequence's order fields.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})

	PortfolioItemsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "folio_portfolio_items_created_total",
		Help: "Portfolio items created.",
	})

	JobsPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "folio_jobs_published_total",
		Help: "Draft jobs moved to published.",
	})
)
