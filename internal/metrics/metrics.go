// Package metrics exposes kitchen counters on a private Prometheus registry.
//
// A nil *Metrics is valid and records nothing, so services can run without it.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sunnyside/kitchen/internal/models"
)

const namespace = "kitchen"

// Rejection reasons recorded by ServeRejected.
const (
	ReasonInsufficientStock = "insufficient_stock"
	ReasonAlreadyServed     = "already_served"
	ReasonValidation        = "validation"
	ReasonConflict          = "conflict"
	ReasonOther             = "other"
)

// Metrics holds every kitchen collector.
type Metrics struct {
	registry *prometheus.Registry

	mealsServed    *prometheus.CounterVec
	mealsCancelled *prometheus.CounterVec
	serveRejected  *prometheus.CounterVec
	serveDuration  prometheus.Histogram
	stockMoves     *prometheus.CounterVec
	menusPlanned   prometheus.Counter
	menusSkipped   prometheus.Counter
	shortages      prometheus.Counter
	notifications  *prometheus.CounterVec
}

// New creates the collectors and registers them with a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		mealsServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meals_served_total",
			Help:      "Meals served, by meal type.",
		}, []string{"meal_type"}),
		mealsCancelled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meals_cancelled_total",
			Help:      "Served meals cancelled and restocked, by meal type.",
		}, []string{"meal_type"}),
		serveRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "serve_rejected_total",
			Help:      "Serve attempts that committed nothing, by reason.",
		}, []string{"reason"}),
		serveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "serve_duration_seconds",
			Help:      "Time to serve a meal including stock deductions.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		stockMoves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_movements_total",
			Help:      "Ledger stock movements, by direction.",
		}, []string{"direction"}),
		menusPlanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "menus_planned_total",
			Help:      "Daily menus created from templates.",
		}),
		menusSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "menus_skipped_total",
			Help:      "Template days skipped because a menu already existed.",
		}),
		shortages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_shortages_total",
			Help:      "Products forecast short by template expansion.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Shortage notifications, by outcome.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		m.mealsServed, m.mealsCancelled, m.serveRejected, m.serveDuration,
		m.stockMoves, m.menusPlanned, m.menusSkipped, m.shortages, m.notifications,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// MealServed records a successful serve and its latency.
func (m *Metrics) MealServed(mt models.MealType, took time.Duration) {
	if m == nil {
		return
	}
	m.mealsServed.WithLabelValues(string(mt)).Inc()
	m.serveDuration.Observe(took.Seconds())
}

// MealCancelled records a cancellation.
func (m *Metrics) MealCancelled(mt models.MealType) {
	if m == nil {
		return
	}
	m.mealsCancelled.WithLabelValues(string(mt)).Inc()
}

// ServeRejected classifies err and records the rejection.
func (m *Metrics) ServeRejected(err error) {
	if m == nil || err == nil {
		return
	}
	m.serveRejected.WithLabelValues(RejectReason(err)).Inc()
}

// RejectReason maps a serve error to its metric label.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, models.ErrInsufficientStock):
		return ReasonInsufficientStock
	case errors.Is(err, models.ErrAlreadyServed):
		return ReasonAlreadyServed
	case errors.Is(err, models.ErrValidation):
		return ReasonValidation
	case errors.Is(err, models.ErrStockConflict):
		return ReasonConflict
	default:
		return ReasonOther
	}
}

// StockDecreased counts a ledger decrease.
func (m *Metrics) StockDecreased() {
	if m == nil {
		return
	}
	m.stockMoves.WithLabelValues("decrease").Inc()
}

// StockIncreased counts a ledger increase.
func (m *Metrics) StockIncreased() {
	if m == nil {
		return
	}
	m.stockMoves.WithLabelValues("increase").Inc()
}

// TemplateApplied records the outcome of one expansion run.
func (m *Metrics) TemplateApplied(created, skipped, shortages int) {
	if m == nil {
		return
	}
	m.menusPlanned.Add(float64(created))
	m.menusSkipped.Add(float64(skipped))
	m.shortages.Add(float64(shortages))
}

// Notified records a notification attempt.
func (m *Metrics) Notified(err error) {
	if m == nil {
		return
	}
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	m.notifications.WithLabelValues(outcome).Inc()
}
