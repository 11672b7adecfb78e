// Package metrics expone los contadores del núcleo de inventario en formato Prometheus.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/vendhub-inventory/internal/application/inventory"
	"github.com/jhoicas/vendhub-inventory/internal/domain"
)

var _ inventory.Metrics = (*InventoryMetrics)(nil)

// InventoryMetrics colectores con registro propio (no el global).
type InventoryMetrics struct {
	registry          *prometheus.Registry
	transfers         *prometheus.CounterVec
	transferDuration  *prometheus.HistogramVec
	reservations      *prometheus.CounterVec
	reservationsItems *prometheus.CounterVec
	stockChanges      *prometheus.CounterVec
	expired           prometheus.Counter
}

// New registra los colectores bajo el namespace indicado, más los de runtime de Go.
func New(namespace string) *InventoryMetrics {
	m := &InventoryMetrics{
		registry: prometheus.NewRegistry(),
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "transfers_total",
			Help: "Transferencias entre niveles por tipo y resultado.",
		}, []string{"kind", "result"}),
		transferDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "transfer_duration_seconds",
			Help:    "Duración de las transferencias, incluida la espera de bloqueos.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "reservation_operations_total",
			Help: "Operaciones de reserva por operación y resultado.",
		}, []string{"operation", "result"}),
		reservationsItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "reservations_affected_total",
			Help: "Reservas creadas o cerradas por operación.",
		}, []string{"operation"}),
		stockChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "stock_changes_total",
			Help: "Cambios de stock de un solo nivel por tipo de movimiento y resultado.",
		}, []string{"movement_type", "result"}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "reservations_expired_total",
			Help: "Reservas expiradas por el barrido.",
		}),
	}
	m.registry.MustRegister(
		m.transfers, m.transferDuration, m.reservations, m.reservationsItems, m.stockChanges, m.expired,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *InventoryMetrics) ObserveTransfer(kind string, err error, elapsed time.Duration) {
	m.transfers.WithLabelValues(kind, Result(err)).Inc()
	m.transferDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (m *InventoryMetrics) ObserveReservation(operation string, err error, count int) {
	m.reservations.WithLabelValues(operation, Result(err)).Inc()
	if count > 0 {
		m.reservationsItems.WithLabelValues(operation).Add(float64(count))
	}
}

func (m *InventoryMetrics) ObserveStockChange(movementType string, err error) {
	m.stockChanges.WithLabelValues(movementType, Result(err)).Inc()
}

func (m *InventoryMetrics) AddExpired(count int) {
	if count > 0 {
		m.expired.Add(float64(count))
	}
}

// Registry para tests y para registrar colectores adicionales.
func (m *InventoryMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler endpoint de scraping.
func (m *InventoryMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Result etiqueta de resultado según el error de dominio.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrDuplicate):
		return "conflict"
	}
	return "error"
}
