package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	registry *prometheus.Registry

	invoicesCreated   *prometheus.CounterVec
	invoicesEmitted   *prometheus.CounterVec
	invoicesCancelled prometheus.Counter
	duplicateRejected prometheus.Counter
	sequenceLockWait  prometheus.Histogram
	schedulerRuns     prometheus.Counter
	schedulerCreated  prometheus.Counter
}

// New builds the instrument set on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		invoicesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inmoflow_invoices_created_total",
			Help: "Draft invoices created.",
		}, []string{"type"}),
		invoicesEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inmoflow_invoices_emitted_total",
			Help: "Invoices emitted with a legal number.",
		}, []string{"series"}),
		invoicesCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inmoflow_invoices_cancelled_total",
			Help: "Emitted invoices cancelled.",
		}),
		duplicateRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inmoflow_duplicate_charge_rejections_total",
			Help: "Invoice creations rejected by the duplicate-charge check.",
		}),
		sequenceLockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "inmoflow_sequence_lock_wait_seconds",
			Help:    "Time spent waiting for the invoice sequence row lock.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		schedulerRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inmoflow_scheduler_runs_total",
			Help: "Recurring billing scheduler passes.",
		}),
		schedulerCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inmoflow_scheduler_invoices_created_total",
			Help: "Invoices created by the recurring billing scheduler.",
		}),
	}

	registry.MustRegister(
		m.invoicesCreated,
		m.invoicesEmitted,
		m.invoicesCancelled,
		m.duplicateRejected,
		m.sequenceLockWait,
		m.schedulerRuns,
		m.schedulerCreated,
	)

	return m
}

// Registry returns the registry backing the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) InvoiceCreated(invoiceType string) {
	m.invoicesCreated.WithLabelValues(invoiceType).Inc()
}

func (m *Metrics) InvoiceEmitted(series string) {
	if series == "" {
		series = "default"
	}
	m.invoicesEmitted.WithLabelValues(series).Inc()
}

func (m *Metrics) InvoiceCancelled() {
	m.invoicesCancelled.Inc()
}

func (m *Metrics) DuplicateChargeRejected() {
	m.duplicateRejected.Inc()
}

func (m *Metrics) ObserveSequenceLockWait(d time.Duration) {
	m.sequenceLockWait.Observe(d.Seconds())
}

func (m *Metrics) SchedulerRun() {
	m.schedulerRuns.Inc()
}

func (m *Metrics) SchedulerInvoiceCreated() {
	m.schedulerCreated.Inc()
}

// Module wires application metrics.
var Module = fx.Module("metrics",
	fx.Provide(New),
)
