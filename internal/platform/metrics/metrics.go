package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	RequestsCreated      prometheus.Counter
	DedupHits            prometheus.Counter
	DisplayIDCollisions  *prometheus.CounterVec
	AllocationExhausted  *prometheus.CounterVec
	SequenceFallbacks    *prometheus.CounterVec
	StatusTransitions    *prometheus.CounterVec
	InvoicesIssued       prometheus.Counter
	CascadeFailures      prometheus.Counter
	PoolAcceptConflicts  prometheus.Counter
	OutboxPublished      prometheus.Counter
	OutboxPublishFailure prometheus.Counter
}

// New creates and registers all Prometheus metrics on reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction never collides.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "expertdesk_requests_created_total",
			Help: "Total number of requests persisted",
		}),
		DedupHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "expertdesk_requests_dedup_hits_total",
			Help: "Create calls answered with a recent duplicate instead of a new request",
		}),
		DisplayIDCollisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "expertdesk_display_id_collisions_total",
			Help: "Display id inserts rejected by the uniqueness constraint",
		}, []string{"prefix"}),
		AllocationExhausted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "expertdesk_display_id_exhausted_total",
			Help: "Allocations that gave up after the maximum number of attempts",
		}, []string{"prefix"}),
		SequenceFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "expertdesk_display_id_sequence_fallbacks_total",
			Help: "Allocations where the atomic sequence failed or collided and the retry loop took over",
		}, []string{"prefix"}),
		StatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "expertdesk_request_status_transitions_total",
			Help: "Accepted request status changes",
		}, []string{"from", "to"}),
		InvoicesIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "expertdesk_invoices_issued_total",
			Help: "Invoices created by the payment cascade",
		}),
		CascadeFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "expertdesk_invoice_cascade_failures_total",
			Help: "Payment cascades that failed after the triggering write succeeded",
		}),
		PoolAcceptConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "expertdesk_pool_accept_conflicts_total",
			Help: "Pool acceptances that lost the race to another expert",
		}),
		OutboxPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "expertdesk_outbox_published_total",
			Help: "Outbox entries relayed to Kafka",
		}),
		OutboxPublishFailure: factory.NewCounter(prometheus.CounterOpts{
			Name: "expertdesk_outbox_publish_failures_total",
			Help: "Outbox relay batches that failed to publish",
		}),
	}
}

func (m *Metrics) IncrementRequestsCreated() {
	m.RequestsCreated.Inc()
}

func (m *Metrics) IncrementDedupHits() {
	m.DedupHits.Inc()
}

func (m *Metrics) IncrementDisplayIDCollisions(prefix string) {
	m.DisplayIDCollisions.WithLabelValues(prefix).Inc()
}

func (m *Metrics) IncrementAllocationExhausted(prefix string) {
	m.AllocationExhausted.WithLabelValues(prefix).Inc()
}

func (m *Metrics) IncrementSequenceFallbacks(prefix string) {
	m.SequenceFallbacks.WithLabelValues(prefix).Inc()
}

func (m *Metrics) IncrementStatusTransitions(from, to string) {
	m.StatusTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) IncrementInvoicesIssued() {
	m.InvoicesIssued.Inc()
}

func (m *Metrics) IncrementCascadeFailures() {
	m.CascadeFailures.Inc()
}

func (m *Metrics) IncrementPoolAcceptConflicts() {
	m.PoolAcceptConflicts.Inc()
}

func (m *Metrics) IncrementOutboxPublished(n int) {
	m.OutboxPublished.Add(float64(n))
}

func (m *Metrics) IncrementOutboxPublishFailures() {
	m.OutboxPublishFailure.Inc()
}
