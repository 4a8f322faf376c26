// Package metrics registers the Prometheus metrics for the vetting feature.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the vetting feature's Prometheus collectors.
// All increment methods are nil-safe so tests can pass a nil *Metrics.
type Metrics struct {
	ApplicationsSubmitted prometheus.Counter
	StatusChanges         *prometheus.CounterVec
	TransitionRejections  *prometheus.CounterVec

	AccessChecks *prometheus.CounterVec
	CacheHits    prometheus.Counter
	CacheMisses  prometheus.Counter

	NotificationsSent    prometheus.Counter
	NotificationRetries  prometheus.Counter
	NotificationFailures prometheus.Counter

	AuditMirrorFailures prometheus.Counter
}

// New creates and registers all vetting metrics.
func New() *Metrics {
	return &Metrics{
		ApplicationsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatherhall_vetting_applications_submitted_total",
			Help: "Total vetting applications submitted",
		}),
		StatusChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gatherhall_vetting_status_changes_total",
			Help: "Total successful status changes by target status",
		}, []string{"new_status"}),
		TransitionRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gatherhall_vetting_transition_rejections_total",
			Help: "Total rejected status-change attempts by rejection kind",
		}, []string{"kind"}),
		AccessChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gatherhall_vetting_access_checks_total",
			Help: "Total access checks by access type and outcome",
		}, []string{"access_type", "outcome"}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatherhall_vetting_status_cache_hits_total",
			Help: "Status cache hits on the access-check path",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatherhall_vetting_status_cache_misses_total",
			Help: "Status cache misses on the access-check path",
		}),
		NotificationsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatherhall_vetting_notifications_sent_total",
			Help: "Status notifications delivered",
		}),
		NotificationRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatherhall_vetting_notification_retries_total",
			Help: "Status notification delivery retries",
		}),
		NotificationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatherhall_vetting_notification_failures_total",
			Help: "Status notifications dropped after exhausting retries",
		}),
		AuditMirrorFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatherhall_vetting_audit_mirror_failures_total",
			Help: "Audit entries that failed to mirror to Kafka",
		}),
	}
}

func (m *Metrics) IncApplicationsSubmitted() {
	if m != nil {
		m.ApplicationsSubmitted.Inc()
	}
}

func (m *Metrics) IncStatusChange(newStatus string) {
	if m != nil {
		m.StatusChanges.WithLabelValues(newStatus).Inc()
	}
}

func (m *Metrics) IncTransitionRejection(kind string) {
	if m != nil {
		m.TransitionRejections.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) IncAccessCheck(accessType, outcome string) {
	if m != nil {
		m.AccessChecks.WithLabelValues(accessType, outcome).Inc()
	}
}

func (m *Metrics) IncCacheHit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

func (m *Metrics) IncCacheMiss() {
	if m != nil {
		m.CacheMisses.Inc()
	}
}

func (m *Metrics) IncNotificationSent() {
	if m != nil {
		m.NotificationsSent.Inc()
	}
}

func (m *Metrics) IncNotificationRetry() {
	if m != nil {
		m.NotificationRetries.Inc()
	}
}

func (m *Metrics) IncNotificationFailure() {
	if m != nil {
		m.NotificationFailures.Inc()
	}
}

func (m *Metrics) IncAuditMirrorFailure() {
	if m != nil {
		m.AuditMirrorFailures.Inc()
	}
}
