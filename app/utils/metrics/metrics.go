package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics carries the service's Prometheus collectors. A nil *Metrics is a
// valid no-op receiver so call sites need no guards when metrics are off.
type Metrics struct {
	publishResults *prometheus.CounterVec
	wikiCalls      *prometheus.HistogramVec
	reportInserts  prometheus.Counter
}

// New registers the service collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		publishResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "publish_results_total",
			Help: "Publish operations by result token.",
		}, []string{"result"}),
		wikiCalls: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wiki_call_duration_seconds",
			Help:    "Duration of MediaWiki API calls by action.",
			Buckets: prometheus.DefBuckets,
		}, []string{"action"}),
		reportInserts: factory.NewCounter(prometheus.CounterOpts{
			Name: "publish_reports_inserted_total",
			Help: "Rows written to the reports table.",
		}),
	}
}

// PublishResult counts one finished publish operation under its result token.
func (m *Metrics) PublishResult(result string) {
	if m == nil {
		return
	}
	m.publishResults.WithLabelValues(result).Inc()
}

// ObserveWikiCall records the duration of one MediaWiki API call.
func (m *Metrics) ObserveWikiCall(action string, seconds float64) {
	if m == nil {
		return
	}
	m.wikiCalls.WithLabelValues(action).Observe(seconds)
}

// ReportInserted counts one report row written.
func (m *Metrics) ReportInserted() {
	if m == nil {
		return
	}
	m.reportInserts.Inc()
}
