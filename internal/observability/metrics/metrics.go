package metrics

import "github.com/prometheus/client_golang/prometheus"

// RelayMetrics exposes counters/histograms for the lead relay flow.
type RelayMetrics struct {
	leadsTotal         *prometheus.CounterVec
	stepsTotal         *prometheus.CounterVec
	downstreamDuration *prometheus.HistogramVec
}

func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	m := &RelayMetrics{
		leadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "olxrelay",
			Subsystem: "leads",
			Name:      "received_total",
			Help:      "Inbound lead requests by route and outcome",
		}, []string{"route", "outcome"}),
		stepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "olxrelay",
			Subsystem: "poli",
			Name:      "steps_total",
			Help:      "Poli pipeline steps by step and status",
		}, []string{"step", "status"}),
		downstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "olxrelay",
			Subsystem: "poli",
			Name:      "send_duration_seconds",
			Help:      "Latency of the downstream template send",
			Buckets:   prometheus.DefBuckets,
		}, []string{"sender", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.leadsTotal, m.stepsTotal, m.downstreamDuration)
	return m
}

// ObserveLead counts one inbound request. outcome is success, invalid,
// downstream_error, unexpected_error or abandoned.
func (m *RelayMetrics) ObserveLead(route, outcome string) {
	if m == nil {
		return
	}
	m.leadsTotal.WithLabelValues(route, outcome).Inc()
}

func (m *RelayMetrics) ObserveStep(step, status string) {
	if m == nil {
		return
	}
	m.stepsTotal.WithLabelValues(step, status).Inc()
}

func (m *RelayMetrics) ObserveDownstream(sender string, ok bool, seconds float64) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	m.downstreamDuration.WithLabelValues(sender, status).Observe(seconds)
}
