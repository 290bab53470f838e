package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestRelayMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRelayMetrics(reg)
	m.ObserveLead("/", "success")
	m.ObserveLead("/", "success")
	m.ObserveLead("/", "invalid")
	m.ObserveStep("create-contact", "ok")
	m.ObserveDownstream("simulate", true, 0.2)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	leads := findFamily(families, "olxrelay_leads_received_total")
	if leads == nil {
		t.Fatalf("expected leads counter to be registered")
	}
	if got := counterValue(leads, map[string]string{"route": "/", "outcome": "success"}); got != 2 {
		t.Fatalf("expected 2 successful leads, got %v", got)
	}
	if got := counterValue(leads, map[string]string{"route": "/", "outcome": "invalid"}); got != 1 {
		t.Fatalf("expected 1 invalid lead, got %v", got)
	}
	if findFamily(families, "olxrelay_poli_steps_total") == nil {
		t.Fatalf("expected steps counter")
	}
	if findFamily(families, "olxrelay_poli_send_duration_seconds") == nil {
		t.Fatalf("expected send histogram")
	}
}

func TestRelayMetricsDefaultRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	defaultReg := prometheus.DefaultRegisterer
	prometheus.DefaultRegisterer = reg
	defer func() { prometheus.DefaultRegisterer = defaultReg }()

	m := NewRelayMetrics(nil)
	m.ObserveDownstream("live", false, 1)
}

func TestRelayMetricsNilSafe(t *testing.T) {
	var m *RelayMetrics
	m.ObserveLead("/", "success")
	m.ObserveStep("open-chat", "error")
	m.ObserveDownstream("live", true, 0.1)
}

func findFamily(families []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func counterValue(family *dto.MetricFamily, labels map[string]string) float64 {
	for _, metric := range family.GetMetric() {
		matched := 0
		for _, pair := range metric.GetLabel() {
			if want, ok := labels[pair.GetName()]; ok && want == pair.GetValue() {
				matched++
			}
		}
		if matched == len(labels) {
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}
