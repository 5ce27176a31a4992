package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestBookingMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)

	m.ObserveRecommendation("ok")
	m.ObserveRecommendation("ok")
	m.ObserveRecommendation("empty")
	m.ObserveBooking("confirmed", 0.02)
	m.ObserveSideEffect("email", nil)
	m.ObserveSideEffect("email", errors.New("smtp down"))

	if got := testutil.ToFloat64(m.recommendationsTotal.WithLabelValues("ok")); got != 2 {
		t.Fatalf("recommendations ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.sideEffectsTotal.WithLabelValues("email", "error")); got != 1 {
		t.Fatalf("email errors = %v, want 1", got)
	}

	var out dto.Metric
	if err := m.bookingLatency.Write(&out); err != nil {
		t.Fatalf("write histogram: %v", err)
	}
	if out.GetHistogram().GetSampleCount() != 1 {
		t.Fatalf("expected one latency sample, got %d", out.GetHistogram().GetSampleCount())
	}
}

func TestBookingMetricsNilSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveRecommendation("ok")
	m.ObserveBooking("error", 0.1)
	m.ObserveSideEffect("event", nil)
}
