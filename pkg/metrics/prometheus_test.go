package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordRecords("accepted", 3)
	r.RecordRecords("dropped", 0)
	r.RecordForecast("ok")
	r.RecordForecast("ok")
	r.RecordError("fetch")

	if got := testutil.ToFloat64(r.records.WithLabelValues("accepted")); got != 3 {
		t.Fatalf("accepted = %v", got)
	}
	if got := testutil.ToFloat64(r.forecasts.WithLabelValues("ok")); got != 2 {
		t.Fatalf("forecasts ok = %v", got)
	}
	if got := testutil.ToFloat64(r.errorsTotal.WithLabelValues("fetch")); got != 1 {
		t.Fatalf("errors = %v", got)
	}
}
