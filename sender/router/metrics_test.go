package router_test

import (
	"context"
	"testing"

	"github.com/Cogwheel-Validator/spectra-sender/sender/router"
	"github.com/zeebo/assert"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// sendOutcomes collects sender_sends_total as outcome -> count.
func sendOutcomes(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	assert.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "sender_sends_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			assert.True(t, ok)
			for _, dp := range sum.DataPoints {
				outcome, _ := dp.Attributes.Value("outcome")
				out[outcome.AsString()] += dp.Value
			}
		}
	}
	return out
}

func TestSendMetrics_Outcomes(t *testing.T) {
	tests := []struct {
		name    string
		gate    router.ConfirmationGate
		outcome string
	}{
		{"approved", approveGate, "submitted"},
		{"rejected", rejectGate, string(router.KindUserCancelled)},
		{"dismissed", dismissGate, string(router.KindUserCancelled)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := sdkmetric.NewManualReader()
			mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
			h := newHarnessWith(t, tt.gate, []router.Option{router.WithMeterProvider(mp)}, ethereum.NetworkID)

			sess := router.NewSession("s1")
			assert.NoError(t, h.sender.Send(context.Background(), sess, intent(ethereum, optimism)))

			outcomes := sendOutcomes(t, reader)
			assert.Equal(t, len(outcomes), 1)
			assert.Equal(t, outcomes[tt.outcome], int64(1))
		})
	}
}

func TestSendMetrics_Failure(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	// wallet on the wrong network
	h := newHarnessWith(t, approveGate, []router.Option{router.WithMeterProvider(mp)}, optimism.NetworkID)

	err := h.sender.Send(context.Background(), router.NewSession("s1"), intent(ethereum, optimism))
	assert.Error(t, err)
	assert.Equal(t, sendOutcomes(t, reader)[string(router.KindWrongNetwork)], int64(1))
}
