package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewvet/trust-cli/internal/config"
	"github.com/crewvet/trust-cli/internal/engine"
	"github.com/crewvet/trust-cli/internal/model"
)

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func batch(ok, lowConf, failed int) *engine.BatchResult {
	res := &engine.BatchResult{Results: map[string]model.Result[model.TrustProfile]{}}
	n := 0
	add := func(r model.Result[model.TrustProfile]) {
		n++
		res.Results[string(rune('a'+n))] = r
	}
	for i := 0; i < ok; i++ {
		add(model.Available(model.TrustProfile{CRIScore: 80, ConfidenceLevel: model.ConfidenceHigh}))
	}
	for i := 0; i < lowConf; i++ {
		add(model.Available(model.TrustProfile{CRIScore: 40, ConfidenceLevel: model.ConfidenceLow, Flags: []string{"SHORT_CONTRACTS"}}))
	}
	for i := 0; i < failed; i++ {
		add(model.Unavailable[model.TrustProfile]("engine: load contracts"))
	}
	res.Succeeded = int64(ok + lowConf)
	res.Failed = int64(failed)
	return res
}

func TestCollect(t *testing.T) {
	snap := Collect(batch(3, 1, 1), now)

	assert.Equal(t, 5, snap.Total)
	assert.Equal(t, 4, snap.Succeeded)
	assert.Equal(t, 1, snap.Failed)
	assert.InDelta(t, 0.2, snap.FailRate, 1e-9)
	assert.Equal(t, 1, snap.LowConfidence)
	assert.InDelta(t, 0.25, snap.LowConfidenceShare, 1e-9)
	assert.Equal(t, 1, snap.Flagged)
	assert.InDelta(t, 70.0, snap.AvgCRI, 1e-9)
	assert.Len(t, snap.FailedCandidates, 1)
	assert.Equal(t, now, snap.CollectedAt)
}

func TestCollect_Empty(t *testing.T) {
	snap := Collect(nil, now)
	assert.Zero(t, snap.Total)
	assert.Zero(t, snap.FailRate)

	snap = Collect(batch(0, 0, 2), now)
	assert.Equal(t, 2, snap.Failed)
	assert.InDelta(t, 1.0, snap.FailRate, 1e-9)
	assert.Zero(t, snap.AvgCRI)
}

func TestAlerter_Evaluate(t *testing.T) {
	cfg := config.MonitoringConfig{
		FailureRateThreshold:        0.10,
		LowConfidenceShareThreshold: 0.5,
		MinBatchSize:                5,
	}

	tests := []struct {
		name  string
		snap  *BatchSnapshot
		types []AlertType
	}{
		{name: "healthy", snap: Collect(batch(10, 0, 0), now)},
		{name: "below min batch size", snap: Collect(batch(0, 0, 3), now)},
		{name: "failure rate", snap: Collect(batch(8, 0, 2), now), types: []AlertType{AlertBatchFailureRate}},
		{name: "low confidence", snap: Collect(batch(2, 4, 0), now), types: []AlertType{AlertLowConfidenceShare}},
		{name: "both", snap: Collect(batch(1, 3, 2), now), types: []AlertType{AlertBatchFailureRate, AlertLowConfidenceShare}},
		{name: "nil snapshot", snap: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := NewAlerter(cfg).Evaluate(tt.snap)
			var got []AlertType
			for _, a := range alerts {
				got = append(got, a.Type)
			}
			assert.Equal(t, tt.types, got)
		})
	}
}

func TestAlerter_Evaluate_FailureMessage(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.10, MinBatchSize: 1})
	alerts := a.Evaluate(Collect(batch(3, 0, 1), now))

	require.Len(t, alerts, 1)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "25.0%")
	assert.Equal(t, now, alerts[0].Timestamp)
}

func TestAlerter_SendAlerts(t *testing.T) {
	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var alert Alert
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&alert))
		assert.Equal(t, AlertBatchFailureRate, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertBatchFailureRate, Severity: "high", Message: "test"},
		{Type: AlertBatchFailureRate, Severity: "high", Message: "test 2"},
	})

	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertBatchFailureRate}})
	assert.Zero(t, sent)
}

func TestAlerter_SendAlerts_NoWebhook(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})
	assert.Zero(t, a.SendAlerts(context.Background(), []Alert{{Type: AlertBatchFailureRate}}))
}
