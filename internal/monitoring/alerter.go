package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/crewvet/trust-cli/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertBatchFailureRate   AlertType = "batch_failure_rate"
	AlertLowConfidenceShare AlertType = "low_confidence_share"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a BatchSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
// Batches smaller than MinBatchSize never alert.
func (a *Alerter) Evaluate(snap *BatchSnapshot) []Alert {
	var alerts []Alert
	if snap == nil || snap.Total < a.cfg.MinBatchSize {
		return alerts
	}

	if a.cfg.FailureRateThreshold > 0 && snap.FailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertBatchFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Recompute failure rate %.1f%% exceeds threshold %.1f%% (%d of %d candidates unavailable)",
				snap.FailRate*100, a.cfg.FailureRateThreshold*100, snap.Failed, snap.Total,
			),
			Details: map[string]any{
				"failure_rate": snap.FailRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.Failed,
				"total":        snap.Total,
				"candidates":   snap.FailedCandidates,
			},
			Timestamp: snap.CollectedAt,
		})
	}

	if a.cfg.LowConfidenceShareThreshold > 0 && snap.Succeeded > 0 &&
		snap.LowConfidenceShare > a.cfg.LowConfidenceShareThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertLowConfidenceShare,
			Severity: "medium",
			Message: fmt.Sprintf(
				"%.1f%% of recomputed profiles have low confidence (threshold %.1f%%)",
				snap.LowConfidenceShare*100, a.cfg.LowConfidenceShareThreshold*100,
			),
			Details: map[string]any{
				"low_confidence": snap.LowConfidence,
				"succeeded":      snap.Succeeded,
				"threshold":      a.cfg.LowConfidenceShareThreshold,
			},
			Timestamp: snap.CollectedAt,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
