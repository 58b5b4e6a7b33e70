package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const collectorTimeout = 5 * time.Second

// Collector posts events to an external collector endpoint. Delivery is
// best-effort: any failure is logged at Warn and swallowed.
type Collector struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewCollector creates a collector client. An empty URL disables delivery.
func NewCollector(url string, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		url:    url,
		client: &http.Client{Timeout: collectorTimeout},
		logger: logger,
	}
}

// Enabled reports whether a collector endpoint is configured.
func (c *Collector) Enabled() bool {
	return c.url != ""
}

// Report delivers the event in the background. It returns immediately;
// local state has already been committed by the caller.
func (c *Collector) Report(ev Event) {
	if !c.Enabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), collectorTimeout)
		defer cancel()
		if err := c.publish(ctx, ev); err != nil {
			c.logger.Warn("telemetry delivery failed",
				"error", err, "event_id", ev.EventID, "user_id", ev.UserID)
		}
	}()
}

func (c *Collector) publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close collector response body", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("collector returned status %d", resp.StatusCode)
	}
	return nil
}
