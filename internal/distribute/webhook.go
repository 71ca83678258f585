package distribute

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/curatehub/curatehub/internal/model"
)

// Webhook POSTs the content as JSON to the URL from the distributor config.
type Webhook struct {
	client *http.Client
}

func NewWebhook() *Webhook {
	return &Webhook{client: &http.Client{Timeout: 15 * time.Second}}
}

func (w *Webhook) Distribute(ctx context.Context, cfg map[string]any, c model.PipelineContent) error {
	url, _ := cfg["url"].(string)
	if url == "" {
		return fmt.Errorf("webhook distributor: missing url config")
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("webhook distributor: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("webhook distributor: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook distributor: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook distributor: unexpected status %d", resp.StatusCode)
	}
	return nil
}
