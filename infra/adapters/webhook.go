package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kilianp07/clipcast/auth"
	"github.com/kilianp07/clipcast/config"
	"github.com/kilianp07/clipcast/core/platform"
	"github.com/kilianp07/clipcast/infra/logger"
)

// WebhookAdapter delivers content by posting a publish notification to a
// platform-specific HTTP endpoint. The receiving end is expected to pull the
// content from the given reference and return the remote identifier it
// assigned.
type WebhookAdapter struct {
	name     string
	endpoint string
	tokens   auth.TokenSource
	client   *http.Client
	log      logger.Logger
}

type webhookRequest struct {
	ContentRef  string `json:"content_ref"`
	Name        string `json:"name"`
	Caption     string `json:"caption"`
	ScheduledAt int64  `json:"scheduled_at"`
}

type webhookResponse struct {
	Ref string `json:"ref"`
}

// NewWebhookAdapter creates an adapter for the given platform. Platforms
// with an OAuth stanza authenticate via client credentials; otherwise the
// static API key is sent as a bearer token.
func NewWebhookAdapter(name string, cfg config.PlatformConfig) *WebhookAdapter {
	var tokens auth.TokenSource = auth.StaticToken(cfg.APIKey)
	if cfg.OAuth.Enabled() {
		tokens = auth.NewClientCred(cfg.OAuth)
	}
	return &WebhookAdapter{
		name:     name,
		endpoint: cfg.Endpoint,
		tokens:   tokens,
		client:   &http.Client{Timeout: 30 * time.Second},
		log:      logger.New("webhook-" + name),
	}
}

// Publish posts the publish request and parses the remote reference from the
// response body.
func (a *WebhookAdapter) Publish(ctx context.Context, req platform.PublishRequest) (platform.Outcome, error) {
	body, err := json.Marshal(webhookRequest{
		ContentRef:  req.ContentRef,
		Name:        req.Name,
		Caption:     req.Caption,
		ScheduledAt: req.ScheduledAt.Unix(),
	})
	if err != nil {
		return platform.Outcome{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return platform.Outcome{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if err := a.tokens.SetAuthHeader(httpReq); err != nil {
		return platform.Outcome{}, fmt.Errorf("authenticate: %w", err)
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return platform.Outcome{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return platform.Outcome{}, fmt.Errorf("%s returned %d: %s", a.name, resp.StatusCode, string(snippet))
	}
	var wr webhookResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		a.log.Warnf("unparseable response body: %v", err)
		return platform.Outcome{}, nil
	}
	return platform.Outcome{RemoteRef: wr.Ref}, nil
}
