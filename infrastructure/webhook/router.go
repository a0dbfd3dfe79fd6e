package webhook

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/AzielCF/az-crm/domains/integration"
	pkgError "github.com/AzielCF/az-crm/pkg/error"
	pkgUtils "github.com/AzielCF/az-crm/pkg/utils"
	"github.com/sirupsen/logrus"
)

// EventType is a semantic pipeline event that may be re-emitted to the
// automation endpoint.
type EventType string

const (
	EventMessageReceived         EventType = "message_received"
	EventMessageSentMobile       EventType = "message_sent_mobile"
	EventMessageSentConfirmation EventType = "message_sent_confirmation"
)

// Router maps event types to their configured destination URL and performs
// the outbound call. Dispatch is best-effort: delivery failures are logged
// and swallowed, never surfaced to the pipeline. Persistence and realtime
// emission must already have happened by the time Dispatch runs.
type Router struct {
	cache   *integration.Cache
	secret  string
	timeout time.Duration
	client  *http.Client

	// submitFn is swappable in tests
	submitFn func(ctx context.Context, url string, payload map[string]any) error
}

func NewRouter(cache *integration.Cache, secret string, timeout time.Duration, insecureSkipVerify bool) *Router {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	r := &Router{
		cache:   cache,
		secret:  secret,
		timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: insecureSkipVerify},
			},
		},
	}
	r.submitFn = r.submit
	return r
}

// Dispatch delivers the payload for the event type. An unconfigured
// destination is a silent skip, not an error.
func (r *Router) Dispatch(ctx context.Context, event EventType, payload map[string]any) {
	url := r.resolveURL(event)
	if url == "" {
		logrus.Debugf("[WEBHOOK] No URL configured for %s; skipping dispatch", event)
		return
	}

	if err := r.submitFn(ctx, url, payload); err != nil {
		logrus.WithFields(logrus.Fields{
			"event": string(event),
			"url":   url,
		}).Warnf("[WEBHOOK] Delivery failed: %v", err)
		return
	}
	logrus.Debugf("[WEBHOOK] %s forwarded to %s", event, url)
}

func (r *Router) resolveURL(event EventType) string {
	cfg := r.cache.Get()
	switch event {
	case EventMessageReceived:
		return cfg.InboundReceiveURL
	case EventMessageSentMobile:
		return cfg.ActiveAutomationURL()
	case EventMessageSentConfirmation:
		return cfg.SentConfirmationURL
	default:
		return ""
	}
}

// submit performs a single POST with a bounded timeout. No retries: the
// automation endpoint is best-effort automation, not part of the CRM's
// delivery guarantee.
func (r *Router) submit(ctx context.Context, url string, payload map[string]any) error {
	postBody, err := json.Marshal(payload)
	if err != nil {
		return pkgError.WebhookError(fmt.Sprintf("failed to marshal body: %v", err))
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(postBody))
	if err != nil {
		return pkgError.WebhookError(fmt.Sprintf("error when create http object %v", err))
	}

	req.Header.Set("Content-Type", "application/json")
	if r.secret != "" {
		signature, err := pkgUtils.GetMessageDigestOrSignature(postBody, []byte(r.secret))
		if err != nil {
			return pkgError.WebhookError(fmt.Sprintf("error when create signature %v", err))
		}
		req.Header.Set("X-Hub-Signature-256", fmt.Sprintf("sha256=%s", signature))
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return pkgError.WebhookError(fmt.Sprintf("error when submit webhook: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pkgError.WebhookError(fmt.Sprintf("webhook returned status %d", resp.StatusCode))
	}
	return nil
}
