package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/donaldgifford/amul-stock-tracker/internal/metrics"
)

const defaultNtfyServer = "https://ntfy.sh"

var tracer = otel.Tracer("github.com/donaldgifford/amul-stock-tracker/internal/notify")

// NtfyNotifier implements Notifier by publishing to an ntfy topic.
type NtfyNotifier struct {
	endpoint string
	priority string
	tags     []string
	client   *http.Client
	quota    *PublishQuota
}

// NtfyOption configures an NtfyNotifier.
type NtfyOption func(*NtfyNotifier)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) NtfyOption {
	return func(n *NtfyNotifier) {
		n.client = c
	}
}

// WithPriority sets the ntfy Priority header (min, low, default, high, urgent
// or 1-5).
func WithPriority(p string) NtfyOption {
	return func(n *NtfyNotifier) {
		n.priority = p
	}
}

// WithTags sets the emoji tags shown with the notification.
func WithTags(tags []string) NtfyOption {
	return func(n *NtfyNotifier) {
		n.tags = tags
	}
}

// WithQuota paces publishes and enforces a daily cap.
func WithQuota(q *PublishQuota) NtfyOption {
	return func(n *NtfyNotifier) {
		n.quota = q
	}
}

// NewNtfyNotifier creates a notifier publishing to server/topic. An empty
// server means the public ntfy.sh instance.
func NewNtfyNotifier(server, topic string, opts ...NtfyOption) *NtfyNotifier {
	if server == "" {
		server = defaultNtfyServer
	}
	n := &NtfyNotifier{
		endpoint: strings.TrimRight(server, "/") + "/" + strings.TrimLeft(topic, "/"),
		tags:     []string{"tada", "shopping_cart"},
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Endpoint returns the topic URL alerts are posted to.
func (n *NtfyNotifier) Endpoint() string {
	return n.endpoint
}

// SendAlert publishes a single alert.
func (n *NtfyNotifier) SendAlert(ctx context.Context, alert *AlertPayload) error {
	ctx, span := tracer.Start(ctx, "notify.Send")
	defer span.End()
	span.SetAttributes(attribute.String("notify.product", alert.ProductID))

	if n.quota != nil {
		if err := n.quota.Wait(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "quota")
			return err
		}
	}

	start := time.Now()
	err := n.post(ctx, alert)
	metrics.NotificationDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
	}
	return err
}

func (n *NtfyNotifier) post(ctx context.Context, alert *AlertPayload) error {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		n.endpoint,
		strings.NewReader(alert.Message()),
	)
	if err != nil {
		return fmt.Errorf("creating ntfy request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Title", alert.Title())
	if alert.URL != "" {
		req.Header.Set("Click", alert.URL)
	}
	if len(n.tags) > 0 {
		req.Header.Set("Tags", strings.Join(n.tags, ","))
	}
	if n.priority != "" {
		req.Header.Set("Priority", n.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("ntfy rate limited (429)")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if readErr != nil {
			return fmt.Errorf("ntfy returned %d (body unreadable)", resp.StatusCode)
		}
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	return nil
}
