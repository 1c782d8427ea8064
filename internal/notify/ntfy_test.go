package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/amul-stock-tracker/internal/metrics"
	domain "github.com/donaldgifford/amul-stock-tracker/pkg/types"
)

func testAlert() *AlertPayload {
	return &AlertPayload{
		ProductID:   "amul-high-protein-paneer-400g",
		DisplayName: "Amul High Protein Paneer 400g",
		URL:         "https://shop.amul.com/en/product/amul-high-protein-paneer-400g",
		Price:       450,
		Quantity:    7,
	}
}

func TestNewAlertPayload(t *testing.T) {
	t.Parallel()

	p := NewAlertPayload(&domain.Alert{
		Product: domain.Product{
			ID:                "whey_protein-1kg",
			Price:             1299.5,
			InventoryQuantity: 3,
			URL:               "https://shop.amul.com/en/product/whey_protein-1kg",
		},
		Previous: domain.StatusUnavailable,
	})

	assert.Equal(t, "whey_protein-1kg", p.ProductID)
	assert.Equal(t, "Whey Protein 1kg", p.DisplayName)
	assert.Equal(t, "Stock Alert: Whey Protein 1kg is available!", p.Title())
	assert.Equal(t, "Whey Protein 1kg is back in stock\nPrice: ₹1299.5\nStock: 3", p.Message())
}

func TestNtfyNotifier_SendAlert(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		alert      *AlertPayload
		opts       []NtfyOption
		statusCode int
		wantErr    bool
		errMsg     string
		check      func(t *testing.T, r *http.Request, body string)
	}{
		{
			name:       "publishes message with headers",
			alert:      testAlert(),
			statusCode: http.StatusOK,
			check: func(t *testing.T, r *http.Request, body string) {
				t.Helper()
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/amul-alerts", r.URL.Path)
				assert.Equal(t, "Stock Alert: Amul High Protein Paneer 400g is available!", r.Header.Get("Title"))
				assert.Equal(t, "https://shop.amul.com/en/product/amul-high-protein-paneer-400g", r.Header.Get("Click"))
				assert.Equal(t, "tada,shopping_cart", r.Header.Get("Tags"))
				assert.Empty(t, r.Header.Get("Priority"))
				assert.Equal(t, "Amul High Protein Paneer 400g is back in stock\nPrice: ₹450\nStock: 7", body)
			},
		},
		{
			name:       "priority and custom tags",
			alert:      testAlert(),
			opts:       []NtfyOption{WithPriority("high"), WithTags([]string{"milk"})},
			statusCode: http.StatusOK,
			check: func(t *testing.T, r *http.Request, _ string) {
				t.Helper()
				assert.Equal(t, "high", r.Header.Get("Priority"))
				assert.Equal(t, "milk", r.Header.Get("Tags"))
			},
		},
		{
			name: "no click header without url",
			alert: &AlertPayload{
				ProductID:   "lassi",
				DisplayName: "Lassi",
				Price:       25,
				Quantity:    1,
			},
			statusCode: http.StatusOK,
			check: func(t *testing.T, r *http.Request, _ string) {
				t.Helper()
				_, ok := r.Header["Click"]
				assert.False(t, ok)
			},
		},
		{
			name:       "rate limited",
			alert:      testAlert(),
			statusCode: http.StatusTooManyRequests,
			wantErr:    true,
			errMsg:     "ntfy rate limited (429)",
		},
		{
			name:       "server error",
			alert:      testAlert(),
			statusCode: http.StatusInternalServerError,
			wantErr:    true,
			errMsg:     "ntfy returned 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, err := io.ReadAll(r.Body)
				assert.NoError(t, err)
				if tt.check != nil {
					tt.check(t, r, string(body))
				}
				w.WriteHeader(tt.statusCode)
			}))
			defer srv.Close()

			n := NewNtfyNotifier(srv.URL+"/", "amul-alerts", tt.opts...)
			err := n.SendAlert(context.Background(), tt.alert)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNtfyNotifier_NetworkError(t *testing.T) {
	t.Parallel()

	n := NewNtfyNotifier("http://127.0.0.1:1", "topic") // nothing listening
	err := n.SendAlert(context.Background(), testAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sending ntfy notification")
}

func TestNtfyNotifier_InvalidServerURL(t *testing.T) {
	t.Parallel()

	n := NewNtfyNotifier("://not-a-valid-url", "topic")
	err := n.SendAlert(context.Background(), testAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating ntfy request")
}

func TestNewNtfyNotifier_Defaults(t *testing.T) {
	t.Parallel()

	n := NewNtfyNotifier("", "/amul")
	assert.Equal(t, "https://ntfy.sh/amul", n.Endpoint())
	assert.Equal(t, 10*time.Second, n.client.Timeout)

	custom := &http.Client{}
	n = NewNtfyNotifier("", "amul", WithHTTPClient(custom))
	assert.Same(t, custom, n.client)
}

func getNotificationHistogramSampleCount() uint64 {
	ch := make(chan prometheus.Metric, 1)
	metrics.NotificationDuration.Collect(ch)
	m := <-ch
	pb := &dto.Metric{}
	_ = m.Write(pb)
	return pb.GetHistogram().GetSampleCount()
}

func TestSendAlert_ObservesNotificationDuration(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	before := getNotificationHistogramSampleCount()

	n := NewNtfyNotifier(srv.URL, "topic")
	require.NoError(t, n.SendAlert(context.Background(), testAlert()))

	after := getNotificationHistogramSampleCount()
	assert.Greater(t, after, before, "NotificationDuration histogram sample count should increase")
}

// compile-time interface check.
var _ Notifier = (*NtfyNotifier)(nil)

func TestNtfyNotifier_QuotaExhaustedSkipsPublish(t *testing.T) {
	t.Parallel()

	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNtfyNotifier(srv.URL, "amul", WithQuota(NewPublishQuota(100, 5, 1)))

	require.NoError(t, n.SendAlert(context.Background(), testAlert()))
	err := n.SendAlert(context.Background(), testAlert())
	require.ErrorIs(t, err, ErrDailyQuotaReached)
	assert.Equal(t, 1, hits)
}
