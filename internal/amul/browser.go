package amul

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	domain "github.com/donaldgifford/amul-stock-tracker/pkg/types"
)

const (
	pincodeInputSel  = `input[placeholder="Enter Your Pincode"]`
	pincodeResultSel = `div.list-group-item.text-left.searchproduct-name a.searchitem-name`
)

// BrowserCatalog implements Catalog by loading the storefront in headless
// Chrome and capturing the listing the page itself requests. It is the
// fallback for when the storefront refuses plain API clients.
type BrowserCatalog struct {
	baseURL   string
	category  string
	userAgent string
	timeout   time.Duration
	log       *slog.Logger
	nowFunc   func() time.Time
}

// BrowserOption configures a BrowserCatalog.
type BrowserOption func(*BrowserCatalog)

// WithBrowserBaseURL overrides the storefront origin.
func WithBrowserBaseURL(u string) BrowserOption {
	return func(b *BrowserCatalog) {
		b.baseURL = strings.TrimRight(u, "/")
	}
}

// WithBrowserCategory sets the category page to open.
func WithBrowserCategory(category string) BrowserOption {
	return func(b *BrowserCatalog) {
		b.category = category
	}
}

// WithBrowserUserAgent sets the user agent Chrome reports.
func WithBrowserUserAgent(ua string) BrowserOption {
	return func(b *BrowserCatalog) {
		b.userAgent = ua
	}
}

// WithBrowserTimeout bounds the whole browser session.
func WithBrowserTimeout(d time.Duration) BrowserOption {
	return func(b *BrowserCatalog) {
		b.timeout = d
	}
}

// WithBrowserLogger sets a custom logger.
func WithBrowserLogger(l *slog.Logger) BrowserOption {
	return func(b *BrowserCatalog) {
		b.log = l
	}
}

// NewBrowserCatalog creates a browser-driven catalog.
func NewBrowserCatalog(opts ...BrowserOption) *BrowserCatalog {
	b := &BrowserCatalog{
		baseURL:  defaultBaseURL,
		category: defaultCategory,
		timeout:  60 * time.Second,
		log:      slog.Default(),
		nowFunc:  time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Fetch sets the pincode through the storefront UI, opens the category page
// and decodes the ms.products response the page receives.
func (b *BrowserCatalog) Fetch(ctx context.Context, pincode string) (*domain.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "amul.BrowserFetch")
	defer span.End()
	span.SetAttributes(attribute.String("amul.pincode", pincode))

	if err := ValidatePincode(pincode); err != nil {
		span.SetStatus(codes.Error, "invalid pincode")
		return nil, err
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if b.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.userAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, b.timeout)
	defer cancelTask()

	// Bodies are only retrievable once loading finishes, so matching
	// responses are parked until their LoadingFinished event arrives.
	captured := make(chan capturedRequest, 4)
	pending := make(map[network.RequestID]string)
	chromedp.ListenTarget(tabCtx, func(ev any) {
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			if isProductListingURL(e.Response.URL) {
				pending[e.RequestID] = e.Response.URL
			}
		case *network.EventLoadingFinished:
			u, ok := pending[e.RequestID]
			if !ok {
				return
			}
			delete(pending, e.RequestID)
			select {
			case captured <- capturedRequest{id: e.RequestID, url: u}:
			default:
			}
		}
	})

	var body []byte
	var listingURL string
	tasks := chromedp.Tasks{
		network.Enable(),
		chromedp.Navigate(b.baseURL + "/en/"),
		chromedp.WaitVisible(pincodeInputSel, chromedp.ByQuery),
		chromedp.SendKeys(pincodeInputSel, pincode, chromedp.ByQuery),
		chromedp.WaitVisible(pincodeResultSel, chromedp.ByQuery),
		chromedp.Click(pincodeResultSel, chromedp.ByQuery),
		chromedp.WaitNotVisible(pincodeInputSel, chromedp.ByQuery),
		chromedp.Navigate(b.baseURL + "/en/browse/" + b.category),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var req capturedRequest
			select {
			case req = <-captured:
			case <-ctx.Done():
				return fmt.Errorf("waiting for product listing: %w", ctx.Err())
			}
			listingURL = req.url

			raw, err := network.GetResponseBody(req.id).Do(ctx)
			if err != nil {
				return fmt.Errorf("reading product listing body: %w", err)
			}
			body = raw
			return nil
		}),
	}

	if err := chromedp.Run(taskCtx, tasks); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "browser session")
		return nil, fmt.Errorf("browser fetch: %w", err)
	}

	products, err := decodeProducts(body, b.baseURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decoding listing")
		return nil, err
	}

	substore := substoreFromURL(listingURL)
	b.log.Debug("captured product listing",
		"url", listingURL,
		"substore", substore,
		"count", len(products),
	)
	span.SetAttributes(attribute.Int("amul.products", len(products)))

	return &domain.Snapshot{
		Pincode:   pincode,
		Substore:  substore,
		Category:  b.category,
		FetchedAt: b.nowFunc(),
		Products:  products,
	}, nil
}

type capturedRequest struct {
	id  network.RequestID
	url string
}

// isProductListingURL matches the category listing request the storefront
// issues when a browse page loads.
func isProductListingURL(raw string) bool {
	if !strings.Contains(raw, "ms.products") {
		return false
	}
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		decoded = raw
	}
	return strings.Contains(decoded, "filters[0][field]=categories")
}

func substoreFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Query().Get("substore")
}
