package amul

import (
	"context"
	"fmt"
	"log/slog"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/donaldgifford/amul-stock-tracker/internal/metrics"
	domain "github.com/donaldgifford/amul-stock-tracker/pkg/types"
)

const (
	defaultBaseURL   = "https://shop.amul.com"
	defaultCategory  = "protein"
	defaultPageLimit = 100

	pincodePath  = "/entity/pincode"
	productsPath = "/api/1/entity/ms.products"
)

// Client implements Catalog using the storefront's JSON API.
type Client struct {
	http      *resty.Client
	baseURL   string
	category  string
	pageLimit int
	log       *slog.Logger
	nowFunc   func() time.Time
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the storefront origin.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithCategory sets the catalog category to list.
func WithCategory(category string) Option {
	return func(c *Client) {
		c.category = category
	}
}

// WithPageLimit sets the maximum number of products requested.
func WithPageLimit(n int) Option {
	return func(c *Client) {
		c.pageLimit = n
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(d)
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.http.SetHeader("User-Agent", ua)
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// NewClient creates a storefront API client. The client keeps a cookie jar
// because the storefront ties the substore choice to its session cookie.
func NewClient(opts ...Option) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	hc := resty.New().
		SetCookieJar(jar).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("Referer", defaultBaseURL+"/")

	c := &Client{
		http:      hc,
		baseURL:   defaultBaseURL,
		category:  defaultCategory,
		pageLimit: defaultPageLimit,
		log:       slog.Default(),
		nowFunc:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http.SetBaseURL(c.baseURL)
	c.http.SetHeader("Referer", c.baseURL+"/")

	return c, nil
}

// Fetch resolves the pincode to a substore and lists the category there.
func (c *Client) Fetch(ctx context.Context, pincode string) (*domain.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "amul.Fetch")
	defer span.End()
	span.SetAttributes(
		attribute.String("amul.pincode", pincode),
		attribute.String("amul.category", c.category),
	)

	if err := ValidatePincode(pincode); err != nil {
		span.SetStatus(codes.Error, "invalid pincode")
		return nil, err
	}

	substore, err := c.ResolveSubstore(ctx, pincode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolving substore")
		return nil, err
	}

	products, err := c.ListProducts(ctx, substore)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "listing products")
		return nil, err
	}

	span.SetAttributes(
		attribute.String("amul.substore", substore),
		attribute.Int("amul.products", len(products)),
	)

	return &domain.Snapshot{
		Pincode:   pincode,
		Substore:  substore,
		Category:  c.category,
		FetchedAt: c.nowFunc(),
		Products:  products,
	}, nil
}

// ResolveSubstore asks the location API which substore serves the pincode.
func (c *Client) ResolveSubstore(ctx context.Context, pincode string) (string, error) {
	params := url.Values{}
	params.Set("limit", "50")
	params.Set("filters[0][field]", "pincode")
	params.Set("filters[0][value]", pincode)
	params.Set("filters[0][operator]", "regex")
	params.Set("cf_cache", "1h")

	body, err := c.get(ctx, "pincode", pincodePath, params)
	if err != nil {
		return "", err
	}

	substore, err := decodeSubstore(body, pincode)
	if err != nil {
		return "", err
	}

	c.log.Debug("resolved substore", "pincode", pincode, "substore", substore)
	return substore, nil
}

// ListProducts lists the configured category for a substore.
func (c *Client) ListProducts(ctx context.Context, substore string) ([]domain.Product, error) {
	if substore == "" {
		return nil, fmt.Errorf("%w: empty substore", ErrSubstoreNotFound)
	}

	params := url.Values{}
	for _, f := range []string{"name", "alias", "price", "inventory_quantity", "available", "categories"} {
		params.Set("fields["+f+"]", "1")
	}
	params.Set("filters[0][field]", "categories")
	params.Set("filters[0][value][0]", c.category)
	params.Set("filters[0][operator]", "in")
	params.Set("filters[0][original]", "1")
	params.Set("facets", "true")
	params.Set("limit", strconv.Itoa(c.pageLimit))
	params.Set("substore", substore)

	body, err := c.get(ctx, "products", productsPath, params)
	if err != nil {
		return nil, err
	}

	products, err := decodeProducts(body, c.baseURL)
	if err != nil {
		return nil, err
	}

	c.log.Debug("listed products", "substore", substore, "count", len(products))
	return products, nil
}

func (c *Client) get(
	ctx context.Context,
	endpoint string,
	path string,
	params url.Values,
) ([]byte, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(params).
		Get(path)
	if err != nil {
		metrics.RetailerRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("requesting %s: %w", endpoint, err)
	}

	if !res.IsSuccess() {
		metrics.RetailerRequestsTotal.WithLabelValues(endpoint, "status").Inc()
		return nil, &StatusError{
			Endpoint:   endpoint,
			StatusCode: res.StatusCode(),
			Body:       res.String(),
		}
	}

	metrics.RetailerRequestsTotal.WithLabelValues(endpoint, "ok").Inc()
	return res.Body(), nil
}
