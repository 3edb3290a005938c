// Package catalog implements product.Catalog over the remote catalog REST API.
package catalog

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/product"
)

// maxBodySize caps catalog responses read into memory.
const maxBodySize = 8 << 20

var _ product.Catalog = (*Client)(nil)

// ClientConfig holds the endpoints of the catalog API.
type ClientConfig struct {
	// SearchURL answers GET ?q=<term> with {"results":[{id,title,thumbnail}]}.
	SearchURL string
	// ItemsURL answers GET /<id> with {id,title,price}.
	ItemsURL string
}

// Client is an HTTP catalog client.
type Client struct {
	http      *http.Client
	searchURL string
	itemsURL  string
}

// NewClient returns a Client issuing requests through hc.
func NewClient(cfg ClientConfig, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{
		http:      hc,
		searchURL: cfg.SearchURL,
		itemsURL:  cfg.ItemsURL,
	}
}

// NewHTTPClient returns an http.Client whose transport records a client span
// and request metrics for every catalog call.
func NewHTTPClient(timeout time.Duration, tp trace.TracerProvider, mp metric.MeterProvider) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithTracerProvider(tp),
			otelhttp.WithMeterProvider(mp),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return "catalog " + r.Method + " " + r.URL.Path
			}),
		),
	}
}

// ListProducts searches the catalog for query and maps every result into a
// Product.
func (c *Client) ListProducts(ctx context.Context, query string) ([]product.Product, error) {
	const op = "list products"

	u, err := url.Parse(c.searchURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse search url")
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	body, err := c.get(ctx, op, u.String())
	if err != nil {
		return nil, err
	}

	products, err := decodeSearch(body)
	if err != nil {
		return nil, parseError(op, err)
	}

	zctx.From(ctx).Debug("Catalog search",
		zap.String("query", query),
		zap.Int("results", len(products)),
	)
	return products, nil
}

// GetProductDetail fetches the canonical title and current price of id.
func (c *Client) GetProductDetail(ctx context.Context, id string) (*product.Detail, error) {
	const op = "get product detail"

	// Identifiers are opaque and sent as a single path segment.
	if id == "." || id == ".." {
		return nil, errors.Wrapf(product.ErrInvalidID, "%s %q", op, id)
	}
	u, err := url.JoinPath(c.itemsURL, url.PathEscape(id))
	if err != nil {
		return nil, errors.Wrap(err, "build item url")
	}

	body, err := c.get(ctx, op, u)
	if err != nil {
		return nil, err
	}

	d, err := decodeDetail(body)
	if err != nil {
		return nil, parseError(op, err)
	}
	return d, nil
}

func (c *Client) get(ctx context.Context, op, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &product.NetworkError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, &product.NetworkError{Op: op, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &product.NetworkError{Op: op, Err: err}
	}
	return body, nil
}

func parseError(op string, err error) error {
	var pe *product.ParseError
	if errors.As(err, &pe) {
		pe.Op = op
		return pe
	}
	return &product.ParseError{Op: op, Err: err}
}
