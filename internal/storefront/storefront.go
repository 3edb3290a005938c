// Package storefront wires the catalog listing and the cart controller into
// the state a page is rendered from.
package storefront

import (
	"context"
	"slices"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/render"
)

// Config holds non-dependency configuration for the Storefront.
type Config struct {
	// Title is the page title.
	Title string
	// Query is the catalog search term the listing is built from.
	Query string
}

// Storefront owns the product listing and exposes the cart controller.
type Storefront struct {
	catalog product.Catalog
	cart    *cart.Controller
	loading *render.Indicator
	title   string
	query   string

	mu       sync.RWMutex
	products []product.Product
	listErr  error
}

// New creates a Storefront. The loading indicator must be the one the cart
// controller reports its progress to, so the page shows all in-flight work.
func New(cfg Config, catalog product.Catalog, controller *cart.Controller, loading *render.Indicator) *Storefront {
	return &Storefront{
		catalog: catalog,
		cart:    controller,
		loading: loading,
		title:   cfg.Title,
		query:   cfg.Query,
	}
}

// Bootstrap loads the catalog listing and replays the persisted cart. A failed
// listing degrades to an empty listing with a retry notice; only a cart
// restore failure is returned.
func (s *Storefront) Bootstrap(ctx context.Context) error {
	lg := zctx.From(ctx)

	if err := s.ReloadProducts(ctx); err != nil {
		lg.Warn("Catalog listing unavailable, continuing with empty listing", zap.Error(err))
	}
	if err := s.cart.Restore(ctx); err != nil {
		return errors.Wrap(err, "restore cart")
	}

	view := s.cart.Snapshot()
	lg.Info("Storefront ready",
		zap.Int("products", len(s.Products())),
		zap.Int("cart_rows", len(view.Entries)),
		zap.Stringer("total", view.Total),
	)
	return nil
}

// ReloadProducts issues one catalog search and replaces the listing. On
// failure the previous listing is kept and the error is remembered for the
// page notice.
func (s *Storefront) ReloadProducts(ctx context.Context) error {
	done := s.loading.Start("list products")
	defer done()

	products, err := s.catalog.ListProducts(ctx, s.query)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.listErr = err
		return errors.Wrap(err, "list products")
	}
	s.products = products
	s.listErr = nil
	return nil
}

// Products returns a copy of the current listing.
func (s *Storefront) Products() []product.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.products)
}

// Cart returns the cart controller.
func (s *Storefront) Cart() *cart.Controller {
	return s.cart
}

// Title returns the page title.
func (s *Storefront) Title() string {
	return s.title
}

// PageData assembles the render input. Extra notices, such as a failed
// add to cart, are shown above the listing-failure notice.
func (s *Storefront) PageData(notices ...render.Notice) render.PageData {
	s.mu.RLock()
	products := slices.Clone(s.products)
	listErr := s.listErr
	s.mu.RUnlock()

	if listErr != nil {
		notices = append(notices, render.Notice{
			Message:    "Could not load products.",
			RetryLabel: "Reload products",
			Retry:      render.RetryPost(render.ReloadProductsPath),
		})
	}

	return render.PageData{
		Title:    s.title,
		Products: products,
		Cart:     s.cart.Snapshot(),
		Loading:  s.loading.Active(),
		Notices:  notices,
	}
}
