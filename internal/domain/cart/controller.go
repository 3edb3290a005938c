package cart

import (
	"context"
	"slices"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/product"
)

// Sentinel errors for cart operations.
var (
	ErrEmptyProductID = errors.New("product id required")
	ErrRowChanged     = errors.New("cart row changed while fetching")
)

const defaultRestoreConcurrency = 4

// ControllerConfig holds non-dependency configuration for the Controller.
type ControllerConfig struct {
	// Progress receives in-flight network work. Defaults to a no-op.
	Progress Progress
	// MeterProvider supplies the cart counters. Defaults to a no-op provider.
	MeterProvider metric.MeterProvider
	// RestoreConcurrency bounds parallel detail fetches during Restore.
	RestoreConcurrency int
}

// Controller owns the cart entry list and keeps the persisted identifiers in
// lockstep with it. Network fetches run outside the lock; every state change
// (entries, store, total) happens inside one critical section.
type Controller struct {
	catalog            product.Catalog
	store              Store
	progress           Progress
	metrics            *metrics
	restoreConcurrency int

	mu      sync.Mutex
	entries []Entry
	total   decimal.Decimal
}

// NewController creates a Controller backed by the catalog for item detail and
// the store for persistence.
func NewController(cfg ControllerConfig, catalog product.Catalog, store Store) *Controller {
	if cfg.Progress == nil {
		cfg.Progress = noopProgress{}
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = noop.NewMeterProvider()
	}
	if cfg.RestoreConcurrency <= 0 {
		cfg.RestoreConcurrency = defaultRestoreConcurrency
	}
	return &Controller{
		catalog:            catalog,
		store:              store,
		progress:           cfg.Progress,
		metrics:            newMetrics(cfg.MeterProvider),
		restoreConcurrency: cfg.RestoreConcurrency,
		total:              decimal.Zero,
	}
}

// AddToCart fetches the detail of productID and, only once that succeeded,
// persists the identifier and appends the row. A failed fetch leaves both the
// store and the rows untouched.
func (c *Controller) AddToCart(ctx context.Context, productID string) (Entry, error) {
	if productID == "" {
		return Entry{}, ErrEmptyProductID
	}
	lg := zctx.From(ctx)

	done := c.progress.Start("add " + productID)
	defer done()

	d, err := c.catalog.GetProductDetail(ctx, productID)
	if err != nil {
		c.metrics.addFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", failureReason(err))))
		lg.Debug("Add to cart failed", zap.String("sku", productID), zap.Error(err))
		return Entry{}, errors.Wrapf(err, "fetch detail %s", productID)
	}
	e := Entry{ProductID: productID, Title: d.Title, Price: d.Price}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Append(ctx, productID); err != nil {
		return Entry{}, errors.Wrap(err, "persist cart entry")
	}
	c.entries = append(c.entries, e)
	c.recomputeLocked()
	c.metrics.added.Add(ctx, 1)

	lg.Debug("Added to cart",
		zap.String("sku", productID),
		zap.Stringer("price", e.Price),
		zap.Int("rows", len(c.entries)),
	)
	return e, nil
}

// RemoveFromCart removes the row at position together with the persisted
// identifier at the same position.
func (c *Controller) RemoveFromCart(ctx context.Context, position int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if position < 0 || position >= len(c.entries) {
		return ErrNoSuchRow
	}
	if err := c.store.RemoveAt(ctx, position); err != nil {
		return errors.Wrap(err, "remove persisted entry")
	}
	c.entries = slices.Delete(c.entries, position, position+1)
	c.recomputeLocked()
	c.metrics.removed.Add(ctx, 1)
	return nil
}

// RecomputeTotal sums the price of every row and stores the result as the
// displayed total. It never touches the store.
func (c *Controller) RecomputeTotal() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recomputeLocked()
}

func (c *Controller) recomputeLocked() decimal.Decimal {
	total := decimal.Zero
	for _, e := range c.entries {
		total = total.Add(e.Price)
	}
	c.total = total
	return total
}

// Clear empties the rows and the store and resets the total to zero.
func (c *Controller) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Clear(ctx); err != nil {
		return errors.Wrap(err, "clear persisted cart")
	}
	c.entries = nil
	c.total = decimal.Zero
	c.metrics.cleared.Add(ctx, 1)
	return nil
}

// Restore rebuilds the rows from the persisted identifiers without appending
// to the store. Details are fetched concurrently and placed by index, so a slow
// fetch never reorders, drops or duplicates rows. A failed fetch yields an
// Unavailable row. The total is recomputed once after all fetches settle.
//
// Restore replaces the current rows and must complete before any other
// mutation is issued.
func (c *Controller) Restore(ctx context.Context) error {
	lg := zctx.From(ctx)

	ids, err := c.store.Load(ctx)
	if err != nil {
		var se *StorageError
		if !errors.As(err, &se) {
			return errors.Wrap(err, "load persisted cart")
		}
		lg.Warn("Persisted cart unreadable, starting empty", zap.Error(err))
		if err := c.store.Clear(ctx); err != nil {
			lg.Warn("Reset persisted cart", zap.Error(err))
		}
		ids = nil
	}

	done := c.progress.Start("restore cart")
	defer done()

	entries := make([]Entry, len(ids))
	var g errgroup.Group
	g.SetLimit(c.restoreConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			d, err := c.catalog.GetProductDetail(ctx, id)
			if err != nil {
				lg.Warn("Restore cart entry", zap.String("sku", id), zap.Int("position", i), zap.Error(err))
				entries[i] = Entry{ProductID: id, Unavailable: true}
				return nil
			}
			entries[i] = Entry{ProductID: id, Title: d.Title, Price: d.Price}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = entries
	total := c.recomputeLocked()

	lg.Info("Cart restored", zap.Int("rows", len(entries)), zap.Stringer("total", total))
	return nil
}

// Refresh re-fetches the detail of the row at position. The result is
// discarded with ErrRowChanged when the row at that position no longer
// carries the same identifier once the fetch completes.
func (c *Controller) Refresh(ctx context.Context, position int) (Entry, error) {
	c.mu.Lock()
	if position < 0 || position >= len(c.entries) {
		c.mu.Unlock()
		return Entry{}, ErrNoSuchRow
	}
	id := c.entries[position].ProductID
	c.mu.Unlock()

	done := c.progress.Start("refresh " + id)
	defer done()

	d, err := c.catalog.GetProductDetail(ctx, id)
	if err != nil {
		return Entry{}, errors.Wrapf(err, "fetch detail %s", id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if position >= len(c.entries) || c.entries[position].ProductID != id {
		return Entry{}, ErrRowChanged
	}
	e := Entry{ProductID: id, Title: d.Title, Price: d.Price}
	c.entries[position] = e
	c.recomputeLocked()
	return e, nil
}

// Snapshot returns a copy of the rows and the displayed total.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		Entries: slices.Clone(c.entries),
		Total:   c.total,
	}
}

// failureReason labels a failed detail fetch for the add_failures counter.
func failureReason(err error) string {
	var (
		netErr   *product.NetworkError
		parseErr *product.ParseError
	)
	switch {
	case errors.As(err, &netErr):
		return "network"
	case errors.As(err, &parseErr):
		return "parse"
	default:
		return "other"
	}
}

type metrics struct {
	added       metric.Int64Counter
	removed     metric.Int64Counter
	cleared     metric.Int64Counter
	addFailures metric.Int64Counter
}

func newMetrics(mp metric.MeterProvider) *metrics {
	meter := mp.Meter("github.com/xenking/storefront/internal/domain/cart")
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			return noop.Int64Counter{}
		}
		return c
	}
	return &metrics{
		added:       counter("storefront.cart.added", "Rows added to the cart"),
		removed:     counter("storefront.cart.removed", "Rows removed from the cart"),
		cleared:     counter("storefront.cart.cleared", "Cart clears"),
		addFailures: counter("storefront.cart.add_failures", "Add to cart attempts that failed to fetch detail"),
	}
}
