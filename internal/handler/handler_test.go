package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/render"
	"github.com/xenking/storefront/internal/storage/memory"
	"github.com/xenking/storefront/internal/storefront"
)

// --- Mock implementations ---

type mockCatalog struct {
	mu        sync.Mutex
	products  []product.Product
	details   map[string]product.Detail
	detailErr error
}

func (m *mockCatalog) ListProducts(_ context.Context, _ string) ([]product.Product, error) {
	return m.products, nil
}

func (m *mockCatalog) GetProductDetail(_ context.Context, id string) (*product.Detail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.detailErr != nil {
		return nil, m.detailErr
	}
	d, ok := m.details[id]
	if !ok {
		return nil, &product.NetworkError{Op: "get product detail", Status: http.StatusNotFound}
	}
	return &d, nil
}

type failingStore struct {
	*memory.SlotStore
	err error
}

func (s *failingStore) Append(ctx context.Context, id string) error {
	if s.err != nil {
		return s.err
	}
	return s.SlotStore.Append(ctx, id)
}

// --- Helpers ---

type fixture struct {
	catalog *mockCatalog
	store   cart.Store
	server  http.Handler
}

func newFixture(t *testing.T, store cart.Store) *fixture {
	t.Helper()
	if store == nil {
		store = memory.NewSlotStore()
	}
	catalog := &mockCatalog{
		products: []product.Product{{ID: "101", Title: "Laptop", ThumbnailURL: "x.jpg"}},
		details: map[string]product.Detail{
			"101": {ID: "101", Title: "Laptop", Price: decimal.RequireFromString("999.90")},
			"202": {ID: "202", Title: "Mouse", Price: decimal.RequireFromString("25")},
		},
	}
	loading := render.NewIndicator()
	controller := cart.NewController(cart.ControllerConfig{Progress: loading}, catalog, store)
	sf := storefront.New(storefront.Config{Title: "Shop", Query: "computador"}, catalog, controller, loading)
	require.NoError(t, sf.Bootstrap(context.Background()))

	mux := http.NewServeMux()
	NewHandler(sf).Register(mux)
	return &fixture{catalog: catalog, store: store, server: mux}
}

func (f *fixture) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	f.server.ServeHTTP(w, req)
	return w
}

func (f *fixture) add(t *testing.T, sku string) {
	t.Helper()
	w := f.do(http.MethodPost, "/cart/items", url.Values{"sku": {sku}})
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
}

func (f *fixture) storedIDs(t *testing.T) []string {
	t.Helper()
	ids, err := f.store.Load(context.Background())
	require.NoError(t, err)
	return ids
}

// --- Tests ---

func TestPage(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodGet, "/", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, `<span class="item__sku">101</span>`)
	assert.Contains(t, body, `<span class="total-price">0</span>`)
	assert.Contains(t, body, `action="/cart/clear"`)
}

func TestUnknownPath(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddToCart(t *testing.T) {
	f := newFixture(t, nil)

	f.add(t, "101")

	body := f.do(http.MethodGet, "/", nil).Body.String()
	assert.Contains(t, body, "SKU: 101 | NAME: Laptop | PRICE: $999.9")
	assert.Contains(t, body, `<span class="total-price">999.9</span>`)
	assert.Equal(t, []string{"101"}, f.storedIDs(t))
}

func TestAddToCart_CatalogFailureOffersRetry(t *testing.T) {
	f := newFixture(t, nil)
	f.catalog.detailErr = &product.NetworkError{Op: "get product detail", Err: errors.New("timeout")}

	w := f.do(http.MethodPost, "/cart/items", url.Values{"sku": {"101"}})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "The catalog could not be reached.")
	assert.Contains(t, body, `<button type="submit" class="notice__retry">`)
	assert.Contains(t, body, `name="sku" value="101"`)
	assert.NotContains(t, body, `class="loading"`)
	assert.Empty(t, f.storedIDs(t))
}

func TestAddToCart_MissingSKU(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPost, "/cart/items", url.Values{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "No product selected.")
}

func TestAddToCart_StorageFailure(t *testing.T) {
	store := &failingStore{
		SlotStore: memory.NewSlotStore(),
		err:       &cart.StorageError{Op: "write", Key: "cartItems", Err: errors.New("disk full")},
	}
	f := newFixture(t, store)

	w := f.do(http.MethodPost, "/cart/items", url.Values{"sku": {"101"}})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "The cart could not be saved.")
	assert.NotContains(t, w.Body.String(), `class="cart__item"`)
}

func TestRemoveFromCart(t *testing.T) {
	f := newFixture(t, nil)
	f.add(t, "101")
	f.add(t, "202")
	f.add(t, "101")

	w := f.do(http.MethodPost, "/cart/items/0/remove", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)

	assert.Equal(t, []string{"202", "101"}, f.storedIDs(t))
	body := f.do(http.MethodGet, "/", nil).Body.String()
	assert.Contains(t, body, `<span class="total-price">1024.9</span>`)
}

func TestRemoveFromCart_BadPosition(t *testing.T) {
	f := newFixture(t, nil)
	f.add(t, "101")

	w := f.do(http.MethodPost, "/cart/items/abc/remove", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/cart/items/5/remove", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, []string{"101"}, f.storedIDs(t))
}

func TestRefreshRow(t *testing.T) {
	store := memory.NewSlotStore("303")
	f := newFixture(t, store)

	body := f.do(http.MethodGet, "/", nil).Body.String()
	assert.Contains(t, body, "SKU: 303 | unavailable")
	assert.Contains(t, body, `action="/cart/items/0/refresh"`)

	f.catalog.mu.Lock()
	f.catalog.details["303"] = product.Detail{ID: "303", Title: "Cable", Price: decimal.RequireFromString("9.99")}
	f.catalog.mu.Unlock()

	w := f.do(http.MethodPost, "/cart/items/0/refresh", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)

	body = f.do(http.MethodGet, "/", nil).Body.String()
	assert.Contains(t, body, "SKU: 303 | NAME: Cable | PRICE: $9.99")
}

func TestClearCart(t *testing.T) {
	f := newFixture(t, nil)
	f.add(t, "101")
	f.add(t, "202")

	w := f.do(http.MethodPost, "/cart/clear", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)

	assert.Empty(t, f.storedIDs(t))
	body := f.do(http.MethodGet, "/", nil).Body.String()
	assert.Contains(t, body, `<span class="total-price">0</span>`)
	assert.NotContains(t, body, `class="cart__item"`)
}

func TestReloadProducts(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPost, "/products/reload", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: cart.ErrEmptyProductID, want: http.StatusBadRequest},
		{err: errors.Wrap(product.ErrInvalidID, "get product detail"), want: http.StatusBadRequest},
		{err: errors.Wrap(cart.ErrNoSuchRow, "remove"), want: http.StatusNotFound},
		{err: cart.ErrRowChanged, want: http.StatusConflict},
		{err: &product.NetworkError{Status: 500}, want: http.StatusBadGateway},
		{err: errors.Wrap(&product.ParseError{Field: "price"}, "fetch"), want: http.StatusBadGateway},
		{err: &cart.StorageError{Op: "write", Err: errors.New("x")}, want: http.StatusInternalServerError},
		{err: errors.New("other"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		got, msg := mapError(tt.err)
		assert.Equal(t, tt.want, got, tt.err.Error())
		assert.NotEmpty(t, msg)
	}
}
