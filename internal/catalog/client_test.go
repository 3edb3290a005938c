package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/product"
)

// --- Helpers ---

func newCatalogServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, body := range routes {
		mux.HandleFunc(pattern, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(ClientConfig{
		SearchURL: srv.URL + "/search",
		ItemsURL:  srv.URL + "/items",
	}, srv.Client())
}

// --- Tests ---

func TestListProducts(t *testing.T) {
	var gotQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /search", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(`{
			"site_id": "MLB",
			"paging": {"total": 2},
			"results": [
				{"id": "101", "title": "Laptop", "thumbnail": "x.jpg", "price": 999.9},
				{"id": 202, "title": "Mouse", "thumbnail": null, "tags": ["a", "b"]}
			]
		}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	products, err := newTestClient(srv).ListProducts(context.Background(), "computador")
	require.NoError(t, err)
	assert.Equal(t, "computador", gotQuery)
	assert.Equal(t, []product.Product{
		{ID: "101", Title: "Laptop", ThumbnailURL: "x.jpg"},
		{ID: "202", Title: "Mouse"},
	}, products)
}

func TestListProducts_EmptyResults(t *testing.T) {
	srv := newCatalogServer(t, map[string]string{"GET /search": `{"results": []}`})

	products, err := newTestClient(srv).ListProducts(context.Background(), "x")
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestListProducts_ParseErrors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{name: "malformed json", body: `{"results": [`},
		{name: "missing results", body: `{"paging": {}}`, wantField: "results"},
		{name: "missing id", body: `{"results": [{"title": "Laptop"}]}`, wantField: "id"},
		{name: "missing title", body: `{"results": [{"id": "1"}]}`, wantField: "title"},
		{name: "title not a string", body: `{"results": [{"id": "1", "title": 5}]}`, wantField: "title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newCatalogServer(t, map[string]string{"GET /search": tt.body})

			_, err := newTestClient(srv).ListProducts(context.Background(), "x")

			var pe *product.ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, "list products", pe.Op)
			if tt.wantField != "" {
				assert.Equal(t, tt.wantField, pe.Field)
			}
		})
	}
}

func TestGetProductDetail(t *testing.T) {
	var gotPath string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /items/{id}", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"id": "101", "title": "Laptop", "price": 999.90, "currency_id": "BRL"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	d, err := newTestClient(srv).GetProductDetail(context.Background(), "101")
	require.NoError(t, err)
	assert.Equal(t, "/items/101", gotPath)
	assert.Equal(t, "101", d.ID)
	assert.Equal(t, "Laptop", d.Title)
	assert.True(t, decimal.RequireFromString("999.9").Equal(d.Price))
	assert.Equal(t, "999.9", d.Price.String())
}

func TestGetProductDetail_IDIsOneSegment(t *testing.T) {
	tests := []struct {
		id       string
		wantPath string
	}{
		{id: "../sites/MLB/search", wantPath: "/items/..%2Fsites%2FMLB%2Fsearch"},
		{id: "a b?c#d", wantPath: "/items/a%20b%3Fc%23d"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			var gotPath string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.EscapedPath()
				_, _ = w.Write([]byte(`{"id": "x", "title": "T", "price": 1}`))
			}))
			defer srv.Close()

			_, err := newTestClient(srv).GetProductDetail(context.Background(), tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, gotPath)
		})
	}
}

func TestGetProductDetail_DotSegments(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { calls++ }))
	defer srv.Close()

	for _, id := range []string{".", ".."} {
		_, err := newTestClient(srv).GetProductDetail(context.Background(), id)
		require.ErrorIs(t, err, product.ErrInvalidID)
	}
	assert.Zero(t, calls)
}

func TestGetProductDetail_StringPrice(t *testing.T) {
	srv := newCatalogServer(t, map[string]string{
		"GET /items/{id}": `{"id": 7, "title": "Cable", "price": "12.50"}`,
	})

	d, err := newTestClient(srv).GetProductDetail(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "7", d.ID)
	assert.True(t, decimal.RequireFromString("12.5").Equal(d.Price))
}

func TestGetProductDetail_ParseErrors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{name: "missing price", body: `{"id": "1", "title": "Laptop"}`, wantField: "price"},
		{name: "null price", body: `{"id": "1", "title": "Laptop", "price": null}`, wantField: "price"},
		{name: "bad price", body: `{"id": "1", "title": "Laptop", "price": "abc"}`, wantField: "price"},
		{name: "missing id", body: `{"title": "Laptop", "price": 1}`, wantField: "id"},
		{name: "not an object", body: `[1, 2]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newCatalogServer(t, map[string]string{"GET /items/{id}": tt.body})

			_, err := newTestClient(srv).GetProductDetail(context.Background(), "1")

			var pe *product.ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, "get product detail", pe.Op)
			if tt.wantField != "" {
				assert.Equal(t, tt.wantField, pe.Field)
			}
		})
	}
}

func TestGetProductDetail_StatusError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"item not found"}`, http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := newTestClient(srv).GetProductDetail(context.Background(), "missing")

	var ne *product.NetworkError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, http.StatusNotFound, ne.Status)
}

func TestGetProductDetail_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := newTestClient(srv)
	srv.Close()

	_, err := c.GetProductDetail(context.Background(), "1")

	var ne *product.NetworkError
	require.ErrorAs(t, err, &ne)
	assert.Error(t, ne.Unwrap())
}

func TestListProducts_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	hc := srv.Client()
	hc.Timeout = 50 * time.Millisecond
	c := NewClient(ClientConfig{SearchURL: srv.URL + "/search", ItemsURL: srv.URL + "/items"}, hc)

	_, err := c.ListProducts(context.Background(), "x")

	var ne *product.NetworkError
	require.ErrorAs(t, err, &ne)
}
