// Package handler exposes the storefront UI surface over HTTP: the page, and
// one form route per interaction trigger.
package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/render"
	"github.com/xenking/storefront/internal/storefront"
)

// Handler serves the storefront page and its interaction triggers.
type Handler struct {
	sf *storefront.Storefront
}

// NewHandler constructs a Handler for sf.
func NewHandler(sf *storefront.Storefront) *Handler {
	return &Handler{sf: sf}
}

// Register binds every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Page)
	mux.HandleFunc("POST "+render.AddPath, h.AddToCart)
	mux.HandleFunc("POST /cart/items/{pos}/remove", h.RemoveFromCart)
	mux.HandleFunc("POST /cart/items/{pos}/refresh", h.RefreshRow)
	mux.HandleFunc("POST "+render.ClearPath, h.ClearCart)
	mux.HandleFunc("POST "+render.ReloadProductsPath, h.ReloadProducts)
}

// Page renders the full storefront.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	h.writePage(w, r, http.StatusOK)
}

// AddToCart adds the product named by the sku form field.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	sku := r.FormValue("sku")
	if _, err := h.sf.Cart().AddToCart(r.Context(), sku); err != nil {
		h.fail(w, r, err, render.RetryAdd(sku))
		return
	}
	redirectHome(w, r)
}

// RemoveFromCart removes the row at the {pos} path position.
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	pos, ok := h.position(w, r)
	if !ok {
		return
	}
	if err := h.sf.Cart().RemoveFromCart(r.Context(), pos); err != nil {
		h.fail(w, r, err, nil)
		return
	}
	redirectHome(w, r)
}

// RefreshRow re-fetches the detail of the row at the {pos} path position.
func (h *Handler) RefreshRow(w http.ResponseWriter, r *http.Request) {
	pos, ok := h.position(w, r)
	if !ok {
		return
	}
	if _, err := h.sf.Cart().Refresh(r.Context(), pos); err != nil {
		h.fail(w, r, err, render.RetryPost(render.RefreshPath(pos)))
		return
	}
	redirectHome(w, r)
}

// ClearCart empties the cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.sf.Cart().Clear(r.Context()); err != nil {
		h.fail(w, r, err, render.RetryPost(render.ClearPath))
		return
	}
	redirectHome(w, r)
}

// ReloadProducts re-issues the catalog search. A failure is already reflected
// by the listing notice, so the page is rendered with a 502.
func (h *Handler) ReloadProducts(w http.ResponseWriter, r *http.Request) {
	if err := h.sf.ReloadProducts(r.Context()); err != nil {
		zctx.From(r.Context()).Warn("Reload products failed", zap.Error(err))
		h.writePage(w, r, http.StatusBadGateway)
		return
	}
	redirectHome(w, r)
}

func (h *Handler) position(w http.ResponseWriter, r *http.Request) (int, bool) {
	pos, err := strconv.Atoi(r.PathValue("pos"))
	if err != nil || pos < 0 {
		h.writePage(w, r, http.StatusBadRequest, render.Notice{Message: "Invalid cart position."})
		return 0, false
	}
	return pos, true
}

// fail renders the page with a notice describing err. retry, when set, is
// offered as the notice's retry trigger.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, retry *render.Action) {
	status, msg := mapError(err)
	lg := zctx.From(r.Context())
	if status >= http.StatusInternalServerError {
		lg.Warn("Cart action failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		lg.Debug("Cart action rejected", zap.String("path", r.URL.Path), zap.Error(err))
	}

	n := render.Notice{Message: msg}
	if status >= http.StatusInternalServerError {
		n.Retry = retry
	}
	h.writePage(w, r, status, n)
}

// mapError converts domain errors to an HTTP status and a user-facing message.
func mapError(err error) (int, string) {
	var (
		netErr   *product.NetworkError
		parseErr *product.ParseError
		storeErr *cart.StorageError
	)
	switch {
	case errors.Is(err, cart.ErrEmptyProductID):
		return http.StatusBadRequest, "No product selected."
	case errors.Is(err, product.ErrInvalidID):
		return http.StatusBadRequest, "That product id is not valid."
	case errors.Is(err, cart.ErrNoSuchRow):
		return http.StatusNotFound, "That cart row no longer exists."
	case errors.Is(err, cart.ErrRowChanged):
		return http.StatusConflict, "The cart changed while the item was loading."
	case errors.As(err, &netErr):
		if netErr.Status == http.StatusNotFound {
			return http.StatusBadGateway, "The catalog does not know this product."
		}
		return http.StatusBadGateway, "The catalog could not be reached."
	case errors.As(err, &parseErr):
		return http.StatusBadGateway, "The catalog sent an unexpected response."
	case errors.As(err, &storeErr):
		return http.StatusInternalServerError, "The cart could not be saved."
	default:
		return http.StatusInternalServerError, "Something went wrong."
	}
}

func (h *Handler) writePage(w http.ResponseWriter, r *http.Request, status int, notices ...render.Notice) {
	data := h.sf.PageData(notices...)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	// The status is already written; a failure here means the client went away.
	if err := render.WriteDocument(w, data.Title, render.Page(data)); err != nil {
		zctx.From(r.Context()).Debug("Write page", zap.Error(err))
	}
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
