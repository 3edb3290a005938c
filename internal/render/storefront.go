package render

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/product"
)

// Routes the interaction triggers post to.
const (
	AddPath            = "/cart/items"
	ClearPath          = "/cart/clear"
	ReloadProductsPath = "/products/reload"
)

// RemovePath is the route removing the cart row at position.
func RemovePath(position int) string {
	return "/cart/items/" + strconv.Itoa(position) + "/remove"
}

// RefreshPath is the route re-fetching the detail of the cart row at position.
func RefreshPath(position int) string {
	return "/cart/items/" + strconv.Itoa(position) + "/refresh"
}

// ProductCard builds the listing card of p with its add to cart trigger.
func ProductCard(p product.Product) *Element {
	img := &Element{
		Tag:   "img",
		Class: "item__image",
		Attrs: []Attr{{Name: "src", Value: p.ThumbnailURL}, {Name: "alt", Value: p.Title}},
	}
	return el("section", "item", "",
		el("span", "item__sku", p.ID),
		el("span", "item__title", p.Title),
		img,
		button("item__add", "Add to cart!", post(AddPath, Attr{Name: "sku", Value: p.ID})),
	)
}

// ProductList builds the listing area.
func ProductList(products []product.Product) *Element {
	list := el("section", "items", "")
	for _, p := range products {
		list.Children = append(list.Children, ProductCard(p))
	}
	return list
}

// CartRowText is the text a cart row reads.
func CartRowText(e cart.Entry) string {
	if e.Unavailable {
		return fmt.Sprintf("SKU: %s | unavailable", e.ProductID)
	}
	return fmt.Sprintf("SKU: %s | NAME: %s | PRICE: $%s", e.ProductID, e.Title, e.Price.String())
}

// CartRow builds the row at position with its remove trigger. Rows whose
// detail could not be fetched also carry a retry trigger.
func CartRow(position int, e cart.Entry) *Element {
	row := el("li", "cart__item", CartRowText(e))
	row.Attrs = []Attr{
		{Name: "data-sku", Value: e.ProductID},
		{Name: "data-position", Value: strconv.Itoa(position)},
	}
	if e.Unavailable {
		row.Children = append(row.Children, button("cart__retry", "Retry", post(RefreshPath(position))))
	}
	row.Children = append(row.Children, button("cart__remove", "Remove", post(RemovePath(position))))
	return row
}

// CartList builds the cart listing area, one row per entry in order.
func CartList(entries []cart.Entry) *Element {
	list := el("ol", "cart__items", "")
	for i, e := range entries {
		list.Children = append(list.Children, CartRow(i, e))
	}
	return list
}

// Total builds the running total display.
func Total(total decimal.Decimal) *Element {
	return el("span", "total-price", total.String())
}

// LoadingIndicator builds the placeholder shown while requests are in flight.
func LoadingIndicator() *Element {
	return el("span", "loading", "loading...")
}

// Notice is a user-visible error with an optional retry trigger.
type Notice struct {
	Message    string
	RetryLabel string
	Retry      *Action
}

// NoticeBox builds the notice element.
func NoticeBox(n Notice) *Element {
	box := el("div", "notice", "", el("span", "notice__message", n.Message))
	if n.Retry != nil {
		label := n.RetryLabel
		if label == "" {
			label = "Try again"
		}
		box.Children = append(box.Children, button("notice__retry", label, n.Retry))
	}
	return box
}

// RetryAdd is the action retrying an add to cart of sku.
func RetryAdd(sku string) *Action {
	return post(AddPath, Attr{Name: "sku", Value: sku})
}

// RetryPost is a retry action posting to path.
func RetryPost(path string) *Action {
	return post(path)
}

// PageData is everything a page render needs.
type PageData struct {
	Title    string
	Products []product.Product
	Cart     cart.View
	Loading  bool
	Notices  []Notice
}

// Page builds the storefront body: notices, the product listing, the cart with
// its total and clear trigger, and the loading indicator while work is in
// flight.
func Page(d PageData) *Element {
	body := el("main", "container", "")
	for _, n := range d.Notices {
		body.Children = append(body.Children, NoticeBox(n))
	}
	if d.Loading {
		body.Children = append(body.Children, LoadingIndicator())
	}
	body.Children = append(body.Children,
		ProductList(d.Products),
		el("section", "cart", "",
			el("span", "cart__title", "Cart"),
			CartList(d.Cart.Entries),
			el("p", "total", "Total: ", Total(d.Cart.Total)),
			button("empty-cart", "Clear cart", post(ClearPath)),
		),
	)
	return body
}
