package catalogstub

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"
)

// Handler serves
//
//	GET /search?q=<query>[&limit=<n>]  {"query":..., "results":[{id,title,thumbnail}]}
//	GET /items/{id}                    {id,title,thumbnail,price}
//
// Unknown items answer 404 with {"message":"item not found"}.
func (c *Catalog) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /search", c.search)
	mux.HandleFunc("GET /items/{id}", c.item)
	return mux
}

func (c *Catalog) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 0 {
		limit = 0
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("query", func(e *jx.Encoder) { e.Str(query) })
		e.Field("results", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range c.Search(query, limit) {
					e.Obj(func(e *jx.Encoder) {
						e.Field("id", func(e *jx.Encoder) { e.Str(it.ID) })
						e.Field("title", func(e *jx.Encoder) { e.Str(it.Title) })
						e.Field("thumbnail", func(e *jx.Encoder) { e.Str(it.Thumbnail) })
					})
				}
			})
		})
	})
	writeJSON(w, http.StatusOK, &e)
}

func (c *Catalog) item(w http.ResponseWriter, r *http.Request) {
	var e jx.Encoder
	it, ok := c.Item(r.PathValue("id"))
	if !ok {
		e.Obj(func(e *jx.Encoder) {
			e.Field("message", func(e *jx.Encoder) { e.Str("item not found") })
		})
		writeJSON(w, http.StatusNotFound, &e)
		return
	}
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(it.ID) })
		e.Field("title", func(e *jx.Encoder) { e.Str(it.Title) })
		e.Field("thumbnail", func(e *jx.Encoder) { e.Str(it.Thumbnail) })
		// Decimal strings are valid JSON numbers; no float round trip.
		e.Field("price", func(e *jx.Encoder) { e.RawStr(it.Price.String()) })
	})
	writeJSON(w, http.StatusOK, &e)
}

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
