// Package catalogstub is an in-process stand-in for the remote product
// catalog. It serves the same search and item detail shapes the catalog
// client decodes, from JSON array files or gzip-compressed JSON-lines files.
package catalogstub

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Item is one catalog product with its price.
type Item struct {
	ID        string
	Title     string
	Thumbnail string
	Price     decimal.Decimal
}

// Catalog is an immutable, ordered set of items.
type Catalog struct {
	items []Item
	byID  map[string]int
}

// New builds a Catalog. When an id repeats, the first item wins.
func New(items []Item) *Catalog {
	c := &Catalog{byID: make(map[string]int, len(items))}
	for _, it := range items {
		if _, dup := c.byID[it.ID]; dup {
			continue
		}
		c.byID[it.ID] = len(c.items)
		c.items = append(c.items, it)
	}
	return c
}

// Len returns the number of distinct items.
func (c *Catalog) Len() int {
	return len(c.items)
}

// Item returns the item with id.
func (c *Catalog) Item(id string) (Item, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Item{}, false
	}
	return c.items[i], true
}

// Search returns the items whose title contains query, case-insensitively, in
// catalog order. An empty query matches everything.
func (c *Catalog) Search(query string, limit int) []Item {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []Item
	for _, it := range c.items {
		if limit > 0 && len(out) == limit {
			break
		}
		if q == "" || strings.Contains(strings.ToLower(it.Title), q) {
			out = append(out, it)
		}
	}
	return out
}

// Load reads every file concurrently and merges them in argument order. Files
// ending in .gz are gzip-compressed JSON lines, one item per line; anything
// else is a JSON array of items.
func Load(ctx context.Context, paths ...string) (*Catalog, error) {
	parts := make([][]Item, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			items, err := loadFile(ctx, path)
			if err != nil {
				return errors.Wrapf(err, "load %s", path)
			}
			parts[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Item
	for _, p := range parts {
		all = append(all, p...)
	}
	return New(all), nil
}

func loadFile(ctx context.Context, path string) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	if !strings.HasSuffix(path, ".gz") {
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, errors.Wrap(err, "read")
		}
		return decodeArray(data)
	}

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "create gzip reader")
	}
	defer func() { _ = gz.Close() }()
	return decodeLines(ctx, gz)
}

func decodeArray(data []byte) ([]Item, error) {
	var items []Item
	if err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		it, err := decodeItem(d)
		if err != nil {
			return errors.Wrapf(err, "item %d", len(items))
		}
		items = append(items, it)
		return nil
	}); err != nil {
		return nil, err
	}
	return items, nil
}

func decodeLines(ctx context.Context, r io.Reader) ([]Item, error) {
	var (
		items []Item
		line  int
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw := scanner.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		it, err := decodeItem(jx.DecodeBytes(raw))
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		items = append(items, it)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan")
	}
	return items, nil
}

// decodeItem reads {id,title,thumbnail,price}. id and price may be strings or
// numbers; id, title and price are required.
func decodeItem(d *jx.Decoder) (Item, error) {
	var (
		it       Item
		hasPrice bool
	)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "id":
			raw, err := scalar(d)
			it.ID = raw
			return err
		case "title":
			s, err := d.Str()
			it.Title = s
			return err
		case "thumbnail":
			if d.Next() == jx.Null {
				return d.Null()
			}
			s, err := d.Str()
			it.Thumbnail = s
			return err
		case "price":
			raw, err := scalar(d)
			if err != nil {
				return err
			}
			it.Price, err = decimal.NewFromString(raw)
			hasPrice = true
			return errors.Wrap(err, "price")
		default:
			return d.Skip()
		}
	}); err != nil {
		return it, err
	}
	switch {
	case it.ID == "":
		return it, errors.New("missing id")
	case it.Title == "":
		return it, errors.New("missing title")
	case !hasPrice:
		return it, errors.New("missing price")
	}
	return it, nil
}

func scalar(d *jx.Decoder) (string, error) {
	switch tt := d.Next(); tt {
	case jx.String:
		return d.Str()
	case jx.Number:
		n, err := d.Num()
		return n.String(), err
	default:
		return "", errors.Errorf("unexpected %s", tt)
	}
}
