package catalog

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/product"
)

// decodeSearch decodes {"results":[{id,title,thumbnail}, ...]}. Unknown fields
// are skipped; a missing results field is a parse error, an empty or null one
// is an empty listing.
func decodeSearch(data []byte) ([]product.Product, error) {
	var (
		products []product.Product
		found    bool
	)
	d := jx.DecodeBytes(data)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "results" {
			return d.Skip()
		}
		found = true
		if d.Next() == jx.Null {
			return d.Null()
		}
		return d.Arr(func(d *jx.Decoder) error {
			p, err := decodeProduct(d)
			if err != nil {
				return err
			}
			products = append(products, p)
			return nil
		})
	}); err != nil {
		return nil, err
	}
	if !found {
		return nil, &product.ParseError{Field: "results"}
	}
	if products == nil {
		products = []product.Product{}
	}
	return products, nil
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	var (
		p        product.Product
		hasTitle bool
	)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			p.ID, err = decodeID(d)
		case "title":
			p.Title, err = d.Str()
			hasTitle = true
		case "thumbnail":
			p.ThumbnailURL, err = decodeOptionalStr(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return &product.ParseError{Field: string(key), Err: err}
		}
		return nil
	}); err != nil {
		return p, err
	}

	switch {
	case p.ID == "":
		return p, &product.ParseError{Field: "id"}
	case !hasTitle:
		return p, &product.ParseError{Field: "title"}
	}
	return p, nil
}

// decodeDetail decodes {id,title,price}; all three are required.
func decodeDetail(data []byte) (*product.Detail, error) {
	var (
		det      product.Detail
		hasTitle bool
		hasPrice bool
	)
	d := jx.DecodeBytes(data)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			det.ID, err = decodeID(d)
		case "title":
			det.Title, err = d.Str()
			hasTitle = true
		case "price":
			det.Price, err = decodePrice(d)
			hasPrice = true
		default:
			return d.Skip()
		}
		if err != nil {
			return &product.ParseError{Field: string(key), Err: err}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	switch {
	case det.ID == "":
		return nil, &product.ParseError{Field: "id"}
	case !hasTitle:
		return nil, &product.ParseError{Field: "title"}
	case !hasPrice:
		return nil, &product.ParseError{Field: "price"}
	}
	return &det, nil
}

// decodeID accepts identifiers encoded either as strings or as numbers.
func decodeID(d *jx.Decoder) (string, error) {
	switch tt := d.Next(); tt {
	case jx.String:
		return d.Str()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		return n.String(), nil
	default:
		return "", errors.Errorf("unexpected %s", tt)
	}
}

func decodeOptionalStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

// decodePrice keeps the literal digits of the price so no float rounding is
// introduced; quoted decimal strings are accepted as well.
func decodePrice(d *jx.Decoder) (decimal.Decimal, error) {
	var raw string
	switch tt := d.Next(); tt {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		raw = n.String()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		raw = s
	default:
		return decimal.Zero, errors.Errorf("unexpected %s", tt)
	}
	return decimal.NewFromString(raw)
}
