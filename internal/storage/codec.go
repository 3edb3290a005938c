// Package storage holds the encoding shared by the cart slot stores: a slot
// value is a JSON array of identifier strings.
package storage

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// EncodeIDs encodes ids as a JSON array of strings. A nil slice encodes as [].
func EncodeIDs(ids []string) []byte {
	var e jx.Encoder
	e.ArrStart()
	for _, id := range ids {
		e.Str(id)
	}
	e.ArrEnd()
	return e.Bytes()
}

// DecodeIDs decodes a JSON array of identifiers. Numbers are accepted and kept
// in their textual form; any other element type is an error.
func DecodeIDs(data []byte) ([]string, error) {
	ids := []string{}
	d := jx.DecodeBytes(data)
	if err := d.Arr(func(d *jx.Decoder) error {
		switch tt := d.Next(); tt {
		case jx.String:
			s, err := d.Str()
			if err != nil {
				return err
			}
			ids = append(ids, s)
		case jx.Number:
			n, err := d.Num()
			if err != nil {
				return err
			}
			ids = append(ids, n.String())
		default:
			return errors.Errorf("unexpected %s in slot", tt)
		}
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode slot")
	}
	return ids, nil
}
