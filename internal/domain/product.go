package domain

import (
	"math"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// ID is an opaque record identifier. Numeric JSON values written by older
// exports are accepted and kept in their decimal text form.
type ID string

func (id ID) String() string {
	return string(id)
}

func (id *ID) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := jsoniter.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n jsoniter.Number
	if err := jsoniter.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// Product is a catalog item. Quantity is the stock on hand.
type Product struct {
	ID       ID     `json:"id"`
	Name     string `json:"name"`
	Barcode  string `json:"barcode"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
}

// SameIdentity reports whether p clashes with the given barcode or name
// (case-insensitive).
func (p Product) SameIdentity(barcode, name string) bool {
	if barcode != "" && p.Barcode == strings.TrimSpace(barcode) {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(p.Name), strings.TrimSpace(name))
}

// RoundPrice rounds a price to the nearest integer, clamping negatives to 0.
func RoundPrice(v float64) int64 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	return int64(math.Round(v))
}
