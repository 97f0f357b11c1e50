package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Measure is the unit a cart line quantity is expressed in.
type Measure string

const (
	MeasureUnit     Measure = "ud"
	MeasureKilogram Measure = "kg"
	MeasureGram     Measure = "g"
)

func (m Measure) Valid() bool {
	switch m {
	case MeasureUnit, MeasureKilogram, MeasureGram:
		return true
	}
	return false
}

const ManualLinePrefix = "manual-"

var thousand = decimal.NewFromInt(1000)

// CartLine is one row of the sale in progress. Catalog lines carry the
// product id as both ID and ProductID; manual lines have no ProductID.
type CartLine struct {
	ID        ID              `json:"id"`
	ProductID ID              `json:"product_id,omitempty"`
	Name      string          `json:"name"`
	Barcode   string          `json:"barcode,omitempty"`
	Price     int64           `json:"price"`
	Qty       decimal.Decimal `json:"qty"`
	Measure   Measure         `json:"measure"`
}

func (l CartLine) IsManual() bool {
	return l.ProductID == "" || strings.HasPrefix(string(l.ID), ManualLinePrefix)
}

// Subtotal prices gram lines per thousand units. Kilogram lines are priced
// like unit lines.
func (l CartLine) Subtotal() decimal.Decimal {
	price := decimal.NewFromInt(l.Price)
	if l.Measure == MeasureGram {
		return price.Div(thousand).Mul(l.Qty)
	}
	return price.Mul(l.Qty)
}

// Totals of a cart for a given payment method and amount tendered.
type Totals struct {
	Total  decimal.Decimal `json:"total"`
	Change decimal.Decimal `json:"change"`
}

// ComputeTotals is a pure function of its inputs. Change is only computed for
// cash payments with an amount tendered.
func ComputeTotals(lines []CartLine, method PaymentMethod, paid *decimal.Decimal) Totals {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	change := decimal.Zero
	if method == PaymentCash && paid != nil {
		change = paid.Sub(total)
	}
	return Totals{Total: total, Change: change}
}

// CatalogQty sums the quantity already in the cart for a catalog product.
func CatalogQty(lines []CartLine, productID ID) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		if !l.IsManual() && l.ProductID == productID {
			sum = sum.Add(l.Qty)
		}
	}
	return sum
}
