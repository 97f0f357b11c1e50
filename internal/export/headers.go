package export

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
	"github.com/sunflowerpos/sunflower/internal/domain"
	"github.com/sunflowerpos/sunflower/pkg/common"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const DefaultProductName = "Sin nombre"

// fieldAliases lists, per product field, the accepted headers in priority order.
var fieldAliases = map[string][]string{
	"name":     {"nombre", "producto", "name"},
	"barcode":  {"codigo", "barcode"},
	"quantity": {"stock", "cantidad"},
	"price":    {"precio", "price"},
}

// NormalizeHeader lower-cases h, strips accents and trims it.
func NormalizeHeader(h string) string {
	lower := strings.ToLower(h)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, lower)
	if err != nil {
		s = lower
	}
	return strings.TrimSpace(s)
}

// NormalizeRecord rekeys a row by normalized header. The first non-empty
// value wins when two headers normalize to the same key.
func NormalizeRecord(record map[string]string) map[string]string {
	out := make(map[string]string, len(record))
	for k, v := range record {
		key := NormalizeHeader(k)
		if existing, ok := out[key]; ok && strings.TrimSpace(existing) != "" {
			continue
		}
		out[key] = strings.TrimSpace(v)
	}
	return out
}

type importRow struct {
	Name     string `mapstructure:"name"`
	Barcode  string `mapstructure:"barcode"`
	Quantity string `mapstructure:"quantity"`
	Price    string `mapstructure:"price"`
}

func resolveFields(record map[string]string) map[string]interface{} {
	fields := map[string]interface{}{}
	for field, aliases := range fieldAliases {
		for _, alias := range aliases {
			if v := record[alias]; v != "" {
				fields[field] = v
				break
			}
		}
	}
	return fields
}

func blank(record map[string]string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ParseProducts turns normalized rows into products without ids. Missing
// names become "Sin nombre" and missing barcodes are generated from now.
func ParseProducts(records []map[string]string, now time.Time) ([]domain.Product, error) {
	products := make([]domain.Product, 0, len(records))
	stamp := now.UnixMilli()
	for i, record := range records {
		if blank(record) {
			continue
		}
		var row importRow
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &row,
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(resolveFields(NormalizeRecord(record))); err != nil {
			return nil, err
		}

		p := domain.Product{
			Name:     row.Name,
			Barcode:  row.Barcode,
			Quantity: int(cast.ToFloat64(row.Quantity)),
			Price:    domain.RoundPrice(cast.ToFloat64(row.Price)),
		}
		if p.Name == "" {
			p.Name = DefaultProductName
		}
		if common.IsEmptyOrNA(p.Barcode) {
			p.Barcode = strconv.FormatInt(stamp+int64(i), 10)
		}
		if p.Quantity < 0 {
			p.Quantity = 0
		}
		products = append(products, p)
	}
	return products, nil
}
