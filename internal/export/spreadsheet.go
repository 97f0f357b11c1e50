package export

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/gocarina/gocsv"
	"github.com/sunflowerpos/sunflower/internal/domain"
	"github.com/sunflowerpos/sunflower/pkg/common"
)

const (
	InventorySheet = "Inventario"
	SalesSheet     = "Ventas_Totales"
	defaultSheet   = "Sheet1"
)

var (
	inventoryHeader = []interface{}{"Nombre", "Codigo", "Stock", "Precio"}
	salesHeader     = []interface{}{"Fecha", "Productos", "Total", "Metodo"}
)

func cellName(col, row int) string {
	return string(rune('A'+col)) + strconv.Itoa(row)
}

func writeRow(f *excelize.File, sheet string, row int, values ...interface{}) {
	for col, v := range values {
		f.SetCellValue(sheet, cellName(col, row), v)
	}
}

func newBook(sheet string) *excelize.File {
	f := excelize.NewFile()
	f.SetSheetName(defaultSheet, sheet)
	return f
}

// WriteInventoryXLSX writes the product list as a workbook.
func WriteInventoryXLSX(w io.Writer, products []domain.Product) error {
	f := newBook(InventorySheet)
	writeRow(f, InventorySheet, 1, inventoryHeader...)
	for i, p := range products {
		writeRow(f, InventorySheet, i+2, p.Name, common.IfEmptyStr(p.Barcode, common.NA), p.Quantity, p.Price)
	}
	return f.Write(w)
}

// SaleProducts renders the lines of a sale as "name (qty measure)".
func SaleProducts(s domain.Sale, sep string) string {
	parts := make([]string, 0, len(s.Products))
	for _, l := range s.Products {
		measure := string(l.Measure)
		if measure == "" {
			measure = "un"
		}
		parts = append(parts, fmt.Sprintf("%s (%s%s)", l.Name, l.Qty.String(), measure))
	}
	return strings.Join(parts, sep)
}

// WriteSalesXLSX writes every sale as one row.
func WriteSalesXLSX(w io.Writer, sales []domain.Sale) error {
	f := newBook(SalesSheet)
	writeRow(f, SalesSheet, 1, salesHeader...)
	for i, s := range sales {
		method := string(s.Method)
		if method == "" {
			method = "No especificado"
		}
		writeRow(f, SalesSheet, i+2, s.Date, SaleProducts(s, ", "), s.Total.InexactFloat64(), method)
	}
	return f.Write(w)
}

// ReadXLSXRecords reads the first sheet; the first row is the header.
func ReadXLSXRecords(r io.Reader) ([]map[string]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable workbook: %v", domain.ErrInvalidInput, err)
	}
	sheets := f.GetSheetMap()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", domain.ErrInvalidInput)
	}
	indexes := make([]int, 0, len(sheets))
	for idx := range sheets {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	rows := f.GetRows(sheets[indexes[0]])
	if len(rows) == 0 {
		return nil, nil
	}
	header := rows[0]
	records := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(map[string]string, len(header))
		for col, name := range header {
			if name == "" {
				continue
			}
			if col < len(row) {
				record[name] = row[col]
			}
		}
		records = append(records, record)
	}
	return records, nil
}

type inventoryCSVRow struct {
	Nombre string `csv:"Nombre"`
	Codigo string `csv:"Codigo"`
	Stock  int    `csv:"Stock"`
	Precio int64  `csv:"Precio"`
}

// WriteInventoryCSV writes the product list with the workbook columns.
func WriteInventoryCSV(w io.Writer, products []domain.Product) error {
	rows := make([]*inventoryCSVRow, 0, len(products))
	for _, p := range products {
		rows = append(rows, &inventoryCSVRow{
			Nombre: p.Name,
			Codigo: common.IfEmptyStr(p.Barcode, common.NA),
			Stock:  p.Quantity,
			Precio: p.Price,
		})
	}
	return gocsv.Marshal(rows, w)
}

func ReadCSVRecords(r io.Reader) ([]map[string]string, error) {
	records, err := gocsv.CSVToMaps(r)
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable csv: %v", domain.ErrInvalidInput, err)
	}
	return records, nil
}

// ImportProducts parses an .xlsx or .csv upload into products.
func ImportProducts(r io.Reader, filename string, now time.Time) ([]domain.Product, error) {
	var (
		records []map[string]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		records, err = ReadCSVRecords(r)
	case ".xlsx", ".xls", "":
		records, err = ReadXLSXRecords(r)
	default:
		return nil, fmt.Errorf("%w: unsupported file type %s", domain.ErrInvalidInput, filename)
	}
	if err != nil {
		return nil, err
	}
	return ParseProducts(records, now)
}
