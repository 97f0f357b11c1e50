package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/sunflowerpos/sunflower/internal/domain"
	"github.com/sunflowerpos/sunflower/internal/report"
	"github.com/sunflowerpos/sunflower/pkg/common"
)

const (
	pdfLineHeight = 7.0
	pdfFont       = "Helvetica"
)

type pdfDoc struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newPdfDoc() *pdfDoc {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(14, 14, 14)
	pdf.SetAutoPageBreak(true, 14)
	pdf.AddPage()
	return &pdfDoc{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (d *pdfDoc) title(lines ...string) {
	d.pdf.SetFont(pdfFont, "B", 16)
	d.pdf.CellFormat(0, 10, d.tr(lines[0]), "", 1, "L", false, 0, "")
	d.pdf.SetFont(pdfFont, "", 11)
	for _, l := range lines[1:] {
		d.pdf.CellFormat(0, pdfLineHeight, d.tr(l), "", 1, "L", false, 0, "")
	}
	d.pdf.Ln(4)
}

func (d *pdfDoc) header(widths []float64, cols ...string) {
	d.pdf.SetFont(pdfFont, "B", 11)
	d.pdf.SetFillColor(41, 128, 185)
	d.pdf.SetTextColor(255, 255, 255)
	for i, c := range cols {
		ln := 0
		if i == len(cols)-1 {
			ln = 1
		}
		d.pdf.CellFormat(widths[i], pdfLineHeight+1, d.tr(c), "1", ln, "C", true, 0, "")
	}
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.SetFont(pdfFont, "", 10)
}

// WriteOrderListPDF renders the supplier order list for the given products.
// The order column is left blank to be filled by hand.
func WriteOrderListPDF(w io.Writer, products []domain.Product, date string) error {
	d := newPdfDoc()
	d.title("Lista de Pedido a Proveedores", "Fecha: "+date)

	widths := []float64{100, 50, 32}
	d.header(widths, "Producto", "Código", "Pedido (Cant.)")
	for _, p := range products {
		d.pdf.CellFormat(widths[0], pdfLineHeight, d.tr(p.Name), "1", 0, "L", false, 0, "")
		d.pdf.CellFormat(widths[1], pdfLineHeight, d.tr(common.IfEmptyStr(p.Barcode, common.NA)), "1", 0, "L", false, 0, "")
		d.pdf.CellFormat(widths[2], pdfLineHeight, "", "1", 1, "L", false, 0, "")
	}
	return d.pdf.Output(w)
}

// WriteDayReportPDF renders one day of sales with a closing total.
func WriteDayReportPDF(w io.Writer, day report.DaySummary) error {
	d := newPdfDoc()
	d.title("Reporte de Ventas - Fecha: " + day.Date)

	widths := []float64{28, 90, 36, 28}
	d.header(widths, "Horario", "Productos", "Método de pago", "Monto")
	for _, t := range day.Tickets {
		items := make([]string, 0, len(t.Lines))
		for _, l := range t.Lines {
			items = append(items, fmt.Sprintf("%s (x %s %s)", l.Name, l.Qty.String(), l.Measure))
		}
		var lines []string
		for _, item := range items {
			for _, chunk := range d.pdf.SplitText(item, widths[1]-2) {
				lines = append(lines, d.tr(chunk))
			}
		}
		if len(lines) == 0 {
			lines = []string{""}
		}
		h := float64(len(lines)) * pdfLineHeight
		if d.pdf.GetY()+h > 297-14 {
			d.pdf.AddPage()
		}

		method := string(t.Method)
		if method == "" {
			method = string(domain.PaymentCash)
		}
		x, y := d.pdf.GetXY()
		d.pdf.CellFormat(widths[0], h, t.Time, "1", 0, "L", false, 0, "")
		d.pdf.MultiCell(widths[1], pdfLineHeight, strings.Join(lines, "\n"), "1", "L", false)
		d.pdf.SetXY(x+widths[0]+widths[1], y)
		d.pdf.CellFormat(widths[2], h, d.tr(method), "1", 0, "L", false, 0, "")
		d.pdf.CellFormat(widths[3], h, "$"+t.Total.StringFixed(0), "1", 1, "R", false, 0, "")
	}

	d.pdf.Ln(6)
	d.pdf.SetFont(pdfFont, "B", 13)
	d.pdf.CellFormat(0, 10, d.tr("TOTAL DEL DÍA: $"+day.Total.String()), "", 1, "R", false, 0, "")
	return d.pdf.Output(w)
}
