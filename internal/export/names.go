package export

import "time"

const SalesWorkbookName = "reporte_ventas_general.xlsx"

// DateStamp is the local date used in generated file names, e.g. 18-10-2026.
func DateStamp(t time.Time) string {
	return t.Format("2-1-2006")
}

func InventoryWorkbookName(t time.Time) string { return "inventario_" + DateStamp(t) + ".xlsx" }

func InventoryCSVName(t time.Time) string { return "inventario_" + DateStamp(t) + ".csv" }

func OrderListName(t time.Time) string { return "pedido_" + DateStamp(t) + ".pdf" }

func DayReportName(day string) string { return "ventas_" + sanitize(day) + ".pdf" }

func BackupName(t time.Time) string { return "respaldo_" + DateStamp(t) + ".json" }

func sanitize(s string) string {
	out := []rune(s)
	for i, r := range out {
		switch r {
		case '/', '\\', ' ', ':', ',':
			out[i] = '-'
		}
	}
	return string(out)
}
