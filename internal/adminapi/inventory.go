package adminapi

import (
	"bytes"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sunflowerpos/sunflower/internal/domain"
	"github.com/sunflowerpos/sunflower/internal/export"
	"github.com/sunflowerpos/sunflower/internal/webserver"
)

const maxImportSize = 16 << 20

func registerInventoryRoutes() {
	webserver.ApiGET("/inventory/export.xlsx", exportInventoryXLSX, adminOnly)
	webserver.ApiGET("/inventory/export.csv", exportInventoryCSV, adminOnly)
	webserver.ApiGET("/inventory/order-list.pdf", exportOrderList, adminOnly)
	webserver.ApiPOST("/inventory/import", importInventory, adminOnly)
}

func exportInventoryXLSX(c echo.Context) error {
	appCtx := GetAppContext(c)
	products, err := appCtx.Catalog().List(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}
	var buf bytes.Buffer
	if err := appCtx.Submit(c.Request().Context(), func() error { return export.WriteInventoryXLSX(&buf, products) }); err != nil {
		return handleError(c, err)
	}
	return attachment(c, mimeXLSX, export.InventoryWorkbookName(time.Now()), buf.Bytes())
}

func exportInventoryCSV(c echo.Context) error {
	products, err := GetAppContext(c).Catalog().List(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}
	var buf bytes.Buffer
	if err := export.WriteInventoryCSV(&buf, products); err != nil {
		return handleError(c, err)
	}
	return attachment(c, mimeCSV, export.InventoryCSVName(time.Now()), buf.Bytes())
}

func exportOrderList(c echo.Context) error {
	appCtx := GetAppContext(c)
	low, err := appCtx.Catalog().LowStock(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}
	now := time.Now()
	var buf bytes.Buffer
	err = appCtx.Submit(c.Request().Context(), func() error {
		return export.WriteOrderListPDF(&buf, low, now.Format("02/01/2006"))
	})
	if err != nil {
		return handleError(c, err)
	}
	return attachment(c, mimePDF, export.OrderListName(now), buf.Bytes())
}

// importInventory appends the rows of an uploaded .xlsx or .csv file.
func importInventory(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "file is required", err.Error())
	}
	if fh.Size > maxImportSize {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "file is too large", nil)
	}
	src, err := fh.Open()
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "file is unreadable", err.Error())
	}
	defer src.Close()

	appCtx := GetAppContext(c)
	var rows []domain.Product
	err = appCtx.Submit(c.Request().Context(), func() error {
		var perr error
		rows, perr = export.ImportProducts(src, fh.Filename, time.Now())
		return perr
	})
	if err != nil {
		return handleError(c, err)
	}
	n, err := appCtx.Catalog().Import(c.Request().Context(), rows)
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, map[string]int{"imported": n})
}
