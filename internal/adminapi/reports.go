package adminapi

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sunflowerpos/sunflower/internal/export"
	"github.com/sunflowerpos/sunflower/internal/report"
	"github.com/sunflowerpos/sunflower/internal/webserver"
)

func registerReportRoutes() {
	webserver.ApiGET("/reports/days", listSaleDays)
	webserver.ApiGET("/reports/day", getSaleDay)
	webserver.ApiGET("/reports/day.pdf", exportSaleDayPDF)
	webserver.ApiGET("/reports/sales.xlsx", exportSalesXLSX)
	webserver.ApiDELETE("/reports/day", deleteSaleDay, adminOnly)
}

func missingDate(c echo.Context) error {
	return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "date is required", nil)
}

func listSaleDays(c echo.Context) error {
	days, err := GetAppContext(c).Reports().Days(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}
	if days == nil {
		days = []report.DaySummary{}
	}
	return ok(c, days)
}

func getSaleDay(c echo.Context) error {
	date := strings.TrimSpace(c.QueryParam("date"))
	if date == "" {
		return missingDate(c)
	}
	day, err := GetAppContext(c).Reports().Day(c.Request().Context(), date)
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, day)
}

func exportSaleDayPDF(c echo.Context) error {
	date := strings.TrimSpace(c.QueryParam("date"))
	if date == "" {
		return missingDate(c)
	}
	appCtx := GetAppContext(c)
	day, err := appCtx.Reports().Day(c.Request().Context(), date)
	if err != nil {
		return handleError(c, err)
	}
	var buf bytes.Buffer
	if err := appCtx.Submit(c.Request().Context(), func() error { return export.WriteDayReportPDF(&buf, *day) }); err != nil {
		return handleError(c, err)
	}
	return attachment(c, mimePDF, export.DayReportName(date), buf.Bytes())
}

func exportSalesXLSX(c echo.Context) error {
	appCtx := GetAppContext(c)
	sales, err := appCtx.Reports().Sales(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}
	var buf bytes.Buffer
	if err := appCtx.Submit(c.Request().Context(), func() error { return export.WriteSalesXLSX(&buf, sales) }); err != nil {
		return handleError(c, err)
	}
	return attachment(c, mimeXLSX, export.SalesWorkbookName, buf.Bytes())
}

func deleteSaleDay(c echo.Context) error {
	date := strings.TrimSpace(c.QueryParam("date"))
	if date == "" {
		return missingDate(c)
	}
	removed, err := GetAppContext(c).Reports().DeleteDay(c.Request().Context(), date)
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, map[string]int{"removed": removed})
}
