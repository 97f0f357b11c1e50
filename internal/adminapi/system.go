package adminapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sunflowerpos/sunflower/internal/webserver"
	"github.com/sunflowerpos/sunflower/pkg/metrics"
)

type activatePayload struct {
	Token string `json:"token" validate:"required,max=256"`
}

type machineIDResponse struct {
	MachineID string `json:"machine_id"`
	Activated bool   `json:"activated"`
	Required  bool   `json:"required"`
}

type metricsSummary struct {
	Hours     int     `json:"hours"`
	SaleCount float64 `json:"sale_count"`
	SaleTotal float64 `json:"sale_total"`
	Failures  float64 `json:"reconcile_failures"`
}

func registerSystemRoutes() {
	webserver.ApiGET("/system/machine-id", getMachineID)
	webserver.ApiPOST("/system/activate", activate)
	webserver.ApiGET("/system/metrics", getMetricsSummary, adminOnly)
}

// getMetricsSummary sums the sale series over the last `hours` (default 24).
func getMetricsSummary(c echo.Context) error {
	hours := 24
	if err := echo.QueryParamsBinder(c).Int("hours", &hours).BindError(); err != nil || hours <= 0 || hours > 24*90 {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "hours must be between 1 and 2160", nil)
	}
	to := time.Now()
	from := to.Add(-time.Duration(hours) * time.Hour)
	return ok(c, metricsSummary{
		Hours:     hours,
		SaleCount: metrics.Sum(metrics.SaleCount, from, to),
		SaleTotal: metrics.Sum(metrics.SaleTotal, from, to),
		Failures:  metrics.Sum(metrics.ReconcileFail, from, to),
	})
}

func getMachineID(c echo.Context) error {
	appCtx := GetAppContext(c)
	short, err := appCtx.License().ShortID()
	if err != nil {
		return handleError(c, err)
	}
	activated, err := appCtx.License().Activated(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, machineIDResponse{MachineID: short, Activated: activated, Required: appCtx.Config().License.Enabled})
}

func activate(c echo.Context) error {
	var payload activatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse activation", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	if err := GetAppContext(c).License().Activate(c.Request().Context(), payload.Token); err != nil {
		return handleError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
