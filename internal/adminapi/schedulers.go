package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sunflowerpos/sunflower/internal/webserver"
)

// registerJobRoutes registers scheduled job API routes
func registerJobRoutes() {
	webserver.ApiGET("/system/jobs", ListJobs, adminOnly)
	webserver.ApiPOST("/system/jobs/:name/run", TriggerJob, adminOnly)
}

// ListJobs lists the scheduled jobs with their last and next run
func ListJobs(c echo.Context) error {
	return ok(c, GetAppContext(c).Jobs())
}

// TriggerJob runs the job immediately
func TriggerJob(c echo.Context) error {
	if err := GetAppContext(c).RunJobNow(c.Request().Context(), c.Param("name")); err != nil {
		return handleError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
