package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sunflowerpos/sunflower/internal/app"
	"github.com/sunflowerpos/sunflower/internal/domain"
	"github.com/sunflowerpos/sunflower/internal/webserver"
)

var appContext app.AppContext

// adminOnly guards routes reserved to administrators.
var adminOnly = webserver.RequireRole(string(domain.RoleAdmin))

// GetAppContext returns the application the routes were registered with.
func GetAppContext(c echo.Context) app.AppContext {
	return appContext
}

// Init registers every operator API route. webserver.Init must run first.
func Init(appCtx app.AppContext) {
	appContext = appCtx
	webserver.Use(activationGuard)

	registerAuthRoutes()
	registerProductRoutes()
	registerCartRoutes()
	registerReportRoutes()
	registerInventoryRoutes()
	registerBackupRoutes()
	registerUserRoutes()
	registerSystemRoutes()
	registerReconciliationRoutes()
	registerJobRoutes()
}

// activationGuard refuses domain routes until the installation is activated,
// when licensing is enabled.
func activationGuard(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		appCtx := GetAppContext(c)
		if !appCtx.Config().License.Enabled {
			return next(c)
		}
		path := strings.TrimPrefix(c.Path(), webserver.ApiPrefix)
		if strings.HasPrefix(path, "/auth/") || path == "/system/machine-id" || path == "/system/activate" {
			return next(c)
		}
		activated, err := appCtx.License().Activated(c.Request().Context())
		if err != nil {
			return handleError(c, err)
		}
		if !activated {
			return fail(c, http.StatusForbidden, "NOT_ACTIVATED", "This installation is not activated", nil)
		}
		return next(c)
	}
}
