package adminapi

import (
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sunflowerpos/sunflower/internal/export"
	"github.com/sunflowerpos/sunflower/internal/webserver"
)

const maxBackupSize = 64 << 20

func registerBackupRoutes() {
	webserver.ApiGET("/backup", downloadBackup, adminOnly)
	webserver.ApiPOST("/backup", restoreBackup, adminOnly)
}

func downloadBackup(c echo.Context) error {
	data, err := GetAppContext(c).Backup().Export(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}
	return attachment(c, mimeJSON, export.BackupName(time.Now()), data)
}

// restoreBackup accepts the backup either as a multipart "file" or as the raw body.
func restoreBackup(c echo.Context) error {
	var src io.Reader = c.Request().Body
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "file is unreadable", err.Error())
		}
		defer f.Close()
		src = f
	}
	data, err := io.ReadAll(io.LimitReader(src, maxBackupSize))
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "backup is unreadable", err.Error())
	}
	snap, err := GetAppContext(c).Backup().Import(c.Request().Context(), data)
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, map[string]int{"products": len(snap.Products), "sales": len(snap.Sales)})
}
