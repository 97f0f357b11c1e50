package adminapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sunflowerpos/sunflower/internal/domain"
	"github.com/sunflowerpos/sunflower/internal/webserver"
	"go.uber.org/zap"
)

// reconcileSyncResponse represents a manual reconciliation result
type reconcileSyncResponse struct {
	PendingBefore int       `json:"pending_before"`
	FailedBefore  int       `json:"failed_before"`
	Applied       int       `json:"applied"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Duration      string    `json:"duration"`
}

func registerReconciliationRoutes() {
	webserver.ApiGET("/system/reconciliation", listJournalEntries, adminOnly)
	webserver.ApiPOST("/system/reconciliation/run", runReconciliation, adminOnly)
}

// listJournalEntries lists stock journal entries, optionally by status
func listJournalEntries(c echo.Context) error {
	status := c.QueryParam("status")
	switch status {
	case "", domain.JournalPending, domain.JournalApplied, domain.JournalFailed:
	default:
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "status must be pending, applied or failed", nil)
	}
	entries, err := GetAppContext(c).Reconciler().Entries(c.Request().Context(), status)
	if err != nil {
		return handleError(c, err)
	}
	page, pageSize := parsePagination(c)
	return paged(c, pageOf(entries, page, pageSize), len(entries), page, pageSize)
}

// runReconciliation applies pending entries now instead of waiting for the job
func runReconciliation(c echo.Context) error {
	ctx := c.Request().Context()
	svc := GetAppContext(c).Reconciler()
	startTime := time.Now()

	pending, err := svc.Entries(ctx, domain.JournalPending)
	if err != nil {
		return handleError(c, err)
	}
	failed, err := svc.Entries(ctx, domain.JournalFailed)
	if err != nil {
		return handleError(c, err)
	}
	applied, err := svc.SyncPending(ctx)
	if err != nil {
		return handleError(c, err)
	}

	endTime := time.Now()
	duration := endTime.Sub(startTime)
	zap.L().Info("Manual reconciliation triggered",
		zap.Int("pending", len(pending)),
		zap.Int("failed", len(failed)),
		zap.Int("applied", applied),
		zap.Duration("duration", duration),
	)

	return ok(c, reconcileSyncResponse{
		PendingBefore: len(pending),
		FailedBefore:  len(failed),
		Applied:       applied,
		StartTime:     startTime,
		EndTime:       endTime,
		Duration:      duration.String(),
	})
}
