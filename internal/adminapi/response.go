package adminapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sunflowerpos/sunflower/internal/domain"
	"go.uber.org/zap"
)

// Response is the JSON envelope of every API reply.
type Response struct {
	Code    string      `json:"code"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// ListResponse wraps a page of items.
type ListResponse struct {
	Items    interface{} `json:"items"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{Code: "SUCCESS", Data: data})
}

func fail(c echo.Context, status int, code, message string, details interface{}) error {
	return c.JSON(status, Response{Code: code, Message: message, Details: details})
}

func paged(c echo.Context, items interface{}, total, page, pageSize int) error {
	return ok(c, ListResponse{Items: items, Total: total, Page: page, PageSize: pageSize})
}

// parsePagination reads page and perPage (or pageSize), defaulting to 1 and 50.
func parsePagination(c echo.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	raw := c.QueryParam("perPage")
	if raw == "" {
		raw = c.QueryParam("pageSize")
	}
	pageSize, _ = strconv.Atoi(raw)
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}
	return page, pageSize
}

// pageOf slices items for the requested page.
func pageOf[T any](items []T, page, pageSize int) []T {
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func handleValidationError(c echo.Context, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[strings.ToLower(fe.Field())] = fe.Tag()
		}
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Request validation failed", fields)
	}
	return fail(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
}

// handleError maps domain errors to HTTP replies.
func handleError(c echo.Context, err error) error {
	var stockErr *domain.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		return fail(c, http.StatusConflict, "INSUFFICIENT_STOCK", err.Error(),
			map[string]interface{}{"available": stockErr.Available})
	case errors.Is(err, domain.ErrNotFound):
		return fail(c, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, domain.ErrDuplicateProduct):
		return fail(c, http.StatusConflict, "DUPLICATE_PRODUCT", err.Error(), nil)
	case errors.Is(err, domain.ErrEmptyCart):
		return fail(c, http.StatusBadRequest, "EMPTY_CART", err.Error(), nil)
	case errors.Is(err, domain.ErrInvalidInput):
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	case errors.Is(err, domain.ErrInvalidCredentials):
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", err.Error(), nil)
	case errors.Is(err, domain.ErrLoginInProgress):
		return fail(c, http.StatusConflict, "LOGIN_IN_PROGRESS", err.Error(), nil)
	case errors.Is(err, domain.ErrInvalidTransition):
		return fail(c, http.StatusConflict, "INVALID_TRANSITION", err.Error(), nil)
	case errors.Is(err, domain.ErrLastAdmin):
		return fail(c, http.StatusConflict, "LAST_ADMIN", err.Error(), nil)
	case errors.Is(err, domain.ErrDuplicateUser):
		return fail(c, http.StatusConflict, "DUPLICATE_USER", err.Error(), nil)
	case errors.Is(err, domain.ErrInvalidActivation):
		return fail(c, http.StatusBadRequest, "INVALID_ACTIVATION", err.Error(), nil)
	case errors.Is(err, domain.ErrPersistence):
		zap.L().Error("persistence failure", zap.String("namespace", "adminapi"), zap.String("uri", c.Request().RequestURI), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "PERSISTENCE_FAILURE", "The data could not be saved", nil)
	default:
		zap.L().Error("request failed", zap.String("namespace", "adminapi"), zap.String("uri", c.Request().RequestURI), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", fmt.Sprint(err), nil)
	}
}

// attachment streams a generated file as a download.
func attachment(c echo.Context, contentType, filename string, data []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, contentType, data)
}

const (
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeCSV  = "text/csv; charset=utf-8"
	mimePDF  = "application/pdf"
	mimeJSON = "application/json; charset=utf-8"
)
