package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sunflowerpos/sunflower/internal/catalog"
	"github.com/sunflowerpos/sunflower/internal/domain"
	"github.com/sunflowerpos/sunflower/internal/webserver"
)

type productPayload struct {
	Name     string   `json:"name" validate:"required,min=1,max=200"`
	Barcode  string   `json:"barcode" validate:"required,max=64"`
	Price    *float64 `json:"price" validate:"required,gte=0"`
	Quantity *int     `json:"quantity" validate:"required,gte=0"`
}

type quantityPayload struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type pricePayload struct {
	Price *float64 `json:"price" validate:"required"`
}

// registerProductRoutes registers catalog endpoints
func registerProductRoutes() {
	webserver.ApiGET("/products", listProducts)
	webserver.ApiGET("/products/low-stock", listLowStock)
	webserver.ApiGET("/products/:id", getProduct)
	webserver.ApiPOST("/products", createProduct, adminOnly)
	webserver.ApiPUT("/products/:id/quantity", updateProductQuantity, adminOnly)
	webserver.ApiPUT("/products/:id/price", updateProductPrice, adminOnly)
	webserver.ApiDELETE("/products/:id", deleteProduct, adminOnly)
}

func listProducts(c echo.Context) error {
	svc := GetAppContext(c).Catalog()
	q := strings.TrimSpace(c.QueryParam("q"))

	var (
		rows []domain.Product
		err  error
	)
	if q != "" {
		rows, err = svc.Search(c.Request().Context(), q)
	} else {
		rows, err = svc.List(c.Request().Context())
	}
	if err != nil {
		return handleError(c, err)
	}

	page, pageSize := parsePagination(c)
	return paged(c, pageOf(rows, page, pageSize), len(rows), page, pageSize)
}

func listLowStock(c echo.Context) error {
	rows, err := GetAppContext(c).Catalog().LowStock(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, rows)
}

func getProduct(c echo.Context) error {
	p, err := GetAppContext(c).Catalog().Get(c.Request().Context(), domain.ID(c.Param("id")))
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, p)
}

func createProduct(c echo.Context) error {
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	p, err := GetAppContext(c).Catalog().Create(c.Request().Context(), catalog.CreateRequest{
		Name:     payload.Name,
		Barcode:  payload.Barcode,
		Price:    payload.Price,
		Quantity: payload.Quantity,
	})
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusCreated, Response{Code: "SUCCESS", Data: p})
}

func updateProductQuantity(c echo.Context) error {
	var payload quantityPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse quantity", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	if err := GetAppContext(c).Catalog().UpdateQuantity(c.Request().Context(), domain.ID(c.Param("id")), *payload.Quantity); err != nil {
		return handleError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func updateProductPrice(c echo.Context) error {
	var payload pricePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse price", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	if err := GetAppContext(c).Catalog().UpdatePrice(c.Request().Context(), domain.ID(c.Param("id")), *payload.Price); err != nil {
		return handleError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func deleteProduct(c echo.Context) error {
	if err := GetAppContext(c).Catalog().Delete(c.Request().Context(), domain.ID(c.Param("id"))); err != nil {
		return handleError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
