package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sunflowerpos/sunflower/internal/cart"
	"github.com/sunflowerpos/sunflower/internal/domain"
	"github.com/sunflowerpos/sunflower/internal/webserver"
)

type scanPayload struct {
	Code string `json:"code" validate:"required,max=200"`
}

type manualLinePayload struct {
	Name    string           `json:"name" validate:"required,max=200"`
	Price   float64          `json:"price" validate:"gt=0"`
	Qty     *decimal.Decimal `json:"qty" validate:"required"`
	Measure string           `json:"measure" validate:"omitempty,oneof=ud kg g"`
}

type checkoutPayload struct {
	Method string           `json:"method" validate:"required"`
	Paid   *decimal.Decimal `json:"paid"`
}

type cartView struct {
	Lines  []domain.CartLine `json:"lines"`
	Total  decimal.Decimal   `json:"total"`
	Change decimal.Decimal   `json:"change"`
}

func registerCartRoutes() {
	webserver.ApiGET("/cart", getCart)
	webserver.ApiDELETE("/cart", clearCart)
	webserver.ApiPOST("/cart/scan", scanItem)
	webserver.ApiPOST("/cart/manual", addManualItem)
	webserver.ApiDELETE("/cart/lines/:id", removeCartLine)
	webserver.ApiPOST("/cart/checkout", checkout)
}

// viewCart renders the cart; method and paid preview the change for cash.
func viewCart(engine *cart.Engine, method domain.PaymentMethod, paid *decimal.Decimal) cartView {
	totals := engine.Totals(method, paid)
	return cartView{Lines: engine.Lines(), Total: totals.Total, Change: totals.Change}
}

func getCart(c echo.Context) error {
	var paid *decimal.Decimal
	if raw := c.QueryParam("paid"); raw != "" {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid paid amount", nil)
		}
		paid = &v
	}
	return ok(c, viewCart(GetAppContext(c).Cart(), domain.PaymentMethod(c.QueryParam("method")), paid))
}

func clearCart(c echo.Context) error {
	if err := GetAppContext(c).Cart().Clear(c.Request().Context()); err != nil {
		return handleError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func scanItem(c echo.Context) error {
	var payload scanPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse scan", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	engine := GetAppContext(c).Cart()
	if _, err := engine.AddByIdentifier(c.Request().Context(), payload.Code); err != nil {
		return handleError(c, err)
	}
	return ok(c, viewCart(engine, "", nil))
}

func addManualItem(c echo.Context) error {
	var payload manualLinePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse item", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	engine := GetAppContext(c).Cart()
	_, err := engine.AddManualLine(c.Request().Context(), cart.ManualLine{
		Name:    payload.Name,
		Price:   domain.RoundPrice(payload.Price),
		Qty:     *payload.Qty,
		Measure: domain.Measure(payload.Measure),
	})
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, viewCart(engine, "", nil))
}

func removeCartLine(c echo.Context) error {
	engine := GetAppContext(c).Cart()
	if err := engine.RemoveLine(c.Request().Context(), domain.ID(c.Param("id"))); err != nil {
		return handleError(c, err)
	}
	return ok(c, viewCart(engine, "", nil))
}

func checkout(c echo.Context) error {
	var payload checkoutPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse checkout", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	receipt, err := GetAppContext(c).Cart().Checkout(c.Request().Context(), domain.PaymentMethod(payload.Method), payload.Paid)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusCreated, Response{Code: "SUCCESS", Data: receipt})
}
