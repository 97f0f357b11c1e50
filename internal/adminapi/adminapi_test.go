package adminapi

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunflowerpos/sunflower/config"
	"github.com/sunflowerpos/sunflower/internal/app"
	"github.com/sunflowerpos/sunflower/internal/domain"
	"github.com/sunflowerpos/sunflower/internal/store"
	"github.com/sunflowerpos/sunflower/internal/webserver"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type apiReply struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Data    jsoniter.RawMessage    `json:"data"`
	Details map[string]interface{} `json:"details"`
}

type testAPI struct {
	t       *testing.T
	handler http.Handler
	app     *app.Application
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()
	cfg := *config.DefaultAppConfig
	cfg.System.Workdir = t.TempDir()
	cfg.Web.Secret = "test-secret"

	s, err := store.OpenBolt(filepath.Join(cfg.System.Workdir, "pos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	a := app.NewApplication(&cfg)
	require.NoError(t, a.OverrideStore(s))

	webserver.Init(&cfg)
	Init(a)
	return &testAPI{t: t, handler: webserver.Handler(), app: a}
}

func (api *testAPI) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, apiReply) {
	api.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(api.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, webserver.ApiPrefix+path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)

	var reply apiReply
	if rec.Body.Len() > 0 && bytes.HasPrefix(bytes.TrimSpace(rec.Body.Bytes()), []byte("{")) {
		require.NoError(api.t, json.Unmarshal(rec.Body.Bytes(), &reply))
	}
	return rec, reply
}

func (api *testAPI) login(user, pass string) string {
	api.t.Helper()
	rec, reply := api.do(http.MethodPost, "/auth/login", "", map[string]string{"user": user, "pass": pass})
	require.Equal(api.t, http.StatusOK, rec.Code, rec.Body.String())
	var data loginResponse
	require.NoError(api.t, json.Unmarshal(reply.Data, &data))
	return data.Token
}

func (api *testAPI) createProduct(token, name, barcode string, price float64, qty int) domain.Product {
	api.t.Helper()
	rec, reply := api.do(http.MethodPost, "/products", token, map[string]interface{}{
		"name": name, "barcode": barcode, "price": price, "quantity": qty,
	})
	require.Equal(api.t, http.StatusCreated, rec.Code, rec.Body.String())
	var p domain.Product
	require.NoError(api.t, json.Unmarshal(reply.Data, &p))
	return p
}

func TestLoginAndAuthRequired(t *testing.T) {
	api := setupAPI(t)

	rec, reply := api.do(http.MethodPost, "/auth/login", "", map[string]string{"user": "admin", "pass": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", reply.Code)

	rec, _ = api.do(http.MethodGet, "/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := api.login("admin", "1234")
	rec, reply = api.do(http.MethodGet, "/auth/session", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(reply.Data), `"state":"logged_in"`)
}

func TestProductCreateAndDuplicate(t *testing.T) {
	api := setupAPI(t)
	token := api.login("admin", "1234")

	p := api.createProduct(token, "Yerba", "779", 1500, 10)
	assert.Equal(t, int64(1500), p.Price)

	rec, reply := api.do(http.MethodPost, "/products", token, map[string]interface{}{
		"name": "YERBA", "barcode": "111", "price": 1, "quantity": 1,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DUPLICATE_PRODUCT", reply.Code)

	rec, reply = api.do(http.MethodPost, "/products", token, map[string]interface{}{"name": "Pan"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", reply.Code)

	rec, _ = api.do(http.MethodGet, "/products/"+p.ID.String(), token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, reply = api.do(http.MethodGet, "/products/missing", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", reply.Code)
}

func TestUserRoleCannotManageCatalog(t *testing.T) {
	api := setupAPI(t)
	admin := api.login("admin", "1234")

	rec, _ := api.do(http.MethodPost, "/users", admin, map[string]string{"user": "caja", "pass": "1", "role": "USER"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	cashier := api.login("caja", "1")
	rec, reply := api.do(http.MethodPost, "/products", cashier, map[string]interface{}{
		"name": "Pan", "barcode": "1", "price": 1, "quantity": 1,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", reply.Code)

	rec, _ = api.do(http.MethodGet, "/products", cashier, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, reply = api.do(http.MethodDelete, "/users/admin", admin, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "LAST_ADMIN", reply.Code)
}

func TestCartScanAndCheckout(t *testing.T) {
	api := setupAPI(t)
	token := api.login("admin", "1234")
	p := api.createProduct(token, "Yerba", "779", 1500, 2)

	rec, reply := api.do(http.MethodPost, "/cart/checkout", token, map[string]string{"method": "Efectivo"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "EMPTY_CART", reply.Code)

	for i := 0; i < 2; i++ {
		rec, _ = api.do(http.MethodPost, "/cart/scan", token, map[string]string{"code": "779"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	rec, reply = api.do(http.MethodPost, "/cart/scan", token, map[string]string{"code": "779"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INSUFFICIENT_STOCK", reply.Code)
	assert.EqualValues(t, 2, reply.Details["available"])

	rec, _ = api.do(http.MethodPost, "/cart/manual", token, map[string]interface{}{"name": "Bolsa", "price": 50, "qty": 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, reply = api.do(http.MethodPost, "/cart/checkout", token, map[string]interface{}{"method": "Efectivo", "paid": "5000"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var receipt struct {
		Sale         domain.Sale `json:"sale"`
		Change       string      `json:"change"`
		StockPending bool        `json:"stock_pending"`
	}
	require.NoError(t, json.Unmarshal(reply.Data, &receipt))
	assert.Equal(t, "3050", receipt.Sale.Total.String())
	assert.Equal(t, "1950", receipt.Change)
	assert.False(t, receipt.StockPending)

	got, err := api.app.Catalog().Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity)

	rec, reply = api.do(http.MethodGet, "/reports/days", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(reply.Data), `"count":1`)

	rec, _ = api.do(http.MethodGet, "/products/low-stock", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestManualLineRequiresPositiveQty(t *testing.T) {
	api := setupAPI(t)
	token := api.login("admin", "1234")

	bodies := []map[string]interface{}{
		{"name": "Bolsa", "price": 50, "qty": 0},
		{"name": "Bolsa", "price": 50},
		{"name": "Bolsa", "price": 50, "qty": -1},
	}
	for _, body := range bodies {
		rec, reply := api.do(http.MethodPost, "/cart/manual", token, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		assert.Equal(t, "INVALID_REQUEST", reply.Code)
	}
	assert.Empty(t, api.app.Cart().Lines())

	rec, _ := api.do(http.MethodPost, "/cart/manual", token, map[string]interface{}{"name": "Queso", "price": 12000, "qty": "0.25", "measure": "kg"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, api.app.Cart().Lines(), 1)
	assert.Equal(t, "0.25", api.app.Cart().Lines()[0].Qty.String())
}

func TestBackupRestoreRequiresBothKeys(t *testing.T) {
	api := setupAPI(t)
	token := api.login("admin", "1234")
	api.createProduct(token, "Yerba", "779", 1500, 2)

	rec, reply := api.do(http.MethodPost, "/backup", token, map[string]interface{}{"products": []interface{}{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", reply.Code)

	rec, _ = api.do(http.MethodGet, "/backup", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "respaldo_")
	assert.Contains(t, rec.Body.String(), "Yerba")
}

func TestInventoryImportCSV(t *testing.T) {
	api := setupAPI(t)
	token := api.login("admin", "1234")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "lista.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("Nombre,Código,Cantidad,Precio\nLeche,123,7,899.5\nPan,,3,300\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, webserver.ApiPrefix+"/inventory/import", &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	products, err := api.app.Catalog().List(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, int64(900), products[0].Price)
	assert.NotEmpty(t, products[1].Barcode)

	rec, _ = api.do(http.MethodGet, "/inventory/export.csv", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Leche,123,7,900")
}

func TestJobsEndpoints(t *testing.T) {
	api := setupAPI(t)
	token := api.login("admin", "1234")

	rec, reply := api.do(http.MethodGet, "/system/jobs", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(reply.Data), `"name":"reconcile"`)

	rec, _ = api.do(http.MethodPost, "/system/jobs/reconcile/run", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, reply = api.do(http.MethodPost, "/system/jobs/unknown/run", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", reply.Code)

	rec, _ = api.do(http.MethodGet, "/system/reconciliation?status=pending", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
