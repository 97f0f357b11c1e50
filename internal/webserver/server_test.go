package webserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunflowerpos/sunflower/config"
)

func setupServer(t *testing.T) {
	t.Helper()
	cfg := *config.DefaultAppConfig
	cfg.Web.Secret = "test-secret"
	Init(&cfg)
	ApiPOST("/auth/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	ApiGET("/whoami", func(c echo.Context) error {
		return c.String(http.StatusOK, CurrentClaims(c).Username)
	})
	ApiDELETE("/things", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, RequireRole("ADMIN"))
}

func serve(method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, ApiPrefix+path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)
	return rec
}

func TestPublicRouteSkipsToken(t *testing.T) {
	setupServer(t)
	assert.Equal(t, http.StatusOK, serve(http.MethodPost, "/auth/login", "").Code)
}

func TestMissingTokenIsUnauthorized(t *testing.T) {
	setupServer(t)
	rec := serve(http.MethodGet, "/whoami", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"UNAUTHORIZED"`)

	rec = serve(http.MethodGet, "/whoami", "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIssuedTokenCarriesClaims(t *testing.T) {
	setupServer(t)
	token, expires, err := IssueToken("ana", "USER")
	require.NoError(t, err)
	assert.True(t, expires.After(expires.Add(-TokenTTL)))

	rec := serve(http.MethodGet, "/whoami", token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ana", rec.Body.String())

	rec = serve(http.MethodDelete, "/things", token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"FORBIDDEN"`)

	admin, _, err := IssueToken("root", "admin")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, serve(http.MethodDelete, "/things", admin).Code)
}

func TestTokenFromAnotherSecretIsRejected(t *testing.T) {
	setupServer(t)
	server.secret = []byte("other")
	token, _, err := IssueToken("ana", "ADMIN")
	require.NoError(t, err)
	server.secret = []byte("test-secret")

	assert.Equal(t, http.StatusUnauthorized, serve(http.MethodGet, "/whoami", token).Code)
}
