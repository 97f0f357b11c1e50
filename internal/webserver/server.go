package webserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"
	"github.com/sunflowerpos/sunflower/config"
	"go.uber.org/zap"
)

const (
	ApiPrefix   = "/api/v1"
	UserContext = "user"
	TokenTTL    = 12 * time.Hour
)

// publicRoutes are reachable without a bearer token.
var publicRoutes = []string{
	ApiPrefix + "/auth/login",
	ApiPrefix + "/system/machine-id",
	ApiPrefix + "/system/activate",
}

var server *AdminServer

type AdminServer struct {
	root   *echo.Echo
	api    *echo.Group
	config *config.AppConfig
	secret []byte
}

// JwtClaims carries the operator identity in issued tokens.
type JwtClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func isPublic(path string) bool {
	for _, p := range publicRoutes {
		if path == p {
			return true
		}
	}
	return false
}

// Init builds the echo instance and the authenticated /api/v1 group.
func Init(cfg *config.AppConfig) {
	secret := cfg.Web.Secret
	if secret == "" {
		secret = random.String(48)
		zap.L().Warn("web.secret not set, using a random secret; tokens will not survive a restart",
			zap.String("namespace", "webserver"))
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &CustomValidator{validator: validator.New()}
	e.HTTPErrorHandler = errorHandler
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			zap.L().Debug("request",
				zap.String("namespace", "webserver"),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status))
			return nil
		},
	}))

	api := e.Group(ApiPrefix)
	api.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(secret),
		ContextKey: UserContext,
		Skipper: func(c echo.Context) bool {
			return isPublic(c.Path())
		},
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(JwtClaims)
		},
	}))

	server = &AdminServer{root: e, api: api, config: cfg, secret: []byte(secret)}
}

// Use adds middleware to the API group.
func Use(m ...echo.MiddlewareFunc) {
	server.api.Use(m...)
}

// Handler exposes the root handler, mainly for tests.
func Handler() http.Handler {
	return server.root
}

func ApiGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.GET(path, h, m...)
}

func ApiPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.POST(path, h, m...)
}

func ApiPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.PUT(path, h, m...)
}

func ApiDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.DELETE(path, h, m...)
}

// IssueToken signs a token for username with role.
func IssueToken(username, role string) (string, time.Time, error) {
	expires := time.Now().Add(TokenTTL)
	claims := &JwtClaims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(server.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

// CurrentClaims returns the claims of the authenticated request, or nil.
func CurrentClaims(c echo.Context) *JwtClaims {
	token, ok := c.Get(UserContext).(*jwt.Token)
	if !ok || token == nil {
		return nil
	}
	claims, _ := token.Claims.(*JwtClaims)
	return claims
}

// RequireRole rejects requests whose token does not carry role.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := CurrentClaims(c)
			if claims == nil || !strings.EqualFold(claims.Role, role) {
				return echo.NewHTTPError(http.StatusForbidden, "operation requires role "+role)
			}
			return next(c)
		}
	}
}

func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	}
	errCode := "INTERNAL_ERROR"
	switch code {
	case http.StatusUnauthorized, http.StatusBadRequest:
		if strings.Contains(strings.ToLower(msg), "jwt") {
			code, errCode = http.StatusUnauthorized, "UNAUTHORIZED"
		} else if code == http.StatusUnauthorized {
			errCode = "UNAUTHORIZED"
		} else {
			errCode = "INVALID_REQUEST"
		}
	case http.StatusForbidden:
		errCode = "FORBIDDEN"
	case http.StatusNotFound:
		errCode = "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		errCode = "METHOD_NOT_ALLOWED"
	}
	if code >= http.StatusInternalServerError {
		zap.L().Error("request failed", zap.String("namespace", "webserver"), zap.String("uri", c.Request().RequestURI), zap.Error(err))
	}
	_ = c.JSON(code, map[string]interface{}{"code": errCode, "message": msg})
}

// Listen serves until ctx is cancelled.
func Listen(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", server.config.Web.Host, server.config.Web.Port)
	zap.S().Infof("Sunflower API listening on %s", addr)
	errc := make(chan error, 1)
	go func() { errc <- server.root.Start(addr) }()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.root.Shutdown(shutdownCtx)
	}
}
