package adminapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sunflowerpos/sunflower/internal/webserver"
)

type loginPayload struct {
	Username string `json:"user" validate:"required,max=64"`
	Password string `json:"pass" validate:"required,max=128"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
}

type sessionResponse struct {
	State    string    `json:"state"`
	Username string    `json:"username,omitempty"`
	Role     string    `json:"role,omitempty"`
	Since    time.Time `json:"since"`
}

func registerAuthRoutes() {
	webserver.ApiPOST("/auth/login", login)
	webserver.ApiPOST("/auth/logout", logout)
	webserver.ApiGET("/auth/session", currentSession)
}

func login(c echo.Context) error {
	var payload loginPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse login", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	sess, err := GetAppContext(c).Gate().Login(c.Request().Context(), payload.Username, payload.Password)
	if err != nil {
		return handleError(c, err)
	}
	token, expires, err := webserver.IssueToken(sess.Username, string(sess.Role))
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, loginResponse{Token: token, ExpiresAt: expires, Username: sess.Username, Role: string(sess.Role)})
}

func logout(c echo.Context) error {
	if err := GetAppContext(c).Gate().Logout(); err != nil {
		return handleError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func currentSession(c echo.Context) error {
	sess := GetAppContext(c).Gate().Session()
	return ok(c, sessionResponse{
		State:    sess.StateName(),
		Username: sess.Username,
		Role:     string(sess.Role),
		Since:    sess.Since,
	})
}
