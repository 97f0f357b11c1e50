package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sunflowerpos/sunflower/internal/domain"
	"github.com/sunflowerpos/sunflower/internal/webserver"
)

type userPayload struct {
	Username string `json:"user" validate:"required,max=64"`
	Password string `json:"pass" validate:"required,max=128"`
	Role     string `json:"role" validate:"required,oneof=ADMIN USER"`
}

type userView struct {
	Username string      `json:"user"`
	Role     domain.Role `json:"role"`
}

func registerUserRoutes() {
	webserver.ApiGET("/users", listUsers, adminOnly)
	webserver.ApiPOST("/users", createUser, adminOnly)
	webserver.ApiDELETE("/users/:username", deleteUser, adminOnly)
}

// listUsers never returns passwords.
func listUsers(c echo.Context) error {
	users, err := GetAppContext(c).Gate().Users(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, userView{Username: u.Username, Role: u.Role})
	}
	return ok(c, views)
}

func createUser(c echo.Context) error {
	var payload userPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse user", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	u := domain.User{Username: payload.Username, Password: payload.Password, Role: domain.Role(payload.Role)}
	if err := GetAppContext(c).Gate().AddUser(c.Request().Context(), u); err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusCreated, Response{Code: "SUCCESS", Data: userView{Username: u.Username, Role: u.Role}})
}

func deleteUser(c echo.Context) error {
	if err := GetAppContext(c).Gate().DeleteUser(c.Request().Context(), c.Param("username")); err != nil {
		return handleError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
