package handler

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/model"
)

var errNoUserID = errors.New("user_id missing from context")

// getUserID extracts the authenticated user's ID from the echo context.
// JWT numeric claims arrive as float64; other types show up in tests.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		n, err := strconv.ParseUint(t, 10, 64)
		if err != nil {
			return 0, errNoUserID
		}
		return n, nil
	default:
		return 0, errNoUserID
	}
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

// isManager reports whether the authenticated user carries the MANAGER role.
func isManager(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == model.RoleManager
}
