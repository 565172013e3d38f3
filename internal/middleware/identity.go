package middleware

// identity.go holds the context keys written by the auth and session
// middleware and the accessors handlers use to read them back.

import (
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/tour-booking/internal/model"
)

const (
    ctxUserID  = "user_id"
    ctxRole    = "role"
    ctxSession = "cart_session"
)

// UserID returns the authenticated user, if any.
func UserID(c echo.Context) (uint64, bool) {
    id, ok := c.Get(ctxUserID).(uint64)
    return id, ok && id != 0
}

// UserIDPtr is UserID as an optional value.
func UserIDPtr(c echo.Context) *uint64 {
    if id, ok := UserID(c); ok {
        return &id
    }
    return nil
}

// Role returns the role claim, or "" for guests.
func Role(c echo.Context) string {
    r, _ := c.Get(ctxRole).(string)
    return r
}

// IsAdmin reports whether the caller holds the admin role.
func IsAdmin(c echo.Context) bool { return Role(c) == model.RoleAdmin }

// userKey identifies the caller for rate limiting; "guest" when anonymous.
func userKey(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "guest"
}
