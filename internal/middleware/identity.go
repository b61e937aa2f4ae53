package middleware

// identity.go reads what JWTAuth stored in the Echo context.  Handlers use
// UserID; the rate limiter uses the string form.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// UserID returns the authenticated caller's ID.  ok is false on routes that
// are not behind JWTAuth.
func UserID(c echo.Context) (uint64, bool) {
    id, ok := c.Get("user_id").(uint64)
    return id, ok && id != 0
}

// Role returns the authenticated caller's role, or "" for anonymous calls.
func Role(c echo.Context) string {
    r, _ := c.Get("role").(string)
    return r
}

// userKey identifies the caller for rate limiting.  Anonymous callers share
// the "anon" key.
func userKey(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
