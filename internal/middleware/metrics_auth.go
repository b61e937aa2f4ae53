package middleware

import (
    "crypto/subtle"

    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
)

// MetricsBasicAuth protects /metrics with HTTP basic auth.  With an empty
// user or password the endpoint stays open, which suits local runs.
func MetricsBasicAuth(user, pass string) echo.MiddlewareFunc {
    if user == "" || pass == "" {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    return echomw.BasicAuth(func(u, p string, _ echo.Context) (bool, error) {
        okUser := subtle.ConstantTimeCompare([]byte(u), []byte(user)) == 1
        okPass := subtle.ConstantTimeCompare([]byte(p), []byte(pass)) == 1
        return okUser && okPass, nil
    })
}
