package middleware

import (
    "errors"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cinema-booking/internal/metrics"
)

// Prometheus counts requests and observes latency, labelled by the route
// pattern rather than the raw path so IDs do not explode cardinality.
func Prometheus(m *metrics.Metrics) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)

            status := c.Response().Status
            var he *echo.HTTPError
            if errors.As(err, &he) {
                status = he.Code
            }
            path := c.Path()
            if path == "" {
                path = "unmatched"
            }
            method := c.Request().Method

            m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
            m.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
            return err
        }
    }
}
