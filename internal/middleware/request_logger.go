package middleware

import (
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/cinema-booking/internal/logger"
)

// RequestLogger writes one structured line per request.  5xx responses and
// handler errors log at error level, other 4xx at warn.
func RequestLogger() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            req := c.Request()
            res := c.Response()

            err := next(c)

            fields := []zap.Field{
                zap.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
                zap.String("method", req.Method),
                zap.String("path", req.URL.Path),
                zap.String("query", req.URL.RawQuery),
                zap.Int("status", res.Status),
                zap.Int64("size", res.Size),
                zap.Duration("latency", time.Since(start)),
                zap.String("remote_ip", c.RealIP()),
            }
            if id, ok := UserID(c); ok {
                fields = append(fields, zap.Uint64("user_id", id))
            }

            switch {
            case err != nil:
                logger.Error("request failed", append(fields, zap.Error(err))...)
            case res.Status >= 500:
                logger.Error("server error", fields...)
            case res.Status >= 400:
                logger.Warn("client error", fields...)
            default:
                logger.Info("request completed", fields...)
            }
            return err
        }
    }
}
