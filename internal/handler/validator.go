package handler

import (
    "net/http"

    "github.com/go-playground/validator/v10"
    "github.com/labstack/echo/v4"
)

// CustomValidator plugs go-playground/validator into echo's c.Validate.
type CustomValidator struct {
    validator *validator.Validate
}

func NewValidator() *CustomValidator {
    return &CustomValidator{validator: validator.New()}
}

// Validate checks the `validate` struct tags of i.  Failures come back as
// 400 HTTP errors.
func (cv *CustomValidator) Validate(i interface{}) error {
    if err := cv.validator.Struct(i); err != nil {
        return echo.NewHTTPError(http.StatusBadRequest, err.Error())
    }
    return nil
}

// bindAndValidate decodes the request body into req and validates it.  The
// returned error is already an HTTP response.
func bindAndValidate(c echo.Context, req interface{}) error {
    if err := c.Bind(req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := c.Validate(req); err != nil {
        msg := err.Error()
        if he, ok := err.(*echo.HTTPError); ok {
            if m, ok := he.Message.(string); ok {
                msg = m
            }
        }
        return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
    }
    return nil
}
