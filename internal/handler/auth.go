package handler

import (
    "context"
    "crypto/subtle"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cinema-booking/internal/config"
    "github.com/iliyamo/cinema-booking/internal/middleware"
    "github.com/iliyamo/cinema-booking/internal/model"
    "github.com/iliyamo/cinema-booking/internal/repository"
    "github.com/iliyamo/cinema-booking/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
    Cfg   config.Config
    Users UserStore
}

func NewAuthHandler(cfg config.Config, u UserStore) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Users: u}
}

// ----- DTOs -----

type registerReq struct {
    Username  string `json:"username" validate:"required,min=3,max=64"`
    Password  string `json:"password" validate:"required,min=8"`
    FirstName string `json:"first_name" validate:"max=100"`
    LastName  string `json:"last_name" validate:"max=100"`
    Email     string `json:"email" validate:"omitempty,email"`
    Role      string `json:"role"`       // STAFF | CUSTOMER, defaults to CUSTOMER
    StaffCode string `json:"staff_code"` // must match STAFF_SIGNUP_CODE when Role is STAFF
}
type loginReq struct {
    Username string `json:"username" validate:"required"`
    Password string `json:"password" validate:"required"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}
type userPart struct {
    ID        uint64 `json:"id"`
    Username  string `json:"username"`
    FirstName string `json:"first_name,omitempty"`
    LastName  string `json:"last_name,omitempty"`
    Role      string `json:"role"`
}
type authResp struct {
    User   userPart  `json:"user"`
    Access tokenPart `json:"access"`
}

func toUserPart(u model.User) userPart {
    return userPart{ID: u.ID, Username: u.Username, FirstName: u.FirstName, LastName: u.LastName, Role: u.Role}
}

// Register: create a customer account, or a staff account when the
// caller presents the staff signup code, and return an access token.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    role := strings.ToUpper(strings.TrimSpace(req.Role))
    if role != model.RoleStaff && role != model.RoleCustomer {
        role = model.RoleCustomer
    }
    if role == model.RoleStaff && !h.staffCodeOK(req.StaffCode) {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "staff registration requires a valid staff code"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    u := model.User{
        Username:  req.Username,
        Email:     req.Email,
        FirstName: strings.TrimSpace(req.FirstName),
        LastName:  strings.TrimSpace(req.LastName),
        Role:      role,
    }
    uid, err := h.Users.Create(ctx, &u, req.Password, h.Cfg.BcryptCost)
    if err != nil {
        if errors.Is(err, repository.ErrUsernameExists) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "username already exists"})
        }
        return writeError(c, err)
    }
    u.ID = uid

    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, uid, role, h.Cfg.AccessTTLMin)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, authResp{
        User:   toUserPart(u),
        Access: tokenPart{Token: access.Token, Expires: access.Exp},
    })
}

// staffCodeOK reports whether code unlocks staff self-registration.  With
// no code configured, staff accounts can only be created out of band.
func (h *AuthHandler) staffCodeOK(code string) bool {
    want := h.Cfg.StaffSignupCode
    return want != "" && subtle.ConstantTimeCompare([]byte(code), []byte(want)) == 1
}

// Login: verify the password and return a fresh access token.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    u, err := h.Users.GetByUsername(ctx, strings.ToLower(strings.TrimSpace(req.Username)))
    if err != nil {
        if errors.Is(err, repository.ErrUserNotFound) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
        }
        return writeError(c, err)
    }
    if !utils.VerifyPassword(u.PasswordHash, req.Password) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }

    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, authResp{
        User:   toUserPart(u),
        Access: tokenPart{Token: access.Token, Expires: access.Exp},
    })
}

// Me: the authenticated account.
func (h *AuthHandler) Me(c echo.Context) error {
    uid, ok := middleware.UserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    u, err := h.Users.GetByID(ctx, uid)
    if err != nil {
        if errors.Is(err, repository.ErrUserNotFound) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
        }
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, toUserPart(u))
}
