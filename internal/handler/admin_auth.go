package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/screening-seat-booking/internal/log"
	"github.com/iliyamo/screening-seat-booking/internal/utils"
)

// RoleAdmin is the role claim granting catalog maintenance and reports.
const RoleAdmin = "ADMIN"

// AdminAuthHandler logs in the single configured administrator.
type AdminAuthHandler struct {
	Username     string
	PasswordHash string // bcrypt; empty disables login
	JWTSecret    string
	AccessTTLMin int
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login checks the credential and returns an access token.
func (h *AdminAuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	user := strings.TrimSpace(req.Username)
	if user == "" || req.Password == "" {
		return badRequest(c, "username/password required")
	}
	if h.PasswordHash == "" {
		return c.JSON(http.StatusServiceUnavailable, errorBody{Error: "admin login is not configured"})
	}
	// bcrypt runs even for a wrong username so timing does not reveal it
	passOK := utils.VerifyPassword(h.PasswordHash, req.Password)
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(h.Username)) == 1
	if !passOK || !userOK {
		log.FromContext(c.Request().Context()).WithField("username", user).Info("admin login rejected")
		return c.JSON(http.StatusUnauthorized, errorBody{Error: "invalid credentials"})
	}

	tok, err := utils.NewAccessToken(h.JWTSecret, user, RoleAdmin, h.AccessTTLMin)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, tok)
}
