package blogit

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type createUserRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

func (a *App) handleListUsers(c echo.Context) error {
	users, err := a.Store.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

func (a *App) handleCreateUser(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	user, err := NewUser(strings.TrimSpace(req.Username), req.Name, req.Password)
	if err != nil {
		return err
	}
	saved, err := a.Store.CreateUser(c.Request().Context(), user)
	if err != nil {
		return err
	}
	a.Log.Info("user created", "id", saved.ID, "username", saved.Username)
	return c.JSON(http.StatusOK, saved)
}

func (a *App) handleLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.JSON(http.StatusTooManyRequests, errorBody("too many login attempts, try again later"))
	}

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	user, err := a.Store.GetUserByUsername(c.Request().Context(), req.Username)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err != nil || !CheckPassword(user.PasswordHash, req.Password) {
		a.loginLimiter.Fail(ip)
		a.Log.Warn("login failed", "username", req.Username, "remote_ip", ip)
		return c.JSON(http.StatusUnauthorized, errorBody("invalid username or password"))
	}
	a.loginLimiter.Reset(ip)

	token, err := a.Tokens.Issue(user)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loginResponse{
		Token:    token,
		Username: user.Username,
		Name:     user.Name,
	})
}
