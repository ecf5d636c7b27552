package api

import (
	"errors"
	"net/http"
	"strings"

	"backoffice-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// loginPage tells a client whether it already holds a session
func (h *Handler) loginPage(c *gin.Context) {
	id, _ := c.Cookie(sessionCookie)
	sess, err := h.auth.Session(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load session", zap.Error(err))
	}
	if sess != nil {
		c.JSON(http.StatusOK, gin.H{
			"loggedIn": true,
			"username": sess.Username,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"loggedIn": false,
		"login":    loginPath,
	})
}

// login accepts a JSON or form body and opens a session
func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	c.Set(usernameKey, req.Username)

	id, sess, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.record(c, "login", err, "")
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid username or password",
			})
			return
		}
		respondError(c, "Failed to log in", err)
		return
	}

	h.setSessionCookie(c, id)
	h.record(c, "login", nil, "")

	c.JSON(http.StatusOK, gin.H{
		"loggedIn": true,
		"username": sess.Username,
	})
}

// logout drops the session and its cookie
func (h *Handler) logout(c *gin.Context) {
	id, _ := c.Cookie(sessionCookie)
	if sess, err := h.auth.Session(c.Request.Context(), id); err == nil && sess != nil {
		c.Set(usernameKey, sess.Username)
	}

	err := h.auth.Logout(c.Request.Context(), id)
	h.clearSessionCookie(c)
	h.record(c, "logout", err, "")
	if err != nil {
		respondError(c, "Failed to log out", err)
		return
	}

	c.Redirect(http.StatusFound, loginPath)
}

// register lets a signed-in staff member create another account
func (h *Handler) register(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	user, err := h.auth.CreateUser(c.Request.Context(), req.Username, req.Password)
	h.record(c, "register", err, "new_user="+strings.TrimSpace(req.Username))
	if err != nil {
		respondError(c, "Failed to create user", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":       user.ID,
		"username": user.Username,
	})
}
