package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"homeservices-agent/internal/domain"
	"homeservices-agent/internal/service/session"
)

type loginRequest struct {
	User  *domain.User `json:"user" binding:"required"`
	Token string       `json:"token" binding:"required"`
}

type tokenRequest struct {
	Token string `json:"token" binding:"required"`
}

type sessionHandlers struct {
	store SessionStore
}

func (h *sessionHandlers) get(c *gin.Context) {
	c.JSON(http.StatusOK, toSessionResponse(h.store.State()))
}

func (h *sessionHandlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.User.ID) == "" {
		writeError(c, http.StatusBadRequest, "user id required")
		return
	}
	err := h.store.Login(c.Request.Context(), *req.User, req.Token)
	respondSession(c, h.store.State(), err)
}

func (h *sessionHandlers) setUser(c *gin.Context) {
	var user domain.User
	if err := c.ShouldBindJSON(&user); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(user.ID) == "" {
		writeError(c, http.StatusBadRequest, "user id required")
		return
	}
	err := h.store.UpdateUser(c.Request.Context(), user)
	if errors.Is(err, session.ErrNotAuthenticated) {
		writeError(c, http.StatusUnauthorized, err.Error())
		return
	}
	respondSession(c, h.store.State(), err)
}

func (h *sessionHandlers) setToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	err := h.store.SetToken(c.Request.Context(), req.Token)
	respondSession(c, h.store.State(), err)
}

func (h *sessionHandlers) logout(c *gin.Context) {
	err := h.store.Logout(c.Request.Context())
	respondSession(c, h.store.State(), err)
}

func (h *sessionHandlers) load(c *gin.Context) {
	h.store.LoadAuth(c.Request.Context())
	c.JSON(http.StatusOK, toSessionResponse(h.store.State()))
}
