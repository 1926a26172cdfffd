package main

import (
	"errors"
	"net/http"

	"expensetracker/pkg/account"

	"github.com/gin-gonic/gin"
)

type credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func (a *app) registerHandler(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "username and password are required")
		return
	}
	u, err := a.accounts.Register(c.Request.Context(), req.Username, req.Password)
	var inErr *account.InputError
	switch {
	case errors.As(err, &inErr):
		invalid(c, inErr.Field, inErr.Msg)
		return
	case errors.Is(err, account.ErrUserExists):
		fail(c, http.StatusConflict, err.Error())
		return
	case err != nil:
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, envelope{Success: true, Message: "user registered successfully", Data: gin.H{"id": u.ID, "username": u.Username}})
}

func (a *app) loginHandler(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "username and password are required")
		return
	}
	u, tokens, err := a.accounts.Login(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, account.ErrInvalidCredentials) {
		fail(c, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, envelope{Success: true, Message: "login successful", Data: gin.H{
		"user":         gin.H{"id": u.ID, "username": u.Username},
		"token":        tokens.AccessToken,
		"refreshToken": tokens.RefreshToken,
		"expiresAt":    tokens.ExpiresAt,
	}})
}

func (a *app) refreshHandler(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, "refreshToken", "refreshToken is required")
		return
	}
	tokens, err := a.accounts.Refresh(c.Request.Context(), req.RefreshToken)
	if errors.Is(err, account.ErrExpiredRefresh) {
		fail(c, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, tokens)
}

func (a *app) revokeRefreshHandler(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, "refreshToken", "refreshToken is required")
		return
	}
	err := a.accounts.Revoke(c.Request.Context(), req.RefreshToken)
	if errors.Is(err, account.ErrTokenNotFound) {
		fail(c, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, envelope{Success: true, Message: "refresh token revoked"})
}

func (a *app) meHandler(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{"id": userID(c), "username": c.GetString(ctxUsername)})
}
