package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"expensetracker/pkg/expense"
	"expensetracker/pkg/logging"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID   = "uid"
	ctxUsername = "username"
)

func setupRoutes(r *gin.Engine, a *app) {
	r.Use(gin.Recovery(), logging.Middleware(a.log), logging.AccessLog(), requestTimeout(a.cfg.RequestTimeout))

	r.GET("/healthz", a.healthHandler)
	r.POST("/register", a.registerHandler)
	r.POST("/login", a.loginHandler)
	r.POST("/refresh", a.refreshHandler)
	r.POST("/revoke_refresh", a.revokeRefreshHandler)

	authGroup := r.Group("")
	authGroup.Use(a.jwtAuthMiddleware())
	authGroup.GET("/me", a.meHandler)

	api := authGroup.Group("/api")
	api.GET("/categories", a.categoriesHandler)

	tx := api.Group("/transactions")
	tx.GET("", a.listTransactionsHandler)
	tx.POST("", a.createTransactionHandler)
	tx.GET("/dashboard/summary", a.dashboardSummaryHandler)
	tx.GET("/export", a.exportTransactionsHandler)
	tx.POST("/scan", a.scanReceiptHandler)
	tx.GET("/:id", a.getTransactionHandler)
	tx.PUT("/:id", a.updateTransactionHandler)
	tx.PATCH("/:id", a.updateTransactionHandler)
	tx.DELETE("/:id", a.deleteTransactionHandler)
}

// requestTimeout bounds the request context so store calls of an abandoned
// or slow request are canceled.
func requestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (a *app) jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || strings.TrimSpace(tokenString) == "" {
			fail(c, http.StatusUnauthorized, "missing or invalid Authorization header")
			c.Abort()
			return
		}
		claims, err := a.accounts.ParseAccessToken(strings.TrimSpace(tokenString))
		if err != nil {
			fail(c, http.StatusUnauthorized, "invalid token")
			c.Abort()
			return
		}
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUsername, claims.Username)
		ctx := c.Request.Context()
		ctx = logging.NewContext(ctx, logging.FromContext(ctx).With(logging.FieldUserID, claims.UserID))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// userID is the authenticated user placed in the context by jwtAuthMiddleware.
func userID(c *gin.Context) uint {
	return c.GetUint(ctxUserID)
}

// envelope is the body of every JSON response.
type envelope struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message,omitempty"`
	Data       any                 `json:"data,omitempty"`
	Pagination *expense.Pagination `json:"pagination,omitempty"`
	Errors     map[string]string   `json:"errors,omitempty"`
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Success: true, Data: data})
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, envelope{Success: false, Message: msg})
}

func invalid(c *gin.Context, field, msg string) {
	c.JSON(http.StatusBadRequest, envelope{Success: false, Message: "validation failed", Errors: map[string]string{field: msg}})
}

// respondError maps core errors to status codes. Anything unexpected is
// logged and reported as a generic server error.
func respondError(c *gin.Context, err error) {
	var verr *expense.ValidationError
	var serr *expense.StoreError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, envelope{Success: false, Message: "validation failed", Errors: verr.Fields})
	case errors.Is(err, expense.ErrNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, expense.ErrForbidden):
		fail(c, http.StatusForbidden, err.Error())
	case errors.As(err, &serr):
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, serr.Public())
	default:
		_ = c.Error(err)
		ctx := c.Request.Context()
		logging.FromContext(ctx).ErrorContext(ctx, "request failed", logging.FieldError, err)
		fail(c, http.StatusInternalServerError, "server error")
	}
}

func (a *app) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := a.ping(ctx); err != nil {
		_ = c.Error(err)
		fail(c, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	respond(c, http.StatusOK, gin.H{"status": "ok", "backend": a.cfg.DataBackend})
}
