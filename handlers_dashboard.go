package main

import (
	"net/http"

	"expensetracker/models"

	"github.com/gin-gonic/gin"
)

func (a *app) dashboardSummaryHandler(c *gin.Context) {
	s, err := a.expenses.Summary(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, s)
}

func (a *app) categoriesHandler(c *gin.Context) {
	respond(c, http.StatusOK, models.CategoryCatalogue())
}
