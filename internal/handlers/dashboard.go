package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storefront/internal/dashboard"
)

// daysParam reads ?days=N; anything unparsable means the default window.
func daysParam(c *gin.Context) int {
	days, err := strconv.Atoi(c.Query("days"))
	if err != nil {
		return 0
	}
	return days
}

func DashboardOverview(svc *dashboard.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/dashboard/overview"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		overview, err := svc.Overview(ctx)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, overview)
	}
}

func SalesChart(svc *dashboard.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/dashboard/sales-chart"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		series, err := svc.SalesSeries(ctx, daysParam(c))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": series})
	}
}

func RevenueByCategory(svc *dashboard.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/dashboard/revenue-by-category"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		rows, err := svc.RevenueByCategory(ctx, daysParam(c))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": rows})
	}
}
