package handler

import (
	"net/http"

	"paintpos/internal/middleware"
	"paintpos/internal/model"
	"paintpos/internal/service"
	"paintpos/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statsService service.StatisticsService
}

func NewStatisticsHandler(statsService service.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{statsService: statsService}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	stats := router.Group("/api/statistics")
	{
		stats.GET("", middleware.RequireRole(model.RoleAdmin), h.GetStatistics)
		stats.GET("/daily", middleware.RequireRole(model.RoleAdmin), h.GetDailySales)
	}
}

// GetStatistics returns dashboard sales aggregates for a date range
// @Summary      Sales statistics
// @Description  Totals, counts and average over completed sales in the range; defaults to the last 30 days
// @Tags         statistics
// @Security     BearerAuth
// @Produce      json
// @Param        start_date  query     string  false  "Range start (YYYY-MM-DD)"
// @Param        end_date    query     string  false  "Range end (YYYY-MM-DD)"
// @Success      200         {object}  response.Response{data=model.DashboardStatistics}
// @Failure      400         {object}  response.Response
// @Router       /api/statistics [get]
func (h *StatisticsHandler) GetStatistics(c *gin.Context) {
	stats, err := h.statsService.GetStatistics(c.Request.Context(), c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}

// GetDailySales returns per-day completed-sale totals for a date range
// @Summary      Daily sales
// @Description  One point per calendar day that had completed sales, in ascending date order
// @Tags         statistics
// @Security     BearerAuth
// @Produce      json
// @Param        start_date  query     string  false  "Range start (YYYY-MM-DD)"
// @Param        end_date    query     string  false  "Range end (YYYY-MM-DD)"
// @Success      200         {object}  response.Response{data=[]model.DailySalesPoint}
// @Failure      400         {object}  response.Response
// @Router       /api/statistics/daily [get]
func (h *StatisticsHandler) GetDailySales(c *gin.Context) {
	points, err := h.statsService.GetDailySales(c.Request.Context(), c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, points))
}
