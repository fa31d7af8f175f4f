package handler

import (
	"net/http"

	"paintpos/internal/middleware"
	"paintpos/internal/model"
	"paintpos/internal/service"
	"paintpos/pkg/pagination"
	"paintpos/pkg/response"

	"github.com/gin-gonic/gin"
)

type SaleHandler struct {
	saleService service.SaleService
}

func NewSaleHandler(saleService service.SaleService) *SaleHandler {
	return &SaleHandler{saleService: saleService}
}

func (h *SaleHandler) RegisterRoutes(router *gin.RouterGroup) {
	sales := router.Group("/api/sales")
	{
		sales.POST("", middleware.RequireRole(model.RoleAdmin, model.RoleCashier), h.CreateSale)
		sales.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleCashier), h.ListSales)
		sales.GET("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleCashier), h.GetSale)
		sales.DELETE("/:id", middleware.RequireRole(model.RoleAdmin), h.DeleteSale)
	}
}

// CreateSale records a sale and decrements stock atomically
// @Summary      Create sale
// @Description  Creates a sale with its items, decrements stock and assigns an invoice number
// @Tags         sales
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateSaleRequest  true  "Create Sale Payload"
// @Success      201      {object}  response.Response{data=service.SaleResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/sales [post]
func (h *SaleHandler) CreateSale(c *gin.Context) {
	var req service.CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	sale, err := h.saleService.CreateSale(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, sale))
}

// ListSales returns a paginated list of sales, optionally filtered by status
// @Summary      List sales
// @Description  Retrieves a paginated list of sales, newest first
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "Filter by status (completed, pending, cancelled)"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Failure      500     {object}  response.Response
// @Router       /api/sales [get]
func (h *SaleHandler) ListSales(c *gin.Context) {
	p := pagination.Parse(c)

	sales, total, err := h.saleService.ListSales(c.Request.Context(), c.Query("status"), p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"sales": sales,
		"total": total,
		"page":  p.Page,
		"limit": p.Limit,
	}))
}

// GetSale returns a single sale with its items
// @Summary      Get sale
// @Description  Retrieves a sale by ID including its line items
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Sale ID"
// @Success      200  {object}  response.Response{data=service.SaleResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/sales/{id} [get]
func (h *SaleHandler) GetSale(c *gin.Context) {
	sale, err := h.saleService.GetSale(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, sale))
}

// DeleteSale deletes a pending sale and restores its stock
// @Summary      Delete sale
// @Description  Deletes a pending sale; its stock decrements are reversed. Completed sales cannot be deleted.
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Sale ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/sales/{id} [delete]
func (h *SaleHandler) DeleteSale(c *gin.Context) {
	if err := h.saleService.DeleteSale(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"deleted": true,
	}))
}
