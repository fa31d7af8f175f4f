package handler

import (
	"net/http"
	"strconv"

	"paintpos/internal/middleware"
	"paintpos/internal/model"
	"paintpos/internal/service"
	"paintpos/pkg/pagination"
	"paintpos/pkg/response"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	inventoryService service.InventoryService
}

func NewInventoryHandler(inventoryService service.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	products := router.Group("/api/products")
	{
		products.POST("", middleware.RequireRole(model.RoleAdmin), h.CreateProduct)
		products.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleCashier), h.ListProducts)
		products.GET("/low-stock", middleware.RequireRole(model.RoleAdmin, model.RoleCashier), h.LowStock)
		products.GET("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleCashier), h.GetProduct)
		products.PUT("/:id", middleware.RequireRole(model.RoleAdmin), h.UpdateProduct)
		products.DELETE("/:id", middleware.RequireRole(model.RoleAdmin), h.DeleteProduct)
		products.POST("/:id/adjust-stock", middleware.RequireRole(model.RoleAdmin), h.AdjustStock)
	}
}

// CreateProduct creates a new product
// @Summary      Create product
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateProductRequest  true  "Create Product Payload"
// @Success      201      {object}  response.Response{data=model.Product}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/products [post]
func (h *InventoryHandler) CreateProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	product, err := h.inventoryService.CreateProduct(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, product))
}

// ListProducts returns a paginated product list
// @Summary      List products
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        search  query     string  false  "Search by name or SKU"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Router       /api/products [get]
func (h *InventoryHandler) ListProducts(c *gin.Context) {
	p := pagination.Parse(c)

	products, total, err := h.inventoryService.ListProducts(c.Request.Context(), p.Page, p.Limit, c.Query("search"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"products": products,
		"total":    total,
		"page":     p.Page,
		"limit":    p.Limit,
	}))
}

// LowStock returns products at or below their minimum stock level
// @Summary      Low stock products
// @Description  Products whose current stock has reached the minimum level, most deficient first
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        limit  query     int  false  "Cap on number of rows"
// @Success      200    {object}  response.Response{data=[]service.LowStockItem}
// @Router       /api/products/low-stock [get]
func (h *InventoryHandler) LowStock(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	items, err := h.inventoryService.LowStockProducts(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// GetProduct returns a product by ID
// @Summary      Get product
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response{data=model.Product}
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id} [get]
func (h *InventoryHandler) GetProduct(c *gin.Context) {
	product, err := h.inventoryService.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// UpdateProduct updates product attributes
// @Summary      Update product
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Product ID"
// @Param        payload  body      service.UpdateProductRequest  true  "Update Product Payload"
// @Success      200      {object}  response.Response{data=model.Product}
// @Failure      404      {object}  response.Response
// @Router       /api/products/{id} [put]
func (h *InventoryHandler) UpdateProduct(c *gin.Context) {
	var req service.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	product, err := h.inventoryService.UpdateProduct(c.Request.Context(), currentUserID(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// DeleteProduct soft-deletes a product
// @Summary      Delete product
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id} [delete]
func (h *InventoryHandler) DeleteProduct(c *gin.Context) {
	if err := h.inventoryService.DeleteProduct(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"deleted": true,
	}))
}

// AdjustStock applies a manual stock correction
// @Summary      Adjust product stock
// @Description  Applies a positive or negative stock correction; never drives stock negative
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Product ID"
// @Param        payload  body      service.AdjustStockRequest  true  "Adjustment Payload"
// @Success      200      {object}  response.Response{data=object}
// @Failure      422      {object}  response.Response
// @Router       /api/products/{id}/adjust-stock [post]
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	var req service.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	newStock, err := h.inventoryService.AdjustStock(c.Request.Context(), currentUserID(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"current_stock": newStock.StringFixed(2),
	}))
}
