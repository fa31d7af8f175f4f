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

type MaterialHandler struct {
	materialService service.MaterialService
}

func NewMaterialHandler(materialService service.MaterialService) *MaterialHandler {
	return &MaterialHandler{materialService: materialService}
}

func (h *MaterialHandler) RegisterRoutes(router *gin.RouterGroup) {
	materials := router.Group("/api/raw-materials")
	{
		materials.POST("", middleware.RequireRole(model.RoleAdmin), h.CreateMaterial)
		materials.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleCashier), h.ListMaterials)
		materials.GET("/low-stock", middleware.RequireRole(model.RoleAdmin, model.RoleCashier), h.LowStock)
		materials.GET("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleCashier), h.GetMaterial)
		materials.PUT("/:id", middleware.RequireRole(model.RoleAdmin), h.UpdateMaterial)
		materials.POST("/:id/movements", middleware.RequireRole(model.RoleAdmin), h.RecordMovement)
		materials.GET("/:id/movements", middleware.RequireRole(model.RoleAdmin, model.RoleCashier), h.ListMovements)
	}
}

// CreateMaterial creates a raw material
// @Summary      Create raw material
// @Tags         raw-materials
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateMaterialRequest  true  "Create Material Payload"
// @Success      201      {object}  response.Response{data=model.RawMaterial}
// @Failure      400      {object}  response.Response
// @Router       /api/raw-materials [post]
func (h *MaterialHandler) CreateMaterial(c *gin.Context) {
	var req service.CreateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	material, err := h.materialService.CreateMaterial(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, material))
}

// ListMaterials returns a paginated raw material list
// @Summary      List raw materials
// @Tags         raw-materials
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Router       /api/raw-materials [get]
func (h *MaterialHandler) ListMaterials(c *gin.Context) {
	p := pagination.Parse(c)

	materials, total, err := h.materialService.ListMaterials(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"raw_materials": materials,
		"total":         total,
		"page":          p.Page,
		"limit":         p.Limit,
	}))
}

// LowStock returns raw materials at or below their minimum stock level
// @Summary      Low stock raw materials
// @Tags         raw-materials
// @Security     BearerAuth
// @Produce      json
// @Param        limit  query     int  false  "Cap on number of rows"
// @Success      200    {object}  response.Response{data=[]service.LowStockItem}
// @Router       /api/raw-materials/low-stock [get]
func (h *MaterialHandler) LowStock(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	items, err := h.materialService.LowStockMaterials(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// GetMaterial returns a raw material by ID
// @Summary      Get raw material
// @Tags         raw-materials
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Material ID"
// @Success      200  {object}  response.Response{data=model.RawMaterial}
// @Failure      404  {object}  response.Response
// @Router       /api/raw-materials/{id} [get]
func (h *MaterialHandler) GetMaterial(c *gin.Context) {
	material, err := h.materialService.GetMaterial(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, material))
}

// UpdateMaterial updates raw material attributes
// @Summary      Update raw material
// @Tags         raw-materials
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Material ID"
// @Param        payload  body      service.UpdateMaterialRequest  true  "Update Material Payload"
// @Success      200      {object}  response.Response{data=model.RawMaterial}
// @Failure      404      {object}  response.Response
// @Router       /api/raw-materials/{id} [put]
func (h *MaterialHandler) UpdateMaterial(c *gin.Context) {
	var req service.UpdateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	material, err := h.materialService.UpdateMaterial(c.Request.Context(), currentUserID(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, material))
}

// RecordMovement records an incoming or outgoing stock movement
// @Summary      Record stock movement
// @Description  Appends an immutable ledger entry and applies its stock effect atomically
// @Tags         raw-materials
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Material ID"
// @Param        payload  body      service.RecordMovementRequest  true  "Movement Payload"
// @Success      201      {object}  response.Response{data=model.RawMaterialStockMovement}
// @Failure      422      {object}  response.Response
// @Router       /api/raw-materials/{id}/movements [post]
func (h *MaterialHandler) RecordMovement(c *gin.Context) {
	var req service.RecordMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	movement, err := h.materialService.RecordMovement(c.Request.Context(), currentUserID(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, movement))
}

// ListMovements returns the movement ledger for a raw material
// @Summary      List stock movements
// @Tags         raw-materials
// @Security     BearerAuth
// @Produce      json
// @Param        id     path      string  true   "Material ID"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Router       /api/raw-materials/{id}/movements [get]
func (h *MaterialHandler) ListMovements(c *gin.Context) {
	p := pagination.Parse(c)

	movements, total, err := h.materialService.ListMovements(c.Request.Context(), c.Param("id"), p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"movements": movements,
		"total":     total,
		"page":      p.Page,
		"limit":     p.Limit,
	}))
}
