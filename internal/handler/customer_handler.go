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

type CustomerHandler struct {
	customerService service.CustomerService
}

func NewCustomerHandler(customerService service.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: customerService}
}

func (h *CustomerHandler) RegisterRoutes(router *gin.RouterGroup) {
	customers := router.Group("/api/customers")
	{
		customers.POST("", middleware.RequireRole(model.RoleAdmin, model.RoleCashier), h.CreateCustomer)
		customers.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleCashier), h.ListCustomers)
		customers.GET("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleCashier), h.GetCustomer)
	}
}

// CreateCustomer registers a customer
// @Summary      Create customer
// @Tags         customers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateCustomerRequest  true  "Create Customer Payload"
// @Success      201      {object}  response.Response{data=model.Customer}
// @Failure      400      {object}  response.Response
// @Router       /api/customers [post]
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req service.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	customer, err := h.customerService.CreateCustomer(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, customer))
}

// ListCustomers returns a paginated customer list
// @Summary      List customers
// @Tags         customers
// @Security     BearerAuth
// @Produce      json
// @Param        search  query     string  false  "Search by name or phone"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Router       /api/customers [get]
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	p := pagination.Parse(c)

	customers, total, err := h.customerService.ListCustomers(c.Request.Context(), p.Page, p.Limit, c.Query("search"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"customers": customers,
		"total":     total,
		"page":      p.Page,
		"limit":     p.Limit,
	}))
}

// GetCustomer returns a customer by ID
// @Summary      Get customer
// @Tags         customers
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Customer ID"
// @Success      200  {object}  response.Response{data=model.Customer}
// @Failure      404  {object}  response.Response
// @Router       /api/customers/{id} [get]
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	customer, err := h.customerService.GetCustomer(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, customer))
}
