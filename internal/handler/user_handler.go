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

type UserHandler struct {
	userService service.UserService
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/api/auth/login", h.Login)

	users := router.Group("/api/users")
	{
		users.POST("", middleware.RequireRole(model.RoleAdmin), h.CreateUser)
		users.GET("", middleware.RequireRole(model.RoleAdmin), h.ListUsers)
		users.GET("/me", middleware.RequireRole(model.RoleAdmin, model.RoleCashier), h.GetMe)
	}
}

// Login authenticates a user and returns a JWT
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginUserRequest  true  "Login Payload"
// @Success      200      {object}  response.Response{data=service.TokenResponse}
// @Failure      401      {object}  response.Response
// @Router       /api/auth/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req service.LoginUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	token, err := h.userService.Login(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, token))
}

// CreateUser creates a store employee account
// @Summary      Create user
// @Tags         users
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateUserRequest  true  "Create User Payload"
// @Success      201      {object}  response.Response{data=service.UserResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req service.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, user))
}

// ListUsers returns a paginated user list
// @Summary      List users
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 10)"
// @Success      200    {object}  response.Response{data=object}
// @Router       /api/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	p := pagination.Parse(c)

	users, total, err := h.userService.ListUsers(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"users": users,
		"total": total,
		"page":  p.Page,
		"limit": p.Limit,
	}))
}

// GetMe returns the authenticated user
// @Summary      Current user
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.UserResponse}
// @Failure      401  {object}  response.Response
// @Router       /api/users/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	user, err := h.userService.GetUserByID(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}
