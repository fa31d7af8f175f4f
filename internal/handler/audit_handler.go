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

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/audit-logs", middleware.RequireRole(model.RoleAdmin), h.ListLogs)
}

// ListLogs returns the audit trail, newest first
// @Summary      List audit logs
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) ListLogs(c *gin.Context) {
	p := pagination.Parse(c)

	logs, total, err := h.auditService.ListLogs(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"total": total,
		"page":  p.Page,
		"limit": p.Limit,
	}))
}
