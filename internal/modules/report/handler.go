package report

import (
	"github.com/gin-gonic/gin"
	"github.com/studylog/core/internal/middleware"
	"github.com/studylog/core/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/reports", authMW)
	g.GET("/weekly", h.weekly)
	g.GET("/monthly", h.monthly)
}

func (h *Handler) weekly(c *gin.Context) {
	r, err := h.svc.Weekly(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, r)
}

func (h *Handler) monthly(c *gin.Context) {
	r, err := h.svc.Monthly(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, r)
}
