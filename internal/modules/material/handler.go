package material

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/studylog/core/internal/middleware"
	"github.com/studylog/core/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	m := rg.Group("/materials", authMW)

	m.POST("", h.upload)
	m.GET("", h.list)
	m.GET("/:id", h.get)
	m.DELETE("/:id", h.remove)
	m.GET("/:id/summary", h.summary)
}

func (h *Handler) upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}

	m, err := h.svc.Upload(c.Request.Context(), c, middleware.CurrentUserID(c), c.PostForm("materialName"), file)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotPDF), errors.Is(err, ErrTooManyPages):
			response.UnprocessableEntity(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.Created(c, m)
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.List(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, items)
}

func (h *Handler) get(c *gin.Context) {
	m, err := h.svc.Get(middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, m)
}

func (h *Handler) remove(c *gin.Context) {
	err := h.svc.Delete(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) summary(c *gin.Context) {
	summary, err := h.svc.Summary(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(c)
		case errors.Is(err, ErrNoSlides):
			response.UnprocessableEntity(c, err.Error())
		default:
			response.BadGateway(c, err.Error())
		}
		return
	}
	response.OK(c, gin.H{"summary": summary})
}
