package slide

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/studylog/core/internal/middleware"
	"github.com/studylog/core/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	m := rg.Group("/materials/:id/slides", authMW)

	m.GET("", h.list)
	m.GET("/:n", h.get)
	m.POST("/:n/summary", h.ensureSummary)
}

func (h *Handler) list(c *gin.Context) {
	slides, err := h.svc.List(middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrMaterialNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, slides)
}

func (h *Handler) get(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil {
		response.BadRequest(c, "slide number must be an integer")
		return
	}

	sl, err := h.svc.Get(middleware.CurrentUserID(c), c.Param("id"), n)
	if err != nil {
		switch {
		case errors.Is(err, ErrMaterialNotFound), errors.Is(err, ErrSlideNotFound):
			response.NotFound(c)
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.OK(c, sl)
}

func (h *Handler) ensureSummary(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil {
		response.BadRequest(c, "slide number must be an integer")
		return
	}

	sl, err := h.svc.EnsureSummary(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"), n)
	if err != nil {
		switch {
		case errors.Is(err, ErrMaterialNotFound):
			response.NotFound(c)
		case errors.Is(err, ErrPageOutOfRange):
			response.UnprocessableEntity(c, err.Error())
		case errors.Is(err, ErrBusy):
			response.Conflict(c, err.Error())
		default:
			response.BadGateway(c, err.Error())
		}
		return
	}
	response.OK(c, sl)
}
