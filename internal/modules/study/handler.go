package study

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/studylog/core/internal/middleware"
	"github.com/studylog/core/internal/pkg/response"
)

type AddTimeDTO struct {
	Duration int `json:"duration" binding:"required"` // seconds
}

type CheckInDTO struct {
	MaterialID string `json:"materialId" binding:"required"`
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	st := rg.Group("/study", authMW)

	st.POST("/time", h.addTime)
	st.GET("/time/today", h.todayTime)
	st.POST("/progress", h.checkInProgress)
	st.GET("/intensity/today", h.intensityToday)
	st.GET("/intensity/history", h.intensityHistory)
	st.GET("/intensity/month", h.intensityMonth)
	st.POST("/intensity/refresh", h.refreshIntensity)
}

func (h *Handler) addTime(c *gin.Context) {
	var dto AddTimeDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	total, err := h.svc.AddTime(c.Request.Context(), middleware.CurrentUserID(c), dto.Duration)
	if err != nil {
		if errors.Is(err, ErrBadDuration) {
			response.UnprocessableEntity(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"totalTime": total})
}

func (h *Handler) todayTime(c *gin.Context) {
	total, err := h.svc.TodayTime(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"totalTime": total})
}

func (h *Handler) checkInProgress(c *gin.Context) {
	var dto CheckInDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	report, err := h.svc.CheckInProgress(c.Request.Context(), middleware.CurrentUserID(c), dto.MaterialID)
	if err != nil {
		if errors.Is(err, ErrMaterialNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, report)
}

func (h *Handler) intensityToday(c *gin.Context) {
	breakdown, err := h.svc.Intensity(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, breakdown)
}

func (h *Handler) intensityHistory(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))

	rows, err := h.svc.History(c.Request.Context(), middleware.CurrentUserID(c), days)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, rows)
}

func (h *Handler) intensityMonth(c *gin.Context) {
	year, _ := strconv.Atoi(c.Query("year"))
	month, _ := strconv.Atoi(c.Query("month"))

	rows, err := h.svc.MonthHistory(c.Request.Context(), middleware.CurrentUserID(c), year, month)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, rows)
}

func (h *Handler) refreshIntensity(c *gin.Context) {
	breakdown, err := h.svc.RefreshIntensity(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, breakdown)
}
