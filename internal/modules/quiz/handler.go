package quiz

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/studylog/core/internal/middleware"
	"github.com/studylog/core/internal/models"
	"github.com/studylog/core/internal/pkg/pagination"
	"github.com/studylog/core/internal/pkg/response"
)

type GenerateDTO struct {
	MaterialID string `json:"materialId" binding:"required"`
	Count      int    `json:"count"`
}

type SubmitDTO struct {
	Answers []AnswerDTO `json:"answers" binding:"required"`
}

type WeakReviewDTO struct {
	Count int `json:"count"`
}

const defaultQuestionCount = 5

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	q := rg.Group("/quiz", authMW)

	q.POST("/generate", h.generate)
	q.GET("/materials/:id", h.listByMaterial)
	q.POST("/submit", h.submit)
	q.GET("/wrong-notes", h.wrongNotes)
	q.GET("/weak-keywords", h.weakKeywords)
	q.POST("/weak-review", h.weakReview)
	q.GET("/my-attempts", h.myAttempts)
}

func (h *Handler) generate(c *gin.Context) {
	var dto GenerateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if dto.Count < 1 {
		dto.Count = defaultQuestionCount
	}

	questions, err := h.svc.Generate(c.Request.Context(), middleware.CurrentUserID(c), dto.MaterialID, dto.Count)
	if err != nil {
		switch {
		case errors.Is(err, ErrMaterialNotFound):
			response.NotFound(c)
		case errors.Is(err, ErrNoSlides):
			response.UnprocessableEntity(c, err.Error())
		default:
			response.BadGateway(c, err.Error())
		}
		return
	}
	response.Created(c, gin.H{"data": questions})
}

func (h *Handler) listByMaterial(c *gin.Context) {
	questions, err := h.svc.ListByMaterial(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrMaterialNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, questions)
}

func (h *Handler) submit(c *gin.Context) {
	var dto SubmitDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.svc.Submit(c.Request.Context(), middleware.CurrentUserID(c), dto.Answers)
	if err != nil {
		if errors.Is(err, ErrEmptyAnswers) {
			response.UnprocessableEntity(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *Handler) wrongNotes(c *gin.Context) {
	notes, err := h.svc.WrongNotes(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, notes)
}

func (h *Handler) weakKeywords(c *gin.Context) {
	rows, err := h.svc.WeakKeywords(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, rows)
}

func (h *Handler) weakReview(c *gin.Context) {
	var dto WeakReviewDTO
	_ = c.ShouldBindJSON(&dto)
	if dto.Count < 1 {
		dto.Count = defaultQuestionCount
	}

	questions, err := h.svc.WeakReview(c.Request.Context(), middleware.CurrentUserID(c), dto.Count)
	if err != nil {
		if errors.Is(err, ErrNoWeakKeywords) {
			response.UnprocessableEntity(c, err.Error())
			return
		}
		response.BadGateway(c, err.Error())
		return
	}
	response.Created(c, gin.H{"data": questions})
}

func (h *Handler) myAttempts(c *gin.Context) {
	q := pagination.FromContext(c)

	base := h.svc.db.Model(&models.QuestionAttempt{}).
		Where("user_id = ?", middleware.CurrentUserID(c)).
		Order("attempt_date DESC")

	var attempts []models.QuestionAttempt
	page, err := pagination.Paginate(base, q, &attempts)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, attempts, page)
}
