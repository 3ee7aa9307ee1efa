package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/studylog/core/internal/middleware"
	"github.com/studylog/core/internal/models"
	jwtpkg "github.com/studylog/core/internal/pkg/jwt"
	"github.com/studylog/core/internal/pkg/response"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	errBadCredentials = errors.New("아이디 또는 비밀번호가 올바르지 않아요")
	errUsernameTaken  = errors.New("이미 사용 중인 아이디예요")
)

type LoginDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterDTO struct {
	Username string `json:"username" binding:"required,min=3"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

type Service struct {
	db  *gorm.DB
	ttl time.Duration
}

func NewService(db *gorm.DB, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 30 * 24 * time.Hour
	}
	return &Service{db: db, ttl: tokenTTL}
}

// Login verifies credentials and returns a signed token plus the user.
// Unknown users and wrong passwords share one error so the endpoint
// never reveals which usernames exist.
func (s *Service) Login(username, password string) (string, *models.UserModel, error) {
	var u models.UserModel
	if err := s.db.Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, errBadCredentials
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return "", nil, errBadCredentials
	}

	now := time.Now()
	s.db.Model(&u).Update("last_login_time", now)

	token, err := jwtpkg.Sign(u.ID, s.ttl)
	if err != nil {
		return "", nil, err
	}
	return token, &u, nil
}

func (s *Service) Register(dto *RegisterDTO) (*models.UserModel, error) {
	var count int64
	if err := s.db.Model(&models.UserModel{}).Where("username = ?", dto.Username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	name := dto.Name
	if name == "" {
		name = dto.Username
	}
	u := models.UserModel{Username: dto.Username, Password: string(hash), Name: name}
	return &u, s.db.Create(&u).Error
}

func (s *Service) Profile(userID string) (*models.UserModel, error) {
	var u models.UserModel
	if err := s.db.Where("id = ?", userID).First(&u).Error; err != nil {
		return nil, fmt.Errorf("user %s: %w", userID, err)
	}
	return &u, nil
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	a := rg.Group("/auth")

	a.POST("/register", h.register)
	a.POST("/login", h.login)
	a.GET("/me", authMW, h.me)
}

func (h *Handler) register(c *gin.Context) {
	var dto RegisterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.Register(&dto)
	if err != nil {
		if errors.Is(err, errUsernameTaken) {
			response.Conflict(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, userResponse{ID: u.ID, Username: u.Username, Name: u.Name})
}

func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	token, u, err := h.svc.Login(dto.Username, dto.Password)
	if err != nil {
		if errors.Is(err, errBadCredentials) {
			response.UnauthorizedMsg(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{
		"token": token,
		"user":  userResponse{ID: u.ID, Username: u.Username, Name: u.Name},
	})
}

func (h *Handler) me(c *gin.Context) {
	u, err := h.svc.Profile(middleware.CurrentUserID(c))
	if err != nil {
		response.NotFound(c)
		return
	}
	response.OK(c, userResponse{ID: u.ID, Username: u.Username, Name: u.Name})
}
