package material

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/studylog/core/internal/config"
	"github.com/studylog/core/internal/models"
	"github.com/studylog/core/internal/pkg/objstore"
	"github.com/studylog/core/internal/pkg/pdf"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNotFound     = errors.New("material not found")
	ErrNotPDF       = errors.New("PDF 파일만 업로드할 수 있어요")
	ErrTooManyPages = errors.New("페이지 수가 허용 범위를 넘었어요")
	ErrNoSlides     = errors.New("요약된 슬라이드가 아직 없어요")
)

// Summarizer produces the whole-material summary from concatenated
// slide summaries.
type Summarizer interface {
	SummarizeMaterial(ctx context.Context, refID, combined string) (string, error)
}

type Service struct {
	db         *gorm.DB
	storageDir string
	maxPages   int
	uploader   *objstore.Uploader
	summarizer Summarizer
	log        *zap.Logger

	// countPages is swappable in tests; defaults to pdfinfo.
	countPages func(ctx context.Context, path string) (int, error)
}

func NewService(db *gorm.DB, cfg *config.AppConfig, uploader *objstore.Uploader, summarizer Summarizer, log *zap.Logger) *Service {
	return &Service{
		db:         db,
		storageDir: cfg.Storage.Dir,
		maxPages:   cfg.OCR.MaxPages,
		uploader:   uploader,
		summarizer: summarizer,
		log:        log,
		countPages: pdf.PageCount,
	}
}

// StoredPath resolves a material's PDF location on disk.
func (s *Service) StoredPath(m *models.LectureMaterial) string {
	return filepath.Join(s.storageDir, m.StoredFile)
}

// Upload validates the PDF, stores it under a server-generated UUID name
// and creates the material record with the real page count.
func (s *Service) Upload(ctx context.Context, c *gin.Context, userID, materialName string, file *multipart.FileHeader) (*models.LectureMaterial, error) {
	original := filepath.Base(file.Filename)
	if !strings.EqualFold(filepath.Ext(original), ".pdf") {
		return nil, ErrNotPDF
	}

	if err := os.MkdirAll(s.storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage dir: %w", err)
	}

	// never derive the stored name from client input
	storedFile := uuid.New().String() + ".pdf"
	dest := filepath.Join(s.storageDir, storedFile)
	if err := c.SaveUploadedFile(file, dest); err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}

	pages, err := s.countPages(ctx, dest)
	if err != nil {
		os.Remove(dest)
		return nil, fmt.Errorf("page count: %w", err)
	}
	if pages < 1 {
		os.Remove(dest)
		return nil, ErrNotPDF
	}
	if pages > s.maxPages {
		os.Remove(dest)
		return nil, ErrTooManyPages
	}

	name := strings.TrimSpace(materialName)
	if name == "" {
		name = strings.TrimSuffix(original, filepath.Ext(original))
	}

	m := models.LectureMaterial{
		UserID:       userID,
		MaterialName: name,
		OriginalName: original,
		StoredFile:   storedFile,
		Page:         pages,
	}
	if err := s.db.Create(&m).Error; err != nil {
		os.Remove(dest)
		return nil, err
	}

	if s.uploader != nil {
		if err := s.uploader.Put(ctx, storedFile, dest); err != nil && s.log != nil {
			s.log.Warn("s3 offload failed", zap.String("material", m.ID), zap.Error(err))
		}
	}

	return &m, nil
}

// List returns the caller's materials, newest first.
func (s *Service) List(userID string) ([]models.LectureMaterial, error) {
	var items []models.LectureMaterial
	err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&items).Error
	return items, err
}

// Get returns one material with its slides preloaded.
func (s *Service) Get(userID, materialID string) (*models.LectureMaterial, error) {
	var m models.LectureMaterial
	err := s.db.Preload("Slides", func(db *gorm.DB) *gorm.DB {
		return db.Select("id, material_id, slide_number, slide_title, summary").Order("slide_number ASC")
	}).Where("id = ? AND user_id = ?", materialID, userID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// Delete removes a material and every dependent row in one transaction,
// then cleans up the stored file.
func (s *Service) Delete(ctx context.Context, userID, materialID string) error {
	var m models.LectureMaterial
	if err := s.db.Where("id = ? AND user_id = ?", materialID, userID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var questionIDs []string
		if err := tx.Model(&models.Question{}).Where("material_id = ?", m.ID).Pluck("id", &questionIDs).Error; err != nil {
			return err
		}
		if len(questionIDs) > 0 {
			if err := tx.Where("question_id IN ?", questionIDs).Delete(&models.QuestionAttempt{}).Error; err != nil {
				return err
			}
			if err := tx.Where("question_id IN ?", questionIDs).Delete(&models.QuestionKeyword{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("material_id = ?", m.ID).Delete(&models.Question{}).Error; err != nil {
			return err
		}

		var slideIDs []string
		if err := tx.Model(&models.Slide{}).Where("material_id = ?", m.ID).Pluck("id", &slideIDs).Error; err != nil {
			return err
		}
		if len(slideIDs) > 0 {
			if err := tx.Where("slide_id IN ?", slideIDs).Delete(&models.SlideKeyword{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("material_id = ?", m.ID).Delete(&models.Slide{}).Error; err != nil {
			return err
		}

		if err := tx.Where("material_id = ? AND user_id = ?", m.ID, userID).Delete(&models.StudyProgressLog{}).Error; err != nil {
			return err
		}
		return tx.Delete(&m).Error
	})
	if err != nil {
		return err
	}

	if rmErr := os.Remove(s.StoredPath(&m)); rmErr != nil && !os.IsNotExist(rmErr) && s.log != nil {
		s.log.Warn("stored file cleanup failed", zap.String("material", m.ID), zap.Error(rmErr))
	}
	if s.uploader != nil {
		if delErr := s.uploader.Delete(ctx, m.StoredFile); delErr != nil && s.log != nil {
			s.log.Warn("s3 cleanup failed", zap.String("material", m.ID), zap.Error(delErr))
		}
	}
	return nil
}

// Summary returns the whole-material summary, generating and caching it
// on the row the first time.
func (s *Service) Summary(ctx context.Context, userID, materialID string) (string, error) {
	var m models.LectureMaterial
	if err := s.db.Where("id = ? AND user_id = ?", materialID, userID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	if strings.TrimSpace(m.Summary) != "" {
		return m.Summary, nil
	}

	var slides []models.Slide
	if err := s.db.Select("slide_number, slide_title, summary").
		Where("material_id = ? AND summary <> ''", m.ID).
		Order("slide_number ASC").Find(&slides).Error; err != nil {
		return "", err
	}
	if len(slides) == 0 {
		return "", ErrNoSlides
	}

	var combined strings.Builder
	for _, sl := range slides {
		fmt.Fprintf(&combined, "%d. %s: %s\n", sl.SlideNumber, sl.SlideTitle, sl.Summary)
	}

	summary, err := s.summarizer.SummarizeMaterial(ctx, m.ID, combined.String())
	if err != nil {
		return "", err
	}
	if err := s.db.Model(&m).Update("summary", summary).Error; err != nil {
		return "", err
	}
	return summary, nil
}
