package slide

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/studylog/core/internal/config"
	"github.com/studylog/core/internal/models"
	"github.com/studylog/core/internal/modules/ai"
	"github.com/studylog/core/internal/modules/ocr"
	"github.com/studylog/core/internal/pkg/pdf"
	redispkg "github.com/studylog/core/internal/pkg/redis"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrMaterialNotFound = errors.New("material not found")
	ErrSlideNotFound    = errors.New("slide not found")
	ErrPageOutOfRange   = errors.New("존재하지 않는 페이지예요")
	ErrBusy             = errors.New("같은 슬라이드를 아직 처리하고 있어요")
)

// emptySlideNotice replaces the summary when OCR finds no text on a page.
const emptySlideNotice = "이 슬라이드에서 인식된 텍스트가 없어요."

const lockTTL = 2 * time.Minute

// Generator produces the structured summary for one slide's text.
type Generator interface {
	SummarizeSlide(ctx context.Context, refID, text string) (*ai.SlideSummary, error)
}

// ProgressTracker records recalculated material progress in the study log.
type ProgressTracker interface {
	RecordProgress(ctx context.Context, userID, materialID string, progress float64) error
}

type Service struct {
	db         *gorm.DB
	engine     ocr.Engine
	gen        Generator
	tracker    ProgressTracker
	rc         *redispkg.Client // nil disables locking
	storageDir string
	log        *zap.Logger

	// renderPage is swappable in tests; defaults to pdftoppm.
	renderPage func(ctx context.Context, path string, page int, outDir string) (string, error)
}

func NewService(db *gorm.DB, cfg *config.AppConfig, engine ocr.Engine, gen Generator, tracker ProgressTracker, rc *redispkg.Client, log *zap.Logger) *Service {
	return &Service{
		db:         db,
		engine:     engine,
		gen:        gen,
		tracker:    tracker,
		rc:         rc,
		storageDir: cfg.Storage.Dir,
		log:        log,
		renderPage: pdf.RenderPage,
	}
}

// EnsureSummary returns the summarized slide, running the render → OCR →
// LLM pipeline only when the slide has no summary yet. Repeat calls for
// a summarized slide touch neither OCR nor the provider.
func (s *Service) EnsureSummary(ctx context.Context, userID, materialID string, slideNumber int) (*models.Slide, error) {
	m, err := s.ownedMaterial(userID, materialID)
	if err != nil {
		return nil, err
	}
	if slideNumber < 1 || slideNumber > m.Page {
		return nil, ErrPageOutOfRange
	}

	if sl, ok := s.summarizedSlide(m.ID, slideNumber); ok {
		return sl, nil
	}

	if s.rc != nil {
		key := fmt.Sprintf("studylog:slide_lock:%s:%d", m.ID, slideNumber)
		acquired, lockErr := s.rc.SetNX(ctx, key, "1", lockTTL)
		if lockErr == nil {
			if !acquired {
				return nil, ErrBusy
			}
			defer s.rc.Del(ctx, key)
		}

		// someone else may have finished while we waited for the lock
		if sl, ok := s.summarizedSlide(m.ID, slideNumber); ok {
			return sl, nil
		}
	}

	text, err := s.extractText(ctx, m, slideNumber)
	if err != nil {
		return nil, err
	}

	slideModel := models.Slide{
		MaterialID:   m.ID,
		SlideNumber:  slideNumber,
		OriginalText: text,
	}

	var keywords []string
	if strings.TrimSpace(text) == "" {
		slideModel.SlideTitle = fmt.Sprintf("%d번 슬라이드", slideNumber)
		slideModel.Summary = emptySlideNotice
	} else {
		summary, genErr := s.gen.SummarizeSlide(ctx, fmt.Sprintf("%s:%d", m.ID, slideNumber), text)
		if genErr != nil {
			return nil, genErr
		}
		slideModel.SlideTitle = summary.SlideTitle
		slideModel.ConceptExplanation = summary.ConceptExplanation
		slideModel.MainKeywords = summary.MainKeywords
		slideModel.ImportantSentences = summary.ImportantSentences
		slideModel.Summary = summary.Summary
		keywords = summary.MainKeywords
	}

	if err := s.persistSlide(&slideModel, keywords); err != nil {
		return nil, err
	}

	progress, err := s.recalcProgress(m)
	if err != nil {
		return nil, err
	}
	if s.tracker != nil {
		if trackErr := s.tracker.RecordProgress(ctx, userID, m.ID, progress); trackErr != nil && s.log != nil {
			s.log.Warn("progress log failed", zap.String("material", m.ID), zap.Error(trackErr))
		}
	}

	return &slideModel, nil
}

// List returns the summarized slides of a material in page order.
func (s *Service) List(userID, materialID string) ([]models.Slide, error) {
	if _, err := s.ownedMaterial(userID, materialID); err != nil {
		return nil, err
	}
	var slides []models.Slide
	err := s.db.Where("material_id = ?", materialID).Order("slide_number ASC").Find(&slides).Error
	return slides, err
}

// Get returns one slide with its keywords preloaded.
func (s *Service) Get(userID, materialID string, slideNumber int) (*models.Slide, error) {
	if _, err := s.ownedMaterial(userID, materialID); err != nil {
		return nil, err
	}
	var sl models.Slide
	err := s.db.Preload("Keywords").
		Where("material_id = ? AND slide_number = ?", materialID, slideNumber).First(&sl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlideNotFound
		}
		return nil, err
	}
	return &sl, nil
}

func (s *Service) ownedMaterial(userID, materialID string) (*models.LectureMaterial, error) {
	var m models.LectureMaterial
	err := s.db.Where("id = ? AND user_id = ?", materialID, userID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMaterialNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (s *Service) summarizedSlide(materialID string, slideNumber int) (*models.Slide, bool) {
	var sl models.Slide
	err := s.db.Where("material_id = ? AND slide_number = ? AND summary <> ''", materialID, slideNumber).First(&sl).Error
	if err != nil {
		return nil, false
	}
	return &sl, true
}

func (s *Service) extractText(ctx context.Context, m *models.LectureMaterial, slideNumber int) (string, error) {
	pdfPath := filepath.Join(s.storageDir, m.StoredFile)
	outDir, err := os.MkdirTemp("", "studylog-render-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(outDir)

	img, err := s.renderPage(ctx, pdfPath, slideNumber, outDir)
	if err != nil {
		return "", fmt.Errorf("render page %d: %w", slideNumber, err)
	}

	text, err := s.engine.Recognize(ctx, img)
	if err != nil {
		return "", fmt.Errorf("ocr page %d: %w", slideNumber, err)
	}
	return text, nil
}

// persistSlide writes the slide plus its keyword links in one transaction.
func (s *Service) persistSlide(sl *models.Slide, keywords []string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "material_id"}, {Name: "slide_number"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"original_text", "slide_title", "concept_explanation",
				"main_keywords", "important_sentences", "summary",
			}),
		}).Create(sl).Error; err != nil {
			return err
		}

		// the upsert path may not backfill the ID on conflict
		if err := tx.Where("material_id = ? AND slide_number = ?", sl.MaterialID, sl.SlideNumber).First(sl).Error; err != nil {
			return err
		}

		for _, name := range keywords {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			kw := models.Keyword{Name: name}
			if err := tx.Where("name = ?", name).FirstOrCreate(&kw).Error; err != nil {
				return err
			}
			link := models.SlideKeyword{SlideID: sl.ID, KeywordID: kw.ID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// recalcProgress updates the material's progress from its summarized
// slide count: summarized / pages * 100, two decimals.
func (s *Service) recalcProgress(m *models.LectureMaterial) (float64, error) {
	var summarized int64
	if err := s.db.Model(&models.Slide{}).
		Where("material_id = ? AND summary <> ''", m.ID).Count(&summarized).Error; err != nil {
		return 0, err
	}

	progress := 0.0
	if m.Page > 0 {
		progress = math.Round(float64(summarized)/float64(m.Page)*100*100) / 100
	}
	if err := s.db.Model(m).Update("progress", progress).Error; err != nil {
		return 0, err
	}
	return progress, nil
}
