package quiz

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/studylog/core/internal/models"
	"github.com/studylog/core/internal/modules/ai"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrMaterialNotFound = errors.New("material not found")
	ErrNoSlides         = errors.New("요약된 슬라이드가 아직 없어요")
	ErrNoWeakKeywords   = errors.New("약점 키워드가 아직 없어요")
	ErrEmptyAnswers     = errors.New("제출할 답안이 없어요")
)

const weakReviewKeywordLimit = 5

// Generator produces quiz questions through the LLM.
type Generator interface {
	GenerateQuestions(ctx context.Context, refID, content string, count int) ([]ai.GeneratedQuestion, error)
	GenerateWeakReview(ctx context.Context, refID string, keywords []string, count int) ([]ai.GeneratedQuestion, error)
}

// AnswerDTO is one submitted answer.
type AnswerDTO struct {
	QuestionID string `json:"questionId" binding:"required"`
	Answer     string `json:"answer"`
}

// AnswerResult is the graded outcome for one question.
type AnswerResult struct {
	QuestionID    string `json:"question_id"`
	IsCorrect     bool   `json:"is_correct"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation"`
}

// SubmitResult aggregates a graded submission.
type SubmitResult struct {
	Results []AnswerResult `json:"results"`
	Total   int            `json:"total"`
	Correct int            `json:"correct"`
	Score   float64        `json:"score"` // percent
}

// WrongNote pairs a wrong attempt with its question for review.
type WrongNote struct {
	QuestionID    string    `json:"question_id"`
	QuestionType  string    `json:"question_type"`
	QuestionText  string    `json:"question_text"`
	UserAnswer    string    `json:"user_answer"`
	CorrectAnswer string    `json:"correct_answer"`
	Explanation   string    `json:"explanation"`
	AttemptDate   time.Time `json:"attempt_date"`
}

// WeakKeyword is a keyword ranked by wrong answers.
type WeakKeyword struct {
	KeywordID   string    `json:"keyword_id"`
	Name        string    `json:"name"`
	WrongCount  int       `json:"wrong_count"`
	LastWrongAt time.Time `json:"last_wrong_at"`
}

type Service struct {
	db  *gorm.DB
	gen Generator

	now func() time.Time
}

func NewService(db *gorm.DB, gen Generator) *Service {
	return &Service{db: db, gen: gen, now: time.Now}
}

// Generate builds count questions from a material's summarized slides
// and persists them with keyword links.
func (s *Service) Generate(ctx context.Context, userID, materialID string, count int) ([]models.Question, error) {
	var m models.LectureMaterial
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", materialID, userID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMaterialNotFound
		}
		return nil, err
	}

	var slides []models.Slide
	if err := s.db.WithContext(ctx).
		Select("slide_number, slide_title, concept_explanation, summary, main_keywords").
		Where("material_id = ? AND summary <> ''", m.ID).
		Order("slide_number ASC").Find(&slides).Error; err != nil {
		return nil, err
	}
	if len(slides) == 0 {
		return nil, ErrNoSlides
	}

	var content strings.Builder
	for _, sl := range slides {
		fmt.Fprintf(&content, "[%d] %s\n%s\n%s\n키워드: %s\n\n",
			sl.SlideNumber, sl.SlideTitle, sl.ConceptExplanation, sl.Summary,
			strings.Join(sl.MainKeywords, ", "))
	}

	generated, err := s.gen.GenerateQuestions(ctx, m.ID, content.String(), count)
	if err != nil {
		return nil, err
	}

	return s.persistQuestions(ctx, m.ID, generated)
}

// WeakReview builds a review quiz from the caller's most-missed keywords.
func (s *Service) WeakReview(ctx context.Context, userID string, count int) ([]models.Question, error) {
	weak, err := s.WeakKeywords(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(weak) == 0 {
		return nil, ErrNoWeakKeywords
	}
	if len(weak) > weakReviewKeywordLimit {
		weak = weak[:weakReviewKeywordLimit]
	}

	names := make([]string, len(weak))
	for i, w := range weak {
		names[i] = w.Name
	}

	generated, err := s.gen.GenerateWeakReview(ctx, userID, names, count)
	if err != nil {
		return nil, err
	}
	return s.persistQuestions(ctx, "", generated)
}

func (s *Service) persistQuestions(ctx context.Context, materialID string, generated []ai.GeneratedQuestion) ([]models.Question, error) {
	questions := make([]models.Question, 0, len(generated))

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, g := range generated {
			q := models.Question{
				MaterialID:   materialID,
				QuestionType: g.QuestionType,
				Difficulty:   g.Difficulty,
				QuestionText: g.QuestionText,
				Options:      g.Options,
				Answer:       g.Answer,
				Explanation:  g.Explanation,
			}
			if err := tx.Create(&q).Error; err != nil {
				return err
			}

			for _, name := range g.Keywords {
				name = strings.TrimSpace(name)
				if name == "" {
					continue
				}
				kw := models.Keyword{Name: name}
				if err := tx.Where("name = ?", name).FirstOrCreate(&kw).Error; err != nil {
					return err
				}
				link := models.QuestionKeyword{QuestionID: q.ID, KeywordID: kw.ID}
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
					return err
				}
			}
			questions = append(questions, q)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// ListByMaterial returns a material's questions. Answers stay hidden by
// the model's JSON tags.
func (s *Service) ListByMaterial(ctx context.Context, userID, materialID string) ([]models.Question, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.LectureMaterial{}).
		Where("id = ? AND user_id = ?", materialID, userID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrMaterialNotFound
	}

	var questions []models.Question
	err := s.db.WithContext(ctx).Preload("Keywords").
		Where("material_id = ?", materialID).Order("created_at ASC").Find(&questions).Error
	return questions, err
}

// Submit grades a batch of answers, stores the attempts in one
// transaction and bumps the weak-keyword counters for wrong answers.
func (s *Service) Submit(ctx context.Context, userID string, answers []AnswerDTO) (*SubmitResult, error) {
	if len(answers) == 0 {
		return nil, ErrEmptyAnswers
	}

	result := &SubmitResult{Results: make([]AnswerResult, 0, len(answers))}
	attemptTime := s.now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, a := range answers {
			var q models.Question
			if err := tx.Preload("Keywords").Where("id = ?", a.QuestionID).First(&q).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("question %s not found", a.QuestionID)
				}
				return err
			}

			correct := grade(&q, a.Answer)
			attempt := models.QuestionAttempt{
				UserID:      userID,
				QuestionID:  q.ID,
				UserAnswer:  a.Answer,
				IsCorrect:   correct,
				AttemptDate: attemptTime,
			}
			if err := tx.Create(&attempt).Error; err != nil {
				return err
			}

			if !correct {
				for _, kw := range q.Keywords {
					if err := bumpWeakKeyword(tx, userID, kw.ID, attemptTime); err != nil {
						return err
					}
				}
			}

			result.Results = append(result.Results, AnswerResult{
				QuestionID:    q.ID,
				IsCorrect:     correct,
				CorrectAnswer: q.Answer,
				Explanation:   q.Explanation,
			})
			result.Total++
			if correct {
				result.Correct++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Total > 0 {
		result.Score = math.Round(float64(result.Correct)/float64(result.Total)*100*100) / 100
	}
	return result, nil
}

// grade checks a submitted answer against the stored one. Objective
// types compare exactly after trimming; short answers pass on mutual
// containment so phrasing differences still count.
func grade(q *models.Question, userAnswer string) bool {
	got := strings.TrimSpace(userAnswer)
	want := strings.TrimSpace(q.Answer)
	if got == "" || want == "" {
		return false
	}

	switch q.QuestionType {
	case models.QuestionTypeShort:
		g := strings.ToLower(got)
		w := strings.ToLower(want)
		return strings.Contains(g, w) || strings.Contains(w, g)
	default:
		return strings.EqualFold(got, want)
	}
}

// bumpWeakKeyword increments wrong_count atomically per keyword.
func bumpWeakKeyword(tx *gorm.DB, userID, keywordID string, at time.Time) error {
	row := models.WeakKeywordLog{
		UserID:      userID,
		KeywordID:   keywordID,
		WrongCount:  1,
		LastWrongAt: at,
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "keyword_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"wrong_count":   gorm.Expr("wrong_count + 1"),
			"last_wrong_at": at,
		}),
	}).Create(&row).Error
}

// WrongNotes lists the caller's wrong attempts with the correct answers.
func (s *Service) WrongNotes(ctx context.Context, userID string) ([]WrongNote, error) {
	var notes []WrongNote
	err := s.db.WithContext(ctx).Table("question_attempts qa").
		Select(`qa.question_id, q.question_type, q.question_text,
			qa.user_answer, q.answer AS correct_answer, q.explanation, qa.attempt_date`).
		Joins("JOIN questions q ON q.id = qa.question_id").
		Where("qa.user_id = ? AND qa.is_correct = ? AND qa.deleted_at IS NULL", userID, false).
		Order("qa.attempt_date DESC").
		Scan(&notes).Error
	return notes, err
}

// WeakKeywords lists keywords ordered by how often the user missed them.
func (s *Service) WeakKeywords(ctx context.Context, userID string) ([]WeakKeyword, error) {
	var rows []WeakKeyword
	err := s.db.WithContext(ctx).Table("weak_keyword_logs wkl").
		Select("wkl.keyword_id, k.name, wkl.wrong_count, wkl.last_wrong_at").
		Joins("JOIN keywords k ON k.id = wkl.keyword_id").
		Where("wkl.user_id = ? AND wkl.wrong_count > 0 AND wkl.deleted_at IS NULL", userID).
		Order("wkl.wrong_count DESC, wkl.last_wrong_at DESC").
		Scan(&rows).Error
	return rows, err
}
