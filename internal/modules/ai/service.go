package ai

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	appcfg "github.com/studylog/core/internal/config"
	"github.com/studylog/core/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrEmptyInput is returned when there is nothing to summarize.
var ErrEmptyInput = errors.New("input text is empty")

// Service generates structured study content through the configured LLM
// provider. Every generation is cached in ai_summaries by an input hash,
// so repeating a request never calls the provider twice.
type Service struct {
	db       *gorm.DB
	provider *appcfg.AIProvider
	log      *zap.Logger
}

func NewService(db *gorm.DB, provider *appcfg.AIProvider, log *zap.Logger) *Service {
	return &Service{db: db, provider: provider, log: log}
}

func hashKey(kind, refID, input string) string {
	h := sha256.Sum256([]byte(kind + ":" + refID + ":" + input))
	return fmt.Sprintf("%x", h)
}

// SummarizeSlide produces the structured summary for one slide's OCR text.
func (s *Service) SummarizeSlide(ctx context.Context, refID, text string) (*SlideSummary, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	hash := hashKey(kindSlide, refID, text)
	if cached, ok := s.cacheGet(hash); ok {
		var out SlideSummary
		if err := json.Unmarshal([]byte(cached), &out); err == nil {
			return &out, nil
		}
	}

	raw, err := callWithSystemPrompt(ctx, s.provider, slideSummarySystemPrompt, buildSlideSummaryPrompt(text), 900)
	if err != nil {
		return nil, fmt.Errorf("slide summary: %w", err)
	}

	var out SlideSummary
	if err := unmarshalAIJSON(raw, &out); err != nil {
		return nil, fmt.Errorf("slide summary: %w", err)
	}
	if strings.TrimSpace(out.Summary) == "" {
		return nil, fmt.Errorf("slide summary: summary field is empty")
	}

	s.cachePut(hash, kindSlide, refID, mustJSON(out))
	return &out, nil
}

// SummarizeMaterial condenses the concatenated slide summaries of a material.
func (s *Service) SummarizeMaterial(ctx context.Context, refID, combined string) (string, error) {
	if strings.TrimSpace(combined) == "" {
		return "", ErrEmptyInput
	}

	hash := hashKey(kindMaterial, refID, combined)
	if cached, ok := s.cacheGet(hash); ok {
		return cached, nil
	}

	raw, err := callWithSystemPrompt(ctx, s.provider, materialSystemPrompt, buildMaterialSummaryPrompt(combined), 600)
	if err != nil {
		return "", fmt.Errorf("material summary: %w", err)
	}
	summary := strings.TrimSpace(raw)
	if summary == "" {
		return "", fmt.Errorf("material summary: empty response")
	}

	s.cachePut(hash, kindMaterial, refID, summary)
	return summary, nil
}

// GenerateQuestions produces count quiz questions from slide content.
func (s *Service) GenerateQuestions(ctx context.Context, refID, content string, count int) ([]GeneratedQuestion, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyInput
	}
	if count < 1 {
		count = 1
	}

	hash := hashKey(kindQuiz, refID, content+"|"+strconv.Itoa(count))
	if cached, ok := s.cacheGet(hash); ok {
		var out []GeneratedQuestion
		if err := json.Unmarshal([]byte(cached), &out); err == nil && len(out) > 0 {
			return out, nil
		}
	}

	raw, err := callWithSystemPrompt(ctx, s.provider, quizSystemPrompt, buildQuizPrompt(content, count), 2000)
	if err != nil {
		return nil, fmt.Errorf("quiz generation: %w", err)
	}

	out, err := parseGeneratedQuestions(raw)
	if err != nil {
		return nil, err
	}

	s.cachePut(hash, kindQuiz, refID, mustJSON(out))
	return out, nil
}

// GenerateWeakReview produces review questions targeting weak keywords.
func (s *Service) GenerateWeakReview(ctx context.Context, refID string, keywords []string, count int) ([]GeneratedQuestion, error) {
	if len(keywords) == 0 {
		return nil, ErrEmptyInput
	}
	if count < 1 {
		count = 1
	}

	raw, err := callWithSystemPrompt(ctx, s.provider, quizSystemPrompt, buildWeakReviewPrompt(keywords, count), 2000)
	if err != nil {
		return nil, fmt.Errorf("weak review generation: %w", err)
	}
	return parseGeneratedQuestions(raw)
}

// ReportFeedback writes a coaching paragraph for the aggregated report stats.
func (s *Service) ReportFeedback(ctx context.Context, refID, statsJSON string) (string, error) {
	hash := hashKey(kindReport, refID, statsJSON)
	if cached, ok := s.cacheGet(hash); ok {
		return cached, nil
	}

	raw, err := callWithSystemPrompt(ctx, s.provider, reportSystemPrompt, buildReportFeedbackPrompt(statsJSON), 400)
	if err != nil {
		return "", fmt.Errorf("report feedback: %w", err)
	}
	feedback := strings.TrimSpace(raw)
	if feedback == "" {
		return "", fmt.Errorf("report feedback: empty response")
	}

	s.cachePut(hash, kindReport, refID, feedback)
	return feedback, nil
}

func parseGeneratedQuestions(raw string) ([]GeneratedQuestion, error) {
	var out []GeneratedQuestion
	if err := unmarshalAIJSON(raw, &out); err != nil {
		return nil, fmt.Errorf("quiz generation: %w", err)
	}

	valid := out[:0]
	for _, q := range out {
		if strings.TrimSpace(q.QuestionText) == "" || strings.TrimSpace(q.Answer) == "" {
			continue
		}
		if q.QuestionType == "" {
			q.QuestionType = models.QuestionTypeShort
		}
		if q.Difficulty == "" {
			q.Difficulty = models.DifficultyMedium
		}
		valid = append(valid, q)
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("quiz generation: no usable questions in response")
	}
	return valid, nil
}

func (s *Service) cacheGet(hash string) (string, bool) {
	var row models.AISummaryModel
	err := s.db.Where("hash = ?", hash).First(&row).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) && s.log != nil {
			s.log.Warn("ai cache lookup failed", zap.Error(err))
		}
		return "", false
	}
	return row.Content, true
}

func (s *Service) cachePut(hash, kind, refID, content string) {
	row := models.AISummaryModel{Hash: hash, Kind: kind, RefID: refID, Content: content}
	if err := s.db.Where("hash = ?", hash).FirstOrCreate(&row).Error; err != nil && s.log != nil {
		s.log.Warn("ai cache store failed", zap.Error(err))
	}
}

func mustJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
