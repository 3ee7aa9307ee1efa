package report

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/studylog/core/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FeedbackGenerator writes the coaching paragraph for a report.
type FeedbackGenerator interface {
	ReportFeedback(ctx context.Context, refID, statsJSON string) (string, error)
}

// DailyTime is one point of the study-time series.
type DailyTime struct {
	StudyDate string `json:"study_date"`
	TotalTime int    `json:"total_time"`
}

// MaterialProgress is one material's current state.
type MaterialProgress struct {
	MaterialID   string  `json:"material_id"`
	MaterialName string  `json:"material_name"`
	Progress     float64 `json:"progress"`
}

// WeakKeywordStat ranks a keyword by wrong answers.
type WeakKeywordStat struct {
	Name       string `json:"name"`
	WrongCount int    `json:"wrong_count"`
}

// Report aggregates a user's study activity over a period.
type Report struct {
	PeriodDays       int                `json:"period_days"`
	From             string             `json:"from"`
	To               string             `json:"to"`
	TotalStudyTime   int                `json:"total_study_time"`
	DailyTimes       []DailyTime        `json:"daily_times"`
	AverageIntensity float64            `json:"average_intensity"`
	Materials        []MaterialProgress `json:"materials"`
	AttemptCount     int                `json:"attempt_count"`
	CorrectCount     int                `json:"correct_count"`
	Accuracy         float64            `json:"accuracy"` // percent
	WeakKeywords     []WeakKeywordStat  `json:"weak_keywords"`
	Feedback         string             `json:"feedback"`
}

type Service struct {
	db  *gorm.DB
	gen FeedbackGenerator
	log *zap.Logger

	now func() time.Time
}

func NewService(db *gorm.DB, gen FeedbackGenerator, log *zap.Logger) *Service {
	return &Service{db: db, gen: gen, log: log, now: time.Now}
}

// Weekly builds the 7-day report.
func (s *Service) Weekly(ctx context.Context, userID string) (*Report, error) {
	return s.build(ctx, userID, 7)
}

// Monthly builds the 30-day report.
func (s *Service) Monthly(ctx context.Context, userID string) (*Report, error) {
	return s.build(ctx, userID, 30)
}

func (s *Service) build(ctx context.Context, userID string, days int) (*Report, error) {
	to := models.Today(s.now())
	from := models.Today(s.now().AddDate(0, 0, -days+1))

	r := &Report{PeriodDays: days, From: from, To: to}

	if err := s.db.WithContext(ctx).Model(&models.DailyStudyTime{}).
		Select("study_date, total_time").
		Where("user_id = ? AND study_date >= ?", userID, from).
		Order("study_date ASC").Scan(&r.DailyTimes).Error; err != nil {
		return nil, err
	}
	for _, d := range r.DailyTimes {
		r.TotalStudyTime += d.TotalTime
	}

	var avg *float64
	if err := s.db.WithContext(ctx).Model(&models.StudyIntensityLog{}).
		Select("AVG(score)").
		Where("user_id = ? AND study_date >= ?", userID, from).
		Scan(&avg).Error; err != nil {
		return nil, err
	}
	if avg != nil {
		r.AverageIntensity = math.Round(*avg*100) / 100
	}

	if err := s.db.WithContext(ctx).Model(&models.LectureMaterial{}).
		Select("id AS material_id, material_name, progress").
		Where("user_id = ?", userID).
		Order("created_at DESC").Scan(&r.Materials).Error; err != nil {
		return nil, err
	}

	var attemptCount, correctCount int64
	if err := s.db.WithContext(ctx).Model(&models.QuestionAttempt{}).
		Where("user_id = ? AND DATE(attempt_date) >= ?", userID, from).
		Count(&attemptCount).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.QuestionAttempt{}).
		Where("user_id = ? AND DATE(attempt_date) >= ? AND is_correct = ?", userID, from, true).
		Count(&correctCount).Error; err != nil {
		return nil, err
	}
	r.AttemptCount = int(attemptCount)
	r.CorrectCount = int(correctCount)
	if attemptCount > 0 {
		r.Accuracy = math.Round(float64(correctCount)/float64(attemptCount)*100*100) / 100
	}

	if err := s.db.WithContext(ctx).Table("weak_keyword_logs wkl").
		Select("k.name, wkl.wrong_count").
		Joins("JOIN keywords k ON k.id = wkl.keyword_id").
		Where("wkl.user_id = ? AND wkl.wrong_count > 0 AND wkl.deleted_at IS NULL", userID).
		Order("wkl.wrong_count DESC").Limit(5).
		Scan(&r.WeakKeywords).Error; err != nil {
		return nil, err
	}

	if s.gen != nil {
		stats, err := json.Marshal(r)
		if err == nil {
			refID := fmt.Sprintf("%s:%d:%s", userID, days, from)
			feedback, genErr := s.gen.ReportFeedback(ctx, refID, string(stats))
			if genErr != nil {
				// the report is still useful without the coaching paragraph
				if s.log != nil {
					s.log.Warn("report feedback failed", zap.String("user", userID), zap.Error(genErr))
				}
			} else {
				r.Feedback = feedback
			}
		}
	}

	return r, nil
}
