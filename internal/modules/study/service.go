package study

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/studylog/core/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrMaterialNotFound = errors.New("material not found")
	ErrBadDuration      = errors.New("학습 시간은 1초 이상이어야 해요")
)

// IntensityBreakdown is today's intensity score with the raw terms that
// produced it.
type IntensityBreakdown struct {
	StudyDate          string  `json:"study_date"`
	MaxProgress        float64 `json:"max_progress"`
	QuestionsAttempted int     `json:"questions_attempted"`
	CorrectAttempts    int     `json:"correct_attempts"`
	TotalTime          int     `json:"total_time"`
	Score              float64 `json:"score"`
}

// ProgressReport is the response of a progress check-in.
type ProgressReport struct {
	MaterialID   string  `json:"material_id"`
	Progress     float64 `json:"progress"`
	PrevProgress float64 `json:"prev_progress"`
	Delta        float64 `json:"delta"`
}

type Service struct {
	db *gorm.DB

	// now is swappable in tests
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

func (s *Service) today() string { return models.Today(s.now()) }

// AddTime accumulates study seconds for today in a single atomic upsert,
// refreshes the intensity log off the new total and returns that total.
// The duration is client-reported and taken at face value.
func (s *Service) AddTime(ctx context.Context, userID string, seconds int) (int, error) {
	if seconds < 1 {
		return 0, ErrBadDuration
	}

	today := s.today()
	row := models.DailyStudyTime{UserID: userID, StudyDate: today, TotalTime: seconds}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "study_date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_time": gorm.Expr("total_time + ?", seconds),
		}),
	}).Create(&row).Error
	if err != nil {
		return 0, err
	}

	if _, err := s.RefreshIntensity(ctx, userID); err != nil {
		return 0, err
	}

	return s.TodayTime(ctx, userID)
}

// TodayTime returns today's accumulated seconds, 0 when nothing was logged.
func (s *Service) TodayTime(ctx context.Context, userID string) (int, error) {
	var row models.DailyStudyTime
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND study_date = ?", userID, s.today()).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return row.TotalTime, nil
}

// RecordProgress upserts today's progress snapshot for a material,
// keeping the highest value seen, along with the gain over the previous
// study day. The insert-then-conditional-update pair stays atomic per
// statement, so concurrent check-ins cannot lose a higher snapshot.
func (s *Service) RecordProgress(ctx context.Context, userID, materialID string, progress float64) error {
	today := s.today()

	prev, err := s.prevProgress(ctx, userID, materialID)
	if err != nil {
		return err
	}
	delta := math.Round((progress-prev)*100) / 100

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.StudyProgressLog{
			UserID:        userID,
			MaterialID:    materialID,
			StudyDate:     today,
			ProgressDelta: delta,
			TotalProgress: progress,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "material_id"}, {Name: "study_date"}},
			DoNothing: true,
		}).Create(&row).Error; err != nil {
			return err
		}
		return tx.Model(&models.StudyProgressLog{}).
			Where("user_id = ? AND material_id = ? AND study_date = ? AND total_progress < ?",
				userID, materialID, today, progress).
			Updates(map[string]interface{}{
				"progress_delta": delta,
				"total_progress": progress,
			}).Error
	})
}

// CheckInProgress recomputes a material's progress from its summarized
// slides, records today's snapshot and reports the change against the
// most recent earlier study day.
func (s *Service) CheckInProgress(ctx context.Context, userID, materialID string) (*ProgressReport, error) {
	var m models.LectureMaterial
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", materialID, userID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMaterialNotFound
		}
		return nil, err
	}

	var summarized int64
	if err := s.db.WithContext(ctx).Model(&models.Slide{}).
		Where("material_id = ? AND summary <> ''", m.ID).Count(&summarized).Error; err != nil {
		return nil, err
	}

	progress := 0.0
	if m.Page > 0 {
		progress = math.Round(float64(summarized)/float64(m.Page)*100*100) / 100
	}

	prev, err := s.prevProgress(ctx, userID, materialID)
	if err != nil {
		return nil, err
	}

	if err := s.RecordProgress(ctx, userID, materialID, progress); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&m).Update("progress", progress).Error; err != nil {
		return nil, err
	}

	return &ProgressReport{
		MaterialID:   materialID,
		Progress:     progress,
		PrevProgress: prev,
		Delta:        math.Round((progress-prev)*100) / 100,
	}, nil
}

// prevProgress finds the most recent snapshot strictly before today.
func (s *Service) prevProgress(ctx context.Context, userID, materialID string) (float64, error) {
	var row models.StudyProgressLog
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND material_id = ? AND study_date < ?", userID, materialID, s.today()).
		Order("study_date DESC").First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return row.TotalProgress, nil
}

// intensityQuery reproduces the legacy score exactly, heterogeneous
// units included: progress percent, question counts and seconds are
// weighted into one number. The join is driven from daily_study_times,
// so a day without logged time always scores 0.
const intensityQuery = `
SELECT d.study_date AS study_date,
       IFNULL(MAX(spl.total_progress), 0) AS max_progress,
       COUNT(DISTINCT qa.question_id) AS questions_attempted,
       IFNULL(SUM(CASE WHEN qa.is_correct THEN 1 ELSE 0 END), 0) AS correct_attempts,
       IFNULL(d.total_time, 0) AS total_time,
       ROUND(IFNULL(MAX(spl.total_progress), 0) * 0.35
           + COUNT(DISTINCT qa.question_id) * 0.25
           + IFNULL(SUM(CASE WHEN qa.is_correct THEN 1 ELSE 0 END), 0) * 0.20
           + IFNULL(d.total_time, 0) * 0.20, 2) AS score
FROM daily_study_times d
LEFT JOIN study_progress_logs spl
       ON spl.user_id = d.user_id AND spl.study_date = d.study_date AND spl.deleted_at IS NULL
LEFT JOIN question_attempts qa
       ON qa.user_id = d.user_id AND DATE(qa.attempt_date) = d.study_date AND qa.deleted_at IS NULL
WHERE d.user_id = ? AND d.study_date = ?
GROUP BY d.study_date, d.total_time
`

// Intensity computes today's intensity score. Today's date is computed
// in Go and passed as a parameter so the query runs identically on
// MySQL and the sqlite test database.
func (s *Service) Intensity(ctx context.Context, userID string) (*IntensityBreakdown, error) {
	today := s.today()

	var row IntensityBreakdown
	result := s.db.WithContext(ctx).Raw(intensityQuery, userID, today).Scan(&row)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return &IntensityBreakdown{StudyDate: today}, nil
	}
	return &row, nil
}

// RefreshIntensity recomputes today's score and upserts the intensity log.
func (s *Service) RefreshIntensity(ctx context.Context, userID string) (*IntensityBreakdown, error) {
	breakdown, err := s.Intensity(ctx, userID)
	if err != nil {
		return nil, err
	}

	row := models.StudyIntensityLog{
		UserID:    userID,
		StudyDate: breakdown.StudyDate,
		Score:     breakdown.Score,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "study_date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"score": breakdown.Score,
		}),
	}).Create(&row).Error
	if err != nil {
		return nil, err
	}
	return breakdown, nil
}

// History returns the recorded intensity scores of the last days.
func (s *Service) History(ctx context.Context, userID string, days int) ([]models.StudyIntensityLog, error) {
	if days < 1 {
		days = 7
	}
	since := models.Today(s.now().AddDate(0, 0, -days+1))

	var rows []models.StudyIntensityLog
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND study_date >= ?", userID, since).
		Order("study_date DESC").Find(&rows).Error
	return rows, err
}

// MonthHistory returns the intensity scores of one calendar month, the
// series the heatmap renders. Zero or out-of-range arguments fall back
// to the current month.
func (s *Service) MonthHistory(ctx context.Context, userID string, year, month int) ([]models.StudyIntensityLog, error) {
	if year < 1 || month < 1 || month > 12 {
		now := s.now()
		year, month = now.Year(), int(now.Month())
	}
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	from := models.Today(first)
	to := models.Today(first.AddDate(0, 1, -1))

	var rows []models.StudyIntensityLog
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND study_date >= ? AND study_date <= ?", userID, from, to).
		Order("study_date ASC").Find(&rows).Error
	return rows, err
}
