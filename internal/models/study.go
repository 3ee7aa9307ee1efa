package models

// DailyStudyTime accumulates study seconds per user per day.
// Composite primary key keeps one row per day and makes the
// time accumulation a pure upsert.
type DailyStudyTime struct {
	UserID    string `json:"-"          gorm:"primaryKey;type:char(36)"`
	StudyDate string `json:"study_date" gorm:"primaryKey;type:char(10)"`
	TotalTime int    `json:"total_time" gorm:"not null;default:0"`
}

func (DailyStudyTime) TableName() string { return "daily_study_times" }

// StudyProgressLog snapshots the highest material progress reached on a
// day, together with the gain over the previous study day.
type StudyProgressLog struct {
	Base
	UserID        string  `json:"-"              gorm:"uniqueIndex:uniq_user_material_date;not null"`
	MaterialID    string  `json:"material_id"    gorm:"uniqueIndex:uniq_user_material_date;not null"`
	StudyDate     string  `json:"study_date"     gorm:"uniqueIndex:uniq_user_material_date;type:char(10);not null"`
	ProgressDelta float64 `json:"progress_delta" gorm:"not null;default:0"`
	TotalProgress float64 `json:"total_progress" gorm:"not null"`
}

func (StudyProgressLog) TableName() string { return "study_progress_logs" }

// StudyIntensityLog stores the computed intensity score per user per day.
type StudyIntensityLog struct {
	Base
	UserID    string  `json:"-"          gorm:"uniqueIndex:uniq_user_date;not null"`
	StudyDate string  `json:"study_date" gorm:"uniqueIndex:uniq_user_date;type:char(10);not null"`
	Score     float64 `json:"score"      gorm:"not null"`
}

func (StudyIntensityLog) TableName() string { return "study_intensity_logs" }
