package models

import "time"

// Question types and difficulties use the Korean labels the client renders directly.
const (
	QuestionTypeChoice     = "객관식"
	QuestionTypeShort      = "주관식"
	QuestionTypeTrueFalse  = "참거짓"
	QuestionTypeFillBlank  = "빈칸채우기"
	DifficultyEasy         = "하"
	DifficultyMedium       = "중"
	DifficultyHard         = "상"
)

// Question is a generated quiz question bound to a material.
type Question struct {
	Base
	MaterialID   string      `json:"-"             gorm:"index"` // empty for weak-keyword review questions
	QuestionType string      `json:"question_type" gorm:"not null"`
	Difficulty   string      `json:"difficulty"    gorm:"not null"`
	QuestionText string      `json:"question_text" gorm:"type:text;not null"`
	Options      StringArray `json:"options"       gorm:"type:json"`
	Answer       string      `json:"-"             gorm:"type:text;not null"`
	Explanation  string      `json:"-"             gorm:"type:text"`

	Keywords []Keyword `json:"keywords,omitempty" gorm:"many2many:question_keywords;joinForeignKey:QuestionID;joinReferences:KeywordID"`
}

func (Question) TableName() string { return "questions" }

// QuestionKeyword links questions to keywords.
type QuestionKeyword struct {
	QuestionID string `json:"question_id" gorm:"primaryKey;type:char(36)"`
	KeywordID  string `json:"keyword_id"  gorm:"primaryKey;type:char(36)"`
}

func (QuestionKeyword) TableName() string { return "question_keywords" }

// QuestionAttempt records a single graded answer.
type QuestionAttempt struct {
	Base
	UserID      string    `json:"-"            gorm:"index;not null"`
	QuestionID  string    `json:"question_id"  gorm:"index;not null"`
	UserAnswer  string    `json:"user_answer"  gorm:"type:text"`
	IsCorrect   bool      `json:"is_correct"`
	AttemptDate time.Time `json:"attempt_date" gorm:"index;not null"`
}

func (QuestionAttempt) TableName() string { return "question_attempts" }

// WeakKeywordLog counts wrong answers per keyword for a user.
type WeakKeywordLog struct {
	Base
	UserID      string    `json:"-"           gorm:"uniqueIndex:uniq_user_keyword;not null"`
	KeywordID   string    `json:"keyword_id"  gorm:"uniqueIndex:uniq_user_keyword;not null"`
	WrongCount  int       `json:"wrong_count" gorm:"default:0"`
	LastWrongAt time.Time `json:"last_wrong_at"`
}

func (WeakKeywordLog) TableName() string { return "weak_keyword_logs" }
