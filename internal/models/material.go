package models

// LectureMaterial is an uploaded PDF and its processing state.
// Progress is the share of pages that already have a slide summary, 0..100.
type LectureMaterial struct {
	Base
	UserID       string  `json:"-"             gorm:"index;not null"`
	MaterialName string  `json:"material_name" gorm:"not null"`
	OriginalName string  `json:"original_name"`
	StoredFile   string  `json:"-"             gorm:"uniqueIndex;not null"` // server-generated UUID file name
	Page         int     `json:"page"          gorm:"not null"`
	Progress     float64 `json:"progress"      gorm:"default:0"`
	Summary      string  `json:"summary"       gorm:"type:text"`

	Slides []Slide `json:"slides,omitempty" gorm:"foreignKey:MaterialID"`
}

func (LectureMaterial) TableName() string { return "lecture_materials" }
