package models

// Slide is one summarized page of a lecture material.
type Slide struct {
	Base
	MaterialID         string      `json:"-"                   gorm:"uniqueIndex:uniq_material_slide;not null"`
	SlideNumber        int         `json:"slide_number"        gorm:"uniqueIndex:uniq_material_slide;not null"`
	OriginalText       string      `json:"original_text"       gorm:"type:longtext"`
	SlideTitle         string      `json:"slide_title"`
	ConceptExplanation string      `json:"concept_explanation" gorm:"type:text"`
	MainKeywords       StringArray `json:"main_keywords"       gorm:"type:json"`
	ImportantSentences StringArray `json:"important_sentences" gorm:"type:json"`
	Summary            string      `json:"summary"             gorm:"type:text"`

	Keywords []Keyword `json:"keywords,omitempty" gorm:"many2many:slide_keywords;joinForeignKey:SlideID;joinReferences:KeywordID"`
}

func (Slide) TableName() string { return "slides" }

// Keyword is a normalized study keyword shared across slides and questions.
type Keyword struct {
	Base
	Name string `json:"name" gorm:"uniqueIndex;not null"`
}

func (Keyword) TableName() string { return "keywords" }

// SlideKeyword links slides to keywords.
type SlideKeyword struct {
	SlideID   string `json:"slide_id"   gorm:"primaryKey;type:char(36)"`
	KeywordID string `json:"keyword_id" gorm:"primaryKey;type:char(36)"`
}

func (SlideKeyword) TableName() string { return "slide_keywords" }
