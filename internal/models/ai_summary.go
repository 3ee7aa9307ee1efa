package models

// AISummaryModel caches AI-generated content keyed by a hash of its input,
// so repeated requests for the same source never call the provider again.
type AISummaryModel struct {
	Base
	Hash    string `json:"hash"    gorm:"uniqueIndex;not null"` // sha256(kind + refId + input)
	Kind    string `json:"kind"    gorm:"index;not null"`       // slide | material | quiz | report
	RefID   string `json:"ref_id"  gorm:"index;not null"`
	Content string `json:"content" gorm:"type:longtext;not null"`
}

func (AISummaryModel) TableName() string { return "ai_summaries" }
