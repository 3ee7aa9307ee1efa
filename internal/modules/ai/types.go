package ai

// SlideSummary is the schema the LLM must fill for one slide.
type SlideSummary struct {
	SlideTitle         string   `json:"slide_title"`
	ConceptExplanation string   `json:"concept_explanation"`
	MainKeywords       []string `json:"main_keywords"`
	ImportantSentences []string `json:"important_sentences"`
	Summary            string   `json:"summary"`
}

// GeneratedQuestion is the schema the LLM must fill per quiz question.
type GeneratedQuestion struct {
	QuestionType string   `json:"question_type"`
	Difficulty   string   `json:"difficulty"`
	QuestionText string   `json:"question_text"`
	Options      []string `json:"options"`
	Answer       string   `json:"answer"`
	Explanation  string   `json:"explanation"`
	Keywords     []string `json:"keywords"`
}

// cache kinds for AISummaryModel rows
const (
	kindSlide    = "slide"
	kindMaterial = "material"
	kindQuiz     = "quiz"
	kindReport   = "report"
)
