package ai

import (
	"fmt"
	"strings"
)

const (
	slideSummarySystemPrompt = "당신은 학습자가 강의자료를 이해하기 쉽도록 요약해주는 AI입니다. 항상 유효한 JSON만 출력합니다."
	quizSystemPrompt         = "당신은 대학 강의 내용으로 기출 수준의 문제를 만드는 AI입니다. 항상 유효한 JSON만 출력합니다."
	materialSystemPrompt     = "당신은 강의자료 전체를 한눈에 정리해주는 AI입니다."
	reportSystemPrompt       = "당신은 학습 데이터를 분석해 동기부여가 되는 피드백을 주는 학습 코치입니다."

	maxSlideTextLen = 6000
	maxQuizInputLen = 8000
)

func buildSlideSummaryPrompt(text string) string {
	return fmt.Sprintf(`아래 슬라이드 텍스트를 분석해서 반드시 다음 JSON 형식으로만 답변해줘.

{
  "slide_title": "슬라이드 제목(소주제, 간결하게)",
  "concept_explanation": "개념 설명 (한두 문장)",
  "main_keywords": ["키워드1", "키워드2"],
  "important_sentences": ["중요한 문장 2~3개"],
  "summary": "슬라이드 전체 요약 (3~4문장)"
}

[슬라이드 텍스트]
%s`, truncateText(text, maxSlideTextLen))
}

// difficultyCriteria mirrors the rubric shown to the model per difficulty level.
var difficultyCriteria = map[string][3]string{
	"하": {"기억(Remember), 이해(Understand)", "기본 용어만 알면 풀 수 있음", "단순 fact-check, 암기형"},
	"중": {"적용(Apply), 분석(Analyze)", "전공/수업 개념 필요", "정보 연결, 간단한 추론"},
	"상": {"평가(Evaluate), 창작(Create)", "여러 단원/심화 전공지식 필요", "복합적 추론, 종합, 창의적 문제 해결"},
}

func buildQuizPrompt(content string, count int) string {
	var rubric strings.Builder
	for _, level := range []string{"하", "중", "상"} {
		c := difficultyCriteria[level]
		fmt.Fprintf(&rubric, "- %s: 개념 복잡도 %s / 배경지식 %s / 추론 %s\n", level, c[0], c[1], c[2])
	}

	return fmt.Sprintf(`아래 강의 슬라이드 요약을 바탕으로 대학생 수준의 기출 문제를 %d개 생성해줘.
문제 유형은 객관식, 주관식, 참거짓, 빈칸채우기 중에서 고르게 섞고,
난이도는 하/중/상 기준에 맞춰 다양하게 배분해줘.

[난이도 기준]
%s
반드시 다음 JSON 배열 형식으로만 출력해줘:

[
  {
    "question_type": "객관식",
    "difficulty": "중",
    "question_text": "...",
    "options": ["...", "...", "...", "..."],
    "answer": "...",
    "explanation": "...",
    "keywords": ["..."]
  }
]

객관식이 아닌 유형은 options를 빈 배열로 두고, answer에 정답 텍스트를 적어줘.

[슬라이드 요약]
%s`, count, rubric.String(), truncateText(content, maxQuizInputLen))
}

func buildWeakReviewPrompt(keywords []string, count int) string {
	return fmt.Sprintf(`아래 키워드는 사용자가 자주 틀리는 약점 키워드야.
이 키워드들을 복습할 수 있는 대학생 수준의 문제를 %d개 생성해줘.
문제 유형은 객관식, 주관식, 참거짓, 빈칸채우기 중에서 섞어줘.

반드시 다음 JSON 배열 형식으로만 출력해줘:

[
  {
    "question_type": "객관식",
    "difficulty": "중",
    "question_text": "...",
    "options": ["...", "...", "...", "..."],
    "answer": "...",
    "explanation": "...",
    "keywords": ["..."]
  }
]

[약점 키워드]
%s`, count, strings.Join(keywords, ", "))
}

func buildMaterialSummaryPrompt(combined string) string {
	return fmt.Sprintf(`아래는 한 강의자료의 슬라이드별 요약이야.
전체 자료를 관통하는 핵심 내용을 5~7문장으로 정리해줘. JSON이 아닌 일반 문단으로 답변해줘.

%s`, truncateText(combined, maxQuizInputLen))
}

func buildReportFeedbackPrompt(statsJSON string) string {
	return fmt.Sprintf(`아래는 한 사용자의 최근 학습 리포트 데이터입니다.
이 사용자가 학습을 매우 잘하고 있다면 진심 어린 칭찬과 함께 더 발전할 수 있는
구체적 방법(예: 심화문제 도전, 새로운 유형 학습, 동료와 토론 등)도 꼭 제안해줘.

%s

이 사용자의 학습 효과를 높이고 동기부여를 줄 수 있는
전문가 수준의 피드백과 맞춤형 학습 추천을 2~3문장으로 작성해줘.`, statsJSON)
}
