package slide

import (
	"context"
	"errors"
	"testing"

	"github.com/studylog/core/internal/config"
	"github.com/studylog/core/internal/models"
	"github.com/studylog/core/internal/modules/ai"
	"github.com/studylog/core/internal/testutil"
	"gorm.io/gorm"
)

type fakeEngine struct {
	text  string
	err   error
	calls int
}

func (f *fakeEngine) Recognize(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeGenerator struct {
	summary *ai.SlideSummary
	err     error
	calls   int
}

func (f *fakeGenerator) SummarizeSlide(_ context.Context, _ string, _ string) (*ai.SlideSummary, error) {
	f.calls++
	return f.summary, f.err
}

type fakeTracker struct {
	lastProgress float64
	calls        int
}

func (f *fakeTracker) RecordProgress(_ context.Context, _, _ string, progress float64) error {
	f.calls++
	f.lastProgress = progress
	return nil
}

func newTestService(t *testing.T, engine *fakeEngine, gen *fakeGenerator, tracker *fakeTracker) (*Service, *gorm.DB) {
	t.Helper()
	db := testutil.OpenTestDB(t)
	cfg := &config.AppConfig{}
	cfg.Storage.Dir = t.TempDir()
	svc := NewService(db, cfg, engine, gen, tracker, nil, nil)
	svc.renderPage = func(_ context.Context, _ string, _ int, _ string) (string, error) {
		return "page.png", nil
	}
	return svc, db
}

func seedMaterial(t *testing.T, db *gorm.DB, pages int) models.LectureMaterial {
	t.Helper()
	m := models.LectureMaterial{UserID: "u1", MaterialName: "네트워크", OriginalName: "net.pdf", StoredFile: "n.pdf", Page: pages}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("create material: %v", err)
	}
	return m
}

func TestEnsureSummaryPipeline(t *testing.T) {
	engine := &fakeEngine{text: "TCP는 연결 지향 프로토콜이다."}
	gen := &fakeGenerator{summary: &ai.SlideSummary{
		SlideTitle:         "TCP 개요",
		ConceptExplanation: "TCP는 신뢰성 있는 전송을 제공한다.",
		MainKeywords:       []string{"TCP", "연결"},
		ImportantSentences: []string{"TCP는 연결 지향 프로토콜이다."},
		Summary:            "TCP 기본 개념 정리.",
	}}
	tracker := &fakeTracker{}
	svc, db := newTestService(t, engine, gen, tracker)
	m := seedMaterial(t, db, 3)

	sl, err := svc.EnsureSummary(context.Background(), "u1", m.ID, 1)
	if err != nil {
		t.Fatalf("EnsureSummary error: %v", err)
	}
	if sl.SlideTitle != "TCP 개요" || sl.Summary != "TCP 기본 개념 정리." {
		t.Fatalf("slide=%+v", sl)
	}
	if engine.calls != 1 || gen.calls != 1 {
		t.Fatalf("ocr=%d gen=%d, want 1/1", engine.calls, gen.calls)
	}

	// 1 of 3 pages summarized
	var updated models.LectureMaterial
	db.First(&updated, "id = ?", m.ID)
	if updated.Progress != 33.33 {
		t.Fatalf("progress=%v, want 33.33", updated.Progress)
	}
	if tracker.calls != 1 || tracker.lastProgress != 33.33 {
		t.Fatalf("tracker calls=%d progress=%v", tracker.calls, tracker.lastProgress)
	}

	var kwCount int64
	db.Model(&models.SlideKeyword{}).Where("slide_id = ?", sl.ID).Count(&kwCount)
	if kwCount != 2 {
		t.Fatalf("keyword links=%d, want 2", kwCount)
	}
}

func TestEnsureSummaryIsIdempotent(t *testing.T) {
	engine := &fakeEngine{text: "내용"}
	gen := &fakeGenerator{summary: &ai.SlideSummary{SlideTitle: "제목", Summary: "요약"}}
	svc, db := newTestService(t, engine, gen, &fakeTracker{})
	m := seedMaterial(t, db, 2)

	if _, err := svc.EnsureSummary(context.Background(), "u1", m.ID, 1); err != nil {
		t.Fatalf("first EnsureSummary error: %v", err)
	}
	if _, err := svc.EnsureSummary(context.Background(), "u1", m.ID, 1); err != nil {
		t.Fatalf("second EnsureSummary error: %v", err)
	}

	if engine.calls != 1 || gen.calls != 1 {
		t.Fatalf("repeat call touched the pipeline: ocr=%d gen=%d", engine.calls, gen.calls)
	}
	var count int64
	db.Model(&models.Slide{}).Where("material_id = ?", m.ID).Count(&count)
	if count != 1 {
		t.Fatalf("slides=%d, want 1", count)
	}
}

func TestEnsureSummaryEmptyPage(t *testing.T) {
	engine := &fakeEngine{text: "   "}
	gen := &fakeGenerator{}
	svc, db := newTestService(t, engine, gen, &fakeTracker{})
	m := seedMaterial(t, db, 2)

	sl, err := svc.EnsureSummary(context.Background(), "u1", m.ID, 2)
	if err != nil {
		t.Fatalf("EnsureSummary error: %v", err)
	}
	if gen.calls != 0 {
		t.Fatalf("empty page must not reach the provider")
	}
	if sl.SlideTitle != "2번 슬라이드" || sl.Summary != emptySlideNotice {
		t.Fatalf("slide=%+v", sl)
	}
}

func TestEnsureSummaryPageOutOfRange(t *testing.T) {
	svc, db := newTestService(t, &fakeEngine{}, &fakeGenerator{}, &fakeTracker{})
	m := seedMaterial(t, db, 2)

	for _, page := range []int{0, 3} {
		if _, err := svc.EnsureSummary(context.Background(), "u1", m.ID, page); !errors.Is(err, ErrPageOutOfRange) {
			t.Fatalf("page %d: err=%v, want ErrPageOutOfRange", page, err)
		}
	}
}

func TestEnsureSummaryOtherUsersMaterial(t *testing.T) {
	svc, db := newTestService(t, &fakeEngine{}, &fakeGenerator{}, &fakeTracker{})
	m := seedMaterial(t, db, 2)

	if _, err := svc.EnsureSummary(context.Background(), "u2", m.ID, 1); !errors.Is(err, ErrMaterialNotFound) {
		t.Fatalf("err=%v, want ErrMaterialNotFound", err)
	}
}

func TestGetSlideWithKeywords(t *testing.T) {
	engine := &fakeEngine{text: "내용"}
	gen := &fakeGenerator{summary: &ai.SlideSummary{SlideTitle: "제목", MainKeywords: []string{"핵심"}, Summary: "요약"}}
	svc, db := newTestService(t, engine, gen, &fakeTracker{})
	m := seedMaterial(t, db, 1)

	if _, err := svc.EnsureSummary(context.Background(), "u1", m.ID, 1); err != nil {
		t.Fatalf("EnsureSummary error: %v", err)
	}

	sl, err := svc.Get("u1", m.ID, 1)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if len(sl.Keywords) != 1 || sl.Keywords[0].Name != "핵심" {
		t.Fatalf("keywords=%+v, want [핵심]", sl.Keywords)
	}

	if _, err := svc.Get("u1", m.ID, 99); !errors.Is(err, ErrSlideNotFound) {
		t.Fatalf("err=%v, want ErrSlideNotFound", err)
	}
}
