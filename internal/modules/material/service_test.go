package material

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/studylog/core/internal/config"
	"github.com/studylog/core/internal/models"
	"github.com/studylog/core/internal/testutil"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSummarizer struct {
	summary string
	err     error
	calls   int
}

func (f *fakeSummarizer) SummarizeMaterial(_ context.Context, _ string, _ string) (string, error) {
	f.calls++
	return f.summary, f.err
}

func newTestService(t *testing.T, summarizer Summarizer, pages int) (*Service, *gorm.DB) {
	t.Helper()
	db := testutil.OpenTestDB(t)
	cfg := &config.AppConfig{}
	cfg.Storage.Dir = t.TempDir()
	cfg.OCR.MaxPages = 50
	svc := NewService(db, cfg, nil, summarizer, nil)
	svc.countPages = func(_ context.Context, _ string) (int, error) { return pages, nil }
	return svc, db
}

func uploadContext(t *testing.T, filename string) (*gin.Context, *multipart.FileHeader) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte("%PDF-1.4\ntest content")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/materials", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req

	fh, err := c.FormFile("file")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	return c, fh
}

func TestUploadStoresUnderGeneratedName(t *testing.T) {
	svc, _ := newTestService(t, nil, 12)
	c, fh := uploadContext(t, "운영체제 3장.pdf")

	m, err := svc.Upload(context.Background(), c, "u1", "", fh)
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}
	if m.Page != 12 {
		t.Fatalf("pages=%d, want 12", m.Page)
	}
	if m.OriginalName != "운영체제 3장.pdf" {
		t.Fatalf("original=%q", m.OriginalName)
	}
	if m.MaterialName != "운영체제 3장" {
		t.Fatalf("name=%q, want filename fallback", m.MaterialName)
	}
	if m.StoredFile == m.OriginalName || !strings.HasSuffix(m.StoredFile, ".pdf") {
		t.Fatalf("stored file %q must be a generated name", m.StoredFile)
	}
	if _, err := os.Stat(filepath.Join(svc.storageDir, m.StoredFile)); err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
}

func TestUploadRejectsNonPDF(t *testing.T) {
	svc, _ := newTestService(t, nil, 12)
	c, fh := uploadContext(t, "notes.txt")

	if _, err := svc.Upload(context.Background(), c, "u1", "", fh); !errors.Is(err, ErrNotPDF) {
		t.Fatalf("err=%v, want ErrNotPDF", err)
	}
}

func TestUploadRejectsTooManyPages(t *testing.T) {
	svc, db := newTestService(t, nil, 500)
	c, fh := uploadContext(t, "huge.pdf")

	if _, err := svc.Upload(context.Background(), c, "u1", "", fh); !errors.Is(err, ErrTooManyPages) {
		t.Fatalf("err=%v, want ErrTooManyPages", err)
	}

	var count int64
	db.Model(&models.LectureMaterial{}).Count(&count)
	if count != 0 {
		t.Fatal("rejected upload must not leave a record")
	}
	entries, _ := os.ReadDir(svc.storageDir)
	if len(entries) != 0 {
		t.Fatal("rejected upload must not leave a file")
	}
}

func TestGetScopedToOwner(t *testing.T) {
	svc, db := newTestService(t, nil, 1)
	m := models.LectureMaterial{UserID: "u1", MaterialName: "자료", OriginalName: "a.pdf", StoredFile: "a.pdf", Page: 1}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("create material: %v", err)
	}

	if _, err := svc.Get("u2", m.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound for foreign material", err)
	}
	got, err := svc.Get("u1", m.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.ID != m.ID {
		t.Fatalf("got=%s, want %s", got.ID, m.ID)
	}
}

func TestSummaryGeneratedOnceAndCachedOnRow(t *testing.T) {
	sum := &fakeSummarizer{summary: "전체 자료 요약입니다."}
	svc, db := newTestService(t, sum, 1)

	m := models.LectureMaterial{UserID: "u1", MaterialName: "자료", OriginalName: "a.pdf", StoredFile: "a.pdf", Page: 2}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("create material: %v", err)
	}
	slides := []models.Slide{
		{MaterialID: m.ID, SlideNumber: 1, SlideTitle: "개요", Summary: "첫 장 요약"},
		{MaterialID: m.ID, SlideNumber: 2, SlideTitle: "심화", Summary: "둘째 장 요약"},
	}
	if err := db.Create(&slides).Error; err != nil {
		t.Fatalf("create slides: %v", err)
	}

	for i := 0; i < 2; i++ {
		got, err := svc.Summary(context.Background(), "u1", m.ID)
		if err != nil {
			t.Fatalf("Summary #%d error: %v", i, err)
		}
		if got != "전체 자료 요약입니다." {
			t.Fatalf("summary=%q", got)
		}
	}
	if sum.calls != 1 {
		t.Fatalf("summarizer calls=%d, want 1", sum.calls)
	}
}

func TestSummaryWithoutSlides(t *testing.T) {
	svc, db := newTestService(t, &fakeSummarizer{}, 1)
	m := models.LectureMaterial{UserID: "u1", MaterialName: "자료", OriginalName: "a.pdf", StoredFile: "a.pdf", Page: 2}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("create material: %v", err)
	}

	if _, err := svc.Summary(context.Background(), "u1", m.ID); !errors.Is(err, ErrNoSlides) {
		t.Fatalf("err=%v, want ErrNoSlides", err)
	}
}

func TestDeleteCascades(t *testing.T) {
	svc, db := newTestService(t, nil, 1)

	m := models.LectureMaterial{UserID: "u1", MaterialName: "자료", OriginalName: "a.pdf", StoredFile: "a.pdf", Page: 1}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("create material: %v", err)
	}
	kw := models.Keyword{Name: "스택"}
	if err := db.Create(&kw).Error; err != nil {
		t.Fatalf("create keyword: %v", err)
	}
	sl := models.Slide{MaterialID: m.ID, SlideNumber: 1, Summary: "요약"}
	if err := db.Create(&sl).Error; err != nil {
		t.Fatalf("create slide: %v", err)
	}
	if err := db.Create(&models.SlideKeyword{SlideID: sl.ID, KeywordID: kw.ID}).Error; err != nil {
		t.Fatalf("create slide keyword: %v", err)
	}
	q := models.Question{MaterialID: m.ID, QuestionType: models.QuestionTypeChoice, Difficulty: models.DifficultyMedium, QuestionText: "Q", Answer: "A"}
	if err := db.Create(&q).Error; err != nil {
		t.Fatalf("create question: %v", err)
	}
	if err := db.Create(&models.QuestionKeyword{QuestionID: q.ID, KeywordID: kw.ID}).Error; err != nil {
		t.Fatalf("create question keyword: %v", err)
	}
	att := models.QuestionAttempt{UserID: "u1", QuestionID: q.ID, UserAnswer: "B", IsCorrect: false}
	if err := db.Create(&att).Error; err != nil {
		t.Fatalf("create attempt: %v", err)
	}
	spl := models.StudyProgressLog{UserID: "u1", MaterialID: m.ID, StudyDate: "2026-08-28", TotalProgress: 100}
	if err := db.Create(&spl).Error; err != nil {
		t.Fatalf("create progress log: %v", err)
	}

	if err := svc.Delete(context.Background(), "u1", m.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	var materials, slides, questions, attempts, progress int64
	db.Model(&models.LectureMaterial{}).Count(&materials)
	db.Model(&models.Slide{}).Count(&slides)
	db.Model(&models.Question{}).Count(&questions)
	db.Model(&models.QuestionAttempt{}).Count(&attempts)
	db.Model(&models.StudyProgressLog{}).Count(&progress)
	counts := map[string]int64{
		"materials": materials,
		"slides":    slides,
		"questions": questions,
		"attempts":  attempts,
		"progress":  progress,
	}
	for name, n := range counts {
		if n != 0 {
			t.Fatalf("%s=%d, want 0 after delete", name, n)
		}
	}

	// keywords are shared and must survive
	var kwCount int64
	db.Model(&models.Keyword{}).Count(&kwCount)
	if kwCount != 1 {
		t.Fatalf("keywords=%d, want 1", kwCount)
	}

	if err := svc.Delete(context.Background(), "u1", m.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete err=%v, want ErrNotFound", err)
	}
}
