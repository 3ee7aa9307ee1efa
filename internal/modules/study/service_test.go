package study

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/studylog/core/internal/models"
	"github.com/studylog/core/internal/testutil"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := testutil.OpenTestDB(t)
	svc := NewService(db)
	svc.now = func() time.Time { return testNow }
	return svc, db
}

func TestAddTimeAccumulates(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	for i, seconds := range []int{10, 20, 30} {
		total, err := svc.AddTime(ctx, "u1", seconds)
		if err != nil {
			t.Fatalf("AddTime #%d error: %v", i, err)
		}
		if i == 2 && total != 60 {
			t.Fatalf("total=%d, want 60", total)
		}
	}

	var count int64
	db.Model(&models.DailyStudyTime{}).Where("user_id = ?", "u1").Count(&count)
	if count != 1 {
		t.Fatalf("rows=%d, want a single upserted row", count)
	}
}

func TestAddTimeRejectsNonPositive(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.AddTime(context.Background(), "u1", 0); !errors.Is(err, ErrBadDuration) {
		t.Fatalf("err=%v, want ErrBadDuration", err)
	}
}

func TestAddTimeStoresIntensityLog(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddTime(ctx, "u1", 30); err != nil {
		t.Fatalf("AddTime error: %v", err)
	}

	var rows []models.StudyIntensityLog
	if err := db.Where("user_id = ?", "u1").Find(&rows).Error; err != nil {
		t.Fatalf("fetch logs: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows=%d, want the intensity log written by AddTime", len(rows))
	}
	if rows[0].StudyDate != "2026-08-28" {
		t.Fatalf("study_date=%s, want 2026-08-28", rows[0].StudyDate)
	}
	if rows[0].Score != 6 { // 30 seconds * 0.20
		t.Fatalf("score=%v, want 6", rows[0].Score)
	}
}

func TestTodayTimeWithoutLog(t *testing.T) {
	svc, _ := newTestService(t)

	total, err := svc.TodayTime(context.Background(), "u1")
	if err != nil {
		t.Fatalf("TodayTime error: %v", err)
	}
	if total != 0 {
		t.Fatalf("total=%d, want 0", total)
	}
}

func TestRecordProgressKeepsHighest(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	steps := []struct {
		progress float64
		want     float64
	}{
		{40, 40},
		{25, 40},
		{60, 60},
	}
	for _, step := range steps {
		if err := svc.RecordProgress(ctx, "u1", "m1", step.progress); err != nil {
			t.Fatalf("RecordProgress(%v) error: %v", step.progress, err)
		}
		var row models.StudyProgressLog
		if err := db.Where("user_id = ? AND material_id = ?", "u1", "m1").First(&row).Error; err != nil {
			t.Fatalf("fetch snapshot: %v", err)
		}
		if row.TotalProgress != step.want {
			t.Fatalf("after %v: total_progress=%v, want %v", step.progress, row.TotalProgress, step.want)
		}
	}
}

func TestIntensityWithoutStudyTime(t *testing.T) {
	svc, _ := newTestService(t)

	got, err := svc.Intensity(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Intensity error: %v", err)
	}
	if got.Score != 0 || got.StudyDate != "2026-08-28" {
		t.Fatalf("got=%+v, want zero score for today", got)
	}
}

func TestIntensityScore(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddTime(ctx, "u1", 30); err != nil {
		t.Fatalf("AddTime error: %v", err)
	}
	if err := svc.RecordProgress(ctx, "u1", "m1", 50); err != nil {
		t.Fatalf("RecordProgress error: %v", err)
	}

	q1 := models.Question{QuestionType: models.QuestionTypeChoice, Difficulty: models.DifficultyMedium, QuestionText: "Q1", Answer: "A"}
	q2 := models.Question{QuestionType: models.QuestionTypeShort, Difficulty: models.DifficultyMedium, QuestionText: "Q2", Answer: "B"}
	if err := db.Create(&q1).Error; err != nil {
		t.Fatalf("create q1: %v", err)
	}
	if err := db.Create(&q2).Error; err != nil {
		t.Fatalf("create q2: %v", err)
	}
	attempts := []models.QuestionAttempt{
		{UserID: "u1", QuestionID: q1.ID, UserAnswer: "A", IsCorrect: true, AttemptDate: testNow},
		{UserID: "u1", QuestionID: q2.ID, UserAnswer: "X", IsCorrect: false, AttemptDate: testNow},
	}
	if err := db.Create(&attempts).Error; err != nil {
		t.Fatalf("create attempts: %v", err)
	}

	got, err := svc.Intensity(ctx, "u1")
	if err != nil {
		t.Fatalf("Intensity error: %v", err)
	}

	// 50*0.35 + 2*0.25 + 1*0.20 + 30*0.20 = 24.2
	if got.Score != 24.2 {
		t.Fatalf("score=%v, want 24.2", got.Score)
	}
	if got.MaxProgress != 50 || got.QuestionsAttempted != 2 || got.CorrectAttempts != 1 || got.TotalTime != 30 {
		t.Fatalf("breakdown=%+v", got)
	}
}

func TestRefreshIntensityUpsertsLog(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddTime(ctx, "u1", 10); err != nil {
		t.Fatalf("AddTime error: %v", err)
	}
	if _, err := svc.RefreshIntensity(ctx, "u1"); err != nil {
		t.Fatalf("RefreshIntensity error: %v", err)
	}
	if _, err := svc.AddTime(ctx, "u1", 10); err != nil {
		t.Fatalf("AddTime error: %v", err)
	}
	if _, err := svc.RefreshIntensity(ctx, "u1"); err != nil {
		t.Fatalf("RefreshIntensity error: %v", err)
	}

	var rows []models.StudyIntensityLog
	if err := db.Where("user_id = ?", "u1").Find(&rows).Error; err != nil {
		t.Fatalf("fetch logs: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows=%d, want a single upserted log", len(rows))
	}
	if rows[0].Score != 4 { // 20 seconds * 0.20
		t.Fatalf("score=%v, want 4", rows[0].Score)
	}
}

func TestRecordProgressStoresDelta(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	prev := models.StudyProgressLog{UserID: "u1", MaterialID: "m1", StudyDate: "2026-08-27", ProgressDelta: 25, TotalProgress: 25}
	if err := db.Create(&prev).Error; err != nil {
		t.Fatalf("create prev snapshot: %v", err)
	}

	if err := svc.RecordProgress(ctx, "u1", "m1", 40); err != nil {
		t.Fatalf("RecordProgress error: %v", err)
	}

	var row models.StudyProgressLog
	if err := db.Where("user_id = ? AND material_id = ? AND study_date = ?", "u1", "m1", "2026-08-28").First(&row).Error; err != nil {
		t.Fatalf("fetch snapshot: %v", err)
	}
	if row.TotalProgress != 40 || row.ProgressDelta != 15 {
		t.Fatalf("total=%v delta=%v, want 40/15", row.TotalProgress, row.ProgressDelta)
	}

	// a lower check-in later the same day keeps the higher snapshot intact
	if err := svc.RecordProgress(ctx, "u1", "m1", 30); err != nil {
		t.Fatalf("RecordProgress error: %v", err)
	}
	if err := db.Where("user_id = ? AND material_id = ? AND study_date = ?", "u1", "m1", "2026-08-28").First(&row).Error; err != nil {
		t.Fatalf("fetch snapshot: %v", err)
	}
	if row.TotalProgress != 40 || row.ProgressDelta != 15 {
		t.Fatalf("after lower check-in: total=%v delta=%v, want 40/15", row.TotalProgress, row.ProgressDelta)
	}
}

func TestCheckInProgress(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	m := models.LectureMaterial{UserID: "u1", MaterialName: "운영체제", OriginalName: "os.pdf", StoredFile: "a.pdf", Page: 4}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("create material: %v", err)
	}
	slides := []models.Slide{
		{MaterialID: m.ID, SlideNumber: 1, Summary: "요약 1"},
		{MaterialID: m.ID, SlideNumber: 2, Summary: "요약 2"},
		{MaterialID: m.ID, SlideNumber: 3, Summary: ""},
	}
	if err := db.Create(&slides).Error; err != nil {
		t.Fatalf("create slides: %v", err)
	}
	prev := models.StudyProgressLog{UserID: "u1", MaterialID: m.ID, StudyDate: "2026-08-27", TotalProgress: 25}
	if err := db.Create(&prev).Error; err != nil {
		t.Fatalf("create prev snapshot: %v", err)
	}

	got, err := svc.CheckInProgress(ctx, "u1", m.ID)
	if err != nil {
		t.Fatalf("CheckInProgress error: %v", err)
	}
	if got.Progress != 50 || got.PrevProgress != 25 || got.Delta != 25 {
		t.Fatalf("report=%+v, want 50/25/25", got)
	}

	var updated models.LectureMaterial
	if err := db.First(&updated, "id = ?", m.ID).Error; err != nil {
		t.Fatalf("fetch material: %v", err)
	}
	if updated.Progress != 50 {
		t.Fatalf("material progress=%v, want 50", updated.Progress)
	}

	var logged models.StudyProgressLog
	if err := db.Where("user_id = ? AND material_id = ? AND study_date = ?", "u1", m.ID, "2026-08-28").First(&logged).Error; err != nil {
		t.Fatalf("fetch snapshot: %v", err)
	}
	if logged.TotalProgress != 50 || logged.ProgressDelta != 25 {
		t.Fatalf("snapshot total=%v delta=%v, want 50/25", logged.TotalProgress, logged.ProgressDelta)
	}
}

func TestMonthHistory(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	logs := []models.StudyIntensityLog{
		{UserID: "u1", StudyDate: "2026-07-31", Score: 1},
		{UserID: "u1", StudyDate: "2026-08-01", Score: 2},
		{UserID: "u1", StudyDate: "2026-08-28", Score: 3},
		{UserID: "u1", StudyDate: "2026-09-01", Score: 4},
		{UserID: "u2", StudyDate: "2026-08-15", Score: 9},
	}
	if err := db.Create(&logs).Error; err != nil {
		t.Fatalf("seed logs: %v", err)
	}

	rows, err := svc.MonthHistory(ctx, "u1", 2026, 8)
	if err != nil {
		t.Fatalf("MonthHistory error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows=%d, want the two August entries", len(rows))
	}
	if rows[0].StudyDate != "2026-08-01" || rows[1].StudyDate != "2026-08-28" {
		t.Fatalf("dates=%s,%s, want 2026-08-01,2026-08-28", rows[0].StudyDate, rows[1].StudyDate)
	}

	// missing arguments fall back to the current month
	rows, err = svc.MonthHistory(ctx, "u1", 0, 0)
	if err != nil {
		t.Fatalf("MonthHistory error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows=%d, want current-month fallback to cover August", len(rows))
	}
}

func TestCheckInProgressUnknownMaterial(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.CheckInProgress(context.Background(), "u1", "nope"); !errors.Is(err, ErrMaterialNotFound) {
		t.Fatalf("err=%v, want ErrMaterialNotFound", err)
	}
}
