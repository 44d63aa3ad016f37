package progress

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"degree-service/internal/errs"
	"degree-service/internal/models"

	"go.mongodb.org/mongo-driver/bson"
)

func testDegree() *models.Degree {
	return &models.Degree{
		ID:    "deg1",
		Title: "Bachelor of Theology",
		Courses: []models.Course{
			{
				ID: "c1",
				Chapters: []models.Chapter{
					{
						ID: "ch1",
						Lessons: []models.Lesson{
							{ID: "l1", SubLessons: []models.SubLesson{{ID: "s1"}, {ID: "s2"}}},
							{ID: "l2"},
						},
					},
				},
			},
		},
	}
}

func TestNewMirrorSnapshotsTreeShape(t *testing.T) {
	m := NewManager()
	mirror := m.NewMirror("u1", testDegree())

	if mirror.UserID != "u1" || mirror.DegreeID != "deg1" {
		t.Fatalf("unexpected mirror identity: %s/%s", mirror.UserID, mirror.DegreeID)
	}
	if len(mirror.Courses) != 1 || len(mirror.Courses[0].Chapters) != 1 {
		t.Fatalf("mirror shape does not match tree")
	}
	lessons := mirror.Courses[0].Chapters[0].Lessons
	if len(lessons) != 2 || len(lessons[0].SubLessons) != 2 {
		t.Fatalf("lesson shape does not match tree")
	}
	if mirror.IsDegreeComplete || mirror.ProgressPercentage != 0 {
		t.Errorf("fresh mirror should be zeroed, got complete=%v pct=%d",
			mirror.IsDegreeComplete, mirror.ProgressPercentage)
	}
}

func TestRecordCompletionSubLessonRollup(t *testing.T) {
	m := NewManager()
	mirror := m.NewMirror("u1", testDegree())

	// First sub-lesson: lesson at 50%, nothing above completes.
	if err := m.RecordCompletion(mirror, "l1", "s1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l1 := mirror.FindLesson("l1")
	if l1.IsComplete {
		t.Error("lesson should not be complete with one of two sub-lessons done")
	}
	if l1.ProgressPercentage != 50 {
		t.Errorf("expected lesson at 50%%, got %d", l1.ProgressPercentage)
	}
	chapter := &mirror.Courses[0].Chapters[0]
	if chapter.IsComplete || chapter.ProgressPercentage != 0 {
		t.Errorf("chapter should be incomplete at 0%%, got complete=%v pct=%d",
			chapter.IsComplete, chapter.ProgressPercentage)
	}

	// Second sub-lesson: lesson completes, chapter at 1/2 lessons.
	if err := m.RecordCompletion(mirror, "l1", "s2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !l1.IsComplete || l1.ProgressPercentage != 100 {
		t.Errorf("expected lesson complete at 100%%, got complete=%v pct=%d",
			l1.IsComplete, l1.ProgressPercentage)
	}
	if chapter.IsComplete || chapter.ProgressPercentage != 50 {
		t.Errorf("expected chapter incomplete at 50%%, got complete=%v pct=%d",
			chapter.IsComplete, chapter.ProgressPercentage)
	}

	// Lesson without sub-lessons completes directly; everything rolls up.
	if err := m.RecordCompletion(mirror, "l2", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !chapter.IsComplete || chapter.ProgressPercentage != 100 {
		t.Errorf("expected chapter complete, got complete=%v pct=%d",
			chapter.IsComplete, chapter.ProgressPercentage)
	}
	course := &mirror.Courses[0]
	if !course.IsComplete || course.ProgressPercentage != 100 {
		t.Errorf("expected course complete, got complete=%v pct=%d",
			course.IsComplete, course.ProgressPercentage)
	}
	if !mirror.IsDegreeComplete || mirror.ProgressPercentage != 100 {
		t.Errorf("expected degree complete, got complete=%v pct=%d",
			mirror.IsDegreeComplete, mirror.ProgressPercentage)
	}
}

func TestRecordCompletionIdempotent(t *testing.T) {
	m := NewManager()
	mirror := m.NewMirror("u1", testDegree())

	if err := m.RecordCompletion(mirror, "l1", "s1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := snapshot(mirror)

	if err := m.RecordCompletion(mirror, "l1", "s1"); err != nil {
		t.Fatalf("repeat completion should be a no-op, got: %v", err)
	}
	second := snapshot(mirror)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated completion changed the mirror:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestCompletionIsMonotonic(t *testing.T) {
	m := NewManager()
	mirror := m.NewMirror("u1", testDegree())

	calls := []struct{ lesson, sub string }{
		{"l1", "s1"}, {"l2", ""}, {"l1", "s2"}, {"l1", "s1"}, {"l2", ""},
	}
	completed := map[string]bool{}
	for _, call := range calls {
		if err := m.RecordCompletion(mirror, call.lesson, call.sub); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, id := range []string{"l1", "l2"} {
			lesson := mirror.FindLesson(id)
			if completed[id] && !lesson.IsComplete {
				t.Fatalf("lesson %s reverted from complete to incomplete", id)
			}
			if lesson.IsComplete {
				completed[id] = true
			}
		}
	}
}

func TestRecordCompletionUnknownIDs(t *testing.T) {
	m := NewManager()
	mirror := m.NewMirror("u1", testDegree())

	if err := m.RecordCompletion(mirror, "nope", ""); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown lesson, got %v", err)
	}
	if err := m.RecordCompletion(mirror, "l1", "nope"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown sub-lesson, got %v", err)
	}
}

func TestDegreePercentageIsLessonWeighted(t *testing.T) {
	degree := &models.Degree{
		ID: "deg2",
		Courses: []models.Course{
			{ID: "c1", Chapters: []models.Chapter{{ID: "ch1", Lessons: []models.Lesson{{ID: "l1"}, {ID: "l2"}}}}},
			{ID: "c2", Chapters: []models.Chapter{{ID: "ch2", Lessons: []models.Lesson{{ID: "l3"}}}}},
		},
	}
	m := NewManager()
	mirror := m.NewMirror("u1", degree)

	// Completing the single-lesson course finishes that course but only
	// one of three lessons degree-wide.
	if err := m.RecordCompletion(mirror, "l3", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mirror.Courses[1].IsComplete {
		t.Error("expected second course complete")
	}
	if mirror.IsDegreeComplete {
		t.Error("degree should not be complete")
	}
	if mirror.ProgressPercentage != 33 {
		t.Errorf("expected degree at 33%% (1 of 3 lessons), got %d", mirror.ProgressPercentage)
	}
}

func TestEmptyContainersAreVacuouslyComplete(t *testing.T) {
	degree := &models.Degree{
		ID: "deg3",
		Courses: []models.Course{
			{ID: "c1", Chapters: []models.Chapter{
				{ID: "ch1", Lessons: []models.Lesson{{ID: "l1"}}},
				{ID: "ch2"},
			}},
		},
	}
	m := NewManager()
	mirror := m.NewMirror("u1", degree)

	if err := m.RecordCompletion(mirror, "l1", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	empty := &mirror.Courses[0].Chapters[1]
	if !empty.IsComplete || empty.ProgressPercentage != 100 {
		t.Errorf("chapter with no lessons should count as complete at 100%%, got complete=%v pct=%d",
			empty.IsComplete, empty.ProgressPercentage)
	}
	if !mirror.IsDegreeComplete {
		t.Error("degree should be complete when every lesson is")
	}
}

func TestReconcileFlagsOrphansAndAppendsNewNodes(t *testing.T) {
	m := NewManager()
	degree := testDegree()
	mirror := m.NewMirror("u1", degree)
	if err := m.RecordCompletion(mirror, "l1", "s1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Authors delete l2 and add l3.
	edited := testDegree()
	edited.Courses[0].Chapters[0].Lessons = []models.Lesson{
		edited.Courses[0].Chapters[0].Lessons[0],
		{ID: "l3"},
	}
	m.Reconcile(mirror, edited)

	lessons := mirror.Courses[0].Chapters[0].Lessons
	if len(lessons) != 3 {
		t.Fatalf("expected 3 mirror lessons (l1, orphaned l2, new l3), got %d", len(lessons))
	}
	var orphaned, appended bool
	for i := range lessons {
		if lessons[i].LessonID == "l2" && lessons[i].Orphaned {
			orphaned = true
		}
		if lessons[i].LessonID == "l3" {
			appended = true
		}
	}
	if !orphaned {
		t.Error("deleted lesson should be flagged orphaned")
	}
	if !appended {
		t.Error("new lesson should be appended to the mirror")
	}

	// Orphaned lessons can no longer be completed and leave the rollup.
	if err := m.RecordCompletion(mirror, "l2", ""); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected ErrNotFound completing an orphaned lesson, got %v", err)
	}
	if err := m.RecordCompletion(mirror, "l1", "s2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	chapter := &mirror.Courses[0].Chapters[0]
	if chapter.ProgressPercentage != 50 {
		t.Errorf("expected chapter at 50%% (1 of 2 live lessons), got %d", chapter.ProgressPercentage)
	}

	// The id coming back revives the node with its old state.
	m.Reconcile(mirror, degree)
	if mirror.FindLesson("l2") == nil {
		t.Error("restored lesson should be live again")
	}
}

func completeAll(t *testing.T, m *Manager, mirror *models.DegreeProgress) {
	t.Helper()
	for _, call := range []struct{ lesson, sub string }{
		{"l1", "s1"}, {"l1", "s2"}, {"l2", ""},
	} {
		if err := m.RecordCompletion(mirror, call.lesson, call.sub); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if !mirror.IsDegreeComplete || mirror.ProgressPercentage != 100 {
		t.Fatalf("setup: expected completed degree, got complete=%v pct=%d",
			mirror.IsDegreeComplete, mirror.ProgressPercentage)
	}
}

func TestReconcileRecomputesAggregateForNewLesson(t *testing.T) {
	m := NewManager()
	mirror := m.NewMirror("u1", testDegree())
	completeAll(t, m, mirror)

	// Authors publish a third lesson after the degree was finished.
	edited := testDegree()
	edited.Courses[0].Chapters[0].Lessons = append(
		edited.Courses[0].Chapters[0].Lessons, models.Lesson{ID: "l3"})
	m.Reconcile(mirror, edited)

	if mirror.IsDegreeComplete {
		t.Error("an incomplete new lesson must clear degree completion")
	}
	if mirror.ProgressPercentage != 67 {
		t.Errorf("expected degree at 67%% (2 of 3 lessons), got %d", mirror.ProgressPercentage)
	}
	chapter := &mirror.Courses[0].Chapters[0]
	if chapter.IsComplete || chapter.ProgressPercentage != 67 {
		t.Errorf("expected chapter incomplete at 67%%, got complete=%v pct=%d",
			chapter.IsComplete, chapter.ProgressPercentage)
	}
}

func TestReconcileRecomputesLessonForNewSubLesson(t *testing.T) {
	m := NewManager()
	mirror := m.NewMirror("u1", testDegree())
	completeAll(t, m, mirror)

	edited := testDegree()
	edited.Courses[0].Chapters[0].Lessons[0].SubLessons = append(
		edited.Courses[0].Chapters[0].Lessons[0].SubLessons, models.SubLesson{ID: "s3"})
	m.Reconcile(mirror, edited)

	l1 := mirror.FindLesson("l1")
	if l1.IsComplete || l1.ProgressPercentage != 67 {
		t.Errorf("expected lesson reopened at 67%%, got complete=%v pct=%d",
			l1.IsComplete, l1.ProgressPercentage)
	}
	if mirror.IsDegreeComplete || mirror.ProgressPercentage != 50 {
		t.Errorf("expected degree at 50%% (1 of 2 lessons), got complete=%v pct=%d",
			mirror.IsDegreeComplete, mirror.ProgressPercentage)
	}

	// Completing the new sub-lesson closes everything again.
	if err := m.RecordCompletion(mirror, "l1", "s3"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mirror.IsDegreeComplete || mirror.ProgressPercentage != 100 {
		t.Errorf("expected degree complete again, got complete=%v pct=%d",
			mirror.IsDegreeComplete, mirror.ProgressPercentage)
	}
}

// snapshot deep-copies the mirror and strips the timestamp so DeepEqual
// compares only logical state.
func snapshot(mirror *models.DegreeProgress) models.DegreeProgress {
	raw, err := bson.Marshal(mirror)
	if err != nil {
		panic(err)
	}
	var copy models.DegreeProgress
	if err := bson.Unmarshal(raw, &copy); err != nil {
		panic(err)
	}
	copy.UpdatedAt = time.Time{}
	return copy
}
