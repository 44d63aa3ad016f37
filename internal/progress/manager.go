package progress

import (
	"fmt"
	"math"
	"time"

	"degree-service/internal/errs"
	"degree-service/internal/models"
)

// Manager implements the progress engine: lazy mirror creation, completion
// recording and the bottom-up percentage rollup. All methods mutate the
// mirror in memory only; persistence is the caller's concern.
type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// NewMirror snapshots the current shape of the authored tree into a zeroed
// progress mirror for the user.
func (m *Manager) NewMirror(userID string, degree *models.Degree) *models.DegreeProgress {
	mirror := &models.DegreeProgress{
		UserID:    userID,
		DegreeID:  degree.ID,
		Courses:   make([]models.CourseProgress, 0, len(degree.Courses)),
		UpdatedAt: time.Now(),
	}
	for i := range degree.Courses {
		mirror.Courses = append(mirror.Courses, newCourseProgress(&degree.Courses[i]))
	}
	return mirror
}

func newCourseProgress(course *models.Course) models.CourseProgress {
	cp := models.CourseProgress{
		CourseID: course.ID,
		Chapters: make([]models.ChapterProgress, 0, len(course.Chapters)),
	}
	for i := range course.Chapters {
		cp.Chapters = append(cp.Chapters, newChapterProgress(&course.Chapters[i]))
	}
	return cp
}

func newChapterProgress(chapter *models.Chapter) models.ChapterProgress {
	chp := models.ChapterProgress{
		ChapterID: chapter.ID,
		Lessons:   make([]models.LessonProgress, 0, len(chapter.Lessons)),
	}
	for i := range chapter.Lessons {
		chp.Lessons = append(chp.Lessons, newLessonProgress(&chapter.Lessons[i]))
	}
	return chp
}

func newLessonProgress(lesson *models.Lesson) models.LessonProgress {
	lp := models.LessonProgress{
		LessonID:   lesson.ID,
		SubLessons: make([]models.SubLessonProgress, 0, len(lesson.SubLessons)),
	}
	for i := range lesson.SubLessons {
		lp.SubLessons = append(lp.SubLessons, models.SubLessonProgress{
			SubLessonID: lesson.SubLessons[i].ID,
		})
	}
	return lp
}

// Reconcile aligns a stored mirror with the live authored tree. Mirror nodes
// whose id disappeared from the tree are flagged orphaned (and revived if
// the id comes back); nodes added by authors are appended zeroed. Matching
// is by stable id at every level. The rollup runs afterwards so appended or
// orphaned nodes are reflected in every ancestor's flag and percentage.
func (m *Manager) Reconcile(mirror *models.DegreeProgress, degree *models.Degree) {
	seen := make(map[string]bool, len(mirror.Courses))
	for i := range mirror.Courses {
		cp := &mirror.Courses[i]
		seen[cp.CourseID] = true
		course := findCourse(degree, cp.CourseID)
		if course == nil {
			cp.Orphaned = true
			continue
		}
		cp.Orphaned = false
		reconcileChapters(cp, course)
	}
	for i := range degree.Courses {
		if !seen[degree.Courses[i].ID] {
			mirror.Courses = append(mirror.Courses, newCourseProgress(&degree.Courses[i]))
		}
	}
	m.rollup(mirror)
}

func reconcileChapters(cp *models.CourseProgress, course *models.Course) {
	seen := make(map[string]bool, len(cp.Chapters))
	for i := range cp.Chapters {
		chp := &cp.Chapters[i]
		seen[chp.ChapterID] = true
		chapter := findChapter(course, chp.ChapterID)
		if chapter == nil {
			chp.Orphaned = true
			continue
		}
		chp.Orphaned = false
		reconcileLessons(chp, chapter)
	}
	for i := range course.Chapters {
		if !seen[course.Chapters[i].ID] {
			cp.Chapters = append(cp.Chapters, newChapterProgress(&course.Chapters[i]))
		}
	}
}

func reconcileLessons(chp *models.ChapterProgress, chapter *models.Chapter) {
	seen := make(map[string]bool, len(chp.Lessons))
	for i := range chp.Lessons {
		lp := &chp.Lessons[i]
		seen[lp.LessonID] = true
		lesson := findLesson(chapter, lp.LessonID)
		if lesson == nil {
			lp.Orphaned = true
			continue
		}
		lp.Orphaned = false
		reconcileSubLessons(lp, lesson)
	}
	for i := range chapter.Lessons {
		if !seen[chapter.Lessons[i].ID] {
			chp.Lessons = append(chp.Lessons, newLessonProgress(&chapter.Lessons[i]))
		}
	}
}

func reconcileSubLessons(lp *models.LessonProgress, lesson *models.Lesson) {
	live := make(map[string]bool, len(lesson.SubLessons))
	for i := range lesson.SubLessons {
		live[lesson.SubLessons[i].ID] = true
	}
	seen := make(map[string]bool, len(lp.SubLessons))
	for i := range lp.SubLessons {
		sp := &lp.SubLessons[i]
		seen[sp.SubLessonID] = true
		sp.Orphaned = !live[sp.SubLessonID]
	}
	for i := range lesson.SubLessons {
		if !seen[lesson.SubLessons[i].ID] {
			lp.SubLessons = append(lp.SubLessons, models.SubLessonProgress{
				SubLessonID: lesson.SubLessons[i].ID,
			})
		}
	}
}

func findCourse(degree *models.Degree, id string) *models.Course {
	for i := range degree.Courses {
		if degree.Courses[i].ID == id {
			return &degree.Courses[i]
		}
	}
	return nil
}

func findChapter(course *models.Course, id string) *models.Chapter {
	for i := range course.Chapters {
		if course.Chapters[i].ID == id {
			return &course.Chapters[i]
		}
	}
	return nil
}

func findLesson(chapter *models.Chapter, id string) *models.Lesson {
	for i := range chapter.Lessons {
		if chapter.Lessons[i].ID == id {
			return &chapter.Lessons[i]
		}
	}
	return nil
}

// RecordCompletion marks a lesson or sub-lesson complete and recomputes
// every ancestor. Marking an already-complete node is a no-op, and
// completion never reverts.
func (m *Manager) RecordCompletion(mirror *models.DegreeProgress, lessonID, subLessonID string) error {
	lesson := mirror.FindLesson(lessonID)
	if lesson == nil {
		return fmt.Errorf("lesson %s: %w", lessonID, errs.ErrNotFound)
	}

	if subLessonID != "" {
		var target *models.SubLessonProgress
		for i := range lesson.SubLessons {
			if lesson.SubLessons[i].SubLessonID == subLessonID && !lesson.SubLessons[i].Orphaned {
				target = &lesson.SubLessons[i]
				break
			}
		}
		if target == nil {
			return fmt.Errorf("sub-lesson %s: %w", subLessonID, errs.ErrNotFound)
		}
		target.IsComplete = true
	}

	total, completed := 0, 0
	for i := range lesson.SubLessons {
		if lesson.SubLessons[i].Orphaned {
			continue
		}
		total++
		if lesson.SubLessons[i].IsComplete {
			completed++
		}
	}
	if total == 0 {
		// No sub-lessons: the lesson itself is the completion unit.
		lesson.IsComplete = true
		lesson.ProgressPercentage = 100
	} else {
		lesson.IsComplete = completed == total
		lesson.ProgressPercentage = roundPercent(completed, total)
	}

	m.rollup(mirror)
	mirror.UpdatedAt = time.Now()
	return nil
}

// rollup recomputes chapter, course and degree state bottom-up from lesson
// completion flags. The degree percentage is weighted by lesson count, not
// course count. Orphaned nodes stay out of every conjunction and
// denominator.
func (m *Manager) rollup(mirror *models.DegreeProgress) {
	totalLessons, completedLessons := 0, 0
	degreeComplete := true

	for i := range mirror.Courses {
		course := &mirror.Courses[i]
		if course.Orphaned {
			continue
		}
		courseTotal, courseDone := 0, 0
		for j := range course.Chapters {
			chapter := &course.Chapters[j]
			if chapter.Orphaned {
				continue
			}
			chapterTotal, chapterDone := 0, 0
			for k := range chapter.Lessons {
				lesson := &chapter.Lessons[k]
				if lesson.Orphaned {
					continue
				}
				recalcLesson(lesson)
				chapterTotal++
				if lesson.IsComplete {
					chapterDone++
				}
			}
			chapter.IsComplete = chapterDone == chapterTotal
			if chapterTotal == 0 {
				chapter.ProgressPercentage = 100
			} else {
				chapter.ProgressPercentage = roundPercent(chapterDone, chapterTotal)
			}
			courseTotal += chapterTotal
			courseDone += chapterDone
		}
		course.IsComplete = courseDone == courseTotal
		if courseTotal == 0 {
			course.ProgressPercentage = 100
		} else {
			course.ProgressPercentage = roundPercent(courseDone, courseTotal)
		}
		if !course.IsComplete {
			degreeComplete = false
		}
		totalLessons += courseTotal
		completedLessons += courseDone
	}

	mirror.IsDegreeComplete = degreeComplete
	if totalLessons == 0 {
		mirror.ProgressPercentage = 100
	} else {
		mirror.ProgressPercentage = roundPercent(completedLessons, totalLessons)
	}
}

// recalcLesson re-derives a lesson's state from its active sub-lessons. A
// lesson with no active sub-lessons is its own completion unit and keeps
// its directly-set flag.
func recalcLesson(lesson *models.LessonProgress) {
	total, done := 0, 0
	for i := range lesson.SubLessons {
		if lesson.SubLessons[i].Orphaned {
			continue
		}
		total++
		if lesson.SubLessons[i].IsComplete {
			done++
		}
	}
	if total == 0 {
		return
	}
	lesson.IsComplete = done == total
	lesson.ProgressPercentage = roundPercent(done, total)
}

func roundPercent(completed, total int) int {
	return int(math.Round(float64(completed) / float64(total) * 100))
}
