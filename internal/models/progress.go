package models

import "time"

// The progress mirror is a per-(user, degree) snapshot of the content tree
// shape carrying completion state. Nodes are matched to the live tree by
// stable id; a node whose id has disappeared from the authored tree is
// flagged Orphaned and kept out of the rollup.

type SubLessonProgress struct {
	SubLessonID string `bson:"sub_lesson_id" json:"sub_lesson_id"`
	IsComplete  bool   `bson:"is_complete" json:"is_complete"`
	Orphaned    bool   `bson:"orphaned,omitempty" json:"orphaned,omitempty"`
}

type LessonProgress struct {
	LessonID           string              `bson:"lesson_id" json:"lesson_id"`
	IsComplete         bool                `bson:"is_complete" json:"is_complete"`
	ProgressPercentage int                 `bson:"progress_percentage" json:"progress_percentage"`
	Orphaned           bool                `bson:"orphaned,omitempty" json:"orphaned,omitempty"`
	SubLessons         []SubLessonProgress `bson:"sub_lessons" json:"sub_lessons"`
}

type ChapterProgress struct {
	ChapterID          string           `bson:"chapter_id" json:"chapter_id"`
	IsComplete         bool             `bson:"is_complete" json:"is_complete"`
	ProgressPercentage int              `bson:"progress_percentage" json:"progress_percentage"`
	Orphaned           bool             `bson:"orphaned,omitempty" json:"orphaned,omitempty"`
	Lessons            []LessonProgress `bson:"lessons" json:"lessons"`
}

type CourseProgress struct {
	CourseID           string            `bson:"course_id" json:"course_id"`
	IsComplete         bool              `bson:"is_complete" json:"is_complete"`
	ProgressPercentage int               `bson:"progress_percentage" json:"progress_percentage"`
	Orphaned           bool              `bson:"orphaned,omitempty" json:"orphaned,omitempty"`
	Chapters           []ChapterProgress `bson:"chapters" json:"chapters"`
}

// DegreeProgress is persisted as one whole document per (user, degree).
// Version backs the optimistic-locking scheme in the repository layer.
type DegreeProgress struct {
	ID                 string           `bson:"_id,omitempty" json:"id"`
	UserID             string           `bson:"user_id" json:"user_id"`
	DegreeID           string           `bson:"degree_id" json:"degree_id"`
	IsDegreeComplete   bool             `bson:"is_degree_complete" json:"is_degree_complete"`
	ProgressPercentage int              `bson:"progress_percentage" json:"progress_percentage"`
	Courses            []CourseProgress `bson:"courses" json:"courses"`
	Version            int64            `bson:"version" json:"-"`
	UpdatedAt          time.Time        `bson:"updated_at" json:"updated_at"`
}

// FindLesson walks the mirror for a lesson by id. Orphaned lessons are not
// returned; content removed by authors can no longer be completed.
func (p *DegreeProgress) FindLesson(lessonID string) *LessonProgress {
	for i := range p.Courses {
		for j := range p.Courses[i].Chapters {
			lessons := p.Courses[i].Chapters[j].Lessons
			for k := range lessons {
				if lessons[k].LessonID == lessonID && !lessons[k].Orphaned {
					return &lessons[k]
				}
			}
		}
	}
	return nil
}
