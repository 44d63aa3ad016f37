package models

import "time"

// NodeKind identifies a level of the degree content tree that can carry a
// test of its own.
type NodeKind string

const (
	NodeCourse    NodeKind = "course"
	NodeChapter   NodeKind = "chapter"
	NodeLesson    NodeKind = "lesson"
	NodeSubLesson NodeKind = "subLesson"
)

func (k NodeKind) Valid() bool {
	switch k {
	case NodeCourse, NodeChapter, NodeLesson, NodeSubLesson:
		return true
	}
	return false
}

// QuestionType distinguishes auto-graded multiple choice from manually
// graded free-response questions.
type QuestionType string

const (
	QuestionMCQ          QuestionType = "MCQ"
	QuestionFreeResponse QuestionType = "QuestionAnswer"
)

type Question struct {
	ID            string       `bson:"id" json:"id"`
	Text          string       `bson:"text" json:"text"`
	Type          QuestionType `bson:"type" json:"type"`
	Options       []string     `bson:"options,omitempty" json:"options,omitempty"`
	CorrectAnswer string       `bson:"correct_answer" json:"correct_answer"`
	MaxMark       float64      `bson:"max_mark" json:"max_mark"`
}

type SubLesson struct {
	ID        string     `bson:"sub_lesson_id" json:"sub_lesson_id"`
	Title     string     `bson:"title" json:"title"`
	File      string     `bson:"file,omitempty" json:"file,omitempty"`
	FileType  string     `bson:"file_type,omitempty" json:"file_type,omitempty"`
	Duration  int        `bson:"duration,omitempty" json:"duration,omitempty"`
	Questions []Question `bson:"questions,omitempty" json:"questions,omitempty"`
}

type Lesson struct {
	ID         string      `bson:"lesson_id" json:"lesson_id"`
	Title      string      `bson:"title" json:"title"`
	File       string      `bson:"file,omitempty" json:"file,omitempty"`
	FileType   string      `bson:"file_type,omitempty" json:"file_type,omitempty"`
	Duration   int         `bson:"duration,omitempty" json:"duration,omitempty"`
	SubLessons []SubLesson `bson:"sub_lessons" json:"sub_lessons"`
	Questions  []Question  `bson:"questions,omitempty" json:"questions,omitempty"`
}

type Chapter struct {
	ID          string     `bson:"chapter_id" json:"chapter_id"`
	Title       string     `bson:"title" json:"title"`
	Description string     `bson:"description,omitempty" json:"description,omitempty"`
	Lessons     []Lesson   `bson:"lessons" json:"lessons"`
	Questions   []Question `bson:"questions,omitempty" json:"questions,omitempty"`
}

type Course struct {
	ID          string     `bson:"course_id" json:"course_id"`
	Title       string     `bson:"title" json:"title"`
	Description string     `bson:"description,omitempty" json:"description,omitempty"`
	Thumbnail   string     `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	Chapters    []Chapter  `bson:"chapters" json:"chapters"`
	Questions   []Question `bson:"questions,omitempty" json:"questions,omitempty"`
}

// Degree is the authored content tree. This service reads it as an oracle;
// writes happen in the authoring service.
type Degree struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Title       string    `bson:"title" json:"title"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Thumbnail   string    `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	Price       float64   `bson:"price" json:"price"`
	Courses     []Course  `bson:"courses" json:"courses"`
	CreatedAt   time.Time `bson:"created_at,omitempty" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at,omitempty" json:"updated_at"`
}

// QuestionSet returns the question set attached to the node of the given
// kind and id. Lookup is by stable id at every level, never by position.
func (d *Degree) QuestionSet(kind NodeKind, nodeID string) ([]Question, bool) {
	for i := range d.Courses {
		course := &d.Courses[i]
		if kind == NodeCourse && course.ID == nodeID {
			return course.Questions, true
		}
		for j := range course.Chapters {
			chapter := &course.Chapters[j]
			if kind == NodeChapter && chapter.ID == nodeID {
				return chapter.Questions, true
			}
			for k := range chapter.Lessons {
				lesson := &chapter.Lessons[k]
				if kind == NodeLesson && lesson.ID == nodeID {
					return lesson.Questions, true
				}
				if kind == NodeSubLesson {
					for l := range lesson.SubLessons {
						if lesson.SubLessons[l].ID == nodeID {
							return lesson.SubLessons[l].Questions, true
						}
					}
				}
			}
		}
	}
	return nil, false
}

// FindQuestion returns the question with the given id within a set.
func FindQuestion(questions []Question, questionID string) (*Question, bool) {
	for i := range questions {
		if questions[i].ID == questionID {
			return &questions[i], true
		}
	}
	return nil, false
}
