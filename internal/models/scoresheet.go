package models

import (
	"fmt"
	"time"
)

// MaxAttempts is the absolute per-node cap. Once reached, further
// submissions are rejected; there is no eviction.
const MaxAttempts = 5

// AnswerRecord is one graded answer inside an attempt. CorrectAnswer and
// MaxMark are stamped from the oracle's question definition at submission
// time and never re-read afterwards.
type AnswerRecord struct {
	ID            string       `bson:"id" json:"id"`
	QuestionID    string       `bson:"question_id" json:"question_id"`
	Question      string       `bson:"question" json:"question"`
	Type          QuestionType `bson:"type" json:"type"`
	UserAnswer    string       `bson:"user_answer" json:"user_answer"`
	CorrectAnswer string       `bson:"correct_answer" json:"correct_answer"`
	Marks         float64      `bson:"marks" json:"marks"`
	MaxMark       float64      `bson:"max_mark" json:"max_mark"`
	FileURL       string       `bson:"file_url,omitempty" json:"file_url,omitempty"`
}

// Validate enforces the per-variant required fields. MCQ answers carry a
// submitted value and no attachment; free-response answers need a value or
// an attachment reference.
func (a *AnswerRecord) Validate() error {
	switch a.Type {
	case QuestionMCQ:
		if a.UserAnswer == "" {
			return fmt.Errorf("question %s: MCQ answer requires a submitted value", a.QuestionID)
		}
		if a.FileURL != "" {
			return fmt.Errorf("question %s: MCQ answer cannot carry an attachment", a.QuestionID)
		}
	case QuestionFreeResponse:
		if a.UserAnswer == "" && a.FileURL == "" {
			return fmt.Errorf("question %s: free-response answer requires a value or an attachment", a.QuestionID)
		}
	default:
		return fmt.Errorf("question %s: unknown answer type %q", a.QuestionID, a.Type)
	}
	return nil
}

type Attempt struct {
	Answers       []AnswerRecord `bson:"answers" json:"answers"`
	MarksObtained float64        `bson:"marks_obtained" json:"marks_obtained"`
	AttemptedAt   time.Time      `bson:"attempted_at" json:"attempted_at"`
	IsBest        bool           `bson:"is_best" json:"is_best"`
}

// NodeAnswer tracks all attempts against one content node's test.
type NodeAnswer struct {
	NodeID    string    `bson:"node_id" json:"node_id"`
	MaxMarks  float64   `bson:"max_marks" json:"max_marks"`
	Attempts  []Attempt `bson:"attempts" json:"attempts"`
	BestMarks float64   `bson:"best_marks" json:"best_marks"`
}

// PossibleMarks is the node's contribution to the sheet denominator: the
// sum of max marks snapshotted in the first attempt. Later question-set
// edits in the authored tree deliberately do not move it.
func (n *NodeAnswer) PossibleMarks() float64 {
	if len(n.Attempts) == 0 {
		return 0
	}
	var sum float64
	for i := range n.Attempts[0].Answers {
		sum += n.Attempts[0].Answers[i].MaxMark
	}
	return sum
}

// ScoreSheet is the per-(user, degree) scoring aggregate, persisted as one
// whole document. TotalMarks, TotalPossibleMarks and Percentage are always
// recomputed from the four collections, never patched incrementally.
type ScoreSheet struct {
	ID                 string       `bson:"_id,omitempty" json:"id"`
	UserID             string       `bson:"user_id" json:"user_id"`
	DegreeID           string       `bson:"degree_id" json:"degree_id"`
	TotalMarks         float64      `bson:"total_marks" json:"total_marks"`
	TotalPossibleMarks float64      `bson:"total_possible_marks" json:"total_possible_marks"`
	Percentage         float64      `bson:"percentage" json:"percentage"`
	Courses            []NodeAnswer `bson:"courses" json:"courses"`
	Chapters           []NodeAnswer `bson:"chapters" json:"chapters"`
	Lessons            []NodeAnswer `bson:"lessons" json:"lessons"`
	SubLessons         []NodeAnswer `bson:"sub_lessons" json:"sub_lessons"`
	Version            int64        `bson:"version" json:"-"`
	CreatedAt          time.Time    `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time    `bson:"updated_at" json:"updated_at"`
}

// Collection returns the node slice for a kind. The pointer lets engine
// code append in place.
func (s *ScoreSheet) Collection(kind NodeKind) *[]NodeAnswer {
	switch kind {
	case NodeCourse:
		return &s.Courses
	case NodeChapter:
		return &s.Chapters
	case NodeLesson:
		return &s.Lessons
	case NodeSubLesson:
		return &s.SubLessons
	}
	return nil
}
