package scoring

import (
	"fmt"
	"math"
	"time"

	"degree-service/internal/errs"
	"degree-service/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SubmittedAnswer is one raw answer in a submission, before grading.
// FileURL references an already-stored attachment for free-response
// questions.
type SubmittedAnswer struct {
	QuestionID string `json:"question_id" binding:"required"`
	Value      string `json:"value"`
	FileURL    string `json:"file_url"`
}

// Manager implements the scoring engine: grading against the oracle's
// answer key, the bounded attempt ledger, best-marks selection and the
// sheet-wide aggregate. Like the progress engine it works purely in memory.
type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Grade scores a submission against the node's question set. MCQ answers
// are auto-graded; free-response answers start at zero pending manual
// grading. Max marks and correct answers are stamped from the question set
// now and become immutable for this attempt.
func (m *Manager) Grade(questions []models.Question, submitted []SubmittedAnswer) ([]models.AnswerRecord, error) {
	if len(submitted) == 0 {
		return nil, fmt.Errorf("empty answer set: %w", errs.ErrValidation)
	}
	seen := make(map[string]bool, len(submitted))
	records := make([]models.AnswerRecord, 0, len(submitted))
	for _, sub := range submitted {
		question, ok := models.FindQuestion(questions, sub.QuestionID)
		if !ok {
			return nil, fmt.Errorf("question %s not in node's question set: %w", sub.QuestionID, errs.ErrValidation)
		}
		if seen[sub.QuestionID] {
			return nil, fmt.Errorf("question %s answered twice: %w", sub.QuestionID, errs.ErrValidation)
		}
		seen[sub.QuestionID] = true

		record := models.AnswerRecord{
			ID:            primitive.NewObjectID().Hex(),
			QuestionID:    question.ID,
			Question:      question.Text,
			Type:          question.Type,
			UserAnswer:    sub.Value,
			CorrectAnswer: question.CorrectAnswer,
			MaxMark:       question.MaxMark,
			FileURL:       sub.FileURL,
		}
		if question.Type == models.QuestionMCQ && sub.Value == question.CorrectAnswer {
			record.Marks = question.MaxMark
		}
		if err := record.Validate(); err != nil {
			return nil, fmt.Errorf("%v: %w", err, errs.ErrValidation)
		}
		records = append(records, record)
	}
	return records, nil
}

// RecordAttempt appends a graded attempt to the node's ledger, enforcing
// the attempt cap, then recomputes the node's best marks and the sheet
// aggregate. A rejected attempt leaves the sheet untouched.
func (m *Manager) RecordAttempt(sheet *models.ScoreSheet, kind models.NodeKind, nodeID string, answers []models.AnswerRecord, now time.Time) error {
	collection := sheet.Collection(kind)
	if collection == nil {
		return fmt.Errorf("unknown node kind %q: %w", kind, errs.ErrValidation)
	}

	node := findNode(*collection, nodeID)
	if node == nil {
		var maxMarks float64
		for i := range answers {
			maxMarks += answers[i].MaxMark
		}
		*collection = append(*collection, models.NodeAnswer{
			NodeID:   nodeID,
			MaxMarks: maxMarks,
		})
		node = &(*collection)[len(*collection)-1]
	}

	if len(node.Attempts) >= models.MaxAttempts {
		return fmt.Errorf("node %s already has %d attempts: %w", nodeID, models.MaxAttempts, errs.ErrAttemptLimit)
	}

	var obtained float64
	for i := range answers {
		obtained += answers[i].Marks
	}
	node.Attempts = append(node.Attempts, models.Attempt{
		Answers:       answers,
		MarksObtained: obtained,
		AttemptedAt:   now,
	})

	recomputeBest(node)
	Recalculate(sheet)
	sheet.UpdatedAt = now
	return nil
}

// ApplyCorrections overwrites the marks of free-response answers named in
// corrections (keyed by answer id), then re-derives every affected
// attempt's total, every node's best marks and the sheet aggregate. The
// whole batch is validated up front: a rejected batch leaves the sheet
// untouched. The operation is idempotent for identical corrections. It
// returns the number of answers changed.
func (m *Manager) ApplyCorrections(sheet *models.ScoreSheet, corrections map[string]float64) (int, error) {
	if len(corrections) == 0 {
		return 0, fmt.Errorf("no corrections given: %w", errs.ErrValidation)
	}

	collections := []*[]models.NodeAnswer{&sheet.Courses, &sheet.Chapters, &sheet.Lessons, &sheet.SubLessons}

	for _, collection := range collections {
		for i := range *collection {
			node := &(*collection)[i]
			for j := range node.Attempts {
				for k := range node.Attempts[j].Answers {
					answer := &node.Attempts[j].Answers[k]
					mark, ok := corrections[answer.ID]
					if !ok || answer.Type != models.QuestionFreeResponse {
						continue
					}
					if mark < 0 || mark > answer.MaxMark {
						return 0, fmt.Errorf("answer %s: mark %.2f outside [0, %.2f]: %w",
							answer.ID, mark, answer.MaxMark, errs.ErrValidation)
					}
				}
			}
		}
	}

	updated := 0
	for _, collection := range collections {
		for i := range *collection {
			node := &(*collection)[i]
			touched := false
			for j := range node.Attempts {
				attempt := &node.Attempts[j]
				for k := range attempt.Answers {
					answer := &attempt.Answers[k]
					mark, ok := corrections[answer.ID]
					if !ok || answer.Type != models.QuestionFreeResponse {
						continue
					}
					if answer.Marks != mark {
						answer.Marks = mark
						updated++
					}
					touched = true
				}
				if touched {
					var total float64
					for k := range attempt.Answers {
						total += attempt.Answers[k].Marks
					}
					attempt.MarksObtained = total
				}
			}
			if touched {
				// An amendment may promote any attempt to best or demote
				// the current one; always re-derive from all attempts.
				recomputeBest(node)
			}
		}
	}

	Recalculate(sheet)
	sheet.UpdatedAt = time.Now()
	return updated, nil
}

// Recalculate re-derives the sheet totals from scratch across all four
// collections. The denominator comes from each node's first-attempt
// snapshot, keeping submitted work stable against later question edits.
func Recalculate(sheet *models.ScoreSheet) {
	var total, possible float64
	for _, collection := range [][]models.NodeAnswer{sheet.Courses, sheet.Chapters, sheet.Lessons, sheet.SubLessons} {
		for i := range collection {
			total += collection[i].BestMarks
			possible += collection[i].PossibleMarks()
		}
	}
	sheet.TotalMarks = total
	sheet.TotalPossibleMarks = possible
	if possible > 0 {
		pct := math.Round(total/possible*100*100) / 100
		sheet.Percentage = math.Min(pct, 100)
	} else {
		sheet.Percentage = 0
	}
}

// recomputeBest re-derives BestMarks and the IsBest flags from the full
// attempt list. Ties go to the earliest attempt.
func recomputeBest(node *models.NodeAnswer) {
	best := -1
	node.BestMarks = 0
	for i := range node.Attempts {
		node.Attempts[i].IsBest = false
		if node.Attempts[i].MarksObtained > node.BestMarks || best < 0 {
			node.BestMarks = node.Attempts[i].MarksObtained
			best = i
		}
	}
	if best >= 0 {
		node.Attempts[best].IsBest = true
	}
}

func findNode(collection []models.NodeAnswer, nodeID string) *models.NodeAnswer {
	for i := range collection {
		if collection[i].NodeID == nodeID {
			return &collection[i]
		}
	}
	return nil
}
