package scoring

import (
	"math"
	"strings"
)

// Question is a minimal view of a question needed for scoring.
// Keep this in sync with whatever fields your store uses.
type Question struct {
	ID            string
	Section       string
	Marks         float64 // per-question marks; invalid values fall back to 1
	NegativeMarks float64 // deduction for a wrong attempted answer; clamped to >= 0
	Options       []Option
}

type Option struct {
	Text      string
	IsCorrect bool
	Order     int
}

// Answer is one submitted selection for a question. Resolution priority is
// SelectedOrder, then the first element of SelectedOrders, then an exact
// trimmed-text match against the question's options.
//
// When SelectedOrders carries more than one element only the first is scored.
// That mirrors the historic single-select contract and silently drops the
// rest; callers submitting true multi-select data will lose selections here.
type Answer struct {
	QuestionID       string
	SelectedOrder    *int
	SelectedOrders   []int
	SelectedText     string
	TimeSpentSeconds int
}

type Status string

const (
	StatusCorrect          Status = "correct"
	StatusIncorrect        Status = "incorrect"
	StatusPartiallyCorrect Status = "partially_correct"
	StatusSkipped          Status = "skipped"
)

// QuestionResult is the outcome of scoring a single question.
type QuestionResult struct {
	QuestionID       string  `json:"question_id"`
	Section          string  `json:"section"`
	Attempted        bool    `json:"attempted"`
	Correct          bool    `json:"is_correct"`
	Status           Status  `json:"status"`
	SelectedOrder    *int    `json:"selected_option_order"`
	CorrectOrder     *int    `json:"correct_option_order"`
	MarksAwarded     float64 `json:"marks_awarded"`
	MarksAvailable   float64 `json:"marks_available"`
	NegativeMarks    float64 `json:"negative_marks"`
	TimeSpentSeconds int     `json:"time_spent_seconds,omitempty"`
}

type SectionSummary struct {
	Section         string  `json:"section"`
	Total           int     `json:"total"`
	Attempted       int     `json:"attempted"`
	Correct         int     `json:"correct"`
	MarksObtained   float64 `json:"marks_obtained"`
	MaxMarks        float64 `json:"max_marks"`
	AccuracyPercent float64 `json:"accuracy_percent"`
}

type Result struct {
	TotalQuestions     int              `json:"total_questions"`
	AttemptedQuestions int              `json:"attempted_questions"`
	CorrectAnswers     int              `json:"correct_answers"`
	Score              float64          `json:"score"`
	MaxScore           float64          `json:"max_score"`
	Percentage         float64          `json:"percentage"`
	Accuracy           float64          `json:"accuracy"`
	NegativeDeductions float64          `json:"negative_deductions"`
	Questions          []QuestionResult `json:"question_results"`
	Sections           []SectionSummary `json:"section_summaries"`
}

const defaultSection = "General"

// Score grades a submission against the fetched question set. Iteration runs
// over the questions, not the answers, so a question with no matching answer
// is still counted as unattempted in its section. The raw score can go
// negative when deductions exceed earned marks; only Percentage is floored
// at zero.
func Score(questions []Question, answers []Answer) Result {
	byQID := make(map[string]Answer, len(answers))
	for _, a := range answers {
		if _, seen := byQID[a.QuestionID]; !seen {
			byQID[a.QuestionID] = a
		}
	}

	res := Result{TotalQuestions: len(questions)}
	sectionIdx := map[string]int{}

	for _, q := range questions {
		section := q.Section
		if section == "" {
			section = defaultSection
		}
		si, ok := sectionIdx[section]
		if !ok {
			si = len(res.Sections)
			sectionIdx[section] = si
			res.Sections = append(res.Sections, SectionSummary{Section: section})
		}

		marksAvailable := q.Marks
		if marksAvailable <= 0 || math.IsNaN(marksAvailable) {
			marksAvailable = 1.0
		}
		res.MaxScore += marksAvailable
		res.Sections[si].Total++
		res.Sections[si].MaxMarks += marksAvailable

		qr := QuestionResult{
			QuestionID:     q.ID,
			Section:        section,
			Status:         StatusSkipped,
			CorrectOrder:   correctOrder(q.Options),
			MarksAvailable: marksAvailable,
		}

		ans, submitted := byQID[q.ID]
		var selected *int
		if submitted {
			selected = resolveSelection(q.Options, ans)
			qr.TimeSpentSeconds = ans.TimeSpentSeconds
		}
		if selected == nil {
			// unresolvable selections count as unattempted, not wrong
			res.Questions = append(res.Questions, qr)
			continue
		}

		qr.Attempted = true
		qr.SelectedOrder = selected
		res.AttemptedQuestions++
		res.Sections[si].Attempted++

		if qr.CorrectOrder != nil && *selected == *qr.CorrectOrder {
			qr.Correct = true
			qr.Status = StatusCorrect
			qr.MarksAwarded = marksAvailable
			res.CorrectAnswers++
			res.Score += marksAvailable
			res.Sections[si].Correct++
			res.Sections[si].MarksObtained += marksAvailable
		} else {
			qr.Status = StatusIncorrect
			neg := q.NegativeMarks
			if neg < 0 || math.IsNaN(neg) {
				neg = 0
			}
			qr.NegativeMarks = neg
			res.Score -= neg
			res.NegativeDeductions += neg
			res.Sections[si].MarksObtained -= neg
		}
		res.Questions = append(res.Questions, qr)
	}

	if res.AttemptedQuestions > 0 {
		res.Accuracy = round(float64(res.CorrectAnswers)/float64(res.AttemptedQuestions), 4)
	}
	if res.MaxScore > 0 {
		res.Percentage = math.Max(0, round(res.Score/res.MaxScore*100, 2))
	}
	for i := range res.Sections {
		s := &res.Sections[i]
		if s.Attempted > 0 {
			s.AccuracyPercent = round(float64(s.Correct)/float64(s.Attempted)*100, 2)
		}
	}
	return res
}

// resolveSelection maps a submitted answer to an option order, or nil when
// nothing usable was selected.
func resolveSelection(options []Option, ans Answer) *int {
	if ans.SelectedOrder != nil {
		return ans.SelectedOrder
	}
	if len(ans.SelectedOrders) > 0 {
		// first wins; see the Answer doc comment
		v := ans.SelectedOrders[0]
		return &v
	}
	if ans.SelectedText != "" {
		want := strings.TrimSpace(ans.SelectedText)
		for _, o := range options {
			if strings.TrimSpace(o.Text) == want {
				v := o.Order
				return &v
			}
		}
	}
	return nil
}

func correctOrder(options []Option) *int {
	for _, o := range options {
		if o.IsCorrect {
			v := o.Order
			return &v
		}
	}
	return nil
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
