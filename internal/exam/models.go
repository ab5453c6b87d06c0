package exam

import (
	"strconv"
	"time"

	"github.com/prepdesk/prepdesk/internal/scoring"
)

// Course is the unit a mock test hangs off. MockTestTimerSeconds is the hard
// cap applied to any reported time-spent value; zero means uncapped.
type Course struct {
	ID                   string `json:"id"`
	Title                string `json:"title"`
	Code                 string `json:"code"`
	DurationMinutes      int    `json:"duration_minutes"`
	MockTestTimerSeconds int    `json:"mock_test_timer_seconds"`
}

type Option struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
	Order     int    `json:"order"`
}

type Question struct {
	ID            string   `json:"id"`
	CourseID      string   `json:"course_id"`
	Text          string   `json:"text"`
	Section       string   `json:"section,omitempty"`
	Subject       string   `json:"subject,omitempty"`
	Topic         string   `json:"topic,omitempty"`
	Marks         float64  `json:"marks"`
	NegativeMarks float64  `json:"negative_marks"`
	Options       []Option `json:"options"`
}

// AnswerSubmission is one client-submitted answer. Selection fields are
// resolved in priority order by the scoring engine.
type AnswerSubmission struct {
	QuestionID         string `json:"question_id"`
	SelectedOrder      *int   `json:"selected_option_order,omitempty"`
	SelectedOrders     []int  `json:"selected_options,omitempty"`
	SelectedOptionText string `json:"selected_option_text,omitempty"`
	TimeSpentSeconds   int    `json:"time_spent_seconds,omitempty"`
}

// QuestionAttempt is the persisted per-question record inside an attempt.
// SelectedOption stores the chosen option order as a string, empty when the
// question was skipped.
type QuestionAttempt struct {
	QuestionID       string         `json:"question_id"`
	Section          string         `json:"section"`
	SelectedOption   string         `json:"selected_option"`
	Status           scoring.Status `json:"status"`
	IsCorrect        bool           `json:"is_correct"`
	MarksAwarded     float64        `json:"marks_awarded"`
	MarksAvailable   float64        `json:"marks_available"`
	NegativeMarks    float64        `json:"negative_marks"`
	TimeSpentSeconds int            `json:"time_spent_seconds,omitempty"`
}

// TestAttempt is an insert-only record of one mock-test run. Submission always
// creates a fresh row; nothing ever updates one in place.
type TestAttempt struct {
	ID                 string                   `json:"id"`
	UserID             string                   `json:"user_id"`
	CourseID           string                   `json:"course_id"`
	TestSessionID      string                   `json:"test_session_id,omitempty"`
	StartTime          time.Time                `json:"start_time"`
	EndTime            time.Time                `json:"end_time"`
	TimeSpentSeconds   int                      `json:"time_spent_seconds"`
	TotalQuestions     int                      `json:"total_questions"`
	AttemptedQuestions int                      `json:"attempted_questions"`
	CorrectAnswers     int                      `json:"correct_answers"`
	Score              float64                  `json:"score"`
	MaxScore           float64                  `json:"max_score"`
	Percentage         float64                  `json:"percentage"`
	Accuracy           float64                  `json:"accuracy"`
	QuestionAttempts   []QuestionAttempt        `json:"question_attempts"`
	SectionSummaries   []scoring.SectionSummary `json:"section_summaries"`
	IsCompleted        bool                     `json:"is_completed"`
	CreatedAt          time.Time                `json:"created_at"`
}

func (q Question) scoringView() scoring.Question {
	opts := make([]scoring.Option, len(q.Options))
	for i, o := range q.Options {
		opts[i] = scoring.Option{Text: o.Text, IsCorrect: o.IsCorrect, Order: o.Order}
	}
	return scoring.Question{
		ID:            q.ID,
		Section:       q.Section,
		Marks:         q.Marks,
		NegativeMarks: q.NegativeMarks,
		Options:       opts,
	}
}

func (a AnswerSubmission) scoringView() scoring.Answer {
	return scoring.Answer{
		QuestionID:       a.QuestionID,
		SelectedOrder:    a.SelectedOrder,
		SelectedOrders:   a.SelectedOrders,
		SelectedText:     a.SelectedOptionText,
		TimeSpentSeconds: a.TimeSpentSeconds,
	}
}

func questionAttempt(qr scoring.QuestionResult) QuestionAttempt {
	selected := ""
	if qr.SelectedOrder != nil {
		selected = strconv.Itoa(*qr.SelectedOrder)
	}
	return QuestionAttempt{
		QuestionID:       qr.QuestionID,
		Section:          qr.Section,
		SelectedOption:   selected,
		Status:           qr.Status,
		IsCorrect:        qr.Correct,
		MarksAwarded:     qr.MarksAwarded,
		MarksAvailable:   qr.MarksAvailable,
		NegativeMarks:    qr.NegativeMarks,
		TimeSpentSeconds: qr.TimeSpentSeconds,
	}
}
