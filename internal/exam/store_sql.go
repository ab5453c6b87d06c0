package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) PutCourse(ctx context.Context, c Course) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO courses
		(id, title, code, duration_minutes, mock_test_timer_seconds, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		c.ID, c.Title, c.Code, c.DurationMinutes, c.MockTestTimerSeconds, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("insert course: %w", err)
	}
	return nil
}

func (s *SQLStore) GetCourse(ctx context.Context, id string) (Course, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, title, code, duration_minutes, mock_test_timer_seconds
		FROM courses WHERE id=$1`, id)
	var c Course
	err := row.Scan(&c.ID, &c.Title, &c.Code, &c.DurationMinutes, &c.MockTestTimerSeconds)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Course{}, ErrCourseNotFound
		}
		return Course{}, fmt.Errorf("get course: %w", err)
	}
	return c, nil
}

func (s *SQLStore) PutQuestion(ctx context.Context, q Question) error {
	opts, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO questions
		(id, course_id, question_text, section, subject, topic, marks, negative_marks, options_json, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		q.ID, q.CourseID, q.Text, q.Section, q.Subject, q.Topic,
		q.Marks, q.NegativeMarks, string(opts), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

// QuestionsByIDs bulk-fetches questions in a single query. Unknown ids are
// silently absent from the result.
func (s *SQLStore) QuestionsByIDs(ctx context.Context, ids []string) ([]Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, course_id, question_text, section, subject, topic,
		marks, negative_marks, options_json
		FROM questions WHERE id IN (`+strings.Join(placeholders, ",")+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch questions: %w", err)
	}
	defer rows.Close()

	var out []Question
	for rows.Next() {
		var q Question
		var optsJSON string
		if err := rows.Scan(&q.ID, &q.CourseID, &q.Text, &q.Section, &q.Subject, &q.Topic,
			&q.Marks, &q.NegativeMarks, &optsJSON); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal([]byte(optsJSON), &q.Options); err != nil {
			return nil, fmt.Errorf("decode options for %s: %w", q.ID, err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

const attemptCols = `id, user_id, course_id, test_session_id, start_time, end_time,
	question_attempts_json, section_summaries_json,
	total_questions, attempted_questions, correct_answers,
	score, max_score, percentage, accuracy, time_spent_seconds, is_completed, created_at`

func (s *SQLStore) InsertAttempt(ctx context.Context, a TestAttempt) error {
	qa, err := json.Marshal(a.QuestionAttempts)
	if err != nil {
		return fmt.Errorf("marshal question attempts: %w", err)
	}
	ss, err := json.Marshal(a.SectionSummaries)
	if err != nil {
		return fmt.Errorf("marshal section summaries: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO test_attempts (`+attemptCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		a.ID, a.UserID, a.CourseID, nullStr(a.TestSessionID),
		a.StartTime.Unix(), nullUnixTime(a.EndTime), string(qa), string(ss),
		a.TotalQuestions, a.AttemptedQuestions, a.CorrectAnswers,
		a.Score, a.MaxScore, a.Percentage, a.Accuracy, a.TimeSpentSeconds, a.IsCompleted, a.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (TestAttempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+attemptCols+` FROM test_attempts WHERE id=$1`, id)
	a, err := scanAttempt(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TestAttempt{}, ErrAttemptNotFound
		}
		return TestAttempt{}, err
	}
	return a, nil
}

func (s *SQLStore) AttemptsByUser(ctx context.Context, userID, courseID string) ([]TestAttempt, error) {
	q := `SELECT ` + attemptCols + ` FROM test_attempts WHERE user_id=$1`
	args := []any{userID}
	if courseID != "" {
		q += ` AND course_id=$2`
		args = append(args, courseID)
	}
	q += ` ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []TestAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (TestAttempt, error) {
	var a TestAttempt
	var sessionID sql.NullString
	var start, created int64
	var end sql.NullInt64
	var qaJSON, ssJSON string
	err := row.Scan(&a.ID, &a.UserID, &a.CourseID, &sessionID, &start, &end,
		&qaJSON, &ssJSON,
		&a.TotalQuestions, &a.AttemptedQuestions, &a.CorrectAnswers,
		&a.Score, &a.MaxScore, &a.Percentage, &a.Accuracy, &a.TimeSpentSeconds, &a.IsCompleted, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TestAttempt{}, err
		}
		return TestAttempt{}, fmt.Errorf("scan attempt: %w", err)
	}
	a.TestSessionID = sessionID.String
	a.StartTime = time.Unix(start, 0).UTC()
	if end.Valid {
		a.EndTime = time.Unix(end.Int64, 0).UTC()
	}
	a.CreatedAt = time.Unix(created, 0).UTC()
	if err := json.Unmarshal([]byte(qaJSON), &a.QuestionAttempts); err != nil {
		return TestAttempt{}, fmt.Errorf("decode question attempts: %w", err)
	}
	if err := json.Unmarshal([]byte(ssJSON), &a.SectionSummaries); err != nil {
		return TestAttempt{}, fmt.Errorf("decode section summaries: %w", err)
	}
	return a, nil
}

const sessionCols = `id, user_id, course_id, attempt_id, status, start_time, expected_end_time,
	actual_end_time, current_question_index, flagged_json, visited_json, time_per_question_json,
	pause_time, total_pause_seconds, events_json, created_at, updated_at`

func (s *SQLStore) InsertSession(ctx context.Context, ts TestSession) error {
	args, err := sessionArgs(ts)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO test_sessions (`+sessionCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`, args...)
	if err != nil {
		return fmt.Errorf("insert test session: %w", err)
	}
	return nil
}

func (s *SQLStore) UpdateSession(ctx context.Context, ts TestSession) error {
	args, err := sessionArgs(ts)
	if err != nil {
		return err
	}
	// shift id to the end for the WHERE clause
	args = append(args[1:], args[0])
	res, err := s.db.ExecContext(ctx, `UPDATE test_sessions SET
		user_id=$1, course_id=$2, attempt_id=$3, status=$4, start_time=$5, expected_end_time=$6,
		actual_end_time=$7, current_question_index=$8, flagged_json=$9, visited_json=$10,
		time_per_question_json=$11, pause_time=$12, total_pause_seconds=$13, events_json=$14,
		created_at=$15, updated_at=$16
		WHERE id=$17`, args...)
	if err != nil {
		return fmt.Errorf("update test session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *SQLStore) GetSession(ctx context.Context, id string) (TestSession, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionCols+` FROM test_sessions WHERE id=$1`, id)
	ts, err := scanTestSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TestSession{}, ErrSessionNotFound
		}
		return TestSession{}, err
	}
	return ts, nil
}

func (s *SQLStore) ActiveSession(ctx context.Context, userID, courseID string) (*TestSession, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionCols+` FROM test_sessions
		WHERE user_id=$1 AND course_id=$2 AND status != $3
		ORDER BY created_at DESC LIMIT 1`, userID, courseID, string(SessionCompleted))
	ts, err := scanTestSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ts, nil
}

func sessionArgs(ts TestSession) ([]any, error) {
	flagged, err := json.Marshal(emptyIfNil(ts.FlaggedQuestions))
	if err != nil {
		return nil, fmt.Errorf("marshal flagged: %w", err)
	}
	visited, err := json.Marshal(emptyIfNil(ts.VisitedQuestions))
	if err != nil {
		return nil, fmt.Errorf("marshal visited: %w", err)
	}
	tpq := ts.TimePerQuestion
	if tpq == nil {
		tpq = map[int]int{}
	}
	tpqJSON, err := json.Marshal(tpq)
	if err != nil {
		return nil, fmt.Errorf("marshal time per question: %w", err)
	}
	events, err := json.Marshal(ts.Events)
	if err != nil {
		return nil, fmt.Errorf("marshal events: %w", err)
	}
	if ts.Events == nil {
		events = []byte("[]")
	}
	return []any{
		ts.ID, ts.UserID, ts.CourseID, ts.AttemptID, string(ts.Status),
		ts.StartTime.Unix(), ts.ExpectedEndTime.Unix(), nullUnixPtr(ts.ActualEndTime),
		ts.CurrentQuestionIndex, string(flagged), string(visited), string(tpqJSON),
		nullUnixPtr(ts.PauseTime), ts.TotalPauseSeconds, string(events),
		ts.CreatedAt.Unix(), ts.UpdatedAt.Unix(),
	}, nil
}

func scanTestSession(row rowScanner) (TestSession, error) {
	var ts TestSession
	var status string
	var start, expectedEnd, created, updated int64
	var actualEnd, pauseAt sql.NullInt64
	var flagged, visited, tpqJSON, events string
	err := row.Scan(&ts.ID, &ts.UserID, &ts.CourseID, &ts.AttemptID, &status,
		&start, &expectedEnd, &actualEnd, &ts.CurrentQuestionIndex,
		&flagged, &visited, &tpqJSON, &pauseAt, &ts.TotalPauseSeconds, &events,
		&created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TestSession{}, err
		}
		return TestSession{}, fmt.Errorf("scan test session: %w", err)
	}
	ts.Status = SessionStatus(status)
	ts.StartTime = time.Unix(start, 0).UTC()
	ts.ExpectedEndTime = time.Unix(expectedEnd, 0).UTC()
	if actualEnd.Valid {
		t := time.Unix(actualEnd.Int64, 0).UTC()
		ts.ActualEndTime = &t
	}
	if pauseAt.Valid {
		t := time.Unix(pauseAt.Int64, 0).UTC()
		ts.PauseTime = &t
	}
	ts.CreatedAt = time.Unix(created, 0).UTC()
	ts.UpdatedAt = time.Unix(updated, 0).UTC()
	if err := json.Unmarshal([]byte(flagged), &ts.FlaggedQuestions); err != nil {
		return TestSession{}, fmt.Errorf("decode flagged: %w", err)
	}
	if err := json.Unmarshal([]byte(visited), &ts.VisitedQuestions); err != nil {
		return TestSession{}, fmt.Errorf("decode visited: %w", err)
	}
	if err := json.Unmarshal([]byte(tpqJSON), &ts.TimePerQuestion); err != nil {
		return TestSession{}, fmt.Errorf("decode time per question: %w", err)
	}
	if err := json.Unmarshal([]byte(events), &ts.Events); err != nil {
		return TestSession{}, fmt.Errorf("decode events: %w", err)
	}
	return ts, nil
}

func emptyIfNil(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullUnixPtr(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

// nullUnixTime maps the zero time to NULL; attempt shells created at session
// start have no end time yet.
func nullUnixTime(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}
