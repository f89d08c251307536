package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SQLStore implements Store on database/sql. The queries stick to the subset
// shared by SQLite and Postgres ($n placeholders, ON CONFLICT, RETURNING).
type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

// args collects positional parameters for dynamically built queries.
type args []any

func (a *args) add(v any) string {
	*a = append(*a, v)
	return fmt.Sprintf("$%d", len(*a))
}

func (a *args) in(vals []string) string {
	ph := make([]string, len(vals))
	for i, v := range vals {
		ph[i] = a.add(v)
	}
	return "(" + strings.Join(ph, ",") + ")"
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// ---- questions ----

const questionCols = `id,question_text,media_json,options_json,correct_answer,explanation,
explanation_media_json,category,subjects_json,difficulty,tags_json,source_url,created_by,approved`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(r rowScanner) (Question, error) {
	var q Question
	var mediaJSON, optionsJSON, explMediaJSON, subjectsJSON, tagsJSON, category, difficulty string
	if err := r.Scan(&q.ID, &q.Text, &mediaJSON, &optionsJSON, &q.CorrectAnswer, &q.Explanation,
		&explMediaJSON, &category, &subjectsJSON, &difficulty, &tagsJSON, &q.SourceURL, &q.CreatedBy, &q.Approved); err != nil {
		return Question{}, err
	}
	q.Category = Category(category)
	q.Difficulty = Difficulty(difficulty)
	for _, f := range []struct {
		raw string
		dst any
	}{
		{mediaJSON, &q.Media},
		{optionsJSON, &q.Options},
		{explMediaJSON, &q.ExplanationMedia},
		{subjectsJSON, &q.Subjects},
		{tagsJSON, &q.Tags},
	} {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return Question{}, fmt.Errorf("decode question %s: %w", q.ID, err)
		}
	}
	return q, nil
}

func (s *SQLStore) FindByID(ctx context.Context, id string) (Question, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+questionCols+` FROM questions WHERE id=$1`, id)
	q, err := scanQuestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, ErrNotFound
	}
	return q, err
}

func (s *SQLStore) FindMany(ctx context.Context, ids []string) ([]Question, error) {
	return s.findMany(ctx, ids, false)
}

func (s *SQLStore) FindApproved(ctx context.Context, ids []string) ([]Question, error) {
	return s.findMany(ctx, ids, true)
}

// findMany returns the questions in the order of ids, skipping unknown ones.
func (s *SQLStore) findMany(ctx context.Context, ids []string, approvedOnly bool) ([]Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var a args
	q := `SELECT ` + questionCols + ` FROM questions WHERE id IN ` + a.in(ids)
	if approvedOnly {
		q += ` AND approved = TRUE`
	}
	rows, err := s.db.QueryContext(ctx, q, a...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	byID := map[string]Question{}
	for rows.Next() {
		qq, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		byID[qq.ID] = qq
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]Question, 0, len(byID))
	seen := map[string]bool{}
	for _, id := range ids {
		if qq, ok := byID[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, qq)
		}
	}
	return out, nil
}

func (s *SQLStore) PutQuestion(ctx context.Context, q Question) error {
	if q.Difficulty == "" {
		q.Difficulty = DifficultyMedium
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO questions (`+questionCols+`,has_media,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (id) DO UPDATE SET
		  question_text=EXCLUDED.question_text, media_json=EXCLUDED.media_json,
		  options_json=EXCLUDED.options_json, correct_answer=EXCLUDED.correct_answer,
		  explanation=EXCLUDED.explanation, explanation_media_json=EXCLUDED.explanation_media_json,
		  category=EXCLUDED.category, subjects_json=EXCLUDED.subjects_json,
		  difficulty=EXCLUDED.difficulty, tags_json=EXCLUDED.tags_json,
		  source_url=EXCLUDED.source_url, created_by=EXCLUDED.created_by,
		  approved=EXCLUDED.approved, has_media=EXCLUDED.has_media, updated_at=EXCLUDED.updated_at`,
		q.ID, q.Text, mustJSON(orEmpty(q.Media)), mustJSON(q.Options), q.CorrectAnswer, q.Explanation,
		mustJSON(orEmpty(q.ExplanationMedia)), string(q.Category), mustJSON(orEmpty(q.Subjects)),
		string(q.Difficulty), mustJSON(orEmpty(q.Tags)), q.SourceURL, q.CreatedBy, q.Approved,
		q.HasMedia(), toMillis(time.Now()))
	if err != nil {
		return fmt.Errorf("upsert question: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM question_taxonomy WHERE question_id=$1`, q.ID); err != nil {
		return fmt.Errorf("clear taxonomy: %w", err)
	}
	for kind, values := range map[string][]string{"subject": q.SubjectNames(), "topic": q.TopicNames(), "tag": q.Tags} {
		for _, v := range values {
			if _, err := tx.ExecContext(ctx, `INSERT INTO question_taxonomy (question_id,kind,value)
				VALUES ($1,$2,$3) ON CONFLICT DO NOTHING`, q.ID, kind, v); err != nil {
				return fmt.Errorf("insert taxonomy: %w", err)
			}
		}
	}
	return tx.Commit()
}

func (s *SQLStore) ListQuestions(ctx context.Context, f QuestionFilter, page PageRequest) ([]Question, int, error) {
	var a args
	where := ` WHERE approved = TRUE`
	if f.Category != "" {
		where += ` AND category=` + a.add(string(f.Category))
	}
	if f.Difficulty != "" {
		where += ` AND difficulty=` + a.add(string(f.Difficulty))
	}
	if f.CreatedBy != "" {
		where += ` AND created_by=` + a.add(f.CreatedBy)
	}
	if f.HasMedia {
		where += ` AND has_media = TRUE`
	}
	for kind, values := range map[string][]string{"subject": f.Subjects, "topic": f.Topics, "tag": f.Tags} {
		if len(values) == 0 {
			continue
		}
		where += ` AND EXISTS (SELECT 1 FROM question_taxonomy t WHERE t.question_id=questions.id
			AND t.kind=` + a.add(kind) + ` AND t.value IN ` + a.in(values) + `)`
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`+where, a...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count questions: %w", err)
	}
	p := page.Normalize()
	rows, err := s.db.QueryContext(ctx, `SELECT `+questionCols+` FROM questions`+where+
		` ORDER BY id LIMIT `+a.add(p.PageSize)+` OFFSET `+a.add(p.Offset()), a...)
	if err != nil {
		return nil, 0, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()
	var out []Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, q)
	}
	return out, total, rows.Err()
}

func (s *SQLStore) QuestionTags(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT t.value FROM question_taxonomy t
		JOIN questions q ON q.id=t.question_id
		WHERE t.kind='tag' AND q.approved = TRUE ORDER BY t.value`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func orEmpty[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}

// ---- sessions ----

const sessionCols = `id,student_id,total_questions,total_options,correct_answers,incorrect_answers,
flagged_answers,filters_json,status,started_at,completed_at`

func scanSession(r rowScanner) (TestSession, error) {
	var ts TestSession
	var filtersJSON, status string
	var started int64
	var completed sql.NullInt64
	if err := r.Scan(&ts.ID, &ts.StudentID, &ts.TotalQuestions, &ts.TotalOptions, &ts.Correct,
		&ts.Incorrect, &ts.Flagged, &filtersJSON, &status, &started, &completed); err != nil {
		return TestSession{}, err
	}
	ts.Status = Status(status)
	ts.StartedAt = fromMillis(started)
	if completed.Valid {
		t := fromMillis(completed.Int64)
		ts.CompletedAt = &t
	}
	if err := json.Unmarshal([]byte(filtersJSON), &ts.Filters); err != nil {
		return TestSession{}, fmt.Errorf("decode filters of session %s: %w", ts.ID, err)
	}
	return ts, nil
}

func (s *SQLStore) CreateSession(ctx context.Context, ts TestSession) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var completed any
	if ts.CompletedAt != nil {
		completed = toMillis(*ts.CompletedAt)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO test_sessions (`+sessionCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		ts.ID, ts.StudentID, ts.TotalQuestions, ts.TotalOptions, ts.Correct, ts.Incorrect, ts.Flagged,
		mustJSON(ts.Filters), string(ts.Status), toMillis(ts.StartedAt), completed)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	for i, qid := range ts.Questions {
		if _, err := tx.ExecContext(ctx, `INSERT INTO session_questions (session_id,position,question_id)
			VALUES ($1,$2,$3)`, ts.ID, i, qid); err != nil {
			return fmt.Errorf("insert session question: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) GetSession(ctx context.Context, id string) (TestSession, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionCols+` FROM test_sessions WHERE id=$1`, id)
	ts, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return TestSession{}, ErrNotFound
	}
	if err != nil {
		return TestSession{}, err
	}
	list := []TestSession{ts}
	if err := s.attachQuestions(ctx, list); err != nil {
		return TestSession{}, err
	}
	return list[0], nil
}

func (s *SQLStore) attachQuestions(ctx context.Context, list []TestSession) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, len(list))
	idx := map[string]int{}
	for i, ts := range list {
		ids[i] = ts.ID
		idx[ts.ID] = i
	}
	var a args
	rows, err := s.db.QueryContext(ctx, `SELECT session_id, question_id FROM session_questions
		WHERE session_id IN `+a.in(ids)+` ORDER BY session_id, position`, a...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var sid, qid string
		if err := rows.Scan(&sid, &qid); err != nil {
			return err
		}
		i := idx[sid]
		list[i].Questions = append(list[i].Questions, qid)
	}
	return rows.Err()
}

func (s *SQLStore) ListSessions(ctx context.Context, opts SessionListOpts) ([]TestSession, int, error) {
	var a args
	where := ` WHERE s.student_id=` + a.add(opts.StudentID)
	if opts.Status != "" {
		where += ` AND s.status=` + a.add(string(opts.Status))
	}
	if opts.hasTaxonomy() {
		sub := `SELECT 1 FROM session_questions sq JOIN questions q ON q.id=sq.question_id
			WHERE sq.session_id=s.id AND q.approved = TRUE`
		if opts.Category != "" {
			sub += ` AND q.category=` + a.add(string(opts.Category))
		}
		if len(opts.Subjects) > 0 {
			sub += ` AND EXISTS (SELECT 1 FROM question_taxonomy t WHERE t.question_id=q.id
				AND t.kind='subject' AND t.value IN ` + a.in(opts.Subjects) + `)`
		}
		if len(opts.Topics) > 0 {
			sub += ` AND EXISTS (SELECT 1 FROM question_taxonomy t WHERE t.question_id=q.id
				AND t.kind='topic' AND t.value IN ` + a.in(opts.Topics) + `)`
		}
		where += ` AND EXISTS (` + sub + `)`
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM test_sessions s`+where, a...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	p := opts.Page.Normalize()
	q := `SELECT ` + prefixCols("s", sessionCols) + ` FROM test_sessions s` + where +
		` ORDER BY s.started_at DESC, s.id DESC LIMIT ` + a.add(p.PageSize) + ` OFFSET ` + a.add(p.Offset())
	rows, err := s.db.QueryContext(ctx, q, a...)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	var out []TestSession
	for rows.Next() {
		ts, err := scanSession(rows)
		if err != nil {
			rows.Close()
			return nil, 0, err
		}
		out = append(out, ts)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := s.attachQuestions(ctx, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func prefixCols(alias, cols string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ",")
}

func (s *SQLStore) UpdateCounters(ctx context.Context, id string, c Counters) error {
	res, err := s.db.ExecContext(ctx, `UPDATE test_sessions
		SET correct_answers=$1, incorrect_answers=$2, flagged_answers=$3
		WHERE id=$4 AND status='proceeding'`, c.Correct, c.Incorrect, c.Flagged, id)
	if err != nil {
		return fmt.Errorf("update counters: %w", err)
	}
	return s.checkAffected(ctx, res, id)
}

func (s *SQLStore) CloseSession(ctx context.Context, id string, status Status, at time.Time) (TestSession, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE test_sessions SET status=$1, completed_at=$2
		WHERE id=$3 AND status='proceeding'`, string(status), toMillis(at), id)
	if err != nil {
		return TestSession{}, fmt.Errorf("close session: %w", err)
	}
	if err := s.checkAffected(ctx, res, id); err != nil {
		return TestSession{}, err
	}
	return s.GetSession(ctx, id)
}

// checkAffected turns a conditional update that matched nothing into ErrNotFound or ErrNotModified.
func (s *SQLStore) checkAffected(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var one int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM test_sessions WHERE id=$1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrNotModified
}

// ---- ledger ----

const entryCols = `sq.id,sq.student_id,sq.question_id,sq.session_id,sq.options_json,sq.correct_answer,
sq.explanation,sq.explanation_media_json,sq.category,sq.selected_answer,sq.is_correct,sq.answered_at,sq.last_updated_at`

func scanEntry(r rowScanner) (StudentQuestion, error) {
	var e StudentQuestion
	var optionsJSON, explMediaJSON, category string
	var answered, updated int64
	if err := r.Scan(&e.ID, &e.StudentID, &e.QuestionID, &e.SessionID, &optionsJSON, &e.CorrectAnswer,
		&e.Explanation, &explMediaJSON, &category, &e.SelectedAnswer, &e.IsCorrect, &answered, &updated); err != nil {
		return StudentQuestion{}, err
	}
	e.Category = Category(category)
	e.AnsweredAt = fromMillis(answered)
	e.LastUpdatedAt = fromMillis(updated)
	if err := json.Unmarshal([]byte(optionsJSON), &e.Options); err != nil {
		return StudentQuestion{}, fmt.Errorf("decode options of entry %s: %w", e.ID, err)
	}
	if err := json.Unmarshal([]byte(explMediaJSON), &e.ExplanationMedia); err != nil {
		return StudentQuestion{}, fmt.Errorf("decode media of entry %s: %w", e.ID, err)
	}
	return e, nil
}

func (s *SQLStore) FindEntry(ctx context.Context, studentID, questionID, sessionID string) (StudentQuestion, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryCols+` FROM student_questions sq
		WHERE sq.student_id=$1 AND sq.question_id=$2 AND sq.session_id=$3`, studentID, questionID, sessionID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return StudentQuestion{}, ErrNotFound
	}
	if err != nil {
		return StudentQuestion{}, err
	}
	list := []StudentQuestion{e}
	if err := s.attachTags(ctx, list); err != nil {
		return StudentQuestion{}, err
	}
	return list[0], nil
}

func (s *SQLStore) UpsertEntry(ctx context.Context, e StudentQuestion) (StudentQuestion, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return StudentQuestion{}, err
	}
	defer tx.Rollback()

	// The unique triple makes concurrent first submissions collapse into one row;
	// the loser takes the DO UPDATE branch and is graded against the stored snapshot.
	var storedID string
	err = tx.QueryRowContext(ctx, `INSERT INTO student_questions
		(id,student_id,question_id,session_id,options_json,correct_answer,explanation,
		 explanation_media_json,category,selected_answer,is_correct,answered_at,last_updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (student_id,question_id,session_id) DO UPDATE SET
		  selected_answer=EXCLUDED.selected_answer,
		  is_correct=CASE WHEN EXCLUDED.selected_answer = -1 THEN FALSE
		                  ELSE EXCLUDED.selected_answer = student_questions.correct_answer END,
		  last_updated_at=EXCLUDED.last_updated_at
		RETURNING id`,
		e.ID, e.StudentID, e.QuestionID, e.SessionID, mustJSON(e.Options), e.CorrectAnswer, e.Explanation,
		mustJSON(orEmpty(e.ExplanationMedia)), string(e.Category), e.SelectedAnswer, e.IsCorrect,
		toMillis(e.AnsweredAt), toMillis(e.LastUpdatedAt)).Scan(&storedID)
	if err != nil {
		return StudentQuestion{}, fmt.Errorf("upsert entry: %w", err)
	}

	if storedID == e.ID {
		// first submission: persist the taxonomy snapshot
		for kind, values := range map[string][]string{"subject": e.Subjects, "topic": e.Topics} {
			for i, v := range values {
				if _, err := tx.ExecContext(ctx, `INSERT INTO student_question_tags (entry_id,kind,value,position)
					VALUES ($1,$2,$3,$4) ON CONFLICT DO NOTHING`, e.ID, kind, v, i); err != nil {
					return StudentQuestion{}, fmt.Errorf("insert entry tag: %w", err)
				}
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return StudentQuestion{}, err
	}
	return s.FindEntry(ctx, e.StudentID, e.QuestionID, e.SessionID)
}

func (s *SQLStore) SessionEntries(ctx context.Context, sessionID string) ([]StudentQuestion, error) {
	list, _, err := s.QueryEntries(ctx, LedgerQuery{SessionID: sessionID})
	return list, err
}

func (s *SQLStore) QueryEntries(ctx context.Context, lq LedgerQuery) ([]StudentQuestion, int, error) {
	var a args
	var conds []string
	if lq.StudentID != "" {
		conds = append(conds, `sq.student_id=`+a.add(lq.StudentID))
	}
	if lq.SessionID != "" {
		conds = append(conds, `sq.session_id=`+a.add(lq.SessionID))
	}
	if lq.Category != "" {
		conds = append(conds, `sq.category=`+a.add(string(lq.Category)))
	}
	if len(lq.Subjects) > 0 {
		conds = append(conds, `EXISTS (SELECT 1 FROM student_question_tags t WHERE t.entry_id=sq.id
			AND t.kind='subject' AND t.value IN `+a.in(lq.Subjects)+`)`)
	}
	if len(lq.Topics) > 0 {
		conds = append(conds, `EXISTS (SELECT 1 FROM student_question_tags t WHERE t.entry_id=sq.id
			AND t.kind='topic' AND t.value IN `+a.in(lq.Topics)+`)`)
	}
	if lq.IsCorrect != nil {
		conds = append(conds, `sq.is_correct=`+a.add(*lq.IsCorrect))
	}
	if lq.Flagged != nil {
		if *lq.Flagged {
			conds = append(conds, `sq.selected_answer = -1`)
		} else {
			conds = append(conds, `sq.selected_answer <> -1`)
		}
	}
	where := ""
	if len(conds) > 0 {
		where = ` WHERE ` + strings.Join(conds, ` AND `)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM student_questions sq`+where, a...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count entries: %w", err)
	}

	q := `SELECT ` + entryCols + ` FROM student_questions sq` + where +
		` ORDER BY sq.last_updated_at DESC, sq.id DESC`
	if lq.Page.PageSize > 0 {
		p := lq.Page.Normalize()
		q += ` LIMIT ` + a.add(p.PageSize) + ` OFFSET ` + a.add(p.Offset())
	}
	rows, err := s.db.QueryContext(ctx, q, a...)
	if err != nil {
		return nil, 0, fmt.Errorf("query entries: %w", err)
	}
	var out []StudentQuestion
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, 0, err
		}
		out = append(out, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := s.attachTags(ctx, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *SQLStore) attachTags(ctx context.Context, list []StudentQuestion) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, len(list))
	idx := map[string]int{}
	for i, e := range list {
		ids[i] = e.ID
		idx[e.ID] = i
	}
	var a args
	rows, err := s.db.QueryContext(ctx, `SELECT entry_id, kind, value FROM student_question_tags
		WHERE entry_id IN `+a.in(ids)+` ORDER BY entry_id, kind, position`, a...)
	if err != nil {
		return fmt.Errorf("load entry tags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, kind, value string
		if err := rows.Scan(&id, &kind, &value); err != nil {
			return err
		}
		e := &list[idx[id]]
		switch kind {
		case "subject":
			e.Subjects = append(e.Subjects, value)
		case "topic":
			e.Topics = append(e.Topics, value)
		}
	}
	return rows.Err()
}
