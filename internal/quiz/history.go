package quiz

import (
	"context"
	"errors"
	"time"
)

type QuestionRef struct {
	ID    string  `json:"id"`
	Text  string  `json:"question_text"`
	Media []Media `json:"question_media,omitempty"`
}

type SessionRef struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Status    Status    `json:"status"`
}

// HistoryEntry is a ledger entry with just enough of its question and session to list it.
type HistoryEntry struct {
	StudentQuestion
	Question *QuestionRef `json:"question,omitempty"`
	Session  *SessionRef  `json:"test_session,omitempty"`
}

type HistoryFilter struct {
	Category  string
	Subjects  []string
	Topics    []string
	IsCorrect *bool
	Flagged   *bool
	SessionID string
	Page      PageRequest
}

// QuestionHistory lists a student's ledger entries, most recently updated first.
func (s *Service) QuestionHistory(ctx context.Context, studentID string, f HistoryFilter) (Page[HistoryEntry], error) {
	if studentID == "" {
		return Page[HistoryEntry]{}, Invalidf("student id required")
	}
	q := LedgerQuery{
		StudentID: studentID,
		SessionID: f.SessionID,
		Subjects:  compact(f.Subjects),
		Topics:    compact(f.Topics),
		IsCorrect: f.IsCorrect,
		Flagged:   f.Flagged,
		Page:      f.Page.Normalize(),
	}
	if f.Category != "" {
		c, err := ParseCategory(f.Category)
		if err != nil {
			return Page[HistoryEntry]{}, err
		}
		q.Category = c
	}
	return s.historyPage(ctx, q)
}

type SessionQuestionFilter string

const (
	FilterNone      SessionQuestionFilter = ""
	FilterCorrect   SessionQuestionFilter = "correct"
	FilterIncorrect SessionQuestionFilter = "incorrect"
	FilterFlagged   SessionQuestionFilter = "flagged"
)

// SessionQuestions lists the entries of one owned session, optionally narrowed to one bucket.
func (s *Service) SessionQuestions(ctx context.Context, studentID, sessionID string, filter SessionQuestionFilter, page PageRequest) (Page[HistoryEntry], error) {
	q := LedgerQuery{StudentID: studentID, SessionID: sessionID, Page: page.Normalize()}
	yes, no := true, false
	switch filter {
	case FilterNone:
	case FilterCorrect:
		q.IsCorrect = &yes
	case FilterIncorrect:
		q.IsCorrect, q.Flagged = &no, &no
	case FilterFlagged:
		q.Flagged = &yes
	default:
		return Page[HistoryEntry]{}, Invalidf("unknown filter %q", filter)
	}
	if _, err := s.ownedSession(ctx, studentID, sessionID); err != nil {
		return Page[HistoryEntry]{}, err
	}
	return s.historyPage(ctx, q)
}

func (s *Service) historyPage(ctx context.Context, q LedgerQuery) (Page[HistoryEntry], error) {
	entries, total, err := s.store.QueryEntries(ctx, q)
	if err != nil {
		return Page[HistoryEntry]{}, Internal("query history", err)
	}

	var qids []string
	sessions := map[string]*SessionRef{}
	for _, e := range entries {
		qids = append(qids, e.QuestionID)
		sessions[e.SessionID] = nil
	}
	questions := map[string]*QuestionRef{}
	if len(qids) > 0 {
		found, err := s.store.FindMany(ctx, qids)
		if err != nil {
			return Page[HistoryEntry]{}, Internal("resolve questions", err)
		}
		for _, qq := range found {
			questions[qq.ID] = &QuestionRef{ID: qq.ID, Text: qq.Text, Media: s.resolveMedia(qq.Media)}
		}
	}
	for id := range sessions {
		ts, err := s.store.GetSession(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return Page[HistoryEntry]{}, Internal("resolve session", err)
		}
		sessions[id] = &SessionRef{ID: ts.ID, StartedAt: ts.StartedAt, Status: ts.Status}
	}

	items := make([]HistoryEntry, 0, len(entries))
	for _, e := range entries {
		e.Options = s.resolveOptions(e.Options)
		e.ExplanationMedia = s.resolveMedia(e.ExplanationMedia)
		items = append(items, HistoryEntry{
			StudentQuestion: e,
			Question:        questions[e.QuestionID],
			Session:         sessions[e.SessionID],
		})
	}
	return newPage(items, total, q.Page), nil
}
