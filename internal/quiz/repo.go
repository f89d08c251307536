package quiz

import (
	"context"
	"time"
)

// QuestionStore is the read side of the question bank, plus the write used by seeding.
type QuestionStore interface {
	FindByID(ctx context.Context, id string) (Question, error) // ErrNotFound
	FindMany(ctx context.Context, ids []string) ([]Question, error)
	FindApproved(ctx context.Context, ids []string) ([]Question, error)
	PutQuestion(ctx context.Context, q Question) error
	// ListQuestions returns approved questions matching f, ordered by id.
	ListQuestions(ctx context.Context, f QuestionFilter, page PageRequest) ([]Question, int, error)
	// QuestionTags lists the distinct tags of approved questions, sorted.
	QuestionTags(ctx context.Context) ([]string, error)
}

// QuestionFilter narrows the approved question bank. Zero-valued fields do not filter.
type QuestionFilter struct {
	Category   Category
	Subjects   []string // any of
	Topics     []string // any of
	Tags       []string // any of
	Difficulty Difficulty
	CreatedBy  string
	HasMedia   bool
}

func (f QuestionFilter) match(q Question) bool {
	if !q.Approved {
		return false
	}
	if f.Category != "" && q.Category != f.Category {
		return false
	}
	if len(f.Subjects) > 0 && !containsAny(q.SubjectNames(), f.Subjects) {
		return false
	}
	if len(f.Topics) > 0 && !containsAny(q.TopicNames(), f.Topics) {
		return false
	}
	if len(f.Tags) > 0 && !containsAny(q.Tags, f.Tags) {
		return false
	}
	if f.Difficulty != "" && q.Difficulty != f.Difficulty {
		return false
	}
	if f.CreatedBy != "" && q.CreatedBy != f.CreatedBy {
		return false
	}
	if f.HasMedia && !q.HasMedia() {
		return false
	}
	return true
}

type SessionListOpts struct {
	StudentID string
	Status    Status   // optional
	Category  Category // optional; matches member questions
	Subjects  []string // optional; any member question tagged with any of these
	Topics    []string // optional
	Page      PageRequest
}

type SessionStore interface {
	CreateSession(ctx context.Context, s TestSession) error
	GetSession(ctx context.Context, id string) (TestSession, error) // ErrNotFound
	ListSessions(ctx context.Context, opts SessionListOpts) ([]TestSession, int, error)
	// UpdateCounters writes the correct, incorrect and flagged counts while the
	// session is proceeding; otherwise ErrNotModified. total_options is fixed at creation.
	UpdateCounters(ctx context.Context, id string, c Counters) error
	// CloseSession moves a proceeding session to a terminal status; otherwise ErrNotModified.
	CloseSession(ctx context.Context, id string, status Status, at time.Time) (TestSession, error)
}

// LedgerQuery selects ledger entries. Zero-valued fields do not filter.
// A zero Page.PageSize returns every match.
type LedgerQuery struct {
	StudentID string
	SessionID string
	Category  Category
	Subjects  []string
	Topics    []string
	IsCorrect *bool
	Flagged   *bool
	Page      PageRequest
}

type LedgerStore interface {
	FindEntry(ctx context.Context, studentID, questionID, sessionID string) (StudentQuestion, error) // ErrNotFound
	// UpsertEntry inserts e, or, when the (student, question, session) triple already
	// exists, updates only selected answer, correctness and last update time, grading
	// against the stored snapshot. It returns the stored entry.
	UpsertEntry(ctx context.Context, e StudentQuestion) (StudentQuestion, error)
	SessionEntries(ctx context.Context, sessionID string) ([]StudentQuestion, error)
	QueryEntries(ctx context.Context, q LedgerQuery) ([]StudentQuestion, int, error)
}

type Store interface {
	QuestionStore
	SessionStore
	LedgerStore
}

// EventSink receives domain events after a write succeeds.
type EventSink interface {
	Publish(ctx context.Context, typ, key string, payload any) error
}

const (
	EventSessionOpened   = "SessionOpened"
	EventAnswerSubmitted = "AnswerSubmitted"
	EventSessionClosed   = "SessionClosed"
)

// matchEntry applies the filters of q to a single entry. Shared by the in-memory store.
func (q LedgerQuery) matchEntry(e StudentQuestion) bool {
	if q.StudentID != "" && e.StudentID != q.StudentID {
		return false
	}
	if q.SessionID != "" && e.SessionID != q.SessionID {
		return false
	}
	if q.Category != "" && e.Category != q.Category {
		return false
	}
	if len(q.Subjects) > 0 && !containsAny(e.Subjects, q.Subjects) {
		return false
	}
	if len(q.Topics) > 0 && !containsAny(e.Topics, q.Topics) {
		return false
	}
	if q.IsCorrect != nil && e.IsCorrect != *q.IsCorrect {
		return false
	}
	if q.Flagged != nil && e.Flagged() != *q.Flagged {
		return false
	}
	return true
}

// matchQuestion reports whether q satisfies the taxonomy part of opts.
func (opts SessionListOpts) matchQuestion(q Question) bool {
	if !q.Approved {
		return false
	}
	if opts.Category != "" && q.Category != opts.Category {
		return false
	}
	if len(opts.Subjects) > 0 && !containsAny(q.SubjectNames(), opts.Subjects) {
		return false
	}
	if len(opts.Topics) > 0 && !containsAny(q.TopicNames(), opts.Topics) {
		return false
	}
	return true
}

func (opts SessionListOpts) hasTaxonomy() bool {
	return opts.Category != "" || len(opts.Subjects) > 0 || len(opts.Topics) > 0
}
