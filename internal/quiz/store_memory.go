package quiz

import (
	"context"
	"sort"
	"sync"
	"time"
)

type ledgerKey struct{ student, question, session string }

type memoryStore struct {
	mu        sync.RWMutex
	questions map[string]Question
	sessions  map[string]TestSession
	entries   map[ledgerKey]StudentQuestion
}

// NewInMemoryStore returns a Store kept in process memory. Used by tests and the
// "memory" driver for local runs.
func NewInMemoryStore() Store {
	return &memoryStore{
		questions: map[string]Question{},
		sessions:  map[string]TestSession{},
		entries:   map[ledgerKey]StudentQuestion{},
	}
}

func (m *memoryStore) FindByID(_ context.Context, id string) (Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questions[id]
	if !ok {
		return Question{}, ErrNotFound
	}
	return q, nil
}

func (m *memoryStore) FindMany(_ context.Context, ids []string) ([]Question, error) {
	return m.findMany(ids, false), nil
}

func (m *memoryStore) FindApproved(_ context.Context, ids []string) ([]Question, error) {
	return m.findMany(ids, true), nil
}

func (m *memoryStore) findMany(ids []string, approvedOnly bool) []Question {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := map[string]bool{}
	out := make([]Question, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		q, ok := m.questions[id]
		if !ok || (approvedOnly && !q.Approved) {
			continue
		}
		out = append(out, q)
	}
	return out
}

func (m *memoryStore) PutQuestion(_ context.Context, q Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions[q.ID] = q
	return nil
}

func (m *memoryStore) ListQuestions(_ context.Context, f QuestionFilter, page PageRequest) ([]Question, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []Question
	for _, q := range m.questions {
		if f.match(q) {
			all = append(all, q)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return paginate(all, page), len(all), nil
}

func (m *memoryStore) QuestionTags(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := map[string]bool{}
	out := []string{}
	for _, q := range m.questions {
		if !q.Approved {
			continue
		}
		for _, t := range q.Tags {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memoryStore) CreateSession(_ context.Context, s TestSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; ok {
		return ErrDuplicateKey
	}
	m.sessions[s.ID] = cloneSession(s)
	return nil
}

// cloneSession copies the fields of s that share memory with the stored value.
func cloneSession(s TestSession) TestSession {
	s.Questions = append([]string(nil), s.Questions...)
	if s.CompletedAt != nil {
		at := *s.CompletedAt
		s.CompletedAt = &at
	}
	return s
}

func (m *memoryStore) GetSession(_ context.Context, id string) (TestSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return TestSession{}, ErrNotFound
	}
	return cloneSession(s), nil
}

func (m *memoryStore) ListSessions(_ context.Context, opts SessionListOpts) ([]TestSession, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []TestSession
	for _, s := range m.sessions {
		if s.StudentID != opts.StudentID {
			continue
		}
		if opts.Status != "" && s.Status != opts.Status {
			continue
		}
		if opts.hasTaxonomy() && !m.anyQuestionMatches(s, opts) {
			continue
		}
		all = append(all, cloneSession(s))
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].StartedAt.Equal(all[j].StartedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].StartedAt.After(all[j].StartedAt)
	})
	return paginate(all, opts.Page), len(all), nil
}

func (m *memoryStore) anyQuestionMatches(s TestSession, opts SessionListOpts) bool {
	for _, id := range s.Questions {
		if q, ok := m.questions[id]; ok && opts.matchQuestion(q) {
			return true
		}
	}
	return false
}

func (m *memoryStore) UpdateCounters(_ context.Context, id string, c Counters) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if s.Status.Terminal() {
		return ErrNotModified
	}
	s.Correct, s.Incorrect, s.Flagged = c.Correct, c.Incorrect, c.Flagged
	m.sessions[id] = s
	return nil
}

func (m *memoryStore) CloseSession(_ context.Context, id string, status Status, at time.Time) (TestSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return TestSession{}, ErrNotFound
	}
	if s.Status.Terminal() {
		return TestSession{}, ErrNotModified
	}
	s.Status = status
	s.CompletedAt = &at
	m.sessions[id] = s
	return cloneSession(s), nil
}

func (m *memoryStore) FindEntry(_ context.Context, studentID, questionID, sessionID string) (StudentQuestion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[ledgerKey{studentID, questionID, sessionID}]
	if !ok {
		return StudentQuestion{}, ErrNotFound
	}
	return e, nil
}

func (m *memoryStore) UpsertEntry(_ context.Context, e StudentQuestion) (StudentQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := ledgerKey{e.StudentID, e.QuestionID, e.SessionID}
	existing, ok := m.entries[k]
	if !ok {
		m.entries[k] = e
		return e, nil
	}
	existing.SelectedAnswer = e.SelectedAnswer
	existing.IsCorrect = e.SelectedAnswer != FlaggedAnswer && e.SelectedAnswer == existing.CorrectAnswer
	existing.LastUpdatedAt = e.LastUpdatedAt
	m.entries[k] = existing
	return existing, nil
}

func (m *memoryStore) SessionEntries(_ context.Context, sessionID string) ([]StudentQuestion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []StudentQuestion
	for _, e := range m.entries {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	sortByLastUpdated(out)
	return out, nil
}

func (m *memoryStore) QueryEntries(_ context.Context, q LedgerQuery) ([]StudentQuestion, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []StudentQuestion
	for _, e := range m.entries {
		if q.matchEntry(e) {
			out = append(out, e)
		}
	}
	sortByLastUpdated(out)
	if q.Page.PageSize == 0 {
		return out, len(out), nil
	}
	return paginate(out, q.Page), len(out), nil
}

func sortByLastUpdated(list []StudentQuestion) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].LastUpdatedAt.Equal(list[j].LastUpdatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].LastUpdatedAt.After(list[j].LastUpdatedAt)
	})
}

func paginate[T any](all []T, p PageRequest) []T {
	p = p.Normalize()
	start := p.Offset()
	if start >= len(all) {
		return nil
	}
	end := start + p.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}
