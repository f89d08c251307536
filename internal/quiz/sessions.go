package quiz

import (
	"context"
	"errors"
	"strings"
)

// OpenedSession is returned when a test starts: the session and what the client
// needs to render it. Views carry no correct answers.
type OpenedSession struct {
	Session   TestSession    `json:"session"`
	Questions []QuestionView `json:"questions"`
}

// SessionDetail is a session with its member questions resolved.
type SessionDetail struct {
	Session   TestSession    `json:"session"`
	Questions []QuestionView `json:"questions"`
}

func (s *Service) OpenSession(ctx context.Context, studentID string, questionIDs []string, filters Filters) (OpenedSession, error) {
	if studentID == "" {
		return OpenedSession{}, Invalidf("student id required")
	}
	if len(questionIDs) == 0 {
		return OpenedSession{}, Invalidf("questions must be a non-empty list")
	}
	seen := make(map[string]bool, len(questionIDs))
	for _, id := range questionIDs {
		if strings.TrimSpace(id) == "" {
			return OpenedSession{}, Invalidf("question ids must not be empty")
		}
		if seen[id] {
			return OpenedSession{}, Invalidf("question %s listed more than once", id)
		}
		seen[id] = true
	}

	qs, err := s.store.FindApproved(ctx, questionIDs)
	if err != nil {
		return OpenedSession{}, Internal("resolve questions", err)
	}
	if len(qs) != len(questionIDs) {
		return OpenedSession{}, Invalidf("one or more questions not found or not approved")
	}

	totalOptions := 0
	views := make([]QuestionView, 0, len(qs))
	for _, q := range qs {
		totalOptions += len(q.Options)
		views = append(views, s.view(q))
	}

	ts := TestSession{
		ID:             s.newID(),
		StudentID:      studentID,
		Questions:      append([]string(nil), questionIDs...),
		TotalQuestions: len(questionIDs),
		TotalOptions:   totalOptions,
		Filters:        filters,
		Status:         StatusProceeding,
		StartedAt:      s.clock(),
	}
	if err := s.store.CreateSession(ctx, ts); err != nil {
		return OpenedSession{}, Internal("create session", err)
	}
	s.publish(ctx, EventSessionOpened, ts.ID, map[string]any{
		"student_id": studentID,
		"questions":  ts.Questions,
	})
	return OpenedSession{Session: ts, Questions: views}, nil
}

// ListSessionsInput narrows a student's session listing. Taxonomy fields match
// sessions with at least one approved member question satisfying all of them.
type ListSessionsInput struct {
	Status   string
	Category string
	Subjects []string
	Topics   []string
	Page     PageRequest
}

func (s *Service) ListSessions(ctx context.Context, studentID string, in ListSessionsInput) (Page[TestSession], error) {
	opts := SessionListOpts{
		StudentID: studentID,
		Subjects:  compact(in.Subjects),
		Topics:    compact(in.Topics),
		Page:      in.Page.Normalize(),
	}
	if in.Status != "" {
		st, err := ParseStatus(in.Status)
		if err != nil {
			return Page[TestSession]{}, err
		}
		opts.Status = st
	}
	if in.Category != "" {
		c, err := ParseCategory(in.Category)
		if err != nil {
			return Page[TestSession]{}, err
		}
		opts.Category = c
	}
	list, total, err := s.store.ListSessions(ctx, opts)
	if err != nil {
		return Page[TestSession]{}, Internal("list sessions", err)
	}
	return newPage(list, total, opts.Page), nil
}

func (s *Service) GetSession(ctx context.Context, studentID, sessionID string) (SessionDetail, error) {
	ts, err := s.ownedSession(ctx, studentID, sessionID)
	if err != nil {
		return SessionDetail{}, err
	}
	qs, err := s.store.FindApproved(ctx, ts.Questions)
	if err != nil {
		return SessionDetail{}, Internal("resolve questions", err)
	}
	views := make([]QuestionView, 0, len(qs))
	for _, q := range qs {
		views = append(views, s.view(q))
	}
	return SessionDetail{Session: ts, Questions: views}, nil
}

// CloseSession is the only path that changes a session's status.
func (s *Service) CloseSession(ctx context.Context, studentID, sessionID string, target Status) (TestSession, error) {
	if target != StatusSucceeded && target != StatusCanceled {
		return TestSession{}, Invalidf("status must be %q or %q", StatusSucceeded, StatusCanceled)
	}
	ts, err := s.ownedSession(ctx, studentID, sessionID)
	if err != nil {
		return TestSession{}, err
	}
	if ts.Status.Terminal() {
		return TestSession{}, InvalidStatef("cannot update a completed or canceled session")
	}
	closed, err := s.store.CloseSession(ctx, sessionID, target, s.clock())
	switch {
	case errors.Is(err, ErrNotModified):
		// lost a race with another close
		return TestSession{}, InvalidStatef("cannot update a completed or canceled session")
	case errors.Is(err, ErrNotFound):
		return TestSession{}, NotFoundf("test session %s not found", sessionID)
	case err != nil:
		return TestSession{}, Internal("close session", err)
	}
	s.publish(ctx, EventSessionClosed, sessionID, map[string]any{
		"student_id": studentID,
		"status":     closed.Status,
		"correct":    closed.Correct,
		"incorrect":  closed.Incorrect,
		"flagged":    closed.Flagged,
	})
	return closed, nil
}

// compact trims values and drops empty ones.
func compact(list []string) []string {
	var out []string
	for _, v := range list {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
