package quiz

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

// MediaResolver turns a stored media key into a URL a client can fetch.
type MediaResolver interface {
	SignedURL(key string) (string, error)
}

// Service implements session, ledger, aggregation and history operations on top of a Store.
// It keeps no state of its own; all coordination happens in the store.
type Service struct {
	store  Store
	grader grading.Grader
	events EventSink
	media  MediaResolver
	now    func() time.Time
	newID  func() string
}

type ServiceOption func(*Service)

func WithClock(now func() time.Time) ServiceOption { return func(s *Service) { s.now = now } }

func WithIDs(gen func() string) ServiceOption { return func(s *Service) { s.newID = gen } }

func WithGrader(g grading.Grader) ServiceOption { return func(s *Service) { s.grader = g } }

func WithEvents(e EventSink) ServiceOption { return func(s *Service) { s.events = e } }

func WithMedia(m MediaResolver) ServiceOption { return func(s *Service) { s.media = m } }

func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		grader: grading.NewDefaultGrader(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Store exposes the underlying store for seeding and imports.
func (s *Service) Store() Store { return s.store }

func (s *Service) clock() time.Time { return s.now().UTC() }

// publish records a domain event. A failing sink never fails the caller.
func (s *Service) publish(ctx context.Context, typ, key string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, typ, key, payload); err != nil {
		log.Printf("quiz: publish %s for %s: %v", typ, key, err)
	}
}

// ownedSession loads a session and checks it belongs to studentID.
func (s *Service) ownedSession(ctx context.Context, studentID, sessionID string) (TestSession, error) {
	if sessionID == "" {
		return TestSession{}, Invalidf("session id required")
	}
	ts, err := s.store.GetSession(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return TestSession{}, NotFoundf("test session %s not found", sessionID)
	}
	if err != nil {
		return TestSession{}, Internal("load session", err)
	}
	if ts.StudentID != studentID {
		return TestSession{}, Forbiddenf("test session %s belongs to another student", sessionID)
	}
	return ts, nil
}

func (s *Service) resolveMedia(list []Media) []Media {
	if s.media == nil || len(list) == 0 {
		return list
	}
	out := make([]Media, len(list))
	for i, m := range list {
		out[i] = m
		if m.Type == MediaURL {
			m.URL = m.Path
			out[i] = m
			continue
		}
		if m.Path == "" {
			continue
		}
		if u, err := s.media.SignedURL(m.Path); err == nil {
			out[i].URL = u
		}
	}
	return out
}

func (s *Service) resolveOptions(opts []Option) []Option {
	if s.media == nil {
		return opts
	}
	out := make([]Option, len(opts))
	for i, o := range opts {
		out[i] = Option{Text: o.Text, Media: s.resolveMedia(o.Media)}
	}
	return out
}

func (s *Service) view(q Question) QuestionView {
	v := q.View()
	v.Media = s.resolveMedia(v.Media)
	v.Options = s.resolveOptions(v.Options)
	return v
}
