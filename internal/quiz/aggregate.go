package quiz

import (
	"context"
	"errors"
	"log"
	"sort"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

// ComputeCounters partitions entries into correct, incorrect and flagged buckets.
// The three counts always sum to len(entries).
func ComputeCounters(entries []StudentQuestion) Counters {
	var c Counters
	for _, e := range entries {
		switch {
		case e.Flagged():
			c.Flagged++
		case e.IsCorrect:
			c.Correct++
		default:
			c.Incorrect++
		}
		c.TotalOptions += len(e.Options)
	}
	return c
}

// SessionCounters derives the counters of a session from its ledger entries.
func (s *Service) SessionCounters(ctx context.Context, sessionID string) (Counters, error) {
	entries, err := s.store.SessionEntries(ctx, sessionID)
	if err != nil {
		return Counters{}, Internal("load session entries", err)
	}
	return ComputeCounters(entries), nil
}

// RecomputeCounters rescans the ledger and writes the counters onto the session.
// Safe to repeat. A session that became terminal in the meantime keeps the
// counters it was closed with.
func (s *Service) RecomputeCounters(ctx context.Context, sessionID string) (Counters, error) {
	c, err := s.SessionCounters(ctx, sessionID)
	if err != nil {
		return Counters{}, err
	}
	err = s.store.UpdateCounters(ctx, sessionID, c)
	switch {
	case errors.Is(err, ErrNotModified):
		log.Printf("quiz: session %s closed before counters were recomputed", sessionID)
	case errors.Is(err, ErrNotFound):
		return Counters{}, NotFoundf("test session %s not found", sessionID)
	case err != nil:
		return Counters{}, Internal("update counters", err)
	}
	return c, nil
}

type StatsFilter struct {
	Category string
	Subjects []string
	Topics   []string
}

// Rollup is the correctness of non-flagged answers within one taxonomy bucket.
type Rollup struct {
	Name       string  `json:"name"`
	Total      int     `json:"total"`
	Correct    int     `json:"correct"`
	Incorrect  int     `json:"incorrect"`
	Percentage float64 `json:"percentage"`
}

type CategoryRollup struct {
	Category   Category `json:"category"`
	Total      int      `json:"total"`
	Correct    int      `json:"correct"`
	Incorrect  int      `json:"incorrect"`
	Percentage float64  `json:"percentage"`
}

type Stats struct {
	TotalAnswered    int              `json:"total_answered"`
	CorrectAnswers   int              `json:"correct_answers"`
	IncorrectAnswers int              `json:"incorrect_answers"`
	FlaggedAnswers   int              `json:"flagged_answers"`
	Accuracy         float64          `json:"accuracy"`
	CategoryStats    []CategoryRollup `json:"category_stats"`
	SubjectStats     []Rollup         `json:"subject_stats"`
	TopicStats       []Rollup         `json:"topic_stats"`
}

// StudentStats summarises a student's whole ledger. The headline counts honour
// the filter; the rollups always cover every non-flagged entry.
func (s *Service) StudentStats(ctx context.Context, studentID string, f StatsFilter) (Stats, error) {
	if studentID == "" {
		return Stats{}, Invalidf("student id required")
	}
	q := LedgerQuery{StudentID: studentID, Subjects: compact(f.Subjects), Topics: compact(f.Topics)}
	if f.Category != "" {
		c, err := ParseCategory(f.Category)
		if err != nil {
			return Stats{}, err
		}
		q.Category = c
	}

	filtered, _, err := s.store.QueryEntries(ctx, q)
	if err != nil {
		return Stats{}, Internal("load answers", err)
	}
	c := ComputeCounters(filtered)
	st := Stats{
		TotalAnswered:    c.Correct + c.Incorrect,
		CorrectAnswers:   c.Correct,
		IncorrectAnswers: c.Incorrect,
		FlaggedAnswers:   c.Flagged,
	}
	st.Accuracy = grading.Percentage(st.CorrectAnswers, st.TotalAnswered)

	all := filtered
	if q.Category != "" || len(q.Subjects) > 0 || len(q.Topics) > 0 {
		all, _, err = s.store.QueryEntries(ctx, LedgerQuery{StudentID: studentID})
		if err != nil {
			return Stats{}, Internal("load answers", err)
		}
	}
	st.CategoryStats, st.SubjectStats, st.TopicStats = rollups(all)
	return st, nil
}

type tally struct{ total, correct int }

func (t *tally) add(e StudentQuestion) {
	t.total++
	if e.IsCorrect {
		t.correct++
	}
}

// rollups groups non-flagged entries by category, subject and topic.
// An entry tagged with several subjects counts once for each.
func rollups(entries []StudentQuestion) ([]CategoryRollup, []Rollup, []Rollup) {
	byCategory := map[Category]*tally{}
	bySubject := map[string]*tally{}
	byTopic := map[string]*tally{}
	bump := func(m map[string]*tally, key string, e StudentQuestion) {
		t, ok := m[key]
		if !ok {
			t = &tally{}
			m[key] = t
		}
		t.add(e)
	}
	for _, e := range entries {
		if e.Flagged() {
			continue
		}
		t, ok := byCategory[e.Category]
		if !ok {
			t = &tally{}
			byCategory[e.Category] = t
		}
		t.add(e)
		for _, v := range dedupe(e.Subjects) {
			bump(bySubject, v, e)
		}
		for _, v := range dedupe(e.Topics) {
			bump(byTopic, v, e)
		}
	}

	cats := make([]CategoryRollup, 0, len(byCategory))
	for k, t := range byCategory {
		cats = append(cats, CategoryRollup{
			Category:   k,
			Total:      t.total,
			Correct:    t.correct,
			Incorrect:  t.total - t.correct,
			Percentage: grading.Percentage(t.correct, t.total),
		})
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].Category < cats[j].Category })
	return cats, namedRollups(bySubject), namedRollups(byTopic)
}

func namedRollups(m map[string]*tally) []Rollup {
	out := make([]Rollup, 0, len(m))
	for k, t := range m {
		out = append(out, Rollup{
			Name:       k,
			Total:      t.total,
			Correct:    t.correct,
			Incorrect:  t.total - t.correct,
			Percentage: grading.Percentage(t.correct, t.total),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
