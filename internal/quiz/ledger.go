package quiz

import (
	"context"
	"errors"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

type SubmitInput struct {
	StudentID      string
	SessionID      string
	QuestionID     string
	SelectedAnswer *int // nil is missing; FlaggedAnswer is a valid value

	// Optional narrowing of the taxonomy snapshot. Only used on first submission
	// and every value must belong to the question's own taxonomy.
	Subjects []string
	Topics   []string
}

type SubmitResult struct {
	EntryID        string `json:"id"`
	IsCorrect      bool   `json:"is_correct"`
	SelectedAnswer int    `json:"selected_answer"`
}

// SubmitAnswer records the student's answer to one question of a session and
// recomputes the session counters from the ledger.
func (s *Service) SubmitAnswer(ctx context.Context, in SubmitInput) (SubmitResult, error) {
	if in.SessionID == "" || in.QuestionID == "" || in.SelectedAnswer == nil {
		return SubmitResult{}, Invalidf("session id, question id and selected answer are required")
	}
	selected := *in.SelectedAnswer

	ts, err := s.ownedSession(ctx, in.StudentID, in.SessionID)
	if err != nil {
		return SubmitResult{}, err
	}
	if ts.Status.Terminal() {
		return SubmitResult{}, InvalidStatef("cannot submit answers to a completed or canceled session")
	}
	if !ts.HasQuestion(in.QuestionID) {
		return SubmitResult{}, Invalidf("question does not belong to this session")
	}
	q, err := s.store.FindByID(ctx, in.QuestionID)
	if errors.Is(err, ErrNotFound) {
		return SubmitResult{}, NotFoundf("question %s not found", in.QuestionID)
	}
	if err != nil {
		return SubmitResult{}, Internal("load question", err)
	}

	if selected < FlaggedAnswer {
		return SubmitResult{}, Invalidf("selected answer must be %d or a valid option index", FlaggedAnswer)
	}

	existing, err := s.store.FindEntry(ctx, in.StudentID, in.QuestionID, in.SessionID)
	first := errors.Is(err, ErrNotFound)
	if err != nil && !first {
		return SubmitResult{}, Internal("load ledger entry", err)
	}

	now := s.clock()
	var entry StudentQuestion
	if first {
		subjects, topics, err := narrowTaxonomy(q, in.Subjects, in.Topics)
		if err != nil {
			return SubmitResult{}, err
		}
		entry = StudentQuestion{
			ID:               s.newID(),
			StudentID:        in.StudentID,
			QuestionID:       q.ID,
			SessionID:        in.SessionID,
			Options:          q.Options,
			CorrectAnswer:    q.CorrectAnswer,
			Explanation:      q.Explanation,
			ExplanationMedia: q.ExplanationMedia,
			Category:         q.Category,
			Subjects:         subjects,
			Topics:           topics,
			AnsweredAt:       now,
		}
	} else {
		// graded against the snapshot taken at first submission
		entry = existing
	}

	res, err := s.grader.Grade(ctx, grading.Q{Options: len(entry.Options), CorrectAnswer: entry.CorrectAnswer}, selected)
	if errors.Is(err, grading.ErrOutOfRange) {
		return SubmitResult{}, Invalidf("selected answer %d is out of range for %d options", selected, len(entry.Options))
	}
	if err != nil {
		return SubmitResult{}, Internal("grade answer", err)
	}
	entry.SelectedAnswer = selected
	entry.IsCorrect = res.Correct
	entry.LastUpdatedAt = now

	stored, err := s.store.UpsertEntry(ctx, entry)
	if err != nil {
		return SubmitResult{}, Internal("record answer", err)
	}

	if _, err := s.RecomputeCounters(ctx, in.SessionID); err != nil {
		return SubmitResult{}, err
	}

	s.publish(ctx, EventAnswerSubmitted, in.SessionID, map[string]any{
		"entry_id":        stored.ID,
		"student_id":      stored.StudentID,
		"question_id":     stored.QuestionID,
		"selected_answer": stored.SelectedAnswer,
		"is_correct":      stored.IsCorrect,
	})
	return SubmitResult{EntryID: stored.ID, IsCorrect: stored.IsCorrect, SelectedAnswer: stored.SelectedAnswer}, nil
}

// narrowTaxonomy returns the subjects and topics to snapshot. Without overrides it
// is the question's full taxonomy.
func narrowTaxonomy(q Question, subjects, topics []string) ([]string, []string, error) {
	ownSubjects, ownTopics := q.SubjectNames(), q.TopicNames()
	subjects, topics = compact(subjects), compact(topics)
	for _, v := range subjects {
		if !contains(ownSubjects, v) {
			return nil, nil, Invalidf("subject %q is not assigned to question %s", v, q.ID)
		}
	}
	for _, v := range topics {
		if !contains(ownTopics, v) {
			return nil, nil, Invalidf("topic %q is not assigned to question %s", v, q.ID)
		}
	}
	if len(subjects) == 0 {
		subjects = ownSubjects
	}
	if len(topics) == 0 {
		topics = ownTopics
	}
	return dedupe(subjects), dedupe(topics), nil
}

func dedupe(list []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// TestAnswers returns every ledger entry of a session for review, snapshot included.
func (s *Service) TestAnswers(ctx context.Context, studentID, sessionID string) ([]StudentQuestion, error) {
	if _, err := s.ownedSession(ctx, studentID, sessionID); err != nil {
		return nil, err
	}
	entries, err := s.store.SessionEntries(ctx, sessionID)
	if err != nil {
		return nil, Internal("load answers", err)
	}
	for i := range entries {
		entries[i].Options = s.resolveOptions(entries[i].Options)
		entries[i].ExplanationMedia = s.resolveMedia(entries[i].ExplanationMedia)
	}
	if entries == nil {
		entries = []StudentQuestion{}
	}
	return entries, nil
}
