package quiz

import (
	"context"
	"errors"
)

// ImportQuestions validates every question, then stores them all. Nothing is
// stored when any question is invalid. createdBy fills empty authorship.
func (s *Service) ImportQuestions(ctx context.Context, createdBy string, qs []Question) (int, error) {
	if len(qs) == 0 {
		return 0, Invalidf("no questions to import")
	}
	seen := map[string]bool{}
	for i := range qs {
		if qs[i].Difficulty == "" {
			qs[i].Difficulty = DifficultyMedium
		}
		if qs[i].CreatedBy == "" {
			qs[i].CreatedBy = createdBy
		}
		if err := qs[i].Validate(); err != nil {
			return 0, err
		}
		if seen[qs[i].ID] {
			return 0, Invalidf("question %s listed more than once", qs[i].ID)
		}
		seen[qs[i].ID] = true
	}
	for i, q := range qs {
		if err := s.store.PutQuestion(ctx, q); err != nil {
			return i, Internal("store question "+q.ID, err)
		}
	}
	return len(qs), nil
}

// ListQuestionsInput narrows the approved question bank for browsing.
type ListQuestionsInput struct {
	Category   string
	Subjects   []string
	Topics     []string
	Tags       []string
	Difficulty string
	CreatedBy  string
	HasMedia   bool
	Page       PageRequest
}

// ListQuestions pages through approved questions as views, so a client can pick
// the ids for a new session.
func (s *Service) ListQuestions(ctx context.Context, in ListQuestionsInput) (Page[QuestionView], error) {
	f := QuestionFilter{
		Subjects:  compact(in.Subjects),
		Topics:    compact(in.Topics),
		Tags:      compact(in.Tags),
		CreatedBy: in.CreatedBy,
		HasMedia:  in.HasMedia,
	}
	if in.Category != "" {
		c, err := ParseCategory(in.Category)
		if err != nil {
			return Page[QuestionView]{}, err
		}
		f.Category = c
	}
	if in.Difficulty != "" {
		d, err := ParseDifficulty(in.Difficulty)
		if err != nil {
			return Page[QuestionView]{}, err
		}
		f.Difficulty = d
	}
	page := in.Page.Normalize()
	qs, total, err := s.store.ListQuestions(ctx, f, page)
	if err != nil {
		return Page[QuestionView]{}, Internal("list questions", err)
	}
	views := make([]QuestionView, 0, len(qs))
	for _, q := range qs {
		views = append(views, s.view(q))
	}
	return newPage(views, total, page), nil
}

// GetQuestion returns one approved question as a view.
func (s *Service) GetQuestion(ctx context.Context, id string) (QuestionView, error) {
	q, err := s.store.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) || (err == nil && !q.Approved) {
		return QuestionView{}, NotFoundf("question %s not found", id)
	}
	if err != nil {
		return QuestionView{}, Internal("load question", err)
	}
	return s.view(q), nil
}

func (s *Service) QuestionTags(ctx context.Context) ([]string, error) {
	tags, err := s.store.QuestionTags(ctx)
	if err != nil {
		return nil, Internal("list tags", err)
	}
	return tags, nil
}
