package quiz_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

func TestCategoryIsClosed(t *testing.T) {
	c, err := quiz.ParseCategory("  clinical SPECIALTIES ")
	require.NoError(t, err)
	assert.Equal(t, quiz.CategoryClinicalSpecialties, c)

	_, err = quiz.ParseCategory("Astrology")
	assert.True(t, quiz.IsKind(err, quiz.KindInvalidInput))

	var q quiz.Question
	assert.Error(t, json.Unmarshal([]byte(`{"category":"Astrology"}`), &q))
	require.NoError(t, yaml.Unmarshal([]byte("category: organ systems"), &q))
	assert.Equal(t, quiz.CategoryOrganSystems, q.Category)
}

func TestQuestionValidate(t *testing.T) {
	base := quiz.Question{
		ID: "q", Text: "t", Options: []quiz.Option{{Text: "a"}, {Text: "b"}},
		CorrectAnswer: 1, Category: quiz.CategoryBasicSciences,
	}
	require.NoError(t, base.Validate())

	bad := base
	bad.CorrectAnswer = 2
	assert.Error(t, bad.Validate())

	bad = base
	bad.Options = bad.Options[:1]
	assert.Error(t, bad.Validate())

	bad = base
	bad.Category = "Other"
	assert.Error(t, bad.Validate())
}

func TestComputeCountersPartitions(t *testing.T) {
	four := make([]quiz.Option, 4)
	entries := []quiz.StudentQuestion{
		{SelectedAnswer: 1, IsCorrect: true, Options: four},
		{SelectedAnswer: 3, IsCorrect: false, Options: four},
		{SelectedAnswer: -1, IsCorrect: false, Options: four},
		{SelectedAnswer: 0, IsCorrect: false, Options: four[:2]},
	}
	c := quiz.ComputeCounters(entries)
	assert.Equal(t, quiz.Counters{Correct: 1, Incorrect: 2, Flagged: 1, TotalOptions: 14}, c)
	assert.Equal(t, len(entries), c.Answered())
	assert.Equal(t, quiz.Counters{}, quiz.ComputeCounters(nil))
}

func TestScorePercentage(t *testing.T) {
	assert.Equal(t, 0.0, quiz.TestSession{}.ScorePercentage())
	assert.Equal(t, 33.33, quiz.TestSession{Correct: 1, TotalQuestions: 3}.ScorePercentage())

	b, err := json.Marshal(quiz.TestSession{ID: "s", Correct: 2, TotalQuestions: 3})
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, 66.67, m["score_percentage"])
	assert.Equal(t, "s", m["id"])
}

func TestPageRequestNormalize(t *testing.T) {
	assert.Equal(t, quiz.PageRequest{Page: 1, PageSize: quiz.DefaultPageSize}, quiz.PageRequest{}.Normalize())
	assert.Equal(t, quiz.PageRequest{Page: 3, PageSize: quiz.MaxPageSize}, quiz.PageRequest{Page: 3, PageSize: 5000}.Normalize())
	assert.Equal(t, 40, quiz.PageRequest{Page: 3, PageSize: 20}.Offset())
}
