package quiz_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := quiz.NewInMemoryStore()
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateSession(ctx, quiz.TestSession{
		ID: "s1", StudentID: "stu-1", Questions: []string{"q1", "q2"},
		Status: quiz.StatusProceeding, StartedAt: start,
	}))

	closed, err := store.CloseSession(ctx, "s1", quiz.StatusSucceeded, start.Add(time.Minute))
	require.NoError(t, err)
	*closed.CompletedAt = time.Time{}

	got, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	got.Questions[0] = "tampered"
	*got.CompletedAt = time.Time{}

	listed, _, err := store.ListSessions(ctx, quiz.SessionListOpts{StudentID: "stu-1"})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	listed[0].Questions[1] = "tampered"

	again, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "q2"}, again.Questions)
	require.NotNil(t, again.CompletedAt)
	assert.True(t, again.CompletedAt.Equal(start.Add(time.Minute)))
}
