package syncx_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-quiz/internal/db"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

func TestPublishAppendsInOrder(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverSQLite, "file:TestPublishAppendsInOrder?mode=memory&cache=shared")
	require.NoError(t, err)
	defer conn.Close()

	repo := syncx.NewEventRepo(conn, "")
	require.NoError(t, repo.Publish(ctx, "SessionOpened", "s-1", map[string]any{"student_id": "stu-1"}))
	require.NoError(t, repo.Publish(ctx, "AnswerSubmitted", "s-1", map[string]any{"is_correct": true}))

	events, err := repo.Since(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "SessionOpened", events[0].Type)
	assert.Equal(t, "local", events[0].SiteID)
	assert.JSONEq(t, `{"is_correct":true}`, events[1].DataJSON)

	rest, err := repo.Since(ctx, events[0].Seq, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "AnswerSubmitted", rest[0].Type)
}
