package quiz_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccnmtl/videoanalytics/core"
	"github.com/ccnmtl/videoanalytics/core/block"
	"github.com/ccnmtl/videoanalytics/core/quiz"
	testutil "github.com/ccnmtl/videoanalytics/tests"
)

func TestService_Submit(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	b := testutil.LoadHierarchy(t, env, testutil.HierarchyB)

	pb := testutil.Find(t, b, "pretest", block.QuizKind)
	q, err := env.Quizzes.Quiz(ctx, pb.ContentID)
	require.NoError(t, err)
	require.Len(t, q.Questions, 3)
	assert.True(t, q.NeedsSubmit())

	const userID = 42

	t.Run("nothing submitted yet", func(t *testing.T) {
		ok, err := env.Quizzes.HasSubmission(ctx, userID)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = env.Quizzes.Submitted(ctx, q.ID, userID)
		require.NoError(t, err)
		assert.False(t, ok)

		rs, err := env.Quizzes.UserResponses(ctx, q.ID, userID)
		require.NoError(t, err)
		assert.Empty(t, rs)
	})

	t.Run("unknown quiz", func(t *testing.T) {
		_, err := env.Quizzes.Submit(ctx, q.ID+100, userID, nil)
		assert.Equal(t, quiz.ErrNotFound, errors.Cause(err))
	})

	t.Run("question of another quiz", func(t *testing.T) {
		_, err := env.Quizzes.Submit(ctx, q.ID, userID, map[int64][]string{999: {"yes"}})
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr), "got %v", err)
		assert.Equal(t, "question999", vErr.Fields[0].Field)

		ok, err := env.Quizzes.HasSubmission(ctx, userID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("latest submission wins", func(t *testing.T) {
		_, err := env.Quizzes.Submit(ctx, q.ID, userID, map[int64][]string{q.Questions[0].ID: {"no"}})
		require.NoError(t, err)
		sub, err := env.Quizzes.Submit(ctx, q.ID, userID, map[int64][]string{
			q.Questions[0].ID: {"yes"},
			q.Questions[2].ID: {"no"},
		})
		require.NoError(t, err)
		assert.Equal(t, q.ID, sub.QuizID)
		assert.False(t, sub.Submitted.IsZero())

		rs, err := env.Quizzes.UserResponses(ctx, q.ID, userID)
		require.NoError(t, err)
		assert.Equal(t, quiz.Responses{q.Questions[0].ID: {"yes"}, q.Questions[2].ID: {"no"}}, rs)

		ok, err := env.Quizzes.HasSubmission(ctx, userID)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("summary", func(t *testing.T) {
		quizzes, err := env.Quizzes.Quizzes(ctx, []int64{q.ID})
		require.NoError(t, err)
		rs, err := env.Quizzes.ResponsesFor(ctx, quizzes, userID)
		require.NoError(t, err)

		assert.Equal(t, map[string]int{"thermodynamics": 1, "redox_chemistry": 0}, quiz.ScoreByCategory(quizzes, rs))
		assert.False(t, quiz.IsQuizComplete(q, rs))
	})
}
