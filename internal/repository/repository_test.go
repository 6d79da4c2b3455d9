package repository

import (
	"context"
	"learning_progress/internal/model"
	"learning_progress/internal/testutil"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyTaskIncrementAndClaim(t *testing.T) {
	db := testutil.DB(t)
	repo := NewDailyTaskRepository(db)
	ctx := context.Background()

	tasks := []model.DailyTask{
		{UserID: 1, Type: model.TaskQuizScore, TaskDate: "2024-03-13", TargetCount: 2, XPReward: 80},
	}
	require.NoError(t, repo.CreateIgnoreConflicts(ctx, tasks))
	// 重复插入被忽略
	require.NoError(t, repo.CreateIgnoreConflicts(ctx, []model.DailyTask{
		{UserID: 1, Type: model.TaskQuizScore, TaskDate: "2024-03-13", TargetCount: 5},
	}))

	list, err := repo.ListForDate(ctx, 1, "2024-03-13")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].TargetCount)

	ok, err := repo.Claim(ctx, list[0].ID)
	require.NoError(t, err)
	assert.False(t, ok, "incomplete task cannot be claimed")

	changed, err := repo.IncrementProgress(ctx, 1, model.TaskQuizScore, "2024-03-13", 3)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.IncrementProgress(ctx, 1, model.TaskQuizScore, "2024-03-13", 1)
	require.NoError(t, err)
	assert.False(t, changed)

	task, err := repo.FindByID(ctx, list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, task.CurrentCount)

	ok, err = repo.Claim(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.Claim(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestErrorBookCompareAndSet(t *testing.T) {
	db := testutil.DB(t)
	repo := NewErrorBookRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.RecordMiss(ctx, 7, "q1"))
	entry, err := repo.FindByUserQuestion(ctx, 7, "q1")
	require.NoError(t, err)
	assert.Equal(t, 1, entry.MasteryLevel)

	ok, err := repo.CompareAndSetLevel(ctx, entry.ID, entry.Version, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	// 旧版本号写入失败
	ok, err = repo.CompareAndSetLevel(ctx, entry.ID, entry.Version, 0)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = repo.CompareAndDelete(ctx, entry.ID, entry.Version)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.CompareAndDelete(ctx, entry.ID, entry.Version+1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUserStreakCompareAndSwap(t *testing.T) {
	db := testutil.DB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "alice")

	ok, err := repo.ResetStreak(ctx, user.ID, "", "2024-03-13")
	require.NoError(t, err)
	assert.True(t, ok)

	// 已被其他请求推进过
	ok, err = repo.ContinueStreak(ctx, user.ID, "", "2024-03-14")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.ContinueStreak(ctx, user.ID, "2024-03-13", "2024-03-14")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Streak)
	assert.Equal(t, "2024-03-14", got.LastStudyDate)
}

func TestLeaderboardCacheDisabled(t *testing.T) {
	ctx := context.Background()
	var nilCache *LeaderboardCache
	cache := NewLeaderboardCache(nil, 0)

	for _, c := range []*LeaderboardCache{nilCache, cache} {
		assert.False(t, c.Enabled())
		data, err := c.Get(ctx, model.PeriodWeekly, "2024-03-11", 10)
		assert.NoError(t, err)
		assert.Nil(t, data)
		assert.NoError(t, c.Set(ctx, model.PeriodWeekly, "2024-03-11", 10, []byte("[]")))
		assert.NoError(t, c.Invalidate(ctx, model.PeriodWeekly, "2024-03-11"))
	}
}

func TestQuestionFindByIDs(t *testing.T) {
	db := testutil.DB(t)
	repo := NewQuestionRepository(db)
	ctx := context.Background()
	q := testutil.CreateQuestion(t, db, model.SingleChoice, "A")

	found, err := repo.FindByIDs(ctx, []string{q.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Contains(t, found, q.ID)

	found, err = repo.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}
