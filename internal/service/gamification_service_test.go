package service

import (
	"context"
	"learning_progress/internal/config"
	"learning_progress/internal/model"
	"learning_progress/internal/testutil"
	"learning_progress/internal/util"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateLevel(t *testing.T) {
	assert.Equal(t, 1, CalculateLevel(0))
	assert.Equal(t, 1, CalculateLevel(999))
	assert.Equal(t, 2, CalculateLevel(1000))
	assert.Equal(t, 3000, NextLevelXP(2500))
}

func TestDefinitionsFromConfigRejectsUnknownType(t *testing.T) {
	_, err := DefinitionsFromConfig([]config.DailyTaskConfig{{Type: "READ_BOOK", Target: 1}})
	assert.Error(t, err)
}

func TestRefreshStreak(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, e.db, "alice")

	state, err := e.gamification.RefreshStreak(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Streak)
	assert.Equal(t, "2024-03-13", state.LastStudyDate)
	assert.True(t, state.Changed)

	// 同一天再次学习不重复计数
	state, err = e.gamification.RefreshStreak(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Streak)
	assert.False(t, state.Changed)

	for want := 2; want <= 4; want++ {
		e.clock.AddDays(1)
		state, err = e.gamification.RefreshStreak(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, want, state.Streak)
	}

	// 中断两天后从 1 重新开始
	e.clock.AddDays(2)
	state, err = e.gamification.RefreshStreak(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Streak)

	_, err = e.gamification.RefreshStreak(ctx, 9999)
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestRefreshStreakIsCalendarBased(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, e.db, "alice")

	// 23:50 学习，次日 00:10 再学习：不足 24 小时但跨了日历日
	late := testutil.Date(2024, 3, 13).Add(13*time.Hour + 50*time.Minute)
	e.clock.Set(late)
	_, err := e.gamification.RefreshStreak(ctx, user.ID)
	require.NoError(t, err)

	e.clock.Set(late.Add(20 * time.Minute))
	state, err := e.gamification.RefreshStreak(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, state.Streak)
}

func TestEnsureDailyTasksIdempotent(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, e.db, "alice")

	require.NoError(t, e.gamification.EnsureDailyTasks(ctx, user.ID))
	require.NoError(t, e.gamification.EnsureDailyTasks(ctx, user.ID))

	tasks, err := e.gamification.ListDailyTasks(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, model.TaskLogin, tasks[0].Type)
	assert.True(t, tasks[0].IsCompleted(), "login completes on creation")
	assert.Equal(t, model.TaskCompleteLesson, tasks[1].Type)
	assert.Equal(t, 0, tasks[1].CurrentCount)
	assert.Equal(t, model.TaskQuizScore, tasks[2].Type)

	// 第二天生成新的一组
	e.clock.AddDays(1)
	require.NoError(t, e.gamification.EnsureDailyTasks(ctx, user.ID))
	var count int64
	require.NoError(t, e.db.Model(&model.DailyTask{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 6, count)
}

func TestEnsureDailyTasksConcurrent(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, e.db, "alice")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, e.gamification.EnsureDailyTasks(ctx, user.ID))
		}()
	}
	wg.Wait()

	var count int64
	require.NoError(t, e.db.Model(&model.DailyTask{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 3, count)
}

func TestTrackProgressClampsToTarget(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, e.db, "alice")

	// 没有任务时是空操作
	require.NoError(t, e.gamification.TrackProgress(ctx, user.ID, model.TaskQuizScore, 1))

	e.gamification.SetDefinitions([]DailyTaskDefinition{
		{Type: model.TaskQuizScore, Title: "完成 3 次测验", Target: 3, XPReward: 80},
	})
	require.NoError(t, e.gamification.EnsureDailyTasks(ctx, user.ID))

	// 非正数按 1 计
	require.NoError(t, e.gamification.TrackProgress(ctx, user.ID, model.TaskQuizScore, 0))
	tasks, err := e.gamification.ListDailyTasks(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, 1, tasks[0].CurrentCount)

	require.NoError(t, e.gamification.TrackProgress(ctx, user.ID, model.TaskQuizScore, 5))
	require.NoError(t, e.gamification.TrackProgress(ctx, user.ID, model.TaskQuizScore, 2))

	tasks, err = e.gamification.ListDailyTasks(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, tasks[0].CurrentCount)
}

func TestClaimReward(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, e.db, "alice")
	bob := testutil.CreateUser(t, e.db, "bob")

	tasks, err := e.gamification.ListDailyTasks(ctx, alice.ID)
	require.NoError(t, err)
	login, lesson := tasks[0], tasks[1]

	_, err = e.gamification.ClaimReward(ctx, bob.ID, login.ID)
	assert.ErrorIs(t, err, util.ErrNotTaskOwner)

	_, err = e.gamification.ClaimReward(ctx, alice.ID, lesson.ID)
	assert.ErrorIs(t, err, util.ErrTaskNotCompleted)

	_, err = e.gamification.ClaimReward(ctx, alice.ID, "missing")
	assert.ErrorIs(t, err, util.ErrNotFound)

	res, err := e.gamification.ClaimReward(ctx, alice.ID, login.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, res.XPReward)
	assert.Equal(t, 50, res.TotalXP)
	assert.Equal(t, 1, res.Level)

	_, err = e.gamification.ClaimReward(ctx, alice.ID, login.ID)
	assert.ErrorIs(t, err, util.ErrRewardAlreadyClaimed)

	summary, err := e.gamification.GetProgressSummary(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, summary.XP, "xp credited exactly once")
}

func TestGetProgressSummary(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, e.db, "alice")
	q := testutil.CreateQuestion(t, e.db, model.SingleChoice, "A")
	testutil.CreateErrorBookEntry(t, e.db, user.ID, q.ID, 1)

	_, err := e.gamification.RefreshStreak(ctx, user.ID)
	require.NoError(t, err)

	summary, err := e.gamification.GetProgressSummary(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Streak)
	assert.True(t, summary.StreakActive)
	assert.EqualValues(t, 1, summary.ErrorBookCount)
	assert.Equal(t, 1000, summary.NextLevelXP)

	e.clock.AddDays(3)
	summary, err = e.gamification.GetProgressSummary(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, summary.StreakActive)
}
