package service

import (
	"learning_progress/internal/config"
	"learning_progress/internal/repository"
	"learning_progress/internal/testutil"
	"testing"

	"gorm.io/gorm"
)

// engine 测试用的完整服务组合
type engine struct {
	db           *gorm.DB
	clock        *testutil.Clock
	errorBook    *ErrorBookService
	gamification *GamificationService
	leaderboard  *LeaderboardService
	quiz         *QuizService
}

var defaultTasks = []config.DailyTaskConfig{
	{Type: "LOGIN", Title: "每日登录", Target: 1, XPReward: 50, AutoComplete: true},
	{Type: "COMPLETE_LESSON", Title: "完成 1 节课程", Target: 1, XPReward: 100},
	{Type: "QUIZ_SCORE", Title: "完成 1 次测验", Target: 1, XPReward: 80},
}

func newEngine(t *testing.T) *engine {
	t.Helper()

	db := testutil.DB(t)
	// 2024-03-13 是周三
	clock := testutil.NewClock(testutil.Date(2024, 3, 13))

	defs, err := DefinitionsFromConfig(defaultTasks)
	if err != nil {
		t.Fatal(err)
	}

	userRepo := repository.NewUserRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	errorBookRepo := repository.NewErrorBookRepository(db)

	e := &engine{db: db, clock: clock}
	e.errorBook = NewErrorBookService(errorBookRepo, questionRepo, 3, 5)
	e.gamification = NewGamificationService(db, userRepo, repository.NewDailyTaskRepository(db), errorBookRepo, clock, defs)
	e.leaderboard = NewLeaderboardService(db, repository.NewLeaderboardRepository(db), nil, clock, 100, 500)
	e.quiz = NewQuizService(db, questionRepo, repository.NewExamRepository(db), e.errorBook, e.gamification, e.leaderboard, 10)
	return e
}
