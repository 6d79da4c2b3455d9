package service

import (
	"context"
	"errors"
	"fmt"
	"learning_progress/internal/config"
	"learning_progress/internal/model"
	"learning_progress/internal/repository"
	"learning_progress/internal/util"
	"learning_progress/pkg/logger"
	"learning_progress/pkg/monitoring"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DailyTaskDefinition 每日任务模板
type DailyTaskDefinition struct {
	Type         model.DailyTaskType
	Title        string
	Target       int
	XPReward     int
	AutoComplete bool // 创建时直接完成，例如每日登录
}

// DefinitionsFromConfig 校验并转换配置中的每日任务
func DefinitionsFromConfig(cfgs []config.DailyTaskConfig) ([]DailyTaskDefinition, error) {
	defs := make([]DailyTaskDefinition, 0, len(cfgs))
	for _, c := range cfgs {
		t, ok := model.ParseDailyTaskType(c.Type)
		if !ok {
			return nil, fmt.Errorf("unknown daily task type %q", c.Type)
		}
		target := c.Target
		if target < 1 {
			target = 1
		}
		defs = append(defs, DailyTaskDefinition{
			Type:         t,
			Title:        c.Title,
			Target:       target,
			XPReward:     c.XPReward,
			AutoComplete: c.AutoComplete,
		})
	}
	return defs, nil
}

// StreakState 刷新后的连续学习状态
type StreakState struct {
	Streak        int    `json:"streak"`
	LastStudyDate string `json:"lastStudyDate"`
	Changed       bool   `json:"changed"`
}

type ClaimResult struct {
	TaskID   string `json:"taskId"`
	XPReward int    `json:"xpReward"`
	TotalXP  int    `json:"totalXp"`
	Level    int    `json:"level"`
}

// ProgressSummary 个人学习进度概览
type ProgressSummary struct {
	XP             int    `json:"xp"`
	Level          int    `json:"level"`
	NextLevelXP    int    `json:"nextLevelXp"`
	Streak         int    `json:"streak"`
	StreakActive   bool   `json:"streakActive"`
	LastStudyDate  string `json:"lastStudyDate"`
	ErrorBookCount int64  `json:"errorBookCount"`
}

type GamificationService struct {
	DB            *gorm.DB
	UserRepo      *repository.UserRepository
	TaskRepo      *repository.DailyTaskRepository
	ErrorBookRepo *repository.ErrorBookRepository
	Clock         util.Clock

	mu          sync.RWMutex
	definitions []DailyTaskDefinition
}

func NewGamificationService(
	db *gorm.DB,
	userRepo *repository.UserRepository,
	taskRepo *repository.DailyTaskRepository,
	errorBookRepo *repository.ErrorBookRepository,
	clock util.Clock,
	definitions []DailyTaskDefinition,
) *GamificationService {
	return &GamificationService{
		DB:            db,
		UserRepo:      userRepo,
		TaskRepo:      taskRepo,
		ErrorBookRepo: errorBookRepo,
		Clock:         clock,
		definitions:   definitions,
	}
}

// SetDefinitions 配置热更新时替换模板，只影响之后新生成的任务
func (s *GamificationService) SetDefinitions(defs []DailyTaskDefinition) {
	s.mu.Lock()
	s.definitions = defs
	s.mu.Unlock()
}

func (s *GamificationService) Definitions() []DailyTaskDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]DailyTaskDefinition(nil), s.definitions...)
}

func CalculateLevel(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/util.XPPerLevel + 1
}

// NextLevelXP 升到下一级所需的总经验值
func NextLevelXP(xp int) int {
	return CalculateLevel(xp) * util.XPPerLevel
}

func (s *GamificationService) loadUser(ctx context.Context, userID uint) (*model.User, error) {
	if userID == 0 {
		return nil, util.ErrUnauthorized
	}
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NotFound(util.ErrUserNotFound)
		}
		return nil, err
	}
	return user, nil
}

// RefreshStreak 按日历日更新连续学习天数：
// 同一天不变，昨天学过则 +1，否则从 1 重新开始。
// 写入以 last_study_date 做 CAS，并发刷新时重读后重算。
func (s *GamificationService) RefreshStreak(ctx context.Context, userID uint) (*StreakState, error) {
	b := backoff.NewConstantBackOff(5 * time.Millisecond)

	return backoff.Retry(ctx, func() (*StreakState, error) {
		user, err := s.loadUser(ctx, userID)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		now := s.Clock.Now()
		today := util.DateString(now)
		if user.LastStudyDate == today {
			return &StreakState{Streak: user.Streak, LastStudyDate: today}, nil
		}

		var (
			ok     bool
			streak int
		)
		if user.LastStudyDate != "" && user.LastStudyDate == util.Yesterday(now) {
			streak = user.Streak + 1
			ok, err = s.UserRepo.ContinueStreak(ctx, userID, user.LastStudyDate, today)
		} else {
			streak = 1
			ok, err = s.UserRepo.ResetStreak(ctx, userID, user.LastStudyDate, today)
		}
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if !ok {
			return nil, errors.New("streak changed concurrently")
		}
		return &StreakState{Streak: streak, LastStudyDate: today, Changed: true}, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(3))
}

// EnsureDailyTasks 当天已有任务时不做任何事，否则按模板生成。
// 唯一索引 + 冲突忽略保证并发首次请求不会产生重复任务。
func (s *GamificationService) EnsureDailyTasks(ctx context.Context, userID uint) error {
	if userID == 0 {
		return util.ErrUnauthorized
	}
	today := util.DateString(s.Clock.Now())

	count, err := s.TaskRepo.CountForDate(ctx, userID, today)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	defs := s.Definitions()
	tasks := make([]model.DailyTask, 0, len(defs))
	for _, d := range defs {
		task := model.DailyTask{
			UserID:      userID,
			Type:        d.Type,
			TaskDate:    today,
			Title:       d.Title,
			TargetCount: d.Target,
			XPReward:    d.XPReward,
		}
		if d.AutoComplete {
			task.CurrentCount = d.Target
		}
		tasks = append(tasks, task)
	}
	return s.TaskRepo.CreateIgnoreConflicts(ctx, tasks)
}

// ListDailyTasks 返回今天的任务，按模板顺序排列
func (s *GamificationService) ListDailyTasks(ctx context.Context, userID uint) ([]model.DailyTask, error) {
	if err := s.EnsureDailyTasks(ctx, userID); err != nil {
		return nil, err
	}
	tasks, err := s.TaskRepo.ListForDate(ctx, userID, util.DateString(s.Clock.Now()))
	if err != nil {
		return nil, err
	}

	order := make(map[model.DailyTaskType]int)
	for i, d := range s.Definitions() {
		order[d.Type] = i
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		oi, ok := order[tasks[i].Type]
		if !ok {
			oi = len(order)
		}
		oj, ok := order[tasks[j].Type]
		if !ok {
			oj = len(order)
		}
		return oi < oj
	})
	return tasks, nil
}

// TrackProgress 推进今天某类任务的进度，封顶到目标值；
// 没有对应任务或已领取时不做任何事
func (s *GamificationService) TrackProgress(ctx context.Context, userID uint, taskType model.DailyTaskType, amount int) error {
	if userID == 0 {
		return util.ErrUnauthorized
	}
	// 缺省步长为 1
	if amount < 1 {
		amount = 1
	}
	today := util.DateString(s.Clock.Now())

	changed, err := s.TaskRepo.IncrementProgress(ctx, userID, taskType, today, amount)
	if err != nil {
		return err
	}
	if changed {
		logger.Log.Debug("Daily task progress",
			zap.Uint("userID", userID),
			zap.String("type", string(taskType)),
			zap.Int("amount", amount))
	}
	return nil
}

// ClaimReward 领取奖励：标记已领取与增加经验值在同一事务内完成
func (s *GamificationService) ClaimReward(ctx context.Context, userID uint, taskID string) (*ClaimResult, error) {
	if userID == 0 {
		return nil, util.ErrUnauthorized
	}

	task, err := s.TaskRepo.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NotFound(util.ErrTaskNotFound)
		}
		return nil, err
	}
	if task.UserID != userID {
		return nil, util.ErrNotTaskOwner
	}
	if !task.IsCompleted() {
		return nil, util.ErrTaskNotCompleted
	}
	if task.IsClaimed {
		return nil, util.ErrRewardAlreadyClaimed
	}

	var user *model.User
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.TaskRepo.WithTx(tx).Claim(ctx, task.ID)
		if err != nil {
			return err
		}
		if !ok {
			// 并发领取时另一方已经成功
			return util.ErrRewardAlreadyClaimed
		}

		userRepo := s.UserRepo.WithTx(tx)
		if err := userRepo.UpdateXP(ctx, userID, task.XPReward); err != nil {
			return err
		}
		user, err = userRepo.FindByID(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	monitoring.RewardsClaimed.WithLabelValues(string(task.Type)).Inc()
	logger.Log.Info("Daily task reward claimed",
		zap.Uint("userID", userID),
		zap.String("taskID", task.ID),
		zap.Int("xp", task.XPReward))

	return &ClaimResult{
		TaskID:   task.ID,
		XPReward: task.XPReward,
		TotalXP:  user.XP,
		Level:    CalculateLevel(user.XP),
	}, nil
}

func (s *GamificationService) GetProgressSummary(ctx context.Context, userID uint) (*ProgressSummary, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	count, err := s.ErrorBookRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	active := user.LastStudyDate != "" &&
		(user.LastStudyDate == util.DateString(now) || user.LastStudyDate == util.Yesterday(now))

	return &ProgressSummary{
		XP:             user.XP,
		Level:          CalculateLevel(user.XP),
		NextLevelXP:    NextLevelXP(user.XP),
		Streak:         user.Streak,
		StreakActive:   active,
		LastStudyDate:  user.LastStudyDate,
		ErrorBookCount: count,
	}, nil
}
