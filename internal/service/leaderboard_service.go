package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"learning_progress/internal/model"
	"learning_progress/internal/repository"
	"learning_progress/internal/util"
	"learning_progress/pkg/logger"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PeriodStart 由当前时间推导周期桶的起始日，读写两侧使用同一个函数
func PeriodStart(period model.LeaderboardPeriod, now time.Time) string {
	switch period {
	case model.PeriodWeekly:
		return util.DateString(util.StartOfWeek(now))
	case model.PeriodMonthly:
		return util.DateString(util.StartOfMonth(now))
	default:
		return model.AllTimeStart
	}
}

// LeaderboardRow 榜单中的一行，只包含公开的用户信息
type LeaderboardRow struct {
	Rank   int    `json:"rank"`
	UserID uint   `json:"userId"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Score  int    `json:"score"`
}

type UserRank struct {
	Period      model.LeaderboardPeriod `json:"period"`
	PeriodStart string                  `json:"periodStart"`
	Rank        int                     `json:"rank"`
	Score       int                     `json:"score"`
}

type LeaderboardService struct {
	DB           *gorm.DB
	Repo         *repository.LeaderboardRepository
	Cache        *repository.LeaderboardCache
	Clock        util.Clock
	DefaultLimit int
	MaxLimit     int
}

func NewLeaderboardService(db *gorm.DB, repo *repository.LeaderboardRepository, cache *repository.LeaderboardCache, clock util.Clock, defaultLimit, maxLimit int) *LeaderboardService {
	if defaultLimit <= 0 {
		defaultLimit = util.DefaultLeaderboardLimit
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}
	return &LeaderboardService{
		DB:           db,
		Repo:         repo,
		Cache:        cache,
		Clock:        clock,
		DefaultLimit: defaultLimit,
		MaxLimit:     maxLimit,
	}
}

// UpdateScore 在一个事务内同时给周榜、月榜、总榜加分
func (s *LeaderboardService) UpdateScore(ctx context.Context, userID uint, points int) error {
	if userID == 0 {
		return util.ErrUnauthorized
	}
	if points <= 0 {
		return fmt.Errorf("%w: points must be positive", util.ErrValidation)
	}

	now := s.Clock.Now()
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.Repo.WithTx(tx)
		for _, period := range model.AllPeriods {
			if err := repo.IncrementScore(ctx, userID, period, PeriodStart(period, now), points); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, period := range model.AllPeriods {
		if err := s.Cache.Invalidate(ctx, period, PeriodStart(period, now)); err != nil {
			logger.Log.Warn("Failed to invalidate leaderboard cache",
				zap.String("period", string(period)),
				zap.Error(err))
		}
	}
	return nil
}

// GetLeaderboard 当前周期桶的前 limit 名，名次按结果位置从 1 开始
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, period model.LeaderboardPeriod, limit int) ([]LeaderboardRow, error) {
	limit = util.ClampLimit(limit, s.DefaultLimit, s.MaxLimit)
	start := PeriodStart(period, s.Clock.Now())

	if cached, err := s.Cache.Get(ctx, period, start, limit); err != nil {
		logger.Log.Warn("Leaderboard cache read failed", zap.Error(err))
	} else if cached != nil {
		var rows []LeaderboardRow
		if err := json.Unmarshal(cached, &rows); err == nil {
			return rows, nil
		}
	}

	entries, err := s.Repo.ListBucket(ctx, period, start, limit)
	if err != nil {
		return nil, err
	}

	rows := make([]LeaderboardRow, 0, len(entries))
	for i, e := range entries {
		row := LeaderboardRow{
			Rank:   i + 1,
			UserID: e.UserID,
			Score:  e.Score,
		}
		if e.User != nil {
			row.Name = e.User.Name
			row.Avatar = e.User.Avatar
		}
		rows = append(rows, row)
	}

	if data, err := json.Marshal(rows); err == nil {
		if err := s.Cache.Set(ctx, period, start, limit, data); err != nil {
			logger.Log.Warn("Leaderboard cache write failed", zap.Error(err))
		}
	}
	return rows, nil
}

// GetUserRank 名次 = 同桶内分数严格更高的人数 + 1，同分同名次
func (s *LeaderboardService) GetUserRank(ctx context.Context, userID uint, period model.LeaderboardPeriod) (*UserRank, error) {
	if userID == 0 {
		return nil, util.ErrUnauthorized
	}
	start := PeriodStart(period, s.Clock.Now())

	entry, err := s.Repo.FindEntry(ctx, userID, period, start)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNoRank
		}
		return nil, err
	}

	above, err := s.Repo.CountAbove(ctx, period, start, entry.Score)
	if err != nil {
		return nil, err
	}
	return &UserRank{
		Period:      period,
		PeriodStart: start,
		Rank:        int(above) + 1,
		Score:       entry.Score,
	}, nil
}
