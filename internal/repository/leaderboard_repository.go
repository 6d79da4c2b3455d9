package repository

import (
	"context"
	"learning_progress/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LeaderboardRepository struct {
	DB *gorm.DB
}

func NewLeaderboardRepository(db *gorm.DB) *LeaderboardRepository {
	return &LeaderboardRepository{DB: db}
}

func (r *LeaderboardRepository) WithTx(tx *gorm.DB) *LeaderboardRepository {
	return &LeaderboardRepository{DB: tx}
}

// IncrementScore 对单个周期桶做原子 upsert，并发加分不会丢失
func (r *LeaderboardRepository) IncrementScore(ctx context.Context, userID uint, period model.LeaderboardPeriod, periodStart string, points int) error {
	entry := model.LeaderboardEntry{
		UserID:      userID,
		Period:      period,
		PeriodStart: periodStart,
		Score:       points,
	}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "period"}, {Name: "period_start"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"score":      gorm.Expr("score + ?", points),
			"updated_at": time.Now(),
		}),
	}).Create(&entry).Error
}

// ListBucket 同分时先到达该分数的在前，再按 user_id 稳定排序
func (r *LeaderboardRepository) ListBucket(ctx context.Context, period model.LeaderboardPeriod, periodStart string, limit int) ([]model.LeaderboardEntry, error) {
	var entries []model.LeaderboardEntry
	err := r.DB.WithContext(ctx).
		Preload("User").
		Where("period = ? AND period_start = ?", period, periodStart).
		Order("score DESC").
		Order("updated_at ASC").
		Order("user_id ASC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *LeaderboardRepository) FindEntry(ctx context.Context, userID uint, period model.LeaderboardPeriod, periodStart string) (*model.LeaderboardEntry, error) {
	var entry model.LeaderboardEntry
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND period = ? AND period_start = ?", userID, period, periodStart).
		First(&entry).Error
	return &entry, err
}

// CountAbove 桶内分数严格高于 score 的人数
func (r *LeaderboardRepository) CountAbove(ctx context.Context, period model.LeaderboardPeriod, periodStart string, score int) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.LeaderboardEntry{}).
		Where("period = ? AND period_start = ? AND score > ?", period, periodStart, score).
		Count(&count).Error
	return count, err
}
