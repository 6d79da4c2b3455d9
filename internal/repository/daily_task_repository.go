package repository

import (
	"context"
	"learning_progress/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DailyTaskRepository struct {
	DB *gorm.DB
}

func NewDailyTaskRepository(db *gorm.DB) *DailyTaskRepository {
	return &DailyTaskRepository{DB: db}
}

func (r *DailyTaskRepository) WithTx(tx *gorm.DB) *DailyTaskRepository {
	return &DailyTaskRepository{DB: tx}
}

func (r *DailyTaskRepository) CountForDate(ctx context.Context, userID uint, date string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.DailyTask{}).
		Where("user_id = ? AND task_date = ?", userID, date).
		Count(&count).Error
	return count, err
}

// CreateIgnoreConflicts 批量插入，已存在的 (user, type, date) 静默跳过
func (r *DailyTaskRepository) CreateIgnoreConflicts(ctx context.Context, tasks []model.DailyTask) error {
	if len(tasks) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&tasks).Error
}

func (r *DailyTaskRepository) ListForDate(ctx context.Context, userID uint, date string) ([]model.DailyTask, error) {
	var tasks []model.DailyTask
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND task_date = ?", userID, date).
		Order("created_at ASC").
		Find(&tasks).Error
	return tasks, err
}

func (r *DailyTaskRepository) FindByID(ctx context.Context, id string) (*model.DailyTask, error) {
	var task model.DailyTask
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&task).Error
	return &task, err
}

// IncrementProgress 累加进度且不超过目标值。
// 先尝试整段累加，放不下时直接封顶；两条语句都只在未完成时生效。
func (r *DailyTaskRepository) IncrementProgress(ctx context.Context, userID uint, taskType model.DailyTaskType, date string, amount int) (bool, error) {
	base := r.DB.WithContext(ctx).Model(&model.DailyTask{}).
		Where("user_id = ? AND type = ? AND task_date = ?", userID, taskType, date)

	result := base.Session(&gorm.Session{}).
		Where("current_count + ? <= target_count", amount).
		Update("current_count", gorm.Expr("current_count + ?", amount))
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	result = base.Session(&gorm.Session{}).
		Where("current_count < target_count").
		Update("current_count", gorm.Expr("target_count"))
	return result.RowsAffected > 0, result.Error
}

// Claim 条件更新：只有已完成且未领取时才置为已领取
func (r *DailyTaskRepository) Claim(ctx context.Context, id string) (bool, error) {
	result := r.DB.WithContext(ctx).Model(&model.DailyTask{}).
		Where("id = ? AND is_claimed = ? AND current_count >= target_count", id, false).
		Update("is_claimed", true)
	return result.RowsAffected > 0, result.Error
}
