package repository

import (
	"context"
	"learning_progress/internal/model"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// WithTx 返回绑定到事务的副本
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{DB: tx}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.DB.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).First(&user, id).Error
	return &user, err
}

func (r *UserRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// UpdateXP 原子地累加经验值
func (r *UserRepository) UpdateXP(ctx context.Context, userID uint, xp int) error {
	result := r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("xp", gorm.Expr("xp + ?", xp))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ContinueStreak 以上次学习日期做 CAS：只有 last_study_date 仍为 prevDate 时才 +1
func (r *UserRepository) ContinueStreak(ctx context.Context, userID uint, prevDate, today string) (bool, error) {
	result := r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND last_study_date = ?", userID, prevDate).
		Updates(map[string]interface{}{
			"streak":          gorm.Expr("streak + 1"),
			"last_study_date": today,
		})
	return result.RowsAffected > 0, result.Error
}

// ResetStreak 断签后从 1 开始，同样以 prevDate 做 CAS
func (r *UserRepository) ResetStreak(ctx context.Context, userID uint, prevDate, today string) (bool, error) {
	result := r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND last_study_date = ?", userID, prevDate).
		Updates(map[string]interface{}{
			"streak":          1,
			"last_study_date": today,
		})
	return result.RowsAffected > 0, result.Error
}
