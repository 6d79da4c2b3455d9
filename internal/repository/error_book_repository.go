package repository

import (
	"context"
	"learning_progress/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ErrorBookRepository struct {
	DB *gorm.DB
}

func NewErrorBookRepository(db *gorm.DB) *ErrorBookRepository {
	return &ErrorBookRepository{DB: db}
}

func (r *ErrorBookRepository) WithTx(tx *gorm.DB) *ErrorBookRepository {
	return &ErrorBookRepository{DB: tx}
}

// RecordMiss 答错：不存在则以等级 1 创建，存在则等级 +1（不设上限）
func (r *ErrorBookRepository) RecordMiss(ctx context.Context, userID uint, questionID string) error {
	entry := model.ErrorBookEntry{
		UserID:       userID,
		QuestionID:   questionID,
		MasteryLevel: 1,
	}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "question_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"mastery_level": gorm.Expr("mastery_level + 1"),
			"version":       gorm.Expr("version + 1"),
			"updated_at":    time.Now(),
		}),
	}).Create(&entry).Error
}

// ResetLevel 答对：已有条目归零，没有条目时不创建
func (r *ErrorBookRepository) ResetLevel(ctx context.Context, userID uint, questionID string) error {
	return r.DB.WithContext(ctx).Model(&model.ErrorBookEntry{}).
		Where("user_id = ? AND question_id = ?", userID, questionID).
		Updates(map[string]interface{}{
			"mastery_level": 0,
			"version":       gorm.Expr("version + 1"),
		}).Error
}

func (r *ErrorBookRepository) FindByID(ctx context.Context, id string) (*model.ErrorBookEntry, error) {
	var entry model.ErrorBookEntry
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&entry).Error
	return &entry, err
}

func (r *ErrorBookRepository) FindByUserQuestion(ctx context.Context, userID uint, questionID string) (*model.ErrorBookEntry, error) {
	var entry model.ErrorBookEntry
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND question_id = ?", userID, questionID).
		First(&entry).Error
	return &entry, err
}

// CompareAndSetLevel 仅当版本号未变时写入新等级
func (r *ErrorBookRepository) CompareAndSetLevel(ctx context.Context, id string, version, level int) (bool, error) {
	result := r.DB.WithContext(ctx).Model(&model.ErrorBookEntry{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]interface{}{
			"mastery_level": level,
			"version":       version + 1,
		})
	return result.RowsAffected > 0, result.Error
}

// CompareAndDelete 仅当版本号未变时删除
func (r *ErrorBookRepository) CompareAndDelete(ctx context.Context, id string, version int) (bool, error) {
	result := r.DB.WithContext(ctx).
		Where("id = ? AND version = ?", id, version).
		Delete(&model.ErrorBookEntry{})
	return result.RowsAffected > 0, result.Error
}

// Delete 只删除属于该用户的条目
func (r *ErrorBookRepository) Delete(ctx context.Context, id string, userID uint) (bool, error) {
	result := r.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.ErrorBookEntry{})
	return result.RowsAffected > 0, result.Error
}

// ListByUser 列出仍需复习的条目（等级 > 0），最近更新的在前
func (r *ErrorBookRepository) ListByUser(ctx context.Context, userID uint, chapterID string) ([]model.ErrorBookEntry, error) {
	var entries []model.ErrorBookEntry
	query := r.DB.WithContext(ctx).
		Preload("Question").
		Where("user_id = ? AND mastery_level > 0", userID)
	if chapterID != "" {
		query = query.Where("question_id IN (?)",
			r.DB.Model(&model.Question{}).Select("id").Where("chapter_id = ?", chapterID))
	}
	err := query.Order("updated_at DESC").Find(&entries).Error
	return entries, err
}

func (r *ErrorBookRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.ErrorBookEntry{}).
		Where("user_id = ? AND mastery_level > 0", userID).
		Count(&count).Error
	return count, err
}
