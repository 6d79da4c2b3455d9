package repository

import (
	"context"
	"learning_progress/internal/model"

	"gorm.io/gorm"
)

type ExamRepository struct {
	DB *gorm.DB
}

func NewExamRepository(db *gorm.DB) *ExamRepository {
	return &ExamRepository{DB: db}
}

func (r *ExamRepository) WithTx(tx *gorm.DB) *ExamRepository {
	return &ExamRepository{DB: tx}
}

func (r *ExamRepository) CreateRecord(ctx context.Context, record *model.ExamRecord) error {
	return r.DB.WithContext(ctx).Create(record).Error
}

func (r *ExamRepository) CreateAttempts(ctx context.Context, attempts []model.Attempt) error {
	if len(attempts) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).CreateInBatches(attempts, 100).Error
}

func (r *ExamRepository) FindRecordByID(ctx context.Context, id string) (*model.ExamRecord, error) {
	var record model.ExamRecord
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&record).Error
	return &record, err
}

func (r *ExamRepository) ListAttemptsByRecord(ctx context.Context, recordID string) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.DB.WithContext(ctx).
		Where("exam_record_id = ?", recordID).
		Order("created_at ASC").
		Find(&attempts).Error
	return attempts, err
}

func (r *ExamRepository) CountRecordsByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.ExamRecord{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
