package repository

import (
	"context"
	"learning_progress/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

func (r *QuestionRepository) WithTx(tx *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: tx}
}

func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.DB.WithContext(ctx).Create(q).Error
}

// Upsert 按主键覆盖，题库导入脚本使用
func (r *QuestionRepository) Upsert(ctx context.Context, q *model.Question) error {
	return r.DB.WithContext(ctx).Save(q).Error
}

func (r *QuestionRepository) FindByID(ctx context.Context, id string) (*model.Question, error) {
	var q model.Question
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&q).Error
	return &q, err
}

// FindByIDs 批量加载，返回以 id 为键的 map，缺失的 id 不出现在结果中
func (r *QuestionRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*model.Question, error) {
	result := make(map[string]*model.Question, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var questions []model.Question
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&questions).Error; err != nil {
		return nil, err
	}
	for i := range questions {
		result[questions[i].ID] = &questions[i]
	}
	return result, nil
}

func (r *QuestionRepository) ListByChapter(ctx context.Context, chapterID string) ([]model.Question, error) {
	var questions []model.Question
	err := r.DB.WithContext(ctx).
		Where("chapter_id = ?", chapterID).
		Order("created_at ASC").
		Find(&questions).Error
	return questions, err
}
