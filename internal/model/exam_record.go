package model

import (
	"gorm.io/datatypes"
)

// ExamRecord 一次测验提交的汇总，创建后不再修改
// swagger:model ExamRecord
type ExamRecord struct {
	UUIDBase
	UserID         uint    `gorm:"index;not null" json:"userId"`
	ChapterID      *string `gorm:"size:36;index" json:"chapterId,omitempty"`
	Score          float64 `gorm:"not null" json:"score"` // 0-100
	TotalQuestions int     `gorm:"not null" json:"totalQuestions"`
	CorrectCount   int     `gorm:"not null" json:"correctCount"`
	Duration       *int    `json:"duration,omitempty"` // 秒
}

func (ExamRecord) TableName() string {
	return "exam_records"
}

// Attempt 单题作答记录，只随提交一起创建
type Attempt struct {
	UUIDBase
	UserID       uint           `gorm:"index;not null" json:"userId"`
	QuestionID   string         `gorm:"size:36;index;not null" json:"questionId"`
	ExamRecordID string         `gorm:"size:36;index;not null" json:"examRecordId"`
	UserAnswer   datatypes.JSON `json:"userAnswer"`
	IsCorrect    bool           `gorm:"not null" json:"isCorrect"`
}

func (Attempt) TableName() string {
	return "user_attempts"
}
