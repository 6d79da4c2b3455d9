package model

import "strings"

type DailyTaskType string

const (
	TaskLogin          DailyTaskType = "LOGIN"
	TaskCompleteLesson DailyTaskType = "COMPLETE_LESSON"
	TaskQuizScore      DailyTaskType = "QUIZ_SCORE"
)

func ParseDailyTaskType(s string) (DailyTaskType, bool) {
	switch t := DailyTaskType(strings.ToUpper(strings.TrimSpace(s))); t {
	case TaskLogin, TaskCompleteLesson, TaskQuizScore:
		return t, true
	}
	return "", false
}

// DailyTask 每日任务，(user, type, date) 唯一
// swagger:model DailyTask
type DailyTask struct {
	UUIDBase
	UserID       uint          `gorm:"not null;uniqueIndex:idx_daily_task_user_type_date" json:"userId"`
	Type         DailyTaskType `gorm:"size:30;not null;uniqueIndex:idx_daily_task_user_type_date" json:"type"`
	TaskDate     string        `gorm:"size:10;not null;uniqueIndex:idx_daily_task_user_type_date" json:"date"` // YYYY-MM-DD
	Title        string        `gorm:"size:100" json:"title"`
	TargetCount  int           `gorm:"not null;default:1" json:"targetCount"`
	CurrentCount int           `gorm:"not null;default:0" json:"currentCount"`
	XPReward     int           `gorm:"not null;default:0" json:"xpReward"`
	IsClaimed    bool          `gorm:"not null;default:false" json:"isClaimed"`
}

func (DailyTask) TableName() string {
	return "daily_tasks"
}

func (t *DailyTask) IsCompleted() bool {
	return t.CurrentCount >= t.TargetCount
}
