package model

import (
	"encoding/json"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	SingleChoice   QuestionType = "SINGLE_CHOICE"
	MultipleChoice QuestionType = "MULTIPLE_CHOICE"
	FillBlank      QuestionType = "FILL_BLANK"
	Essay          QuestionType = "ESSAY"
)

// Question 题库中的题目，对引擎只读
// swagger:model Question
type Question struct {
	UUIDBase
	ChapterID   string         `gorm:"size:36;index" json:"chapterId,omitempty"`
	Type        QuestionType   `gorm:"size:20;not null" json:"type"`
	Content     string         `gorm:"type:text" json:"content"`
	Answer      datatypes.JSON `json:"-"` // 标准答案: string | []string | null
	Options     datatypes.JSON `json:"options,omitempty"`
	Explanation string         `gorm:"type:text" json:"explanation,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

// CanonicalAnswer 解码标准答案
func (q *Question) CanonicalAnswer() (interface{}, error) {
	if len(q.Answer) == 0 {
		return nil, nil
	}
	var v interface{}
	if err := json.Unmarshal(q.Answer, &v); err != nil {
		return nil, err
	}
	return v, nil
}
