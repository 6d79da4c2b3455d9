package model

// ErrorBookEntry 错题本条目，(user, question) 唯一。
// 达到掌握阈值时直接删除，不存在即表示从未答错或已掌握。
// swagger:model ErrorBookEntry
type ErrorBookEntry struct {
	UUIDBase
	UserID       uint      `gorm:"not null;uniqueIndex:idx_error_book_user_question" json:"userId"`
	QuestionID   string    `gorm:"size:36;not null;uniqueIndex:idx_error_book_user_question" json:"questionId"`
	MasteryLevel int       `gorm:"not null;default:0" json:"masteryLevel"`
	Version      int       `gorm:"not null;default:0" json:"-"`
	Question     *Question `gorm:"foreignKey:QuestionID" json:"question,omitempty"`
}

func (ErrorBookEntry) TableName() string {
	return "error_books"
}
