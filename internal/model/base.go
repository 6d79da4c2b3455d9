package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// swagger:model
type BaseModel struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// UUIDBase 引擎记录使用的主键，不带软删除：
// 错题本毕业、排行榜 upsert 都依赖唯一索引上没有"幽灵行"
type UUIDBase struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b *UUIDBase) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return
}

func GenerateUUID() string {
	return uuid.New().String()
}

// Models 返回需要迁移的全部模型
func Models() []interface{} {
	return []interface{}{
		&User{},
		&Question{},
		&ExamRecord{},
		&Attempt{},
		&ErrorBookEntry{},
		&DailyTask{},
		&LeaderboardEntry{},
	}
}
