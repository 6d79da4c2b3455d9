package model

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

// User 只保留学习进度引擎关心的字段，账号信息由认证服务维护
// swagger:model User
type User struct {
	BaseModel
	Name          string   `gorm:"size:100;not null" json:"name"`
	Email         string   `gorm:"size:100;index" json:"email"`
	Role          UserRole `gorm:"size:20;default:'student'" json:"role"`
	Avatar        string   `gorm:"size:255" json:"avatar"`
	XP            int      `gorm:"not null;default:0" json:"xp"`
	Streak        int      `gorm:"not null;default:0" json:"streak"`
	LastStudyDate string   `gorm:"size:10;not null;default:''" json:"lastStudyDate"` // YYYY-MM-DD，空表示从未学习
}

func (User) TableName() string {
	return "users"
}
