package model

import "strings"

type LeaderboardPeriod string

const (
	PeriodWeekly  LeaderboardPeriod = "WEEKLY"
	PeriodMonthly LeaderboardPeriod = "MONTHLY"
	PeriodAllTime LeaderboardPeriod = "ALL_TIME"
)

// AllTimeStart 总榜的固定起始日期
const AllTimeStart = "1970-01-01"

var AllPeriods = []LeaderboardPeriod{PeriodWeekly, PeriodMonthly, PeriodAllTime}

// ParseLeaderboardPeriod 空字符串默认周榜
func ParseLeaderboardPeriod(s string) (LeaderboardPeriod, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return PeriodWeekly, true
	}
	switch p := LeaderboardPeriod(strings.ReplaceAll(s, "-", "_")); p {
	case PeriodWeekly, PeriodMonthly, PeriodAllTime:
		return p, true
	}
	return "", false
}

// LeaderboardEntry 某个周期桶内的积分，(user, period, periodStart) 唯一
// swagger:model LeaderboardEntry
type LeaderboardEntry struct {
	UUIDBase
	UserID      uint              `gorm:"not null;uniqueIndex:idx_leaderboard_user_period_start" json:"userId"`
	Period      LeaderboardPeriod `gorm:"size:20;not null;uniqueIndex:idx_leaderboard_user_period_start;index:idx_leaderboard_bucket" json:"period"`
	PeriodStart string            `gorm:"size:10;not null;uniqueIndex:idx_leaderboard_user_period_start;index:idx_leaderboard_bucket" json:"periodStart"`
	Score       int               `gorm:"not null;default:0" json:"score"`
	User        *User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (LeaderboardEntry) TableName() string {
	return "leaderboard_entries"
}
