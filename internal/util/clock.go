package util

import "time"

// Clock 为日历日计算提供当前时间，测试中可替换
type Clock interface {
	Now() time.Time
}

type SystemClock struct {
	Location *time.Location
}

func NewSystemClock(loc *time.Location) SystemClock {
	if loc == nil {
		loc = time.Local
	}
	return SystemClock{Location: loc}
}

func (c SystemClock) Now() time.Time {
	return time.Now().In(c.Location)
}

// DateString 按时钟所在时区格式化日历日
func DateString(t time.Time) string {
	return t.Format(DateFormat)
}

// Yesterday 返回前一个日历日（按日期而非 24 小时窗口）
func Yesterday(t time.Time) string {
	y, m, d := t.Date()
	return time.Date(y, m, d-1, 0, 0, 0, 0, t.Location()).Format(DateFormat)
}

// StartOfWeek 最近的周一
func StartOfWeek(t time.Time) time.Time {
	y, m, d := t.Date()
	offset := (int(t.Weekday()) + 6) % 7
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}

func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}
