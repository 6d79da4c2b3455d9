package util

import (
	"strconv"
	"strings"
)

// ParseIntDefault 解析查询参数，失败或为空时返回默认值
func ParseIntDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// ClampLimit 把分页大小限制在 (0, max]，非正数取默认值
func ClampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
