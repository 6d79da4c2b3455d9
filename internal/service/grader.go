package service

import (
	"encoding/json"
	"fmt"
	"learning_progress/internal/model"
	"sort"
	"strconv"
	"strings"
)

// GradeAnswer 判定一次作答是否正确，不做任何 I/O。
// 提交为空、标准答案无法解析或题型不支持自动评分时一律判错。
func GradeAnswer(q *model.Question, submitted interface{}) bool {
	if q == nil || submitted == nil {
		return false
	}
	canonical, err := q.CanonicalAnswer()
	if err != nil || canonical == nil {
		return false
	}

	switch q.Type {
	case model.SingleChoice:
		return toString(submitted) == toString(canonical)
	case model.MultipleChoice:
		return sameSet(toStringSlice(canonical), toStringSlice(submitted))
	case model.FillBlank:
		return matchBlank(canonical, strings.TrimSpace(toString(submitted)))
	default:
		// 主观题留给人工批改
		return false
	}
}

// NeedsManualReview 主观题不参与自动评分
func NeedsManualReview(q *model.Question) bool {
	return q != nil && q.Type == model.Essay
}

// ValidAnswer 作答只能是 null、字符串、数字，或由字符串/数字组成的数组
func ValidAnswer(v interface{}) bool {
	switch t := v.(type) {
	case nil, string, []string:
		return true
	case []interface{}:
		for _, e := range t {
			if !isScalarAnswer(e) {
				return false
			}
		}
		return true
	default:
		return isNumber(v)
	}
}

func isScalarAnswer(v interface{}) bool {
	if _, ok := v.(string); ok {
		return true
	}
	return isNumber(v)
}

func isNumber(v interface{}) bool {
	switch v.(type) {
	case float64, float32, int, int32, int64, uint, json.Number:
		return true
	}
	return false
}

func matchBlank(canonical interface{}, answer string) bool {
	if list, ok := canonical.([]interface{}); ok {
		// 备选答案集合只比较字符串元素
		for _, v := range list {
			if s, ok := v.(string); ok && s == answer {
				return true
			}
		}
		return false
	}
	return strings.TrimSpace(toString(canonical)) == answer
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa := append([]string(nil), a...)
	sb := append([]string(nil), b...)
	sort.Strings(sa)
	sort.Strings(sb)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	case []interface{}:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = toString(e)
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(t, ",")
	default:
		return fmt.Sprint(t)
	}
}

// toStringSlice 单个值视为只有一个元素的数组
func toStringSlice(v interface{}) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []interface{}:
		out := make([]string, len(t))
		for i, e := range t {
			out[i] = toString(e)
		}
		return out
	default:
		return []string{toString(v)}
	}
}
