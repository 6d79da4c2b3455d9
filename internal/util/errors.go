package util

import "errors"

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	// ErrTransaction 评分事务回滚，调用方只看到一个提交失败
	ErrTransaction = errors.New("failed to submit quiz")

	ErrUserNotFound  = errors.New("用户不存在")
	ErrEntryNotFound = errors.New("error book entry not found")
	ErrTaskNotFound  = errors.New("task not found")
	ErrNoRank        = errors.New("user has no rank in this period")

	ErrNotTaskOwner         = errors.New("task does not belong to user")
	ErrTaskNotCompleted     = errors.New("task not completed")
	ErrRewardAlreadyClaimed = errors.New("reward already claimed")
)

// NotFound 把具体的"不存在"错误同时标记为 ErrNotFound
func NotFound(err error) error {
	return &notFoundError{err: err}
}

type notFoundError struct {
	err error
}

func (e *notFoundError) Error() string { return e.err.Error() }

func (e *notFoundError) Unwrap() []error { return []error{e.err, ErrNotFound} }
