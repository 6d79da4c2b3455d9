package service

import (
	"context"
	"errors"
	"fmt"
	"learning_progress/internal/model"
	"learning_progress/internal/repository"
	"learning_progress/internal/util"
	"learning_progress/pkg/logger"
	"learning_progress/pkg/monitoring"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// errVersionConflict 版本号被并发写入抢先，需要重读后重试
var errVersionConflict = errors.New("error book entry changed concurrently")

type ErrorBookService struct {
	Repo         *repository.ErrorBookRepository
	QuestionRepo *repository.QuestionRepository
	threshold    int
	maxRetries   uint
}

func NewErrorBookService(repo *repository.ErrorBookRepository, questionRepo *repository.QuestionRepository, threshold, maxRetries int) *ErrorBookService {
	if threshold < 1 {
		threshold = util.DefaultMasteryThreshold
	}
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &ErrorBookService{
		Repo:         repo,
		QuestionRepo: questionRepo,
		threshold:    threshold,
		maxRetries:   uint(maxRetries),
	}
}

// ReviewResult 复习结果，Mastered 为 true 时条目已被删除
type ReviewResult struct {
	EntryID      string `json:"entryId"`
	QuestionID   string `json:"questionId"`
	Correct      bool   `json:"correct"`
	MasteryLevel int    `json:"masteryLevel"`
	Mastered     bool   `json:"mastered"`
}

// NextReviewLevel 复习路径的状态转移：答对升一级，达到阈值即毕业；答错清零
func NextReviewLevel(current int, correct bool, threshold int) (int, bool) {
	if !correct {
		return 0, false
	}
	next := current + 1
	if next >= threshold {
		return next, true
	}
	return next, false
}

// RecordSubmission 在测验事务内更新错题本：答对归零，答错建条目或 +1。
// tx 必须是提交事务本身，任何一步失败都会让整次提交回滚。
func (s *ErrorBookService) RecordSubmission(ctx context.Context, tx *gorm.DB, userID uint, graded map[string]bool) error {
	repo := s.Repo.WithTx(tx)

	// 固定顺序，避免并发提交时交叉加锁
	ids := make([]string, 0, len(graded))
	for id := range graded {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		var err error
		if graded[id] {
			err = repo.ResetLevel(ctx, userID, id)
		} else {
			err = repo.RecordMiss(ctx, userID, id)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ReviewAnswer 对错题本中的题目重新作答并评分
func (s *ErrorBookService) ReviewAnswer(ctx context.Context, userID uint, entryID string, answer interface{}) (*ReviewResult, error) {
	if !ValidAnswer(answer) {
		return nil, fmt.Errorf("%w: answer has an unsupported shape", util.ErrValidation)
	}
	entry, err := s.ownedEntry(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}
	question, err := s.QuestionRepo.FindByID(ctx, entry.QuestionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NotFound(errors.New("question not found"))
		}
		return nil, err
	}
	return s.ReviewEntry(ctx, userID, entryID, GradeAnswer(question, answer))
}

// ReviewEntry 复习路径。读取-计算-CAS 写入，版本冲突时退避重试。
func (s *ErrorBookService) ReviewEntry(ctx context.Context, userID uint, entryID string, correct bool) (*ReviewResult, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond

	return backoff.Retry(ctx, func() (*ReviewResult, error) {
		entry, err := s.ownedEntry(ctx, userID, entryID)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		level, mastered := NextReviewLevel(entry.MasteryLevel, correct, s.threshold)
		result := &ReviewResult{
			EntryID:      entry.ID,
			QuestionID:   entry.QuestionID,
			Correct:      correct,
			MasteryLevel: level,
			Mastered:     mastered,
		}

		var ok bool
		if mastered {
			ok, err = s.Repo.CompareAndDelete(ctx, entry.ID, entry.Version)
		} else {
			ok, err = s.Repo.CompareAndSetLevel(ctx, entry.ID, entry.Version, level)
		}
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if !ok {
			return nil, errVersionConflict
		}

		if mastered {
			monitoring.ErrorBookGraduations.Inc()
			logger.Log.Info("Error book entry mastered",
				zap.Uint("userID", userID),
				zap.String("questionID", entry.QuestionID))
		}
		return result, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(s.maxRetries))
}

// ownedEntry 不存在或不属于当前用户时都返回 NotFound
func (s *ErrorBookService) ownedEntry(ctx context.Context, userID uint, entryID string) (*model.ErrorBookEntry, error) {
	if userID == 0 {
		return nil, util.ErrUnauthorized
	}
	entry, err := s.Repo.FindByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NotFound(util.ErrEntryNotFound)
		}
		return nil, err
	}
	if entry.UserID != userID {
		return nil, util.NotFound(util.ErrEntryNotFound)
	}
	return entry, nil
}

// ListEntries 列出待复习的错题，chapterID 为空时不过滤
func (s *ErrorBookService) ListEntries(ctx context.Context, userID uint, chapterID string) ([]model.ErrorBookEntry, error) {
	if userID == 0 {
		return nil, util.ErrUnauthorized
	}
	entries, err := s.Repo.ListByUser(ctx, userID, chapterID)
	if err != nil {
		return nil, err
	}

	// 题目被删掉的条目不展示
	out := entries[:0]
	for _, e := range entries {
		if e.Question != nil {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *ErrorBookService) RemoveEntry(ctx context.Context, userID uint, entryID string) error {
	if userID == 0 {
		return util.ErrUnauthorized
	}
	ok, err := s.Repo.Delete(ctx, entryID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return util.NotFound(util.ErrEntryNotFound)
	}
	return nil
}

func (s *ErrorBookService) CountEntries(ctx context.Context, userID uint) (int64, error) {
	return s.Repo.CountByUser(ctx, userID)
}
