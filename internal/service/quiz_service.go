package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"learning_progress/internal/model"
	"learning_progress/internal/repository"
	"learning_progress/internal/util"
	"learning_progress/pkg/logger"
	"learning_progress/pkg/monitoring"
	"learning_progress/pkg/tracing"
	"strconv"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AnswerSubmission struct {
	QuestionID string      `json:"questionId" binding:"required"`
	UserAnswer interface{} `json:"userAnswer"` // string | []string | number | null
}

type QuizSubmission struct {
	ChapterID *string            `json:"chapterId"`
	Answers   []AnswerSubmission `json:"answers"`
	Duration  *int               `json:"duration"` // 秒
}

type QuizSubmissionResult struct {
	ExamRecordID   string          `json:"examRecordId"`
	Score          float64         `json:"score"`
	TotalQuestions int             `json:"totalQuestions"`
	CorrectCount   int             `json:"correctCount"`
	Results        map[string]bool `json:"results"`
	// 主观题按错误计分，等待人工批改
	PendingReview []string `json:"pendingReview,omitempty"`
}

type QuizService struct {
	DB             *gorm.DB
	QuestionRepo   *repository.QuestionRepository
	ExamRepo       *repository.ExamRepository
	ErrorBook      *ErrorBookService
	Gamification   *GamificationService
	Leaderboard    *LeaderboardService
	pointsPerRight atomic.Int64
}

func NewQuizService(
	db *gorm.DB,
	questionRepo *repository.QuestionRepository,
	examRepo *repository.ExamRepository,
	errorBook *ErrorBookService,
	gamification *GamificationService,
	leaderboard *LeaderboardService,
	pointsPerCorrect int,
) *QuizService {
	s := &QuizService{
		DB:           db,
		QuestionRepo: questionRepo,
		ExamRepo:     examRepo,
		ErrorBook:    errorBook,
		Gamification: gamification,
		Leaderboard:  leaderboard,
	}
	s.SetPointsPerCorrect(pointsPerCorrect)
	return s
}

// SetPointsPerCorrect 支持配置热更新
func (s *QuizService) SetPointsPerCorrect(points int) {
	if points < 0 {
		points = 0
	}
	s.pointsPerRight.Store(int64(points))
}

func (s *QuizService) PointsPerCorrect() int {
	return int(s.pointsPerRight.Load())
}

func validateSubmission(sub *QuizSubmission) error {
	if sub.Duration != nil && *sub.Duration < 0 {
		return fmt.Errorf("%w: duration must not be negative", util.ErrValidation)
	}
	seen := make(map[string]bool, len(sub.Answers))
	for i, a := range sub.Answers {
		if a.QuestionID == "" {
			return fmt.Errorf("%w: answers[%d].questionId is required", util.ErrValidation, i)
		}
		if seen[a.QuestionID] {
			return fmt.Errorf("%w: question %s answered more than once", util.ErrValidation, a.QuestionID)
		}
		seen[a.QuestionID] = true
		if !ValidAnswer(a.UserAnswer) {
			return fmt.Errorf("%w: answers[%d].userAnswer has an unsupported shape", util.ErrValidation, i)
		}
	}
	return nil
}

// SubmitQuiz 评分并在一个事务内写入考试记录、作答记录和错题本；
// 提交成功后再尽力更新排行榜、连续学习和每日任务，这些步骤失败只记录日志。
func (s *QuizService) SubmitQuiz(ctx context.Context, userID uint, sub *QuizSubmission) (*QuizSubmissionResult, error) {
	ctx, span := tracing.Start(ctx, "quiz.submit",
		attribute.Int("user.id", int(userID)),
		attribute.Int("quiz.answers", len(sub.Answers)))
	defer span.End()

	result, err := s.submit(ctx, userID, sub)
	if err != nil {
		tracing.RecordError(span, err)
		outcome := "rejected"
		if errors.Is(err, util.ErrTransaction) {
			outcome = "failed"
		}
		monitoring.QuizSubmissions.WithLabelValues(outcome).Inc()
		return nil, err
	}
	monitoring.QuizSubmissions.WithLabelValues("ok").Inc()
	span.SetAttributes(attribute.Int("quiz.correct", result.CorrectCount))

	// 请求取消不应影响已经提交的结果之后的步骤
	s.applyRewards(context.WithoutCancel(ctx), userID, result.CorrectCount)
	return result, nil
}

func (s *QuizService) submit(ctx context.Context, userID uint, sub *QuizSubmission) (*QuizSubmissionResult, error) {
	if userID == 0 {
		return nil, util.ErrUnauthorized
	}
	if sub == nil {
		return nil, fmt.Errorf("%w: empty submission", util.ErrValidation)
	}
	if err := validateSubmission(sub); err != nil {
		return nil, err
	}

	ids := make([]string, len(sub.Answers))
	for i, a := range sub.Answers {
		ids[i] = a.QuestionID
	}
	questions, err := s.QuestionRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	// 任何一个题目不存在都拒绝整批提交
	for _, id := range ids {
		if _, ok := questions[id]; !ok {
			return nil, util.NotFound(fmt.Errorf("question not found: %s", id))
		}
	}

	result := &QuizSubmissionResult{
		TotalQuestions: len(sub.Answers),
		Results:        make(map[string]bool, len(sub.Answers)),
	}
	attempts := make([]model.Attempt, 0, len(sub.Answers))
	for _, a := range sub.Answers {
		q := questions[a.QuestionID]
		correct := GradeAnswer(q, a.UserAnswer)
		if correct {
			result.CorrectCount++
		}
		if NeedsManualReview(q) {
			result.PendingReview = append(result.PendingReview, q.ID)
		}
		result.Results[q.ID] = correct
		monitoring.AnswersGraded.WithLabelValues(string(q.Type), strconv.FormatBool(correct)).Inc()

		raw, err := json.Marshal(a.UserAnswer)
		if err != nil {
			return nil, fmt.Errorf("%w: answer for %s is not serializable", util.ErrValidation, q.ID)
		}
		attempts = append(attempts, model.Attempt{
			UserID:     userID,
			QuestionID: q.ID,
			UserAnswer: datatypes.JSON(raw),
			IsCorrect:  correct,
		})
	}
	if result.TotalQuestions > 0 {
		result.Score = float64(result.CorrectCount) / float64(result.TotalQuestions) * 100
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		examRepo := s.ExamRepo.WithTx(tx)
		record := &model.ExamRecord{
			UserID:         userID,
			ChapterID:      sub.ChapterID,
			Score:          result.Score,
			TotalQuestions: result.TotalQuestions,
			CorrectCount:   result.CorrectCount,
			Duration:       sub.Duration,
		}
		if err := examRepo.CreateRecord(ctx, record); err != nil {
			return err
		}
		for i := range attempts {
			attempts[i].ExamRecordID = record.ID
		}
		if err := examRepo.CreateAttempts(ctx, attempts); err != nil {
			return err
		}
		if err := s.ErrorBook.RecordSubmission(ctx, tx, userID, result.Results); err != nil {
			return err
		}
		result.ExamRecordID = record.ID
		return nil
	})
	if err != nil {
		logger.Log.Error("Quiz transaction rolled back",
			zap.Uint("userID", userID),
			zap.Int("answers", len(sub.Answers)),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", util.ErrTransaction, err)
	}

	logger.Log.Info("Quiz submitted",
		zap.Uint("userID", userID),
		zap.String("examRecordID", result.ExamRecordID),
		zap.Int("correct", result.CorrectCount),
		zap.Int("total", result.TotalQuestions))
	return result, nil
}

// applyRewards 事务之后的各步骤互相独立，任何一步失败都不影响评分结果
func (s *QuizService) applyRewards(ctx context.Context, userID uint, correctCount int) {
	if points := correctCount * s.PointsPerCorrect(); points > 0 {
		s.bestEffort(ctx, "leaderboard", userID, func(ctx context.Context) error {
			return s.Leaderboard.UpdateScore(ctx, userID, points)
		})
	}
	s.bestEffort(ctx, "streak", userID, func(ctx context.Context) error {
		_, err := s.Gamification.RefreshStreak(ctx, userID)
		return err
	})
	s.bestEffort(ctx, "daily_tasks", userID, func(ctx context.Context) error {
		if err := s.Gamification.EnsureDailyTasks(ctx, userID); err != nil {
			return err
		}
		return s.Gamification.TrackProgress(ctx, userID, model.TaskQuizScore, 1)
	})
}

func (s *QuizService) bestEffort(ctx context.Context, step string, userID uint, fn func(context.Context) error) {
	ctx, span := tracing.Start(ctx, "quiz.reward."+step)
	defer span.End()

	if err := fn(ctx); err != nil {
		tracing.RecordError(span, err)
		monitoring.BestEffortFailures.WithLabelValues(step).Inc()
		logger.Log.Warn("Best-effort step failed",
			zap.String("step", step),
			zap.Uint("userID", userID),
			zap.Error(err))
	}
}
