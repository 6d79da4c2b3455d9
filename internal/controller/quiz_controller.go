package controller

import (
	"learning_progress/internal/service"
	"learning_progress/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

// SubmitQuizRequest 测验提交请求
// swagger:model SubmitQuizRequest
type SubmitQuizRequest struct {
	ChapterID *string                    `json:"chapterId"`
	Answers   []service.AnswerSubmission `json:"answers" binding:"required,dive"`
	Duration  *int                       `json:"duration" binding:"omitempty,min=0"`
}

// SubmitQuiz godoc
// @Summary 提交测验
// @Description 评分并记录考试结果，答错的题目进入错题本
// @Tags 测验
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SubmitQuizRequest true "作答列表"
// @Success 200 {object} util.Response{data=service.QuizSubmissionResult} "成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 401 {object} util.Response "未授权"
// @Failure 404 {object} util.Response "题目不存在"
// @Failure 500 {object} util.Response "提交失败"
// @Router /api/quiz/submit [post]
func (c *QuizController) SubmitQuiz(ctx *gin.Context) {
	userID := util.CurrentUserID(ctx)
	if userID == 0 {
		util.Unauthorized(ctx)
		return
	}

	var req SubmitQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.QuizService.SubmitQuiz(ctx.Request.Context(), userID, &service.QuizSubmission{
		ChapterID: req.ChapterID,
		Answers:   req.Answers,
		Duration:  req.Duration,
	})
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Success(ctx, result)
}
