package controller

import (
	"encoding/json"
	"learning_progress/internal/service"
	"learning_progress/internal/util"

	"github.com/gin-gonic/gin"
)

type ErrorBookController struct {
	ErrorBookService *service.ErrorBookService
}

func NewErrorBookController(errorBookService *service.ErrorBookService) *ErrorBookController {
	return &ErrorBookController{ErrorBookService: errorBookService}
}

// ReviewRequest 复习作答，二选一：直接给出对错或提交答案由服务端评分
type ReviewRequest struct {
	Correct *bool           `json:"correct"`
	Answer  json.RawMessage `json:"answer" swaggertype:"object"`
}

// GetErrorBook godoc
// @Summary 获取错题本
// @Tags 错题本
// @Produce json
// @Security BearerAuth
// @Param chapterId query string false "章节ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/error-book [get]
func (c *ErrorBookController) GetErrorBook(ctx *gin.Context) {
	entries, err := c.ErrorBookService.ListEntries(ctx.Request.Context(), util.CurrentUserID(ctx), ctx.Query("chapterId"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"entries": entries,
		"total":   len(entries),
	})
}

// ReviewEntry godoc
// @Summary 复习错题
// @Description 连续答对达到掌握阈值后条目被移除，返回 mastered=true
// @Tags 错题本
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "错题ID"
// @Param request body ReviewRequest true "作答"
// @Success 200 {object} util.Response{data=service.ReviewResult} "成功"
// @Failure 404 {object} util.Response "错题不存在"
// @Router /api/error-book/{id}/review [post]
func (c *ErrorBookController) ReviewEntry(ctx *gin.Context) {
	userID := util.CurrentUserID(ctx)
	if userID == 0 {
		util.Unauthorized(ctx)
		return
	}

	var req ReviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	var (
		result *service.ReviewResult
		err    error
	)
	switch {
	case req.Correct != nil:
		result, err = c.ErrorBookService.ReviewEntry(ctx.Request.Context(), userID, ctx.Param("id"), *req.Correct)
	case len(req.Answer) > 0:
		var answer interface{}
		if err := json.Unmarshal(req.Answer, &answer); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
		result, err = c.ErrorBookService.ReviewAnswer(ctx.Request.Context(), userID, ctx.Param("id"), answer)
	default:
		util.BadRequest(ctx, "correct 或 answer 必须提供一个")
		return
	}
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// RemoveEntry godoc
// @Summary 移除错题
// @Tags 错题本
// @Security BearerAuth
// @Param id path string true "错题ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/error-book/{id} [delete]
func (c *ErrorBookController) RemoveEntry(ctx *gin.Context) {
	if err := c.ErrorBookService.RemoveEntry(ctx.Request.Context(), util.CurrentUserID(ctx), ctx.Param("id")); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
