package controller

import (
	"learning_progress/internal/service"
	"learning_progress/internal/util"

	"github.com/gin-gonic/gin"
)

// ProgressController 每日任务、连续学习和个人进度
type ProgressController struct {
	Gamification *service.GamificationService
}

func NewProgressController(gamification *service.GamificationService) *ProgressController {
	return &ProgressController{Gamification: gamification}
}

// GetDailyTasks godoc
// @Summary 获取今日任务
// @Description 当天第一次访问时生成任务
// @Tags 每日任务
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response "成功"
// @Router /api/tasks/daily [get]
func (c *ProgressController) GetDailyTasks(ctx *gin.Context) {
	tasks, err := c.Gamification.ListDailyTasks(ctx.Request.Context(), util.CurrentUserID(ctx))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"tasks": tasks})
}

// ClaimReward godoc
// @Summary 领取任务奖励
// @Tags 每日任务
// @Produce json
// @Security BearerAuth
// @Param id path string true "任务ID"
// @Success 200 {object} util.Response{data=service.ClaimResult} "成功"
// @Failure 403 {object} util.Response "不是自己的任务"
// @Failure 409 {object} util.Response "未完成或已领取"
// @Router /api/tasks/daily/{id}/claim [post]
func (c *ProgressController) ClaimReward(ctx *gin.Context) {
	result, err := c.Gamification.ClaimReward(ctx.Request.Context(), util.CurrentUserID(ctx), ctx.Param("id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// RefreshStreak godoc
// @Summary 记录今日学习
// @Description 刷新连续学习天数，并生成今日任务（登录任务自动完成）
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.StreakState} "成功"
// @Router /api/progress/streak [post]
func (c *ProgressController) RefreshStreak(ctx *gin.Context) {
	userID := util.CurrentUserID(ctx)
	state, err := c.Gamification.RefreshStreak(ctx.Request.Context(), userID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	if err := c.Gamification.EnsureDailyTasks(ctx.Request.Context(), userID); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, state)
}

// GetSummary godoc
// @Summary 学习进度概览
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.ProgressSummary} "成功"
// @Router /api/progress/summary [get]
func (c *ProgressController) GetSummary(ctx *gin.Context) {
	summary, err := c.Gamification.GetProgressSummary(ctx.Request.Context(), util.CurrentUserID(ctx))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}
