package controller

import (
	"learning_progress/internal/model"
	"learning_progress/internal/service"
	"learning_progress/internal/util"

	"github.com/gin-gonic/gin"
)

type LeaderboardController struct {
	Leaderboard *service.LeaderboardService
}

func NewLeaderboardController(leaderboard *service.LeaderboardService) *LeaderboardController {
	return &LeaderboardController{Leaderboard: leaderboard}
}

func parsePeriod(ctx *gin.Context) (model.LeaderboardPeriod, bool) {
	period, ok := model.ParseLeaderboardPeriod(ctx.Query("period"))
	if !ok {
		util.BadRequest(ctx, "period must be one of WEEKLY, MONTHLY, ALL_TIME")
	}
	return period, ok
}

// GetLeaderboard godoc
// @Summary 排行榜
// @Tags 排行榜
// @Produce json
// @Param period query string false "WEEKLY | MONTHLY | ALL_TIME，默认 WEEKLY"
// @Param limit query int false "条数，默认 100"
// @Success 200 {object} util.Response "成功"
// @Router /api/leaderboard [get]
func (c *LeaderboardController) GetLeaderboard(ctx *gin.Context) {
	period, ok := parsePeriod(ctx)
	if !ok {
		return
	}
	limit := util.ParseIntDefault(ctx.Query("limit"), 0)

	rows, err := c.Leaderboard.GetLeaderboard(ctx.Request.Context(), period, limit)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"period":      period,
		"periodStart": service.PeriodStart(period, c.Leaderboard.Clock.Now()),
		"rows":        rows,
	})
}

// GetMyRank godoc
// @Summary 我的排名
// @Tags 排行榜
// @Produce json
// @Security BearerAuth
// @Param period query string false "WEEKLY | MONTHLY | ALL_TIME"
// @Success 200 {object} util.Response{data=service.UserRank} "成功"
// @Failure 404 {object} util.Response "本周期暂无排名"
// @Router /api/leaderboard/me [get]
func (c *LeaderboardController) GetMyRank(ctx *gin.Context) {
	period, ok := parsePeriod(ctx)
	if !ok {
		return
	}

	rank, err := c.Leaderboard.GetUserRank(ctx.Request.Context(), util.CurrentUserID(ctx), period)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, rank)
}
