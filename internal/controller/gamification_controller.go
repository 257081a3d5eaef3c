package controller

import (
	"study_buddy_backend/internal/service"
	"study_buddy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GamificationController struct {
	StudyService       *service.StudyService
	ProfileService     *service.ProfileService
	AchievementService *service.AchievementService
	LeaderboardService *service.LeaderboardService
}

func NewGamificationController(
	studyService *service.StudyService,
	profileService *service.ProfileService,
	achievementService *service.AchievementService,
	leaderboardService *service.LeaderboardService,
) *GamificationController {
	return &GamificationController{
		StudyService:       studyService,
		ProfileService:     profileService,
		AchievementService: achievementService,
		LeaderboardService: leaderboardService,
	}
}

// @Summary 获取个人档案
// @Description 经验、等级、连续学习天数、徽章和最近学习记录
// @Tags 游戏化
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/gamification/profile [get]
func (c *GamificationController) GetProfile(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	profile, err := c.ProfileService.GetProfile(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, profile)
}

// @Summary 获取排行榜
// @Description 按经验值倒序，经验相同按用户ID升序
// @Tags 游戏化
// @Produce json
// @Param limit query int false "返回数量" default(10)
// @Success 200 {object} util.Response
// @Router /api/gamification/leaderboard [get]
func (c *GamificationController) GetLeaderboard(ctx *gin.Context) {
	limit := util.QueryInt(ctx.Query("limit"), util.DefaultLeaderboardLimit)

	entries, err := c.LeaderboardService.GetLeaderboard(ctx.Request.Context(), limit)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"leaderboard": entries})
}

// @Summary 徽章进度
// @Description 已获得的徽章和未获得徽章的进度
// @Tags 游戏化
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/gamification/achievements [get]
func (c *GamificationController) GetAchievements(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	earned, err := c.AchievementService.ListAchievements(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	progress, err := c.AchievementService.BadgeProgress(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"earned":   earned,
		"progress": progress,
	})
}

// @Summary 重新评估徽章
// @Description 立即评估当前用户的全部徽章规则，返回本次新获得的徽章
// @Tags 游戏化
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/gamification/achievements/evaluate [post]
func (c *GamificationController) EvaluateAchievements(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	awarded, err := c.AchievementService.EvaluateAchievements(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"newBadges": awarded})
}

// @Summary 开始学习
// @Description 生成学习会话ID
// @Tags 游戏化
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/gamification/session/start [post]
func (c *GamificationController) StartSession(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	util.Success(ctx, c.StudyService.StartSession(ctx.Request.Context(), user.UserID))
}

// @Summary 结束学习
// @Description 保存学习记录并评估徽章
// @Tags 游戏化
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param session body service.EndSessionRequest true "学习统计"
// @Success 200 {object} util.Response
// @Router /api/gamification/session/end [post]
func (c *GamificationController) EndSession(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.EndSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.StudyService.EndSession(ctx.Request.Context(), user.UserID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// @Summary 本周统计
// @Description 最近 7 天按天汇总的学习数据
// @Tags 游戏化
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/gamification/stats/weekly [get]
func (c *GamificationController) WeeklyStats(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	stats, err := c.ProfileService.WeeklyStats(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, stats)
}
