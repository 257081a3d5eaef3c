package controller

import (
	"study_buddy_backend/internal/service"
	"study_buddy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CardController struct {
	StudyService *service.StudyService
}

func NewCardController(studyService *service.StudyService) *CardController {
	return &CardController{StudyService: studyService}
}

// @Summary 创建卡片
// @Description 创建一张学习卡片，未指定卡组时放入默认卡组
// @Tags 卡片
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param card body service.CreateCardRequest true "卡片信息"
// @Success 201 {object} util.Response
// @Router /api/cards [post]
func (c *CardController) CreateCard(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CreateCardRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	card, err := c.StudyService.CreateCard(ctx.Request.Context(), user.UserID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Created(ctx, card)
}

// @Summary 卡片列表
// @Description 按卡组和难度筛选当前用户的卡片，按创建时间倒序
// @Tags 卡片
// @Produce json
// @Security BearerAuth
// @Param deck query string false "卡组名称"
// @Param difficulty query string false "难度 easy/medium/hard"
// @Param limit query int false "返回数量" default(50)
// @Success 200 {object} util.Response
// @Router /api/cards [get]
func (c *CardController) ListCards(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	limit := util.QueryInt(ctx.Query("limit"), util.DefaultCardListLimit)
	cards, err := c.StudyService.ListCards(ctx.Request.Context(), user.UserID, ctx.Query("deck"), ctx.Query("difficulty"), limit)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, cards)
}

// @Summary 获取学习队列
// @Description 优先返回到期复习的卡片，不足时补充从未学习过的卡片
// @Tags 卡片
// @Produce json
// @Security BearerAuth
// @Param deck query string false "卡组名称"
// @Param count query int false "卡片数量" default(10)
// @Success 200 {object} util.Response
// @Router /api/cards/study-session [get]
func (c *CardController) StudySession(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	count := util.QueryInt(ctx.Query("count"), util.DefaultStudyQueueSize)
	queue, err := c.StudyService.StudyQueue(ctx.Request.Context(), user.UserID, ctx.Query("deck"), count)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, queue)
}

// @Summary 提交答案
// @Description 判定答案，计算经验值并安排下次复习
// @Tags 卡片
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param answer body service.AnswerRequest true "作答信息"
// @Success 200 {object} util.Response
// @Router /api/cards/answer [post]
func (c *CardController) SubmitAnswer(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.AnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.StudyService.SubmitAnswer(ctx.Request.Context(), user.UserID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// @Summary 卡组列表
// @Description 当前用户的卡组及每个卡组的卡片数量
// @Tags 卡片
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/cards/decks [get]
func (c *CardController) Decks(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	decks, err := c.StudyService.Decks(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"decks": decks})
}

// @Summary 删除卡片
// @Description 只能删除自己的卡片
// @Tags 卡片
// @Produce json
// @Security BearerAuth
// @Param id path string true "卡片ID"
// @Success 200 {object} util.Response
// @Router /api/cards/{id} [delete]
func (c *CardController) DeleteCard(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.StudyService.DeleteCard(ctx.Request.Context(), user.UserID, ctx.Param("id")); err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"message": "Flashcard deleted successfully"})
}
