package controller

import (
	"exam_sim_backend/internal/service"
	"exam_sim_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AttemptController struct {
	AttemptService *service.AttemptService
}

func NewAttemptController(attemptService *service.AttemptService) *AttemptController {
	return &AttemptController{AttemptService: attemptService}
}

// Start godoc
// @Summary 开始作答
// @Description 过时间窗和次数闸门后创建作答，有未完成的作答则带断点返回
// @Tags 作答
// @Security BearerAuth
// @Produce json
// @Param id path int true "模拟测试ID"
// @Success 200 {object} util.Response{data=service.StartAttemptResponse}
// @Failure 403 {object} util.Response "指派已关闭"
// @Failure 422 {object} util.Response "不在时间窗内或次数用尽"
// @Router /api/simulations/{id}/attempts [post]
func (c *AttemptController) Start(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	resp, err := c.AttemptService.Start(user.UserID, util.MustParseUint(ctx.Param("id")))
	if err != nil {
		util.ServiceFailure(ctx, err)
		return
	}
	util.Success(ctx, resp)
}

// Checkpoint godoc
// @Summary 保存作答断点
// @Tags 作答
// @Security BearerAuth
// @Accept json
// @Param id path int true "作答ID"
// @Param body body service.CheckpointRequest true "断点快照"
// @Success 200 {object} util.Response
// @Failure 422 {object} util.Response "作答已不在进行中"
// @Router /api/attempts/{id}/checkpoint [put]
func (c *AttemptController) Checkpoint(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CheckpointRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.AttemptService.Checkpoint(user.UserID, util.MustParseUint(ctx.Param("id")), req); err != nil {
		util.ServiceFailure(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

type SubmitRequest struct {
	Answers        []service.SubmittedAnswer `json:"answers"`
	ElapsedSeconds int                       `json:"elapsedSeconds"`
}

// Submit godoc
// @Summary 提交作答
// @Description 判分并落库，重复提交返回 422
// @Tags 作答
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "作答ID"
// @Param body body SubmitRequest true "全部作答"
// @Success 200 {object} util.Response{data=model.SimulationResult}
// @Failure 422 {object} util.Response "已提交过"
// @Router /api/attempts/{id}/submit [post]
func (c *AttemptController) Submit(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req SubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.AttemptService.Submit(user.UserID, util.MustParseUint(ctx.Param("id")), req.Answers, req.ElapsedSeconds)
	if err != nil {
		util.ServiceFailure(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// GetResult godoc
// @Summary 查看作答结果
// @Tags 作答
// @Security BearerAuth
// @Produce json
// @Param id path int true "作答ID"
// @Success 200 {object} util.Response{data=model.SimulationResult}
// @Router /api/results/{id} [get]
func (c *AttemptController) GetResult(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.AttemptService.GetResult(user.UserID, user.Role, util.MustParseUint(ctx.Param("id")))
	if err != nil {
		util.ServiceFailure(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// ListMyResults godoc
// @Summary 我的作答历史
// @Tags 作答
// @Security BearerAuth
// @Produce json
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/results [get]
func (c *AttemptController) ListMyResults(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	page := int(util.MustParseUint(ctx.DefaultQuery("page", "1")))
	limit := int(util.MustParseUint(ctx.DefaultQuery("limit", "20")))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	results, total, err := c.AttemptService.ListMyResults(user.UserID, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: results, Total: total, Page: page, Limit: limit})
}
