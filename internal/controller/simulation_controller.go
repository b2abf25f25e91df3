package controller

import (
	"exam_sim_backend/internal/service"
	"exam_sim_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SimulationController struct {
	SimulationService *service.SimulationService
}

func NewSimulationController(simulationService *service.SimulationService) *SimulationController {
	return &SimulationController{SimulationService: simulationService}
}

// CreateSimulation godoc
// @Summary 创建模拟测试
// @Description 创建模板及其题目、选项、关键词，一个事务内完成
// @Tags 模拟测试管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.SimulationCreateRequest true "模板信息"
// @Success 201 {object} util.Response{data=model.Simulation}
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/teacher/simulations [post]
func (c *SimulationController) CreateSimulation(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.SimulationCreateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sim, err := c.SimulationService.CreateSimulation(user.UserID, req)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	util.Created(ctx, sim)
}

// GetSimulation godoc
// @Summary 获取模板详情
// @Description 含题目、选项（带正确答案）和关键词，仅创建者和管理员
// @Tags 模拟测试管理
// @Security BearerAuth
// @Produce json
// @Param id path int true "模板ID"
// @Success 200 {object} util.Response{data=model.Simulation}
// @Router /api/teacher/simulations/{id} [get]
func (c *SimulationController) GetSimulation(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	sim, err := c.SimulationService.GetSimulation(user.UserID, user.Role, util.MustParseUint(ctx.Param("id")))
	if err != nil {
		util.ServiceFailure(ctx, err)
		return
	}
	util.Success(ctx, sim)
}

// ListSimulations godoc
// @Summary 模板列表
// @Tags 模拟测试管理
// @Security BearerAuth
// @Produce json
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/teacher/simulations [get]
func (c *SimulationController) ListSimulations(ctx *gin.Context) {
	page := int(util.MustParseUint(ctx.DefaultQuery("page", "1")))
	limit := int(util.MustParseUint(ctx.DefaultQuery("limit", "20")))

	sims, total, err := c.SimulationService.ListSimulations(page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{List: sims, Total: total, Page: page, Limit: limit})
}

type PublishRequest struct {
	Published bool `json:"published"`
}

// Publish godoc
// @Summary 发布/下架模板
// @Tags 模拟测试管理
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "模板ID"
// @Param body body PublishRequest true "发布状态"
// @Success 200 {object} util.Response{data=model.Simulation}
// @Router /api/teacher/simulations/{id}/publish [put]
func (c *SimulationController) Publish(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req PublishRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sim, err := c.SimulationService.Publish(user.UserID, user.Role, util.MustParseUint(ctx.Param("id")), req.Published)
	if err != nil {
		util.ServiceFailure(ctx, err)
		return
	}
	util.Success(ctx, sim)
}

// AddQuestion godoc
// @Summary 追加题目
// @Tags 模拟测试管理
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "模板ID"
// @Param body body service.QuestionRequest true "题目信息"
// @Success 201 {object} util.Response{data=model.SimulationQuestion}
// @Router /api/teacher/simulations/{id}/questions [post]
func (c *SimulationController) AddQuestion(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := c.SimulationService.AddQuestion(user.UserID, user.Role, util.MustParseUint(ctx.Param("id")), req)
	if err != nil {
		util.ServiceFailure(ctx, err)
		return
	}
	util.Created(ctx, question)
}

// DeleteQuestion godoc
// @Summary 删除题目
// @Tags 模拟测试管理
// @Security BearerAuth
// @Param id path int true "题目ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/questions/{id} [delete]
func (c *SimulationController) DeleteQuestion(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.SimulationService.DeleteQuestion(user.UserID, user.Role, util.MustParseUint(ctx.Param("id"))); err != nil {
		util.ServiceFailure(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// DeleteSimulation godoc
// @Summary 删除模板
// @Tags 模拟测试管理
// @Security BearerAuth
// @Param id path int true "模板ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/simulations/{id} [delete]
func (c *SimulationController) DeleteSimulation(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.SimulationService.DeleteSimulation(user.UserID, user.Role, util.MustParseUint(ctx.Param("id"))); err != nil {
		util.ServiceFailure(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
