package controller

import (
	"exam_sim_backend/internal/service"
	"exam_sim_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AssignmentController struct {
	AssignmentService *service.AssignmentService
}

func NewAssignmentController(assignmentService *service.AssignmentService) *AssignmentController {
	return &AssignmentController{AssignmentService: assignmentService}
}

// CreateAssignment godoc
// @Summary 创建指派
// @Description 把模拟测试指派给个人或班组，可带独立时间窗
// @Tags 指派管理
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body service.AssignmentCreateRequest true "指派信息"
// @Success 201 {object} util.Response{data=model.Assignment}
// @Router /api/teacher/assignments [post]
func (c *AssignmentController) CreateAssignment(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.AssignmentCreateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	assignment, err := c.AssignmentService.CreateAssignment(user.UserID, user.Role, req)
	if err != nil {
		util.ServiceFailure(ctx, err)
		return
	}
	util.Created(ctx, assignment)
}

// CloseAssignment godoc
// @Summary 关闭指派
// @Description 阻止新作答并强制结束遗留考场，已完成的作答不受影响
// @Tags 指派管理
// @Security BearerAuth
// @Produce json
// @Param id path int true "指派ID"
// @Success 200 {object} util.Response{data=model.Assignment}
// @Router /api/teacher/assignments/{id}/close [put]
func (c *AssignmentController) CloseAssignment(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	assignment, err := c.AssignmentService.CloseAssignment(user.UserID, user.Role, util.MustParseUint(ctx.Param("id")))
	if err != nil {
		util.ServiceFailure(ctx, err)
		return
	}
	util.Success(ctx, assignment)
}

// ReopenAssignment godoc
// @Summary 重开指派
// @Description 重新放行作答；上一轮考场一律作废
// @Tags 指派管理
// @Security BearerAuth
// @Produce json
// @Param id path int true "指派ID"
// @Success 200 {object} util.Response{data=model.Assignment}
// @Router /api/teacher/assignments/{id}/reopen [put]
func (c *AssignmentController) ReopenAssignment(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	assignment, err := c.AssignmentService.ReopenAssignment(user.UserID, user.Role, util.MustParseUint(ctx.Param("id")))
	if err != nil {
		util.ServiceFailure(ctx, err)
		return
	}
	util.Success(ctx, assignment)
}

// ListAssignments godoc
// @Summary 模拟测试的指派列表
// @Tags 指派管理
// @Security BearerAuth
// @Produce json
// @Param id path int true "模拟测试ID"
// @Success 200 {object} util.Response{data=[]model.Assignment}
// @Router /api/teacher/simulations/{id}/assignments [get]
func (c *AssignmentController) ListAssignments(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	assignments, err := c.AssignmentService.ListBySimulation(user.UserID, user.Role, util.MustParseUint(ctx.Param("id")))
	if err != nil {
		util.ServiceFailure(ctx, err)
		return
	}
	util.Success(ctx, assignments)
}

// OpenRoom godoc
// @Summary 开考场
// @Description waiting 状态即放行学生提前进场
// @Tags 考场
// @Security BearerAuth
// @Produce json
// @Param id path int true "指派ID"
// @Success 201 {object} util.Response{data=model.SimulationRoom}
// @Failure 409 {object} util.Response "已有进行中的考场"
// @Router /api/teacher/assignments/{id}/rooms [post]
func (c *AssignmentController) OpenRoom(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	room, err := c.AssignmentService.OpenRoom(user.UserID, user.Role, util.MustParseUint(ctx.Param("id")))
	if err != nil {
		util.ServiceFailure(ctx, err)
		return
	}
	util.Created(ctx, room)
}

// StartRoom godoc
// @Summary 正式开考
// @Tags 考场
// @Security BearerAuth
// @Produce json
// @Param id path string true "考场ID"
// @Success 200 {object} util.Response{data=model.SimulationRoom}
// @Router /api/teacher/rooms/{id}/start [put]
func (c *AssignmentController) StartRoom(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	room, err := c.AssignmentService.StartRoom(user.UserID, user.Role, ctx.Param("id"))
	if err != nil {
		util.ServiceFailure(ctx, err)
		return
	}
	util.Success(ctx, room)
}

// CompleteRoom godoc
// @Summary 收场
// @Tags 考场
// @Security BearerAuth
// @Produce json
// @Param id path string true "考场ID"
// @Success 200 {object} util.Response{data=model.SimulationRoom}
// @Router /api/teacher/rooms/{id}/complete [put]
func (c *AssignmentController) CompleteRoom(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	room, err := c.AssignmentService.CompleteRoom(user.UserID, user.Role, ctx.Param("id"))
	if err != nil {
		util.ServiceFailure(ctx, err)
		return
	}
	util.Success(ctx, room)
}
