package controller

import (
	"exam_sim_backend/internal/service"
	"exam_sim_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GradingController struct {
	GradingService *service.GradingService
}

func NewGradingController(gradingService *service.GradingService) *GradingController {
	return &GradingController{GradingService: gradingService}
}

type SelfCorrectRequest struct {
	QuestionID uint `json:"questionId" binding:"required"`
	Correct    bool `json:"correct"`
}

// SelfCorrect godoc
// @Summary 学生自评主观题
// @Description 模板开启答案公开时，学生对照参考答案标注自己的主观题对错
// @Tags 批改
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "作答ID"
// @Param body body SelfCorrectRequest true "判定"
// @Success 200 {object} util.Response{data=model.SimulationResult}
// @Failure 403 {object} util.Response "未开启自评"
// @Router /api/results/{id}/self-correct [post]
func (c *GradingController) SelfCorrect(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req SelfCorrectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.GradingService.SelfCorrect(user.UserID, util.MustParseUint(ctx.Param("id")), req.QuestionID, req.Correct)
	if err != nil {
		util.ServiceFailure(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// Validate godoc
// @Summary 批改单条主观题
// @Tags 批改
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body service.Validation true "打分，score ∈ [-1,1]"
// @Success 200 {object} util.Response{data=model.OpenAnswerSubmission}
// @Router /api/teacher/submissions/validate [post]
func (c *GradingController) Validate(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.Validation
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sub, err := c.GradingService.Validate(user.UserID, req)
	if err != nil {
		util.ServiceFailure(ctx, err)
		return
	}
	util.Success(ctx, sub)
}

type ValidateBatchRequest struct {
	Validations []service.Validation `json:"validations" binding:"required"`
}

// ValidateBatch godoc
// @Summary 批量批改一份作答的主观题
// @Description 一个事务内完成；全部批改完成后自动重算总分并通知学生
// @Tags 批改
// @Security BearerAuth
// @Accept json
// @Param id path int true "作答ID"
// @Param body body ValidateBatchRequest true "打分列表"
// @Success 200 {object} util.Response
// @Router /api/teacher/results/{id}/validate [post]
func (c *GradingController) ValidateBatch(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req ValidateBatchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.GradingService.ValidateBatch(user.UserID, util.MustParseUint(ctx.Param("id")), req.Validations); err != nil {
		util.ServiceFailure(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// SubmissionsForResult godoc
// @Summary 单份作答的主观题列表
// @Tags 批改
// @Security BearerAuth
// @Produce json
// @Param id path int true "作答ID"
// @Success 200 {object} util.Response{data=[]model.OpenAnswerSubmission}
// @Router /api/teacher/results/{id}/submissions [get]
func (c *GradingController) SubmissionsForResult(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	subs, err := c.GradingService.SubmissionsForResult(user.UserID, user.Role, util.MustParseUint(ctx.Param("id")))
	if err != nil {
		util.ServiceFailure(ctx, err)
		return
	}
	util.Success(ctx, subs)
}

// PendingSubmissions godoc
// @Summary 待批改队列
// @Tags 批改
// @Security BearerAuth
// @Produce json
// @Param id path int true "模拟测试ID"
// @Success 200 {object} util.Response{data=[]model.OpenAnswerSubmission}
// @Router /api/teacher/simulations/{id}/pending [get]
func (c *GradingController) PendingSubmissions(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	subs, err := c.GradingService.PendingSubmissions(user.UserID, user.Role, util.MustParseUint(ctx.Param("id")))
	if err != nil {
		util.ServiceFailure(ctx, err)
		return
	}
	util.Success(ctx, subs)
}
