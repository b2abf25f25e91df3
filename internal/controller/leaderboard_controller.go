package controller

import (
	"exam_sim_backend/internal/model"
	"exam_sim_backend/internal/service"
	"exam_sim_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type LeaderboardController struct {
	LeaderboardService *service.LeaderboardService
	AssignmentService  *service.AssignmentService
}

func NewLeaderboardController(leaderboardService *service.LeaderboardService, assignmentService *service.AssignmentService) *LeaderboardController {
	return &LeaderboardController{
		LeaderboardService: leaderboardService,
		AssignmentService:  assignmentService,
	}
}

// Leaderboard godoc
// @Summary 排行榜
// @Description 每人取最近一次成绩，分数降序、用时升序，同分并列名次。
// @Description 非管理员/非创建者只看到化名，自己那行除外
// @Tags 排行榜
// @Security BearerAuth
// @Produce json
// @Param id path int true "模拟测试ID"
// @Param assignmentId query int false "限定到某次指派"
// @Success 200 {object} util.Response{data=[]service.LeaderboardEntry}
// @Router /api/simulations/{id}/leaderboard [get]
func (c *LeaderboardController) Leaderboard(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	simulationID := util.MustParseUint(ctx.Param("id"))

	var assignmentID *uint
	var assignment *model.Assignment
	if raw := ctx.Query("assignmentId"); raw != "" {
		id := util.MustParseUint(raw)
		found, err := c.AssignmentService.GetAssignment(id)
		if err != nil {
			util.ServiceFailure(ctx, err)
			return
		}
		if found.SimulationID != simulationID {
			util.BadRequest(ctx, "assignment does not belong to this simulation")
			return
		}
		assignmentID = &id
		assignment = found
	}

	entries, err := c.LeaderboardService.Leaderboard(user.UserID, user.Role, simulationID, assignmentID, assignment)
	if err != nil {
		util.ServiceFailure(ctx, err)
		return
	}
	util.Success(ctx, entries)
}
