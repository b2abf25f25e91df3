package service

import (
	"time"

	"exam_sim_backend/internal/model"
	"exam_sim_backend/internal/repository"
	"exam_sim_backend/internal/util"
)

// AccessService 判定“此刻这名学生能否作答这场模拟测试”。
// 两道闸门：时间窗（指派覆盖优先于模板）与重考次数。
type AccessService struct {
	AssignmentRepo *repository.AssignmentRepository
	UserRepo       *repository.UserRepository
	ResultRepo     *repository.ResultRepository
}

func NewAccessService(assignmentRepo *repository.AssignmentRepository, userRepo *repository.UserRepository, resultRepo *repository.ResultRepository) *AccessService {
	return &AccessService{
		AssignmentRepo: assignmentRepo,
		UserRepo:       userRepo,
		ResultRepo:     resultRepo,
	}
}

// AccessContext 匹配到的指派与考场，以及据此算出的有效时间窗
type AccessContext struct {
	Assignment *model.Assignment
	Room       *model.SimulationRoom
	StartsAt   *time.Time
	EndsAt     *time.Time
}

func (c *AccessContext) AssignmentID() *uint {
	if c.Assignment == nil {
		return nil
	}
	return &c.Assignment.ID
}

// Resolve 找出用户对该模拟测试的指派（直接或经班组）并推导有效时间窗。
// 公开/自建的模拟测试没有指派，返回模板自身的时间窗。
func (s *AccessService) Resolve(userID uint, sim *model.Simulation) (*AccessContext, error) {
	groupIDs, err := s.UserRepo.GroupIDsForUser(userID)
	if err != nil {
		return nil, err
	}

	assignments, err := s.AssignmentRepo.FindForUser(sim.ID, userID, groupIDs)
	if err != nil {
		return nil, err
	}

	ctx := &AccessContext{StartsAt: sim.StartsAt, EndsAt: sim.EndsAt}
	if len(assignments) == 0 {
		return ctx, nil
	}

	// 优先取 active 的指派，都关了就取最新的那条
	matched := assignments[0]
	for _, a := range assignments {
		if a.Status == model.AssignmentActive {
			matched = a
			break
		}
	}
	ctx.Assignment = &matched

	// 指派自带的时间窗覆盖模板时间窗
	if matched.StartsAt != nil || matched.EndsAt != nil {
		ctx.StartsAt = matched.StartsAt
		ctx.EndsAt = matched.EndsAt
	}

	if sim.AccessMode == model.AccessModeRoom {
		room, err := s.AssignmentRepo.ActiveRoomForAssignment(matched.ID)
		if err != nil {
			return nil, err
		}
		ctx.Room = room
	}

	return ctx, nil
}

// CheckDateAccess 时间窗闸门。
// 未到开始时间时，只有教师已开考场才放行（提前进场）；
// 过了结束时间时，只有指派仍为 active 才放行（教师有意延长），
// closed 的指派永远不放行。
func CheckDateAccess(startsAt, endsAt *time.Time, now time.Time, assignmentActive, hasActiveRoom bool) error {
	if startsAt != nil && now.Before(*startsAt) && !hasActiveRoom {
		return util.ErrNotYetAvailable
	}
	if endsAt != nil && now.After(*endsAt) && !assignmentActive {
		return util.ErrNoLongerAvailable
	}
	return nil
}

// CheckAttemptLimits 重考闸门。未完成的作答永远可续做，不受次数限制。
func CheckAttemptLimits(completedCount int64, hasInProgress, repeatable bool, maxAttempts int) error {
	if hasInProgress {
		return nil
	}
	if !repeatable && completedCount > 0 {
		return util.ErrAttemptLimit
	}
	if repeatable && maxAttempts > 0 && completedCount >= int64(maxAttempts) {
		return util.ErrAttemptLimit
	}
	return nil
}

// CheckAccess 完整闸门：指派状态 + 时间窗。只读预览只需过这一关。
func (s *AccessService) CheckAccess(userID uint, sim *model.Simulation, now time.Time) (*AccessContext, error) {
	ctx, err := s.Resolve(userID, sim)
	if err != nil {
		return nil, err
	}

	assignmentActive := ctx.Assignment != nil && ctx.Assignment.Status == model.AssignmentActive
	if ctx.Assignment != nil && ctx.Assignment.Status == model.AssignmentClosed {
		// 已关闭的指派不再接受新作答，复习已完成的结果不走这里
		return nil, util.ErrAssignmentClosed
	}

	if err := CheckDateAccess(ctx.StartsAt, ctx.EndsAt, now, assignmentActive, ctx.Room.IsActive()); err != nil {
		return nil, err
	}

	return ctx, nil
}
