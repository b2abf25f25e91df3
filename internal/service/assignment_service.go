package service

import (
	"errors"
	"time"

	"exam_sim_backend/internal/model"
	"exam_sim_backend/internal/repository"
	"exam_sim_backend/internal/util"

	"gorm.io/gorm"
)

// AssignmentService 指派与考场的生命周期。
// 关闭/重开指派都会先强制收场，遗留考场不能再绕过时间窗。
type AssignmentService struct {
	SimRepo        *repository.SimulationRepository
	AssignmentRepo *repository.AssignmentRepository
	UserRepo       *repository.UserRepository
}

func NewAssignmentService(
	simRepo *repository.SimulationRepository,
	assignmentRepo *repository.AssignmentRepository,
	userRepo *repository.UserRepository,
) *AssignmentService {
	return &AssignmentService{
		SimRepo:        simRepo,
		AssignmentRepo: assignmentRepo,
		UserRepo:       userRepo,
	}
}

type AssignmentCreateRequest struct {
	SimulationID uint       `json:"simulationId" binding:"required"`
	TargetType   string     `json:"targetType" binding:"required"`
	TargetID     uint       `json:"targetId" binding:"required"`
	StartsAt     *time.Time `json:"startsAt"`
	EndsAt       *time.Time `json:"endsAt"`
}

func (s *AssignmentService) CreateAssignment(callerID uint, callerRole model.UserRole, req AssignmentCreateRequest) (*model.Assignment, error) {
	if req.TargetType != model.AssignmentTargetUser && req.TargetType != model.AssignmentTargetGroup {
		return nil, errors.New("invalid target type")
	}

	sim, err := s.SimRepo.FindByID(req.SimulationID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrSimulationNotFound
		}
		return nil, err
	}
	if callerRole != model.Admin && sim.CreatorID != callerID {
		return nil, util.ErrPermissionDenied
	}

	assignment := &model.Assignment{
		SimulationID: sim.ID,
		TargetType:   req.TargetType,
		TargetID:     req.TargetID,
		StartsAt:     req.StartsAt,
		EndsAt:       req.EndsAt,
		Status:       model.AssignmentActive,
	}
	if err := s.AssignmentRepo.Create(assignment); err != nil {
		return nil, err
	}
	return assignment, nil
}

// CloseAssignment 关闭指派：先收场再改状态，已完成的作答仍可复习
func (s *AssignmentService) CloseAssignment(callerID uint, callerRole model.UserRole, assignmentID uint) (*model.Assignment, error) {
	return s.setStatus(callerID, callerRole, assignmentID, model.AssignmentClosed)
}

// ReopenAssignment 重开指派。同样先收场：上一轮的考场作废，
// 需要考场的模拟测试要等教师重新开考场
func (s *AssignmentService) ReopenAssignment(callerID uint, callerRole model.UserRole, assignmentID uint) (*model.Assignment, error) {
	return s.setStatus(callerID, callerRole, assignmentID, model.AssignmentActive)
}

func (s *AssignmentService) setStatus(callerID uint, callerRole model.UserRole, assignmentID uint, status string) (*model.Assignment, error) {
	assignment, sim, err := s.authorized(callerID, callerRole, assignmentID)
	if err != nil {
		return nil, err
	}

	if err := s.AssignmentRepo.ForceCompleteRooms(sim.ID); err != nil {
		return nil, err
	}

	assignment.Status = status
	if err := s.AssignmentRepo.Update(assignment); err != nil {
		return nil, err
	}
	return assignment, nil
}

// OpenRoom 开考场。waiting 状态就已放行学生提前进场
func (s *AssignmentService) OpenRoom(callerID uint, callerRole model.UserRole, assignmentID uint) (*model.SimulationRoom, error) {
	assignment, sim, err := s.authorized(callerID, callerRole, assignmentID)
	if err != nil {
		return nil, err
	}
	if sim.AccessMode != model.AccessModeRoom {
		return nil, util.InvalidStateError("simulation does not use proctored rooms")
	}
	if assignment.Status != model.AssignmentActive {
		return nil, util.ErrAssignmentClosed
	}

	existing, err := s.AssignmentRepo.ActiveRoomForAssignment(assignment.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, util.ConflictError("an active room already exists for this assignment")
	}

	room := &model.SimulationRoom{
		AssignmentID: assignment.ID,
		Status:       model.RoomWaiting,
		OpenedBy:     callerID,
	}
	if err := s.AssignmentRepo.CreateRoom(room); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *AssignmentService) StartRoom(callerID uint, callerRole model.UserRole, roomID string) (*model.SimulationRoom, error) {
	return s.transitionRoom(callerID, callerRole, roomID, model.RoomStarted)
}

func (s *AssignmentService) CompleteRoom(callerID uint, callerRole model.UserRole, roomID string) (*model.SimulationRoom, error) {
	return s.transitionRoom(callerID, callerRole, roomID, model.RoomCompleted)
}

func (s *AssignmentService) transitionRoom(callerID uint, callerRole model.UserRole, roomID string, status string) (*model.SimulationRoom, error) {
	room, err := s.AssignmentRepo.FindRoomByID(roomID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.NotFoundError("room not found")
		}
		return nil, err
	}

	if _, _, err := s.authorized(callerID, callerRole, room.AssignmentID); err != nil {
		return nil, err
	}

	now := time.Now()
	switch status {
	case model.RoomStarted:
		if room.Status != model.RoomWaiting {
			return nil, util.InvalidStateError("room is not waiting")
		}
		room.Status = model.RoomStarted
		room.StartedAt = &now
	case model.RoomCompleted:
		if room.Status == model.RoomCompleted {
			return nil, util.InvalidStateError("room is already completed")
		}
		room.Status = model.RoomCompleted
		room.CompletedAt = &now
	}

	if err := s.AssignmentRepo.UpdateRoom(room); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *AssignmentService) ListBySimulation(callerID uint, callerRole model.UserRole, simulationID uint) ([]model.Assignment, error) {
	sim, err := s.SimRepo.FindByID(simulationID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrSimulationNotFound
		}
		return nil, err
	}
	if callerRole != model.Admin && sim.CreatorID != callerID {
		return nil, util.ErrPermissionDenied
	}
	return s.AssignmentRepo.ListBySimulation(simulationID)
}

func (s *AssignmentService) GetAssignment(id uint) (*model.Assignment, error) {
	assignment, err := s.AssignmentRepo.FindByID(id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrAssignmentNotFound
		}
		return nil, err
	}
	return assignment, nil
}

func (s *AssignmentService) authorized(callerID uint, callerRole model.UserRole, assignmentID uint) (*model.Assignment, *model.Simulation, error) {
	assignment, err := s.AssignmentRepo.FindByID(assignmentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, util.ErrAssignmentNotFound
		}
		return nil, nil, err
	}

	sim, err := s.SimRepo.FindByID(assignment.SimulationID)
	if err != nil {
		return nil, nil, err
	}
	if callerRole != model.Admin && sim.CreatorID != callerID {
		return nil, nil, util.ErrPermissionDenied
	}
	return assignment, sim, nil
}
