package repository

import (
	"time"

	"exam_sim_backend/internal/model"

	"gorm.io/gorm"
)

// AssignmentRepository 指派与考场状态的读写
type AssignmentRepository struct {
	DB *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{DB: db}
}

func (r *AssignmentRepository) Create(a *model.Assignment) error {
	return r.DB.Create(a).Error
}

func (r *AssignmentRepository) Update(a *model.Assignment) error {
	return r.DB.Save(a).Error
}

func (r *AssignmentRepository) FindByID(id uint) (*model.Assignment, error) {
	var a model.Assignment
	if err := r.DB.First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// FindForUser 查找某用户对某模拟测试可用的指派：直接指派或经由班组
func (r *AssignmentRepository) FindForUser(simulationID, userID uint, groupIDs []uint) ([]model.Assignment, error) {
	var assignments []model.Assignment
	query := r.DB.Where("simulation_id = ?", simulationID)

	if len(groupIDs) > 0 {
		query = query.Where(
			"(target_type = ? AND target_id = ?) OR (target_type = ? AND target_id IN ?)",
			model.AssignmentTargetUser, userID,
			model.AssignmentTargetGroup, groupIDs,
		)
	} else {
		query = query.Where("target_type = ? AND target_id = ?", model.AssignmentTargetUser, userID)
	}

	err := query.Order("created_at DESC").Find(&assignments).Error
	return assignments, err
}

func (r *AssignmentRepository) ListBySimulation(simulationID uint) ([]model.Assignment, error) {
	var assignments []model.Assignment
	err := r.DB.Where("simulation_id = ?", simulationID).Find(&assignments).Error
	return assignments, err
}

func (r *AssignmentRepository) CreateRoom(room *model.SimulationRoom) error {
	return r.DB.Create(room).Error
}

func (r *AssignmentRepository) UpdateRoom(room *model.SimulationRoom) error {
	return r.DB.Save(room).Error
}

func (r *AssignmentRepository) FindRoomByID(id string) (*model.SimulationRoom, error) {
	var room model.SimulationRoom
	if err := r.DB.First(&room, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

// ActiveRoomForAssignment 返回指派下最新的 waiting/started 考场，没有则返回 nil
func (r *AssignmentRepository) ActiveRoomForAssignment(assignmentID uint) (*model.SimulationRoom, error) {
	var room model.SimulationRoom
	err := r.DB.
		Where("assignment_id = ? AND status IN ?", assignmentID, []string{model.RoomWaiting, model.RoomStarted}).
		Order("created_at DESC").
		First(&room).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

// ForceCompleteRooms 把某模拟测试下所有未结束的考场置为 completed，
// 指派关闭/重开时调用，防止遗留考场继续放行
func (r *AssignmentRepository) ForceCompleteRooms(simulationID uint) error {
	now := time.Now()
	return r.DB.Model(&model.SimulationRoom{}).
		Where("assignment_id IN (?) AND status IN ?",
			r.DB.Model(&model.Assignment{}).Select("id").Where("simulation_id = ?", simulationID),
			[]string{model.RoomWaiting, model.RoomStarted},
		).
		Updates(map[string]interface{}{"status": model.RoomCompleted, "completed_at": now}).Error
}
