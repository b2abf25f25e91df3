package repository

import (
	"exam_sim_backend/internal/model"

	"gorm.io/gorm"
)

type OpenAnswerRepository struct {
	DB *gorm.DB
}

func NewOpenAnswerRepository(db *gorm.DB) *OpenAnswerRepository {
	return &OpenAnswerRepository{DB: db}
}

func (r *OpenAnswerRepository) FindByID(id uint) (*model.OpenAnswerSubmission, error) {
	var sub model.OpenAnswerSubmission
	if err := r.DB.First(&sub, id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *OpenAnswerRepository) FindByResult(resultID uint) ([]model.OpenAnswerSubmission, error) {
	var subs []model.OpenAnswerSubmission
	err := r.DB.Where("result_id = ?", resultID).Find(&subs).Error
	return subs, err
}

// ListPendingBySimulation 教师批改队列：某模拟测试下全部待批改的主观题
func (r *OpenAnswerRepository) ListPendingBySimulation(simulationID uint) ([]model.OpenAnswerSubmission, error) {
	var subs []model.OpenAnswerSubmission
	err := r.DB.
		Joins("JOIN simulation_results ON simulation_results.id = open_answer_submissions.result_id").
		Where("simulation_results.simulation_id = ? AND open_answer_submissions.validated = ?", simulationID, false).
		Find(&subs).Error
	return subs, err
}
