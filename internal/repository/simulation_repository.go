package repository

import (
	"exam_sim_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SimulationRepository 模拟测试模板与题库的读写（题库只读侧供判分使用）
type SimulationRepository struct {
	DB *gorm.DB
}

func NewSimulationRepository(db *gorm.DB) *SimulationRepository {
	return &SimulationRepository{DB: db}
}

func (r *SimulationRepository) Update(s *model.Simulation) error {
	return r.DB.Save(s).Error
}

func (r *SimulationRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Simulation{}, id).Error
}

func (r *SimulationRepository) FindByID(id uint) (*model.Simulation, error) {
	var s model.Simulation
	if err := r.DB.First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// FindByIDWithQuestions 带题目、选项、关键词一起加载
func (r *SimulationRepository) FindByIDWithQuestions(id uint) (*model.Simulation, error) {
	var s model.Simulation
	err := r.DB.
		// order 是保留字，交给 clause 按方言加引号
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order(clause.OrderByColumn{Column: clause.Column{Table: "simulation_questions", Name: "order"}})
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order(clause.OrderByColumn{Column: clause.Column{Table: "question_options", Name: "order"}})
		}).
		Preload("Questions.Keywords").
		First(&s, id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SimulationRepository) List(page, limit int) ([]model.Simulation, int64, error) {
	var sims []model.Simulation
	var total int64

	if err := r.DB.Model(&model.Simulation{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.DB.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&sims).Error
	return sims, total, err
}

func (r *SimulationRepository) CreateQuestion(q *model.SimulationQuestion) error {
	return r.DB.Create(q).Error
}

func (r *SimulationRepository) FindQuestionByID(id uint) (*model.SimulationQuestion, error) {
	var q model.SimulationQuestion
	err := r.DB.Preload("Options").Preload("Keywords").First(&q, id).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *SimulationRepository) DeleteQuestion(id uint) error {
	return r.DB.Delete(&model.SimulationQuestion{}, id).Error
}

func (r *SimulationRepository) CountQuestions(simulationID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.SimulationQuestion{}).Where("simulation_id = ?", simulationID).Count(&count).Error
	return count, err
}
