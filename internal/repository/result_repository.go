package repository

import (
	"exam_sim_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ResultRepository 作答记录的持久化。提交/批改路径要求
// “读当前计数 → 算增量 → 写回”在单个事务内完成，
// 事务内取行锁用 FindByIDForUpdate。
type ResultRepository struct {
	DB *gorm.DB
}

func NewResultRepository(db *gorm.DB) *ResultRepository {
	return &ResultRepository{DB: db}
}

func (r *ResultRepository) Create(result *model.SimulationResult) error {
	return r.DB.Create(result).Error
}

func (r *ResultRepository) Update(result *model.SimulationResult) error {
	return r.DB.Save(result).Error
}

func (r *ResultRepository) FindByID(id uint) (*model.SimulationResult, error) {
	var result model.SimulationResult
	if err := r.DB.First(&result, id).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *ResultRepository) FindByIDWithAnswers(id uint) (*model.SimulationResult, error) {
	var result model.SimulationResult
	err := r.DB.Preload("Answers").First(&result, id).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// FindByIDForUpdate 在事务内按行锁加载，提交与批改共用此入口串行化。
// sqlite 没有 SELECT FOR UPDATE，事务本身的单写锁已足够串行
func (r *ResultRepository) FindByIDForUpdate(tx *gorm.DB, id uint) (*model.SimulationResult, error) {
	if tx.Dialector.Name() != "sqlite" {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var result model.SimulationResult
	err := tx.First(&result, id).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// FindInProgress 按 (用户, 模拟测试, 指派) 三元组查找未完成的作答
func (r *ResultRepository) FindInProgress(userID, simulationID uint, assignmentID *uint) (*model.SimulationResult, error) {
	var result model.SimulationResult
	query := r.DB.Where("user_id = ? AND simulation_id = ? AND status = ?",
		userID, simulationID, model.ResultInProgress)
	if assignmentID != nil {
		query = query.Where("assignment_id = ?", *assignmentID)
	} else {
		query = query.Where("assignment_id IS NULL")
	}

	err := query.First(&result).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *ResultRepository) CountCompleted(userID, simulationID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.SimulationResult{}).
		Where("user_id = ? AND simulation_id = ? AND status = ?", userID, simulationID, model.ResultCompleted).
		Count(&count).Error
	return count, err
}

// DeleteWithAnswers 删除作答及其答案与批改队列记录（考场失效清理用）
func (r *ResultRepository) DeleteWithAnswers(resultID uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("result_id = ?", resultID).Delete(&model.ResultAnswer{}).Error; err != nil {
			return err
		}
		if err := tx.Where("result_id = ?", resultID).Delete(&model.OpenAnswerSubmission{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.SimulationResult{}, resultID).Error
	})
}

// ListCompleted 排行榜读取：某模拟测试的全部已完成作答，按完成时间倒序，
// 以便取每个用户最近一次的成绩
func (r *ResultRepository) ListCompleted(simulationID uint, assignmentID *uint, userIDs []uint) ([]model.SimulationResult, error) {
	var results []model.SimulationResult
	query := r.DB.Preload("User").
		Where("simulation_id = ? AND status = ?", simulationID, model.ResultCompleted)
	if assignmentID != nil {
		query = query.Where("assignment_id = ?", *assignmentID)
	}
	if len(userIDs) > 0 {
		query = query.Where("user_id IN ?", userIDs)
	}
	err := query.Order("completed_at DESC").Find(&results).Error
	return results, err
}

func (r *ResultRepository) ListByUser(userID uint, page, limit int) ([]model.SimulationResult, int64, error) {
	var results []model.SimulationResult
	var total int64

	base := r.DB.Model(&model.SimulationResult{}).Where("user_id = ?", userID)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := base.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&results).Error
	return results, total, err
}
