package service

import (
	"time"

	"exam_sim_backend/internal/model"
	"exam_sim_backend/internal/repository"
	"exam_sim_backend/internal/util"

	"gorm.io/gorm"
)

// GradingService 已完成作答的两条修正通道：
// 学生自评（ShowAnswers 开启时）和教师批改队列（关闭时）。
// 两条通道都在结果行锁内改计数器，互不越界。
type GradingService struct {
	SimRepo        *repository.SimulationRepository
	ResultRepo     *repository.ResultRepository
	OpenAnswerRepo *repository.OpenAnswerRepository
	Notifier       *NotificationService
	Leaderboard    *LeaderboardService
	DB             *gorm.DB
}

func NewGradingService(
	simRepo *repository.SimulationRepository,
	resultRepo *repository.ResultRepository,
	openAnswerRepo *repository.OpenAnswerRepository,
	notifier *NotificationService,
	leaderboard *LeaderboardService,
	db *gorm.DB,
) *GradingService {
	return &GradingService{
		SimRepo:        simRepo,
		ResultRepo:     resultRepo,
		OpenAnswerRepo: openAnswerRepo,
		Notifier:       notifier,
		Leaderboard:    leaderboard,
		DB:             db,
	}
}

// SelfCorrect 学生标注自己主观题的对错。不走批改队列，
// 直接在计数器上做增量修正；重复标注同一判定是幂等空操作。
func (s *GradingService) SelfCorrect(userID, resultID, questionID uint, markedCorrect bool) (*model.SimulationResult, error) {
	var updated *model.SimulationResult

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		result, err := s.ResultRepo.FindByIDForUpdate(tx, resultID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return util.ErrResultNotFound
			}
			return err
		}
		if result.UserID != userID {
			return util.ErrNotOwner
		}
		if result.Status != model.ResultCompleted {
			return util.ErrAttemptNotActive
		}

		sim, err := s.SimRepo.FindByIDWithQuestions(result.SimulationID)
		if err != nil {
			return err
		}
		if !sim.ShowAnswers {
			return util.ErrSelfCorrectionOff
		}

		question := findQuestion(sim.Questions, questionID)
		if question == nil || question.QuestionType != model.QuestionTypeOpen {
			return util.InvalidStateError("question is not a self-correctable open question")
		}

		var answer model.ResultAnswer
		if err := tx.Where("result_id = ? AND question_id = ?", resultID, questionID).
			First(&answer).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return util.ErrResultNotFound
			}
			return err
		}
		if answer.OpenText == "" {
			return util.InvalidStateError("blank answers cannot be self-corrected")
		}

		newOutcome := model.OutcomeIncorrect
		newPoints := 0.0 // 自评记错不扣分
		if markedCorrect {
			newOutcome = model.OutcomeCorrect
			newPoints = ResolveCorrectPoints(question, PolicyFromSimulation(sim))
		}

		if answer.Outcome == newOutcome {
			updated = result
			return nil
		}

		// 旧判定出账，新判定入账
		switch answer.Outcome {
		case model.OutcomeCorrect:
			result.CorrectAnswers--
		case model.OutcomeIncorrect:
			result.WrongAnswers--
		case model.OutcomePending:
			result.PendingOpenAnswers--
			if result.PendingOpenAnswers < 0 {
				result.PendingOpenAnswers = 0
			}
		}
		if markedCorrect {
			result.CorrectAnswers++
		} else {
			result.WrongAnswers++
		}

		result.TotalScore += newPoints - answer.Points
		result.PercentageScore = Percentage(result.TotalScore, EffectiveMaxScore(sim))

		answer.Outcome = newOutcome
		answer.Points = newPoints
		if err := tx.Save(&answer).Error; err != nil {
			return err
		}
		if err := tx.Save(result).Error; err != nil {
			return err
		}

		updated = result
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Leaderboard.Invalidate(updated.SimulationID, updated.AssignmentID)
	return updated, nil
}

// Validation 教师对单条主观题的打分，score ∈ [-1,1]
type Validation struct {
	SubmissionID uint    `json:"submissionId" binding:"required"`
	Score        float64 `json:"score"`
	Notes        string  `json:"notes,omitempty"`
}

// Validate 批改单条主观题作答
func (s *GradingService) Validate(graderID uint, v Validation) (*model.OpenAnswerSubmission, error) {
	sub, err := s.OpenAnswerRepo.FindByID(v.SubmissionID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrSubmissionNotFound
		}
		return nil, err
	}

	var graded *model.OpenAnswerSubmission
	err = s.validateForResult(graderID, sub.ResultID, []Validation{v}, func(subs []model.OpenAnswerSubmission) {
		if len(subs) > 0 {
			graded = &subs[0]
		}
	})
	return graded, err
}

// ValidateBatch 一个事务内批改同一份作答的多条主观题
func (s *GradingService) ValidateBatch(graderID, resultID uint, validations []Validation) error {
	return s.validateForResult(graderID, resultID, validations, nil)
}

func (s *GradingService) validateForResult(graderID, resultID uint, validations []Validation, done func([]model.OpenAnswerSubmission)) error {
	for _, v := range validations {
		if v.Score < -1 || v.Score > 1 {
			return util.InvalidStateError("manual score must be within [-1, 1]")
		}
	}

	var reviewed *model.SimulationResult

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		result, err := s.ResultRepo.FindByIDForUpdate(tx, resultID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return util.ErrResultNotFound
			}
			return err
		}
		if result.Status != model.ResultCompleted {
			return util.ErrAttemptNotActive
		}

		now := time.Now()
		graded := make([]model.OpenAnswerSubmission, 0, len(validations))
		for _, v := range validations {
			var sub model.OpenAnswerSubmission
			if err := tx.First(&sub, v.SubmissionID).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					return util.ErrSubmissionNotFound
				}
				return err
			}
			if sub.ResultID != result.ID {
				return util.InvalidStateError("submission does not belong to this result")
			}

			score := v.Score
			sub.ManualScore = &score
			sub.FinalScore = score
			sub.Validated = true
			sub.ValidatorID = graderID
			sub.ValidatedAt = &now
			sub.Notes = v.Notes
			if err := tx.Save(&sub).Error; err != nil {
				return err
			}
			graded = append(graded, sub)
		}

		var remaining int64
		if err := tx.Model(&model.OpenAnswerSubmission{}).
			Where("result_id = ? AND validated = ?", result.ID, false).
			Count(&remaining).Error; err != nil {
			return err
		}

		result.PendingOpenAnswers = int(remaining)
		if remaining == 0 {
			result.ReviewedAt = &now
			result.ReviewedBy = graderID
			if err := s.recalculate(tx, result); err != nil {
				return err
			}
			reviewed = result
		}

		if err := tx.Save(result).Error; err != nil {
			return err
		}
		if done != nil {
			done(graded)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if reviewed != nil {
		s.Notifier.Dispatch(Notification{
			Type:     NotifyReviewCompleted,
			UserID:   reviewed.UserID,
			ResultID: reviewed.ID,
		})
		s.Leaderboard.Invalidate(reviewed.SimulationID, reviewed.AssignmentID)
	}
	return nil
}

// recalculate 从完整作答集合重算计数和总分，重复调用结果不变。
// 主观题得分 = finalScore × 该题分值，finalScore ≥ 0.5 记为答对。
func (s *GradingService) recalculate(tx *gorm.DB, result *model.SimulationResult) error {
	sim, err := s.SimRepo.FindByIDWithQuestions(result.SimulationID)
	if err != nil {
		return err
	}
	policy := PolicyFromSimulation(sim)

	var answers []model.ResultAnswer
	if err := tx.Where("result_id = ?", result.ID).Find(&answers).Error; err != nil {
		return err
	}
	var subs []model.OpenAnswerSubmission
	if err := tx.Where("result_id = ?", result.ID).Find(&subs).Error; err != nil {
		return err
	}
	subByQuestion := make(map[uint]*model.OpenAnswerSubmission, len(subs))
	for i := range subs {
		subByQuestion[subs[i].QuestionID] = &subs[i]
	}

	var total float64
	var correct, wrong, blank, pending int

	for i := range answers {
		a := &answers[i]
		sub, hasSub := subByQuestion[a.QuestionID]
		if !hasSub {
			// 选择题和自评题直接按已存的判定入账
			switch a.Outcome {
			case model.OutcomeCorrect:
				correct++
			case model.OutcomeIncorrect:
				wrong++
			case model.OutcomeBlank:
				blank++
			case model.OutcomePending:
				pending++
			}
			total += a.Points
			continue
		}

		if !sub.Validated {
			pending++
			continue
		}

		question := findQuestion(sim.Questions, a.QuestionID)
		var points float64
		if question != nil {
			points = sub.FinalScore * ResolveCorrectPoints(question, policy)
		}
		outcome := model.OutcomeIncorrect
		if sub.FinalScore >= 0.5 {
			outcome = model.OutcomeCorrect
			correct++
		} else {
			wrong++
		}
		total += points

		// 回写答案行，保持 totalScore = Σ answer.Points 不变式
		if a.Outcome != outcome || a.Points != points {
			a.Outcome = outcome
			a.Points = points
			if err := tx.Save(a).Error; err != nil {
				return err
			}
		}
	}

	result.CorrectAnswers = correct
	result.WrongAnswers = wrong
	result.BlankAnswers = blank
	result.PendingOpenAnswers = pending
	result.TotalScore = total
	result.PercentageScore = Percentage(total, EffectiveMaxScore(sim))
	return nil
}

// PendingSubmissions 批改队列：模拟测试下全部待批改主观题，仅创建者和管理员可看
func (s *GradingService) PendingSubmissions(callerID uint, callerRole model.UserRole, simulationID uint) ([]model.OpenAnswerSubmission, error) {
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
	return s.OpenAnswerRepo.ListPendingBySimulation(simulationID)
}

// SubmissionsForResult 单份作答的主观题列表，供批改界面使用
func (s *GradingService) SubmissionsForResult(callerID uint, callerRole model.UserRole, resultID uint) ([]model.OpenAnswerSubmission, error) {
	result, err := s.ResultRepo.FindByID(resultID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrResultNotFound
		}
		return nil, err
	}

	sim, err := s.SimRepo.FindByID(result.SimulationID)
	if err != nil {
		return nil, err
	}
	if callerRole != model.Admin && sim.CreatorID != callerID {
		return nil, util.ErrPermissionDenied
	}
	return s.OpenAnswerRepo.FindByResult(resultID)
}

func findQuestion(questions []model.SimulationQuestion, id uint) *model.SimulationQuestion {
	for i := range questions {
		if questions[i].ID == id {
			return &questions[i]
		}
	}
	return nil
}
