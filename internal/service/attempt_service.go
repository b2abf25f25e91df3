package service

import (
	"encoding/json"
	"time"

	"exam_sim_backend/internal/model"
	"exam_sim_backend/internal/repository"
	"exam_sim_backend/internal/util"

	"gorm.io/gorm"
)

// AttemptService 一次作答的生命周期：start → checkpoint* → submit。
// submit 之后记录只能被批改或自评修正，永远不会重新打开。
type AttemptService struct {
	SimRepo     *repository.SimulationRepository
	ResultRepo  *repository.ResultRepository
	Access      *AccessService
	Notifier    *NotificationService
	Leaderboard *LeaderboardService
	Shuffler    util.Shuffler
	DB          *gorm.DB
}

func NewAttemptService(
	simRepo *repository.SimulationRepository,
	resultRepo *repository.ResultRepository,
	access *AccessService,
	notifier *NotificationService,
	leaderboard *LeaderboardService,
	shuffler util.Shuffler,
	db *gorm.DB,
) *AttemptService {
	return &AttemptService{
		SimRepo:     simRepo,
		ResultRepo:  resultRepo,
		Access:      access,
		Notifier:    notifier,
		Leaderboard: leaderboard,
		Shuffler:    shuffler,
		DB:          db,
	}
}

// QuestionView 发给学生端的题目，去掉正确选项标记和关键词规则
type QuestionView struct {
	ID           uint         `json:"id"`
	QuestionType string       `json:"questionType"`
	Text         string       `json:"text"`
	Subject      string       `json:"subject"`
	Points       float64      `json:"points"`
	Order        int          `json:"order"`
	Options      []OptionView `json:"options,omitempty"`
}

type OptionView struct {
	ID    uint   `json:"id"`
	Text  string `json:"text"`
	Order int    `json:"order"`
}

type StartAttemptResponse struct {
	Result     *model.SimulationResult   `json:"result"`
	Resumed    bool                      `json:"resumed"`
	Checkpoint *model.CheckpointSnapshot `json:"checkpoint,omitempty"`
	Questions  []QuestionView            `json:"questions"`
}

// Start 开始或续做一次作答。
// 闸门顺序：时间窗（考场可提前放行）→ 考场失效清理 → 次数限制。
// 仍有效的未完成作答连同断点快照一起返回，客户端可原地恢复。
func (s *AttemptService) Start(userID uint, simulationID uint) (*StartAttemptResponse, error) {
	sim, err := s.SimRepo.FindByIDWithQuestions(simulationID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrSimulationNotFound
		}
		return nil, err
	}
	if !sim.IsPublished && sim.CreatorID != userID {
		return nil, util.ErrSimulationNotFound
	}

	now := time.Now()
	accessCtx, err := s.Access.CheckAccess(userID, sim, now)
	if err != nil {
		return nil, err
	}

	existing, err := s.ResultRepo.FindInProgress(userID, sim.ID, accessCtx.AssignmentID())
	if err != nil {
		return nil, err
	}

	// 考场模式下，旧一轮考场遗留的未完成作答作废：
	// 作答开始时间早于当前考场创建时间，说明教师已经收过一次场
	if existing != nil && sim.AccessMode == model.AccessModeRoom &&
		accessCtx.Room != nil && existing.StartedAt.Before(accessCtx.Room.CreatedAt) {
		if err := s.ResultRepo.DeleteWithAnswers(existing.ID); err != nil {
			return nil, err
		}
		existing = nil
	}

	completed, err := s.ResultRepo.CountCompleted(userID, sim.ID)
	if err != nil {
		return nil, err
	}
	if err := CheckAttemptLimits(completed, existing != nil, sim.Repeatable, sim.MaxAttempts); err != nil {
		return nil, err
	}

	if existing != nil {
		snap, err := model.DecodeCheckpoint(existing.Checkpoint)
		if err != nil {
			return nil, err
		}
		return &StartAttemptResponse{
			Result:     existing,
			Resumed:    true,
			Checkpoint: snap,
			Questions:  s.questionViews(sim),
		}, nil
	}

	result := &model.SimulationResult{
		UserID:       userID,
		SimulationID: sim.ID,
		AssignmentID: accessCtx.AssignmentID(),
		Status:       model.ResultInProgress,
		StartedAt:    now,
	}
	if err := s.ResultRepo.Create(result); err != nil {
		return nil, err
	}

	return &StartAttemptResponse{
		Result:    result,
		Questions: s.questionViews(sim),
	}, nil
}

func (s *AttemptService) questionViews(sim *model.Simulation) []QuestionView {
	views := make([]QuestionView, 0, len(sim.Questions))
	for _, q := range sim.Questions {
		view := QuestionView{
			ID:           q.ID,
			QuestionType: q.QuestionType,
			Text:         q.Text,
			Subject:      q.Subject,
			Points:       ResolveCorrectPoints(&q, PolicyFromSimulation(sim)),
			Order:        q.Order,
		}
		for _, opt := range q.Options {
			view.Options = append(view.Options, OptionView{ID: opt.ID, Text: opt.Text, Order: opt.Order})
		}
		views = append(views, view)
	}

	if sim.ShuffleQuestions && s.Shuffler != nil {
		s.Shuffler.Shuffle(len(views), func(i, j int) {
			views[i], views[j] = views[j], views[i]
		})
	}
	return views
}

type CheckpointRequest struct {
	Answers        []model.CheckpointAnswer `json:"answers"`
	SectionTimes   []int                    `json:"sectionTimes,omitempty"`
	SectionIndex   int                      `json:"sectionIndex,omitempty"`
	ElapsedSeconds int                      `json:"elapsedSeconds"`
}

// Checkpoint 覆盖断点快照，只允许未完成的作答；写入一律用信封格式
func (s *AttemptService) Checkpoint(userID, resultID uint, req CheckpointRequest) error {
	result, err := s.ResultRepo.FindByID(resultID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return util.ErrResultNotFound
		}
		return err
	}
	if result.UserID != userID {
		return util.ErrNotOwner
	}
	if result.Status != model.ResultInProgress {
		return util.ErrAttemptNotActive
	}

	snap := &model.CheckpointSnapshot{
		Answers:      req.Answers,
		SectionTimes: req.SectionTimes,
		SectionIndex: req.SectionIndex,
	}
	encoded, err := snap.Encode()
	if err != nil {
		return err
	}

	result.Checkpoint = encoded
	result.TimeSpentSeconds = req.ElapsedSeconds
	return s.ResultRepo.Update(result)
}

// Submit 提交并判分。行锁串行化同一作答上的并发提交，
// 已完成的作答再次提交直接拒绝，绝不重复判分。
func (s *AttemptService) Submit(userID, resultID uint, answers []SubmittedAnswer, elapsedSeconds int) (*model.SimulationResult, error) {
	var submitted *model.SimulationResult
	var sim *model.Simulation

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
		if result.Status == model.ResultCompleted {
			return util.ErrAlreadySubmitted
		}

		loaded, err := s.SimRepo.FindByIDWithQuestions(result.SimulationID)
		if err != nil {
			return err
		}
		sim = loaded

		eval := EvaluateAnswers(sim.Questions, answers, PolicyFromSimulation(sim))

		now := time.Now()
		subjectStats, err := json.Marshal(eval.SubjectStats)
		if err != nil {
			return err
		}

		result.Status = model.ResultCompleted
		result.CompletedAt = &now
		result.TimeSpentSeconds = elapsedSeconds
		result.CorrectAnswers = eval.Correct
		result.WrongAnswers = eval.Wrong
		result.BlankAnswers = eval.Blank
		result.PendingOpenAnswers = eval.Pending
		result.TotalScore = eval.TotalScore
		result.PercentageScore = Percentage(eval.TotalScore, EffectiveMaxScore(sim))
		result.SubjectStats = subjectStats
		result.Checkpoint = nil

		if err := tx.Save(result).Error; err != nil {
			return err
		}

		rows := make([]model.ResultAnswer, 0, len(eval.Answers))
		for _, a := range eval.Answers {
			rows = append(rows, model.ResultAnswer{
				ResultID:         result.ID,
				QuestionID:       a.QuestionID,
				SelectedOptionID: a.SelectedOptionID,
				OpenText:         a.OpenText,
				Outcome:          a.Outcome,
				Points:           a.Points,
				TimeSpentSeconds: a.TimeSpentSeconds,
			})
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}

		// 仅在需要教师批改时建立批改队列；开启自评的模板不建
		if !sim.ShowAnswers {
			var subs []model.OpenAnswerSubmission
			for _, a := range eval.Answers {
				if a.Outcome != model.OutcomePending {
					continue
				}
				missed, err := json.Marshal(a.MissedKeywords)
				if err != nil {
					return err
				}
				subs = append(subs, model.OpenAnswerSubmission{
					ResultID:       result.ID,
					QuestionID:     a.QuestionID,
					AnswerText:     a.OpenText,
					KeywordScore:   a.KeywordScore,
					MissedKeywords: missed,
				})
			}
			if len(subs) > 0 {
				if err := tx.Create(&subs).Error; err != nil {
					return err
				}
			}
		}

		submitted = result
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Notifier.Dispatch(Notification{
		Type:     NotifyAttemptCompleted,
		UserID:   userID,
		ResultID: submitted.ID,
		Message:  sim.Title,
	})
	s.Leaderboard.Invalidate(submitted.SimulationID, submitted.AssignmentID)

	return submitted, nil
}

// GetResult 查看一次作答，学生只能看自己的
func (s *AttemptService) GetResult(callerID uint, callerRole model.UserRole, resultID uint) (*model.SimulationResult, error) {
	result, err := s.ResultRepo.FindByIDWithAnswers(resultID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrResultNotFound
		}
		return nil, err
	}
	if result.UserID != callerID && callerRole == model.Student {
		return nil, util.ErrNotOwner
	}
	return result, nil
}

func (s *AttemptService) ListMyResults(userID uint, page, limit int) ([]model.SimulationResult, int64, error) {
	return s.ResultRepo.ListByUser(userID, page, limit)
}

// EffectiveMaxScore 满分：模板配置优先，未配置按题数×单题分推算
func EffectiveMaxScore(sim *model.Simulation) float64 {
	if sim.MaxScore > 0 {
		return sim.MaxScore
	}
	return float64(len(sim.Questions)) * sim.CorrectPoints
}

func Percentage(total, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return total / max * 100
}
