package service

import (
	"errors"
	"time"

	"exam_sim_backend/internal/model"
	"exam_sim_backend/internal/repository"
	"exam_sim_backend/internal/util"

	"gorm.io/gorm"
)

// SimulationService 模板编辑端。学生端取题走 AttemptService，
// 这里只服务创建者和管理员。
type SimulationService struct {
	SimRepo *repository.SimulationRepository
	DB      *gorm.DB
}

func NewSimulationService(simRepo *repository.SimulationRepository, db *gorm.DB) *SimulationService {
	return &SimulationService{
		SimRepo: simRepo,
		DB:      db,
	}
}

type OptionRequest struct {
	Text      string `json:"text" binding:"required"`
	IsCorrect bool   `json:"isCorrect"`
}

type KeywordRequest struct {
	Text     string  `json:"text" binding:"required"`
	Weight   float64 `json:"weight"`
	Required bool    `json:"required"`
}

type QuestionRequest struct {
	QuestionType string           `json:"questionType" binding:"required"`
	Text         string           `json:"text" binding:"required"`
	Subject      string           `json:"subject"`
	Points       float64          `json:"points"`
	CustomPoints *float64         `json:"customPoints"`
	Explanation  string           `json:"explanation"`
	Options      []OptionRequest  `json:"options"`
	Keywords     []KeywordRequest `json:"keywords"`
}

type SimulationCreateRequest struct {
	Title            string            `json:"title" binding:"required"`
	Description      string            `json:"description"`
	AccessMode       string            `json:"accessMode"`
	CorrectPoints    float64           `json:"correctPoints"`
	WrongPoints      float64           `json:"wrongPoints"`
	BlankPoints      float64           `json:"blankPoints"`
	UsesCustomPoints bool              `json:"usesCustomPoints"`
	MaxScore         float64           `json:"maxScore"`
	Repeatable       bool              `json:"repeatable"`
	MaxAttempts      int               `json:"maxAttempts"`
	ShowResults      *bool             `json:"showResults"`
	ShowAnswers      bool              `json:"showAnswers"`
	AllowReview      *bool             `json:"allowReview"`
	ShuffleQuestions bool              `json:"shuffleQuestions"`
	TimeLimit        int               `json:"timeLimit"`
	IsPublished      bool              `json:"isPublished"`
	StartsAt         *time.Time        `json:"startsAt"`
	EndsAt           *time.Time        `json:"endsAt"`
	Questions        []QuestionRequest `json:"questions"`
}

func (s *SimulationService) CreateSimulation(creatorID uint, req SimulationCreateRequest) (*model.Simulation, error) {
	if req.AccessMode == "" {
		req.AccessMode = model.AccessModeOpen
	}
	if req.AccessMode != model.AccessModeOpen && req.AccessMode != model.AccessModeRoom {
		return nil, errors.New("invalid access mode")
	}
	for _, q := range req.Questions {
		if err := validateQuestion(q); err != nil {
			return nil, err
		}
	}

	correctPoints := req.CorrectPoints
	if correctPoints == 0 {
		correctPoints = 1
	}
	showResults := true
	if req.ShowResults != nil {
		showResults = *req.ShowResults
	}
	allowReview := true
	if req.AllowReview != nil {
		allowReview = *req.AllowReview
	}

	var created *model.Simulation
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		sim := &model.Simulation{
			Title:            req.Title,
			Description:      req.Description,
			CreatorID:        creatorID,
			AccessMode:       req.AccessMode,
			CorrectPoints:    correctPoints,
			WrongPoints:      req.WrongPoints,
			BlankPoints:      req.BlankPoints,
			UsesCustomPoints: req.UsesCustomPoints,
			MaxScore:         req.MaxScore,
			Repeatable:       req.Repeatable,
			MaxAttempts:      req.MaxAttempts,
			ShowResults:      showResults,
			ShowAnswers:      req.ShowAnswers,
			AllowReview:      allowReview,
			ShuffleQuestions: req.ShuffleQuestions,
			TimeLimit:        req.TimeLimit,
			IsPublished:      req.IsPublished,
			StartsAt:         req.StartsAt,
			EndsAt:           req.EndsAt,
		}
		if err := tx.Create(sim).Error; err != nil {
			return err
		}

		for idx, q := range req.Questions {
			question := &model.SimulationQuestion{
				SimulationID: sim.ID,
				QuestionType: q.QuestionType,
				Text:         q.Text,
				Subject:      q.Subject,
				Points:       q.Points,
				CustomPoints: q.CustomPoints,
				Explanation:  q.Explanation,
				Order:        idx + 1,
			}
			if err := tx.Create(question).Error; err != nil {
				return err
			}

			for oidx, opt := range q.Options {
				option := &model.QuestionOption{
					QuestionID: question.ID,
					Text:       opt.Text,
					IsCorrect:  opt.IsCorrect,
					Order:      oidx + 1,
				}
				if err := tx.Create(option).Error; err != nil {
					return err
				}
			}

			for _, kw := range q.Keywords {
				weight := kw.Weight
				if weight <= 0 {
					weight = 1
				}
				keyword := &model.QuestionKeyword{
					QuestionID: question.ID,
					Text:       kw.Text,
					Weight:     weight,
					Required:   kw.Required,
				}
				if err := tx.Create(keyword).Error; err != nil {
					return err
				}
			}
		}

		created = sim
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.SimRepo.FindByIDWithQuestions(created.ID)
}

func validateQuestion(q QuestionRequest) error {
	switch q.QuestionType {
	case model.QuestionTypeChoice:
		if len(q.Options) < 2 {
			return errors.New("choice questions need at least two options")
		}
		hasCorrect := false
		for _, opt := range q.Options {
			if opt.IsCorrect {
				hasCorrect = true
			}
		}
		if !hasCorrect {
			return errors.New("choice questions need a correct option")
		}
	case model.QuestionTypeOpen:
		if len(q.Options) > 0 {
			return errors.New("open questions cannot have options")
		}
	default:
		return errors.New("unknown question type")
	}
	return nil
}

// AddQuestion 给已有模板追加一道题，排序接在末尾
func (s *SimulationService) AddQuestion(callerID uint, callerRole model.UserRole, simulationID uint, req QuestionRequest) (*model.SimulationQuestion, error) {
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
	if err := validateQuestion(req); err != nil {
		return nil, err
	}

	count, err := s.SimRepo.CountQuestions(simulationID)
	if err != nil {
		return nil, err
	}

	question := &model.SimulationQuestion{
		SimulationID: simulationID,
		QuestionType: req.QuestionType,
		Text:         req.Text,
		Subject:      req.Subject,
		Points:       req.Points,
		CustomPoints: req.CustomPoints,
		Explanation:  req.Explanation,
		Order:        int(count) + 1,
	}
	for oidx, opt := range req.Options {
		question.Options = append(question.Options, model.QuestionOption{
			Text:      opt.Text,
			IsCorrect: opt.IsCorrect,
			Order:     oidx + 1,
		})
	}
	for _, kw := range req.Keywords {
		weight := kw.Weight
		if weight <= 0 {
			weight = 1
		}
		question.Keywords = append(question.Keywords, model.QuestionKeyword{
			Text:     kw.Text,
			Weight:   weight,
			Required: kw.Required,
		})
	}

	if err := s.SimRepo.CreateQuestion(question); err != nil {
		return nil, err
	}
	return question, nil
}

func (s *SimulationService) DeleteQuestion(callerID uint, callerRole model.UserRole, questionID uint) error {
	question, err := s.SimRepo.FindQuestionByID(questionID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return util.NotFoundError("question not found")
		}
		return err
	}

	sim, err := s.SimRepo.FindByID(question.SimulationID)
	if err != nil {
		return err
	}
	if callerRole != model.Admin && sim.CreatorID != callerID {
		return util.ErrPermissionDenied
	}
	return s.SimRepo.DeleteQuestion(questionID)
}

func (s *SimulationService) GetSimulation(callerID uint, callerRole model.UserRole, id uint) (*model.Simulation, error) {
	sim, err := s.SimRepo.FindByIDWithQuestions(id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrSimulationNotFound
		}
		return nil, err
	}
	if callerRole != model.Admin && sim.CreatorID != callerID {
		return nil, util.ErrPermissionDenied
	}
	return sim, nil
}

func (s *SimulationService) ListSimulations(page, limit int) ([]model.Simulation, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.SimRepo.List(page, limit)
}

// Publish 发布后学生可见可作答
func (s *SimulationService) Publish(callerID uint, callerRole model.UserRole, id uint, published bool) (*model.Simulation, error) {
	sim, err := s.SimRepo.FindByID(id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrSimulationNotFound
		}
		return nil, err
	}
	if callerRole != model.Admin && sim.CreatorID != callerID {
		return nil, util.ErrPermissionDenied
	}

	sim.IsPublished = published
	if err := s.SimRepo.Update(sim); err != nil {
		return nil, err
	}
	return sim, nil
}

func (s *SimulationService) DeleteSimulation(callerID uint, callerRole model.UserRole, id uint) error {
	sim, err := s.SimRepo.FindByID(id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return util.ErrSimulationNotFound
		}
		return err
	}
	if callerRole != model.Admin && sim.CreatorID != callerID {
		return util.ErrPermissionDenied
	}
	return s.SimRepo.Delete(id)
}
