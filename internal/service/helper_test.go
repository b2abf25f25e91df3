package service

import (
	"fmt"
	"strings"
	"testing"

	"exam_sim_backend/internal/model"
	"exam_sim_backend/internal/repository"
	"exam_sim_backend/internal/util"
	"exam_sim_backend/pkg/logger"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	logger.Log = zap.NewNop()
}

// newTestDB 每个测试一个独立的内存库。用带名字的 shared cache DSN，
// 避免连接池多连接各开一个空库
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Group{},
		&model.GroupMember{},
		&model.Simulation{},
		&model.SimulationQuestion{},
		&model.QuestionOption{},
		&model.QuestionKeyword{},
		&model.Assignment{},
		&model.SimulationRoom{},
		&model.SimulationResult{},
		&model.ResultAnswer{},
		&model.OpenAnswerSubmission{},
	))
	return db
}

type testEnv struct {
	DB *gorm.DB

	SimRepo        *repository.SimulationRepository
	UserRepo       *repository.UserRepository
	AssignmentRepo *repository.AssignmentRepository
	ResultRepo     *repository.ResultRepository
	OpenAnswerRepo *repository.OpenAnswerRepository

	Access      *AccessService
	Attempts    *AttemptService
	Grading     *GradingService
	Leaderboard *LeaderboardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)

	simRepo := repository.NewSimulationRepository(db)
	userRepo := repository.NewUserRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	resultRepo := repository.NewResultRepository(db)
	openAnswerRepo := repository.NewOpenAnswerRepository(db)

	access := NewAccessService(assignmentRepo, userRepo, resultRepo)
	notifier := NewNotificationService(LogSender{})
	leaderboard := NewLeaderboardService(simRepo, resultRepo, userRepo, nil)
	attempts := NewAttemptService(simRepo, resultRepo, access, notifier, leaderboard, util.NewShuffler(1), db)
	grading := NewGradingService(simRepo, resultRepo, openAnswerRepo, notifier, leaderboard, db)

	return &testEnv{
		DB:             db,
		SimRepo:        simRepo,
		UserRepo:       userRepo,
		AssignmentRepo: assignmentRepo,
		ResultRepo:     resultRepo,
		OpenAnswerRepo: openAnswerRepo,
		Access:         access,
		Attempts:       attempts,
		Grading:        grading,
		Leaderboard:    leaderboard,
	}
}

func (e *testEnv) createUser(t *testing.T, name string, role model.UserRole) *model.User {
	t.Helper()
	user := &model.User{
		Name:     name,
		Email:    fmt.Sprintf("%s@example.com", strings.ToLower(name)),
		Password: "hashed",
		Role:     role,
	}
	require.NoError(t, e.DB.Create(user).Error)
	return user
}

// createSimulation 建一个已发布的模板并带题目重新加载
func (e *testEnv) createSimulation(t *testing.T, sim *model.Simulation, questions ...*model.SimulationQuestion) *model.Simulation {
	t.Helper()
	if sim.AccessMode == "" {
		sim.AccessMode = model.AccessModeOpen
	}
	if sim.CorrectPoints == 0 {
		sim.CorrectPoints = 1
	}
	sim.IsPublished = true
	require.NoError(t, e.DB.Create(sim).Error)

	for idx, q := range questions {
		q.SimulationID = sim.ID
		q.Order = idx + 1
		require.NoError(t, e.DB.Create(q).Error)
	}

	loaded, err := e.SimRepo.FindByIDWithQuestions(sim.ID)
	require.NoError(t, err)
	return loaded
}

// choiceQuestion 两个选项的选择题，第一个选项为正确答案
func choiceQuestion(subject string) *model.SimulationQuestion {
	return &model.SimulationQuestion{
		QuestionType: model.QuestionTypeChoice,
		Text:         "pick one",
		Subject:      subject,
		Options: []model.QuestionOption{
			{Text: "right", IsCorrect: true, Order: 1},
			{Text: "wrong", Order: 2},
		},
	}
}

func openQuestion(subject string, keywords ...model.QuestionKeyword) *model.SimulationQuestion {
	return &model.SimulationQuestion{
		QuestionType: model.QuestionTypeOpen,
		Text:         "explain",
		Subject:      subject,
		Keywords:     keywords,
	}
}

// correctOptionID 题目的正确选项 ID
func correctOptionID(t *testing.T, q model.SimulationQuestion) *uint {
	t.Helper()
	for _, opt := range q.Options {
		if opt.IsCorrect {
			id := opt.ID
			return &id
		}
	}
	t.Fatalf("question %d has no correct option", q.ID)
	return nil
}

func wrongOptionID(t *testing.T, q model.SimulationQuestion) *uint {
	t.Helper()
	for _, opt := range q.Options {
		if !opt.IsCorrect {
			id := opt.ID
			return &id
		}
	}
	t.Fatalf("question %d has no wrong option", q.ID)
	return nil
}
