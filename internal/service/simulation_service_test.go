package service

import (
	"testing"

	"exam_sim_backend/internal/model"
	"exam_sim_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSimulationService(env *testEnv) *SimulationService {
	return NewSimulationService(env.SimRepo, env.DB)
}

func TestCreateSimulationNested(t *testing.T) {
	env := newTestEnv(t)
	svc := newSimulationService(env)
	teacher := env.createUser(t, "Teacher", model.Teacher)

	sim, err := svc.CreateSimulation(teacher.ID, SimulationCreateRequest{
		Title:       "networking basics",
		AccessMode:  model.AccessModeOpen,
		WrongPoints: -0.5,
		Questions: []QuestionRequest{
			{
				QuestionType: model.QuestionTypeChoice,
				Text:         "which layer?",
				Subject:      "networking",
				Options: []OptionRequest{
					{Text: "transport", IsCorrect: true},
					{Text: "session"},
				},
			},
			{
				QuestionType: model.QuestionTypeOpen,
				Text:         "describe the handshake",
				Subject:      "networking",
				Keywords: []KeywordRequest{
					{Text: "SYN", Required: true},
					{Text: "ACK", Weight: 2},
				},
			},
		},
	})
	require.NoError(t, err)

	assert.InDelta(t, 1, sim.CorrectPoints, 1e-9, "未填计分默认每题 1 分")
	assert.True(t, sim.ShowResults)
	assert.True(t, sim.AllowReview)

	require.Len(t, sim.Questions, 2)
	assert.Equal(t, 1, sim.Questions[0].Order)
	assert.Len(t, sim.Questions[0].Options, 2)
	require.Len(t, sim.Questions[1].Keywords, 2)
	assert.InDelta(t, 1, sim.Questions[1].Keywords[0].Weight, 1e-9, "权重默认为 1")
}

func TestCreateSimulationValidation(t *testing.T) {
	env := newTestEnv(t)
	svc := newSimulationService(env)
	teacher := env.createUser(t, "Teacher", model.Teacher)

	// 选择题至少两个选项
	_, err := svc.CreateSimulation(teacher.ID, SimulationCreateRequest{
		Title: "bad", Questions: []QuestionRequest{{
			QuestionType: model.QuestionTypeChoice, Text: "q",
			Options: []OptionRequest{{Text: "only", IsCorrect: true}},
		}},
	})
	assert.Error(t, err)

	// 选择题必须有正确选项
	_, err = svc.CreateSimulation(teacher.ID, SimulationCreateRequest{
		Title: "bad", Questions: []QuestionRequest{{
			QuestionType: model.QuestionTypeChoice, Text: "q",
			Options: []OptionRequest{{Text: "a"}, {Text: "b"}},
		}},
	})
	assert.Error(t, err)

	// 主观题不能带选项
	_, err = svc.CreateSimulation(teacher.ID, SimulationCreateRequest{
		Title: "bad", Questions: []QuestionRequest{{
			QuestionType: model.QuestionTypeOpen, Text: "q",
			Options: []OptionRequest{{Text: "a"}},
		}},
	})
	assert.Error(t, err)

	_, err = svc.CreateSimulation(teacher.ID, SimulationCreateRequest{
		Title: "bad", AccessMode: "unknown",
	})
	assert.Error(t, err)
}

func TestAddQuestionAppendsOrder(t *testing.T) {
	env := newTestEnv(t)
	svc := newSimulationService(env)
	teacher := env.createUser(t, "Teacher", model.Teacher)
	sim := env.createSimulation(t, &model.Simulation{Title: "growing", CreatorID: teacher.ID},
		choiceQuestion("math"))

	question, err := svc.AddQuestion(teacher.ID, model.Teacher, sim.ID, QuestionRequest{
		QuestionType: model.QuestionTypeOpen,
		Text:         "explain",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, question.Order)

	other := env.createUser(t, "Other", model.Teacher)
	_, err = svc.AddQuestion(other.ID, model.Teacher, sim.ID, QuestionRequest{
		QuestionType: model.QuestionTypeOpen,
		Text:         "not yours",
	})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}

func TestPublishToggle(t *testing.T) {
	env := newTestEnv(t)
	svc := newSimulationService(env)
	teacher := env.createUser(t, "Teacher", model.Teacher)
	sim := env.createSimulation(t, &model.Simulation{Title: "toggle", CreatorID: teacher.ID})

	updated, err := svc.Publish(teacher.ID, model.Teacher, sim.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.IsPublished)

	// 管理员可以操作任何模板
	admin := env.createUser(t, "Admin", model.Admin)
	updated, err = svc.Publish(admin.ID, model.Admin, sim.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.IsPublished)
}
