package service

import (
	"testing"

	"exam_sim_backend/internal/model"
	"exam_sim_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartCreatesAttempt(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.createUser(t, "Teacher", model.Teacher)
	student := env.createUser(t, "Student", model.Student)
	sim := env.createSimulation(t, &model.Simulation{Title: "quiz", CreatorID: teacher.ID},
		choiceQuestion("math"), openQuestion("cs"))

	resp, err := env.Attempts.Start(student.ID, sim.ID)
	require.NoError(t, err)
	assert.False(t, resp.Resumed)
	assert.Equal(t, model.ResultInProgress, resp.Result.Status)
	assert.Nil(t, resp.Result.AssignmentID)

	require.Len(t, resp.Questions, 2)
	for _, q := range resp.Questions {
		if q.QuestionType == model.QuestionTypeChoice {
			assert.Len(t, q.Options, 2)
		} else {
			assert.Empty(t, q.Options)
		}
	}
}

func TestStartUnpublishedHiddenFromStudents(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.createUser(t, "Teacher", model.Teacher)
	student := env.createUser(t, "Student", model.Student)

	sim := env.createSimulation(t, &model.Simulation{Title: "draft", CreatorID: teacher.ID})
	sim.IsPublished = false
	require.NoError(t, env.SimRepo.Update(sim))

	_, err := env.Attempts.Start(student.ID, sim.ID)
	assert.ErrorIs(t, err, util.ErrSimulationNotFound)

	// 创建者可以试做自己未发布的模板
	_, err = env.Attempts.Start(teacher.ID, sim.ID)
	assert.NoError(t, err)
}

func TestStartAttemptLimit(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.createUser(t, "Teacher", model.Teacher)
	student := env.createUser(t, "Student", model.Student)
	sim := env.createSimulation(t, &model.Simulation{Title: "one-shot", CreatorID: teacher.ID},
		choiceQuestion("math"))

	resp, err := env.Attempts.Start(student.ID, sim.ID)
	require.NoError(t, err)
	_, err = env.Attempts.Submit(student.ID, resp.Result.ID, nil, 10)
	require.NoError(t, err)

	_, err = env.Attempts.Start(student.ID, sim.ID)
	assert.ErrorIs(t, err, util.ErrAttemptLimit)
}

func TestStartResumesWithLegacyCheckpoint(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.createUser(t, "Teacher", model.Teacher)
	student := env.createUser(t, "Student", model.Student)
	sim := env.createSimulation(t, &model.Simulation{Title: "resumable", CreatorID: teacher.ID},
		choiceQuestion("math"))

	resp, err := env.Attempts.Start(student.ID, sim.ID)
	require.NoError(t, err)

	// 旧客户端存的裸答案数组
	legacy := []byte(`[{"questionId": 7, "openText": "draft"}]`)
	require.NoError(t, env.DB.Model(&model.SimulationResult{}).
		Where("id = ?", resp.Result.ID).
		Update("checkpoint", legacy).Error)

	resumed, err := env.Attempts.Start(student.ID, sim.ID)
	require.NoError(t, err)
	assert.True(t, resumed.Resumed)
	assert.Equal(t, resp.Result.ID, resumed.Result.ID)
	require.NotNil(t, resumed.Checkpoint)
	require.Len(t, resumed.Checkpoint.Answers, 1)
	assert.Equal(t, uint(7), resumed.Checkpoint.Answers[0].QuestionID)
	assert.Equal(t, "draft", resumed.Checkpoint.Answers[0].OpenText)
}

func TestCheckpointWritesEnvelope(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.createUser(t, "Teacher", model.Teacher)
	student := env.createUser(t, "Student", model.Student)
	sim := env.createSimulation(t, &model.Simulation{Title: "checkpointed", CreatorID: teacher.ID},
		choiceQuestion("math"))

	resp, err := env.Attempts.Start(student.ID, sim.ID)
	require.NoError(t, err)

	err = env.Attempts.Checkpoint(student.ID, resp.Result.ID, CheckpointRequest{
		Answers:        []model.CheckpointAnswer{{QuestionID: sim.Questions[0].ID}},
		SectionTimes:   []int{30, 45},
		SectionIndex:   1,
		ElapsedSeconds: 75,
	})
	require.NoError(t, err)

	stored, err := env.ResultRepo.FindByID(resp.Result.ID)
	require.NoError(t, err)
	assert.Equal(t, 75, stored.TimeSpentSeconds)

	snap, err := model.DecodeCheckpoint(stored.Checkpoint)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.SectionIndex)
	assert.Equal(t, []int{30, 45}, snap.SectionTimes)

	// 别人的作答不能写断点
	other := env.createUser(t, "Other", model.Student)
	err = env.Attempts.Checkpoint(other.ID, resp.Result.ID, CheckpointRequest{})
	assert.ErrorIs(t, err, util.ErrNotOwner)
}

func TestSubmitScoresAndPersists(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.createUser(t, "Teacher", model.Teacher)
	student := env.createUser(t, "Student", model.Student)

	sim := env.createSimulation(t,
		&model.Simulation{Title: "graded", CreatorID: teacher.ID, CorrectPoints: 2, WrongPoints: -1},
		choiceQuestion("math"), choiceQuestion("math"),
		openQuestion("cs", model.QuestionKeyword{Text: "cache", Weight: 1}))

	resp, err := env.Attempts.Start(student.ID, sim.ID)
	require.NoError(t, err)

	q1, q2, q3 := sim.Questions[0], sim.Questions[1], sim.Questions[2]
	result, err := env.Attempts.Submit(student.ID, resp.Result.ID, []SubmittedAnswer{
		{QuestionID: q1.ID, SelectedOptionID: correctOptionID(t, q1)},
		{QuestionID: q2.ID, SelectedOptionID: wrongOptionID(t, q2)},
		{QuestionID: q3.ID, OpenText: "write-through Cache"},
	}, 120)
	require.NoError(t, err)

	assert.Equal(t, model.ResultCompleted, result.Status)
	assert.Equal(t, 1, result.CorrectAnswers)
	assert.Equal(t, 1, result.WrongAnswers)
	assert.Equal(t, 0, result.BlankAnswers)
	assert.Equal(t, 1, result.PendingOpenAnswers)
	assert.InDelta(t, 1, result.TotalScore, 1e-9) // 2 - 1 + 0
	assert.InDelta(t, 100.0/6.0, result.PercentageScore, 1e-6)
	assert.Equal(t, 120, result.TimeSpentSeconds)
	assert.NotNil(t, result.CompletedAt)
	assert.Empty(t, result.Checkpoint, "提交后断点快照清空")

	var answers []model.ResultAnswer
	require.NoError(t, env.DB.Where("result_id = ?", result.ID).Find(&answers).Error)
	assert.Len(t, answers, 3)

	// ShowAnswers 关闭的模板在提交时建立批改队列
	subs, err := env.OpenAnswerRepo.FindByResult(result.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, q3.ID, subs[0].QuestionID)
	assert.InDelta(t, 1, subs[0].KeywordScore, 1e-9)
	assert.False(t, subs[0].Validated)
}

func TestSubmitTwiceRejected(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.createUser(t, "Teacher", model.Teacher)
	student := env.createUser(t, "Student", model.Student)
	sim := env.createSimulation(t, &model.Simulation{Title: "once", CreatorID: teacher.ID},
		choiceQuestion("math"))

	resp, err := env.Attempts.Start(student.ID, sim.ID)
	require.NoError(t, err)

	_, err = env.Attempts.Submit(student.ID, resp.Result.ID, nil, 5)
	require.NoError(t, err)

	_, err = env.Attempts.Submit(student.ID, resp.Result.ID, nil, 5)
	assert.ErrorIs(t, err, util.ErrAlreadySubmitted)
}

func TestSubmitSelfCorrectionSkipsQueue(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.createUser(t, "Teacher", model.Teacher)
	student := env.createUser(t, "Student", model.Student)

	// 开启自评的模板不建批改队列
	sim := env.createSimulation(t,
		&model.Simulation{Title: "self-graded", CreatorID: teacher.ID, ShowAnswers: true},
		openQuestion("cs"))

	resp, err := env.Attempts.Start(student.ID, sim.ID)
	require.NoError(t, err)

	result, err := env.Attempts.Submit(student.ID, resp.Result.ID, []SubmittedAnswer{
		{QuestionID: sim.Questions[0].ID, OpenText: "my answer"},
	}, 30)
	require.NoError(t, err)
	assert.Equal(t, 1, result.PendingOpenAnswers)

	subs, err := env.OpenAnswerRepo.FindByResult(result.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestGetResultOwnership(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.createUser(t, "Teacher", model.Teacher)
	student := env.createUser(t, "Student", model.Student)
	other := env.createUser(t, "Other", model.Student)
	sim := env.createSimulation(t, &model.Simulation{Title: "private", CreatorID: teacher.ID},
		choiceQuestion("math"))

	resp, err := env.Attempts.Start(student.ID, sim.ID)
	require.NoError(t, err)
	_, err = env.Attempts.Submit(student.ID, resp.Result.ID, nil, 5)
	require.NoError(t, err)

	_, err = env.Attempts.GetResult(other.ID, model.Student, resp.Result.ID)
	assert.ErrorIs(t, err, util.ErrNotOwner)

	// 教师角色不受属主限制
	_, err = env.Attempts.GetResult(teacher.ID, model.Teacher, resp.Result.ID)
	assert.NoError(t, err)
}
