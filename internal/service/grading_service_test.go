package service

import (
	"testing"

	"exam_sim_backend/internal/model"
	"exam_sim_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// submitOpenAttempt 做完一次含主观题的作答并提交，返回提交后的结果
func submitOpenAttempt(t *testing.T, env *testEnv, studentID uint, sim *model.Simulation, openTexts map[uint]string) *model.SimulationResult {
	t.Helper()
	resp, err := env.Attempts.Start(studentID, sim.ID)
	require.NoError(t, err)

	var answers []SubmittedAnswer
	for _, q := range sim.Questions {
		switch q.QuestionType {
		case model.QuestionTypeOpen:
			answers = append(answers, SubmittedAnswer{QuestionID: q.ID, OpenText: openTexts[q.ID]})
		default:
			answers = append(answers, SubmittedAnswer{QuestionID: q.ID, SelectedOptionID: correctOptionID(t, q)})
		}
	}

	result, err := env.Attempts.Submit(studentID, resp.Result.ID, answers, 60)
	require.NoError(t, err)
	return result
}

func TestSelfCorrectDelta(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.createUser(t, "Teacher", model.Teacher)
	student := env.createUser(t, "Student", model.Student)

	sim := env.createSimulation(t,
		&model.Simulation{Title: "self-check", CreatorID: teacher.ID, CorrectPoints: 2, ShowAnswers: true},
		choiceQuestion("math"), openQuestion("cs"))
	openID := sim.Questions[1].ID

	result := submitOpenAttempt(t, env, student.ID, sim, map[uint]string{openID: "my take"})
	require.Equal(t, 1, result.CorrectAnswers)
	require.Equal(t, 1, result.PendingOpenAnswers)
	require.InDelta(t, 2, result.TotalScore, 1e-9)

	// pending → correct：答对数 +1，待批改清零，得分加满
	updated, err := env.Grading.SelfCorrect(student.ID, result.ID, openID, true)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.CorrectAnswers)
	assert.Equal(t, 0, updated.WrongAnswers)
	assert.Equal(t, 0, updated.PendingOpenAnswers)
	assert.InDelta(t, 4, updated.TotalScore, 1e-9)

	// 重复标注同一判定是幂等空操作
	again, err := env.Grading.SelfCorrect(student.ID, result.ID, openID, true)
	require.NoError(t, err)
	assert.Equal(t, updated.CorrectAnswers, again.CorrectAnswers)
	assert.InDelta(t, updated.TotalScore, again.TotalScore, 1e-9)

	// correct → incorrect：记错不扣分，只收回已给的分
	reversed, err := env.Grading.SelfCorrect(student.ID, result.ID, openID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, reversed.CorrectAnswers)
	assert.Equal(t, 1, reversed.WrongAnswers)
	assert.InDelta(t, 2, reversed.TotalScore, 1e-9)

	var answer model.ResultAnswer
	require.NoError(t, env.DB.Where("result_id = ? AND question_id = ?", result.ID, openID).First(&answer).Error)
	assert.Equal(t, model.OutcomeIncorrect, answer.Outcome)
	assert.Zero(t, answer.Points)
}

func TestSelfCorrectDisabled(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.createUser(t, "Teacher", model.Teacher)
	student := env.createUser(t, "Student", model.Student)

	sim := env.createSimulation(t,
		&model.Simulation{Title: "teacher-graded", CreatorID: teacher.ID},
		openQuestion("cs"))
	openID := sim.Questions[0].ID

	result := submitOpenAttempt(t, env, student.ID, sim, map[uint]string{openID: "answer"})

	_, err := env.Grading.SelfCorrect(student.ID, result.ID, openID, true)
	assert.ErrorIs(t, err, util.ErrSelfCorrectionOff)
}

func TestSelfCorrectRejectsChoiceQuestion(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.createUser(t, "Teacher", model.Teacher)
	student := env.createUser(t, "Student", model.Student)

	sim := env.createSimulation(t,
		&model.Simulation{Title: "choice-only", CreatorID: teacher.ID, ShowAnswers: true},
		choiceQuestion("math"))

	result := submitOpenAttempt(t, env, student.ID, sim, nil)

	_, err := env.Grading.SelfCorrect(student.ID, result.ID, sim.Questions[0].ID, true)
	var svcErr *util.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, util.CodeInvalidState, svcErr.Code)
}

func TestValidateBatchRecalculates(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.createUser(t, "Teacher", model.Teacher)
	student := env.createUser(t, "Student", model.Student)

	sim := env.createSimulation(t,
		&model.Simulation{Title: "reviewed", CreatorID: teacher.ID, CorrectPoints: 2},
		choiceQuestion("math"), openQuestion("cs"), openQuestion("cs"))
	open1, open2 := sim.Questions[1].ID, sim.Questions[2].ID

	result := submitOpenAttempt(t, env, student.ID, sim, map[uint]string{
		open1: "first answer",
		open2: "second answer",
	})
	require.Equal(t, 2, result.PendingOpenAnswers)

	subs, err := env.OpenAnswerRepo.FindByResult(result.ID)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	subByQuestion := map[uint]uint{}
	for _, sub := range subs {
		subByQuestion[sub.QuestionID] = sub.ID
	}

	err = env.Grading.ValidateBatch(teacher.ID, result.ID, []Validation{
		{SubmissionID: subByQuestion[open1], Score: 1},
		{SubmissionID: subByQuestion[open2], Score: 0.4, Notes: "too vague"},
	})
	require.NoError(t, err)

	reviewed, err := env.ResultRepo.FindByID(result.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reviewed.PendingOpenAnswers)
	assert.NotNil(t, reviewed.ReviewedAt)
	assert.Equal(t, teacher.ID, reviewed.ReviewedBy)

	// 重算：选择题 2 分 + open1 满分 2 分 + open2 0.4×2 分
	assert.Equal(t, 2, reviewed.CorrectAnswers, "finalScore ≥ 0.5 记为答对")
	assert.Equal(t, 1, reviewed.WrongAnswers)
	assert.InDelta(t, 2+2+0.8, reviewed.TotalScore, 1e-9)

	// 答案行同步回写，保持总分等于逐题分之和
	var answers []model.ResultAnswer
	require.NoError(t, env.DB.Where("result_id = ?", result.ID).Find(&answers).Error)
	var sum float64
	for _, a := range answers {
		sum += a.Points
		assert.NotEqual(t, model.OutcomePending, a.Outcome)
	}
	assert.InDelta(t, reviewed.TotalScore, sum, 1e-9)
}

func TestValidatePartialKeepsPending(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.createUser(t, "Teacher", model.Teacher)
	student := env.createUser(t, "Student", model.Student)

	sim := env.createSimulation(t,
		&model.Simulation{Title: "half-reviewed", CreatorID: teacher.ID},
		openQuestion("cs"), openQuestion("cs"))
	open1 := sim.Questions[0].ID

	result := submitOpenAttempt(t, env, student.ID, sim, map[uint]string{
		open1:               "one",
		sim.Questions[1].ID: "two",
	})

	subs, err := env.OpenAnswerRepo.FindByResult(result.ID)
	require.NoError(t, err)
	var firstSub model.OpenAnswerSubmission
	for _, sub := range subs {
		if sub.QuestionID == open1 {
			firstSub = sub
		}
	}

	graded, err := env.Grading.Validate(teacher.ID, Validation{SubmissionID: firstSub.ID, Score: 1})
	require.NoError(t, err)
	assert.True(t, graded.Validated)
	assert.Equal(t, teacher.ID, graded.ValidatorID)

	// 还有一条未批改，结果不打 reviewed 标记
	partial, err := env.ResultRepo.FindByID(result.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, partial.PendingOpenAnswers)
	assert.Nil(t, partial.ReviewedAt)
}

func TestValidateScoreOutOfRange(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.createUser(t, "Teacher", model.Teacher)
	student := env.createUser(t, "Student", model.Student)

	sim := env.createSimulation(t,
		&model.Simulation{Title: "bounds", CreatorID: teacher.ID},
		openQuestion("cs"))
	openID := sim.Questions[0].ID

	result := submitOpenAttempt(t, env, student.ID, sim, map[uint]string{openID: "answer"})
	subs, err := env.OpenAnswerRepo.FindByResult(result.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)

	err = env.Grading.ValidateBatch(teacher.ID, result.ID, []Validation{
		{SubmissionID: subs[0].ID, Score: 1.5},
	})
	var svcErr *util.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, util.CodeInvalidState, svcErr.Code)
}

func TestPendingSubmissionsPermission(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.createUser(t, "Teacher", model.Teacher)
	intruder := env.createUser(t, "Intruder", model.Teacher)
	student := env.createUser(t, "Student", model.Student)

	sim := env.createSimulation(t,
		&model.Simulation{Title: "queued", CreatorID: teacher.ID},
		openQuestion("cs"))
	openID := sim.Questions[0].ID
	submitOpenAttempt(t, env, student.ID, sim, map[uint]string{openID: "answer"})

	_, err := env.Grading.PendingSubmissions(intruder.ID, model.Teacher, sim.ID)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	pending, err := env.Grading.PendingSubmissions(teacher.ID, model.Teacher, sim.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	// 管理员不受创建者限制
	admin := env.createUser(t, "Admin", model.Admin)
	_, err = env.Grading.PendingSubmissions(admin.ID, model.Admin, sim.ID)
	assert.NoError(t, err)
}
