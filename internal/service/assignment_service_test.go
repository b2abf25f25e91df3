package service

import (
	"testing"
	"time"

	"exam_sim_backend/internal/model"
	"exam_sim_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAssignmentService(env *testEnv) *AssignmentService {
	return NewAssignmentService(env.SimRepo, env.AssignmentRepo, env.UserRepo)
}

func TestCreateAssignmentPermission(t *testing.T) {
	env := newTestEnv(t)
	svc := newAssignmentService(env)
	teacher := env.createUser(t, "Teacher", model.Teacher)
	intruder := env.createUser(t, "Intruder", model.Teacher)
	student := env.createUser(t, "Student", model.Student)
	sim := env.createSimulation(t, &model.Simulation{Title: "assignable", CreatorID: teacher.ID})

	_, err := svc.CreateAssignment(intruder.ID, model.Teacher, AssignmentCreateRequest{
		SimulationID: sim.ID, TargetType: model.AssignmentTargetUser, TargetID: student.ID,
	})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	assignment, err := svc.CreateAssignment(teacher.ID, model.Teacher, AssignmentCreateRequest{
		SimulationID: sim.ID, TargetType: model.AssignmentTargetUser, TargetID: student.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentActive, assignment.Status)
}

func TestRoomLifecycle(t *testing.T) {
	env := newTestEnv(t)
	svc := newAssignmentService(env)
	teacher := env.createUser(t, "Teacher", model.Teacher)
	student := env.createUser(t, "Student", model.Student)
	sim := env.createSimulation(t, &model.Simulation{
		Title: "proctored", CreatorID: teacher.ID, AccessMode: model.AccessModeRoom,
	})

	assignment, err := svc.CreateAssignment(teacher.ID, model.Teacher, AssignmentCreateRequest{
		SimulationID: sim.ID, TargetType: model.AssignmentTargetUser, TargetID: student.ID,
	})
	require.NoError(t, err)

	room, err := svc.OpenRoom(teacher.ID, model.Teacher, assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoomWaiting, room.Status)
	assert.NotEmpty(t, room.ID)

	// 同一指派下已有活动考场，不允许重复开
	_, err = svc.OpenRoom(teacher.ID, model.Teacher, assignment.ID)
	var svcErr *util.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, util.CodeConflict, svcErr.Code)

	started, err := svc.StartRoom(teacher.ID, model.Teacher, room.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoomStarted, started.Status)
	assert.NotNil(t, started.StartedAt)

	// started 的考场不能再 start
	_, err = svc.StartRoom(teacher.ID, model.Teacher, room.ID)
	assert.Error(t, err)

	completed, err := svc.CompleteRoom(teacher.ID, model.Teacher, room.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoomCompleted, completed.Status)

	// 收场后可以再开新一轮
	_, err = svc.OpenRoom(teacher.ID, model.Teacher, assignment.ID)
	assert.NoError(t, err)
}

func TestOpenRoomRequiresRoomMode(t *testing.T) {
	env := newTestEnv(t)
	svc := newAssignmentService(env)
	teacher := env.createUser(t, "Teacher", model.Teacher)
	student := env.createUser(t, "Student", model.Student)
	sim := env.createSimulation(t, &model.Simulation{Title: "open-mode", CreatorID: teacher.ID})

	assignment, err := svc.CreateAssignment(teacher.ID, model.Teacher, AssignmentCreateRequest{
		SimulationID: sim.ID, TargetType: model.AssignmentTargetUser, TargetID: student.ID,
	})
	require.NoError(t, err)

	_, err = svc.OpenRoom(teacher.ID, model.Teacher, assignment.ID)
	var svcErr *util.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, util.CodeInvalidState, svcErr.Code)
}

func TestCloseAssignmentForcesRooms(t *testing.T) {
	env := newTestEnv(t)
	svc := newAssignmentService(env)
	teacher := env.createUser(t, "Teacher", model.Teacher)
	student := env.createUser(t, "Student", model.Student)
	sim := env.createSimulation(t, &model.Simulation{
		Title: "closable", CreatorID: teacher.ID, AccessMode: model.AccessModeRoom,
	})

	assignment, err := svc.CreateAssignment(teacher.ID, model.Teacher, AssignmentCreateRequest{
		SimulationID: sim.ID, TargetType: model.AssignmentTargetUser, TargetID: student.ID,
	})
	require.NoError(t, err)
	room, err := svc.OpenRoom(teacher.ID, model.Teacher, assignment.ID)
	require.NoError(t, err)

	closed, err := svc.CloseAssignment(teacher.ID, model.Teacher, assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentClosed, closed.Status)

	// 遗留考场被强制收场，不能再绕过时间窗
	reloaded, err := env.AssignmentRepo.FindRoomByID(room.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoomCompleted, reloaded.Status)

	active, err := env.AssignmentRepo.ActiveRoomForAssignment(assignment.ID)
	require.NoError(t, err)
	assert.Nil(t, active)
}

// 考场全流程：未到开始时间的考场模式测试，开场放行、收场重开后旧作答作废
func TestRoomGatesAttemptLifecycle(t *testing.T) {
	env := newTestEnv(t)
	svc := newAssignmentService(env)
	teacher := env.createUser(t, "Teacher", model.Teacher)
	student := env.createUser(t, "Student", model.Student)

	futureStart := time.Now().Add(24 * time.Hour)
	sim := env.createSimulation(t, &model.Simulation{
		Title: "gated", CreatorID: teacher.ID, AccessMode: model.AccessModeRoom,
		Repeatable: true, StartsAt: &futureStart,
	}, choiceQuestion("math"))

	assignment, err := svc.CreateAssignment(teacher.ID, model.Teacher, AssignmentCreateRequest{
		SimulationID: sim.ID, TargetType: model.AssignmentTargetUser, TargetID: student.ID,
	})
	require.NoError(t, err)

	// 没开考场之前，开始时间未到，学生进不来
	_, err = env.Attempts.Start(student.ID, sim.ID)
	assert.ErrorIs(t, err, util.ErrNotYetAvailable)

	_, err = svc.OpenRoom(teacher.ID, model.Teacher, assignment.ID)
	require.NoError(t, err)

	first, err := env.Attempts.Start(student.ID, sim.ID)
	require.NoError(t, err)
	assert.False(t, first.Resumed)

	// 教师收场重开，上一轮遗留的未完成作答作废
	_, err = svc.ReopenAssignment(teacher.ID, model.Teacher, assignment.ID)
	require.NoError(t, err)
	_, err = svc.OpenRoom(teacher.ID, model.Teacher, assignment.ID)
	require.NoError(t, err)

	second, err := env.Attempts.Start(student.ID, sim.ID)
	require.NoError(t, err)
	assert.False(t, second.Resumed, "旧一轮的作答不应被续做")
	assert.NotEqual(t, first.Result.ID, second.Result.ID)

	stale, err := env.ResultRepo.FindByID(first.Result.ID)
	assert.Error(t, err, "旧作答已被清理")
	assert.Nil(t, stale)
}
