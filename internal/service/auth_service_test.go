package service

import (
	"testing"
	"time"

	"exam_sim_backend/internal/config"
	"exam_sim_backend/internal/model"
	"exam_sim_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(env *testEnv) *AuthService {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpireTime = time.Hour
	return NewAuthService(env.UserRepo, cfg)
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuthService(env)

	user := &model.User{Name: "Alice", Email: "alice@example.com", Password: "secret123"}
	require.NoError(t, svc.Register(user))
	assert.Equal(t, model.Student, user.Role, "未指定角色默认为学生")
	assert.NotEqual(t, "secret123", user.Password, "密码不落明文")

	token, err := svc.Login("alice@example.com", "secret123")
	require.NoError(t, err)

	claims, err := util.ParseJWT(token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, model.Student, claims.Role)

	_, err = svc.Login("alice@example.com", "wrong")
	assert.Error(t, err)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuthService(env)

	require.NoError(t, svc.Register(&model.User{Name: "Alice", Email: "alice@example.com", Password: "secret123"}))
	err := svc.Register(&model.User{Name: "Clone", Email: "alice@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, util.ErrEmailRegistered)
}

func TestLoginDisabledAccount(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuthService(env)

	user := &model.User{Name: "Alice", Email: "alice@example.com", Password: "secret123"}
	require.NoError(t, svc.Register(user))
	require.NoError(t, env.DB.Model(user).Update("disabled", true).Error)

	_, err := svc.Login("alice@example.com", "secret123")
	assert.Error(t, err)
}
