package repository

import (
	"time"

	"exam_sim_backend/internal/model"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.DB.Create(user).Error
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	if err := r.DB.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	if err := r.DB.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) UpdateLastSeen(userID uint) error {
	return r.DB.Model(&model.User{}).Where("id = ?", userID).Update("last_seen", time.Now()).Error
}

// GroupIDsForUser 返回用户所属的全部班组 ID
func (r *UserRepository) GroupIDsForUser(userID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.GroupMember{}).Where("user_id = ?", userID).Pluck("group_id", &ids).Error
	return ids, err
}

// MemberIDsForGroup 返回班组全部成员的用户 ID
func (r *UserRepository) MemberIDsForGroup(groupID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.GroupMember{}).Where("group_id = ?", groupID).Pluck("user_id", &ids).Error
	return ids, err
}
