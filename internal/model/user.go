package model

import (
	"time"
)

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"size:100;unique;not null" json:"email"`
	Password  string    `gorm:"size:100;not null" json:"-"`
	Role      UserRole  `gorm:"size:20;default:'student'" json:"role"`
	Disabled  bool      `gorm:"default:false" json:"disabled"`
	LastLogin time.Time `json:"lastLogin"`
	LastSeen  time.Time `json:"lastSeen"`
}

func (User) TableName() string {
	return "users"
}

// swagger:model Group
type Group struct {
	BaseModel
	Name      string `gorm:"size:100;not null" json:"name"`
	CreatorID uint   `gorm:"index;type:bigint unsigned" json:"creatorId"`
}

func (Group) TableName() string {
	return "student_groups"
}

type GroupMember struct {
	BaseModel
	GroupID uint `gorm:"index;type:bigint unsigned" json:"groupId"`
	UserID  uint `gorm:"index;type:bigint unsigned" json:"userId"`
}

func (GroupMember) TableName() string {
	return "student_group_members"
}
