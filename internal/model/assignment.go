package model

import "time"

const (
	AssignmentTargetUser  = "user"
	AssignmentTargetGroup = "group"
)

const (
	AssignmentActive = "active"
	AssignmentClosed = "closed"
)

// Assignment 将一场模拟测试指派给个人或班组，可带独立的时间窗覆盖模板时间窗
// swagger:model Assignment
type Assignment struct {
	BaseModel
	SimulationID uint       `gorm:"index;type:bigint unsigned" json:"simulationId"`
	TargetType   string     `gorm:"size:10;not null" json:"targetType"`
	TargetID     uint       `gorm:"index;type:bigint unsigned" json:"targetId"`
	StartsAt     *time.Time `json:"startsAt,omitempty"`
	EndsAt       *time.Time `json:"endsAt,omitempty"`
	Status       string     `gorm:"size:20;default:'active'" json:"status"`
}

func (Assignment) TableName() string {
	return "assignments"
}

const (
	RoomWaiting   = "waiting"
	RoomStarted   = "started"
	RoomCompleted = "completed"
)

// SimulationRoom 教师现场开启的考场。waiting/started 状态允许学生提前进入，
// 关闭或重开指派时会被强制置为 completed，避免遗留考场绕过时间窗。
type SimulationRoom struct {
	UUIDBase
	AssignmentID uint       `gorm:"index;type:bigint unsigned" json:"assignmentId"`
	Status       string     `gorm:"size:20;default:'waiting'" json:"status"`
	OpenedBy     uint       `gorm:"type:bigint unsigned" json:"openedBy"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

func (SimulationRoom) TableName() string {
	return "simulation_rooms"
}

func (r *SimulationRoom) IsActive() bool {
	return r != nil && (r.Status == RoomWaiting || r.Status == RoomStarted)
}
