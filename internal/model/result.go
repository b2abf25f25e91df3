package model

import (
	"encoding/json"
	"time"
)

// AnswerOutcome 单题判定结果，三态（外加未作答），禁止用 bool+null 表达
type AnswerOutcome string

const (
	OutcomeCorrect   AnswerOutcome = "correct"
	OutcomeIncorrect AnswerOutcome = "incorrect"
	OutcomeBlank     AnswerOutcome = "blank"
	OutcomePending   AnswerOutcome = "pending" // 主观题待批改
)

const (
	ResultInProgress = "in_progress"
	ResultCompleted  = "completed"
)

// SimulationResult 一次作答记录，in_progress 期间可断点续做，completed 后不可重开
// swagger:model SimulationResult
type SimulationResult struct {
	BaseModel
	UserID       uint  `gorm:"index;type:bigint unsigned" json:"userId"`
	User         *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	SimulationID uint  `gorm:"index;type:bigint unsigned" json:"simulationId"`
	AssignmentID *uint `gorm:"index;type:bigint unsigned" json:"assignmentId,omitempty"`

	Status     string          `gorm:"size:20;default:'in_progress'" json:"status"`
	Checkpoint json.RawMessage `gorm:"type:json" json:"-"` // 断点快照，兼容新旧两种格式

	CorrectAnswers     int     `gorm:"default:0" json:"correctAnswers"`
	WrongAnswers       int     `gorm:"default:0" json:"wrongAnswers"`
	BlankAnswers       int     `gorm:"default:0" json:"blankAnswers"`
	PendingOpenAnswers int     `gorm:"default:0" json:"pendingOpenAnswers"`
	TotalScore         float64 `gorm:"default:0" json:"totalScore"`
	PercentageScore    float64 `gorm:"default:0" json:"percentageScore"`

	SubjectStats json.RawMessage `gorm:"type:json" json:"subjectStats,omitempty"` // 按学科统计

	StartedAt        time.Time  `json:"startedAt"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
	TimeSpentSeconds int        `gorm:"default:0" json:"timeSpentSeconds"`

	ReviewedAt *time.Time `json:"reviewedAt,omitempty"` // 主观题全部批改完成的时间
	ReviewedBy uint       `gorm:"type:bigint unsigned" json:"reviewedBy,omitempty"`

	Answers []ResultAnswer `gorm:"foreignKey:ResultID" json:"answers,omitempty"`
}

func (SimulationResult) TableName() string {
	return "simulation_results"
}

// SubjectStat 单个学科的对错统计
type SubjectStat struct {
	Subject string `json:"subject"`
	Correct int    `json:"correct"`
	Wrong   int    `json:"wrong"`
	Blank   int    `json:"blank"`
}

type ResultAnswer struct {
	BaseModel
	ResultID         uint          `gorm:"index;type:bigint unsigned" json:"resultId"`
	QuestionID       uint          `gorm:"index;type:bigint unsigned" json:"questionId"`
	SelectedOptionID *uint         `json:"selectedOptionId,omitempty"`
	OpenText         string        `gorm:"type:text" json:"openText"`
	Outcome          AnswerOutcome `gorm:"size:20;not null" json:"outcome"`
	Points           float64       `gorm:"default:0" json:"points"`
	TimeSpentSeconds int           `gorm:"default:0" json:"timeSpentSeconds"`
}

func (ResultAnswer) TableName() string {
	return "result_answers"
}
