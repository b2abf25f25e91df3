package model

import (
	"encoding/json"
	"time"
)

// OpenAnswerSubmission 主观题人工批改队列记录。
// 仅当模拟测试要求教师批改（未开启学生自评）时在提交时创建，
// 随 Result 一起删除。
// swagger:model OpenAnswerSubmission
type OpenAnswerSubmission struct {
	BaseModel
	ResultID   uint `gorm:"index;type:bigint unsigned" json:"resultId"`
	QuestionID uint `gorm:"index;type:bigint unsigned" json:"questionId"`

	AnswerText     string          `gorm:"type:text" json:"answerText"`
	KeywordScore   float64         `gorm:"default:0" json:"keywordScore"` // 自动关键词参考分 [0,1]
	MissedKeywords json.RawMessage `gorm:"type:json" json:"missedKeywords,omitempty"`

	ManualScore *float64   `json:"manualScore,omitempty"` // 教师打分 [-1,1]
	Validated   bool       `gorm:"default:false" json:"validated"`
	ValidatorID uint       `gorm:"type:bigint unsigned" json:"validatorId,omitempty"`
	ValidatedAt *time.Time `json:"validatedAt,omitempty"`
	Notes       string     `gorm:"type:text" json:"notes"`
	FinalScore  float64    `gorm:"default:0" json:"finalScore"`
}

func (OpenAnswerSubmission) TableName() string {
	return "open_answer_submissions"
}
