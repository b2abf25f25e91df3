package model

import "time"

// 访问模式：open 随时可做，room 需要教师开启的考场
const (
	AccessModeOpen = "open"
	AccessModeRoom = "room"
)

const (
	QuestionTypeChoice = "choice"
	QuestionTypeOpen   = "open"
)

// swagger:model Simulation
type Simulation struct {
	BaseModel
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	CreatorID   uint   `gorm:"index;type:bigint unsigned" json:"creatorId"`
	AccessMode  string `gorm:"size:20;default:'open'" json:"accessMode"`

	// 计分策略
	CorrectPoints    float64 `gorm:"default:1" json:"correctPoints"`
	WrongPoints      float64 `gorm:"default:0" json:"wrongPoints"` // 常为负值
	BlankPoints      float64 `gorm:"default:0" json:"blankPoints"`
	UsesCustomPoints bool    `gorm:"default:false" json:"usesCustomPoints"`
	MaxScore         float64 `gorm:"default:0" json:"maxScore"` // 0 = 按题数×correctPoints 推算

	// 重考策略
	Repeatable  bool `gorm:"default:false" json:"repeatable"`
	MaxAttempts int  `gorm:"default:0" json:"maxAttempts"` // 0 = 不限

	// 结果公开策略
	ShowResults bool `gorm:"default:true" json:"showResults"`
	ShowAnswers bool `gorm:"default:false" json:"showAnswers"` // 开启后学生可自评主观题
	AllowReview bool `gorm:"default:true" json:"allowReview"`

	ShuffleQuestions bool       `gorm:"default:false" json:"shuffleQuestions"`
	TimeLimit        int        `gorm:"default:0" json:"timeLimit"` // Minutes
	IsPublished      bool       `gorm:"default:false" json:"isPublished"`
	StartsAt         *time.Time `json:"startsAt,omitempty"`
	EndsAt           *time.Time `json:"endsAt,omitempty"`

	Questions []SimulationQuestion `gorm:"foreignKey:SimulationID" json:"questions,omitempty"`
}

func (Simulation) TableName() string {
	return "simulations"
}

// swagger:model SimulationQuestion
type SimulationQuestion struct {
	BaseModel
	SimulationID uint     `gorm:"index;type:bigint unsigned" json:"simulationId"`
	QuestionType string   `gorm:"size:20;not null" json:"questionType"`
	Text         string   `gorm:"type:text;not null" json:"text"`
	Subject      string   `gorm:"size:100" json:"subject"`
	Points       float64  `gorm:"default:0" json:"points"`
	CustomPoints *float64 `json:"customPoints,omitempty"` // 单题覆盖，优先于 Points 和全局策略
	Explanation  string   `gorm:"type:text" json:"explanation"`
	Order        int      `gorm:"default:0" json:"order"`

	Options  []QuestionOption  `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
	Keywords []QuestionKeyword `gorm:"foreignKey:QuestionID" json:"keywords,omitempty"`
}

func (SimulationQuestion) TableName() string {
	return "simulation_questions"
}

type QuestionOption struct {
	BaseModel
	QuestionID uint   `gorm:"index;type:bigint unsigned" json:"questionId"`
	Text       string `gorm:"type:text;not null" json:"text"`
	IsCorrect  bool   `gorm:"default:false" json:"isCorrect"`
	Order      int    `gorm:"default:0" json:"order"`
}

func (QuestionOption) TableName() string {
	return "question_options"
}

// QuestionKeyword 主观题关键词评分规则，仅作为参考分
type QuestionKeyword struct {
	BaseModel
	QuestionID uint    `gorm:"index;type:bigint unsigned" json:"questionId"`
	Text       string  `gorm:"size:255;not null" json:"text"`
	Weight     float64 `gorm:"default:1" json:"weight"`
	Required   bool    `gorm:"default:false" json:"required"`
}

func (QuestionKeyword) TableName() string {
	return "question_keywords"
}
