package service

import (
	"strings"

	"exam_sim_backend/internal/model"
)

// ScoringPolicy 模板级计分策略
type ScoringPolicy struct {
	CorrectPoints    float64
	WrongPoints      float64
	BlankPoints      float64
	UsesCustomPoints bool
}

func PolicyFromSimulation(sim *model.Simulation) ScoringPolicy {
	return ScoringPolicy{
		CorrectPoints:    sim.CorrectPoints,
		WrongPoints:      sim.WrongPoints,
		BlankPoints:      sim.BlankPoints,
		UsesCustomPoints: sim.UsesCustomPoints,
	}
}

// SubmittedAnswer 学生端提交的单题作答
type SubmittedAnswer struct {
	QuestionID       uint   `json:"questionId"`
	SelectedOptionID *uint  `json:"selectedOptionId,omitempty"`
	OpenText         string `json:"openText,omitempty"`
	TimeSpentSeconds int    `json:"timeSpentSeconds,omitempty"`
}

type QuestionEvaluation struct {
	QuestionID       uint
	Outcome          model.AnswerOutcome
	Points           float64
	SelectedOptionID *uint
	OpenText         string
	TimeSpentSeconds int
	KeywordScore     float64
	MissedKeywords   []string
}

type Evaluation struct {
	Answers      []QuestionEvaluation
	Correct      int
	Wrong        int
	Blank        int
	Pending      int
	TotalScore   float64
	SubjectStats []model.SubjectStat
}

// ResolveCorrectPoints 单题得分解析：单题覆盖 > 题目自身配置 > 模板默认
func ResolveCorrectPoints(q *model.SimulationQuestion, policy ScoringPolicy) float64 {
	if policy.UsesCustomPoints && q.CustomPoints != nil {
		return *q.CustomPoints
	}
	if q.Points != 0 {
		return q.Points
	}
	return policy.CorrectPoints
}

// EvaluateAnswers 纯判分函数：题目 + 作答 + 策略 → 判定结果。
// 不触库、不产生副作用，主观题一律判为 pending 零分，留待批改。
func EvaluateAnswers(questions []model.SimulationQuestion, submitted []SubmittedAnswer, policy ScoringPolicy) *Evaluation {
	answerMap := make(map[uint]SubmittedAnswer, len(submitted))
	for _, a := range submitted {
		answerMap[a.QuestionID] = a
	}

	eval := &Evaluation{}
	subjectIndex := map[string]int{}

	for i := range questions {
		q := &questions[i]
		sub, answered := answerMap[q.ID]

		qe := QuestionEvaluation{QuestionID: q.ID}
		if answered {
			qe.SelectedOptionID = sub.SelectedOptionID
			qe.OpenText = strings.TrimSpace(sub.OpenText)
			qe.TimeSpentSeconds = sub.TimeSpentSeconds
		}

		switch q.QuestionType {
		case model.QuestionTypeOpen:
			if qe.OpenText == "" {
				qe.Outcome = model.OutcomeBlank
				qe.Points = policy.BlankPoints
				eval.Blank++
			} else {
				qe.Outcome = model.OutcomePending
				qe.Points = 0
				qe.KeywordScore, qe.MissedKeywords = scoreKeywords(q.Keywords, qe.OpenText)
				eval.Pending++
			}
		default:
			if qe.SelectedOptionID == nil {
				qe.Outcome = model.OutcomeBlank
				qe.Points = policy.BlankPoints
				eval.Blank++
			} else if isCorrectOption(q.Options, *qe.SelectedOptionID) {
				qe.Outcome = model.OutcomeCorrect
				qe.Points = ResolveCorrectPoints(q, policy)
				eval.Correct++
			} else {
				qe.Outcome = model.OutcomeIncorrect
				qe.Points = policy.WrongPoints
				eval.Wrong++
			}
		}

		eval.TotalScore += qe.Points
		eval.Answers = append(eval.Answers, qe)

		// 按学科累计对错
		subject := q.Subject
		if subject == "" {
			subject = "general"
		}
		idx, ok := subjectIndex[subject]
		if !ok {
			idx = len(eval.SubjectStats)
			subjectIndex[subject] = idx
			eval.SubjectStats = append(eval.SubjectStats, model.SubjectStat{Subject: subject})
		}
		switch qe.Outcome {
		case model.OutcomeCorrect:
			eval.SubjectStats[idx].Correct++
		case model.OutcomeIncorrect:
			eval.SubjectStats[idx].Wrong++
		case model.OutcomeBlank:
			eval.SubjectStats[idx].Blank++
		}
	}

	return eval
}

func isCorrectOption(options []model.QuestionOption, selectedID uint) bool {
	for _, opt := range options {
		if opt.ID == selectedID {
			return opt.IsCorrect
		}
	}
	return false
}

// scoreKeywords 关键词参考分：命中权重/总权重，大小写不敏感的子串匹配。
// 标记为 required 却未命中的关键词记入 missed，仅供批改教师参考。
func scoreKeywords(keywords []model.QuestionKeyword, text string) (float64, []string) {
	if len(keywords) == 0 {
		return 0, nil
	}

	lower := strings.ToLower(text)
	var totalWeight, matchedWeight float64
	var missed []string

	for _, kw := range keywords {
		weight := kw.Weight
		if weight <= 0 {
			weight = 1
		}
		totalWeight += weight

		if strings.Contains(lower, strings.ToLower(kw.Text)) {
			matchedWeight += weight
		} else if kw.Required {
			missed = append(missed, kw.Text)
		}
	}

	if totalWeight == 0 {
		return 0, missed
	}
	return matchedWeight / totalWeight, missed
}
