package model

import (
	"bytes"
	"encoding/json"
	"errors"
)

// CheckpointAnswer 断点快照里的单题作答
type CheckpointAnswer struct {
	QuestionID       uint   `json:"questionId"`
	SelectedOptionID *uint  `json:"selectedOptionId,omitempty"`
	OpenText         string `json:"openText,omitempty"`
	TimeSpentSeconds int    `json:"timeSpentSeconds,omitempty"`
}

// CheckpointSnapshot 断点快照。历史上存过裸答案数组，后来扩展为
// 带分节耗时和当前节下标的信封格式。写入一律用信封格式，
// 读取两种都要兼容。
type CheckpointSnapshot struct {
	Answers      []CheckpointAnswer `json:"answers"`
	SectionTimes []int              `json:"sectionTimes,omitempty"`
	SectionIndex int                `json:"sectionIndex,omitempty"`
}

var ErrBadCheckpoint = errors.New("unrecognized checkpoint format")

// DecodeCheckpoint 按首字符区分两代格式：'[' 为旧的裸数组，'{' 为信封
func DecodeCheckpoint(raw []byte) (*CheckpointSnapshot, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return &CheckpointSnapshot{}, nil
	}

	switch trimmed[0] {
	case '[':
		var answers []CheckpointAnswer
		if err := json.Unmarshal(trimmed, &answers); err != nil {
			return nil, err
		}
		return &CheckpointSnapshot{Answers: answers}, nil
	case '{':
		var snap CheckpointSnapshot
		if err := json.Unmarshal(trimmed, &snap); err != nil {
			return nil, err
		}
		return &snap, nil
	default:
		return nil, ErrBadCheckpoint
	}
}

// Encode 总是写信封格式
func (s *CheckpointSnapshot) Encode() (json.RawMessage, error) {
	return json.Marshal(s)
}
