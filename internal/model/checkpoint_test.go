package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCheckpointLegacyArray(t *testing.T) {
	raw := []byte(`[{"questionId": 3, "openText": "draft"}, {"questionId": 4, "selectedOptionId": 9}]`)

	snap, err := DecodeCheckpoint(raw)
	require.NoError(t, err)
	require.Len(t, snap.Answers, 2)
	assert.Equal(t, uint(3), snap.Answers[0].QuestionID)
	assert.Equal(t, "draft", snap.Answers[0].OpenText)
	require.NotNil(t, snap.Answers[1].SelectedOptionID)
	assert.Equal(t, uint(9), *snap.Answers[1].SelectedOptionID)
	assert.Zero(t, snap.SectionIndex)
	assert.Nil(t, snap.SectionTimes)
}

func TestDecodeCheckpointEnvelope(t *testing.T) {
	raw := []byte(`{"answers": [{"questionId": 3, "openText": "draft"}], "sectionTimes": [30, 45], "sectionIndex": 1}`)

	snap, err := DecodeCheckpoint(raw)
	require.NoError(t, err)
	require.Len(t, snap.Answers, 1)
	assert.Equal(t, "draft", snap.Answers[0].OpenText)
	assert.Equal(t, []int{30, 45}, snap.SectionTimes)
	assert.Equal(t, 1, snap.SectionIndex)
}

func TestDecodeCheckpointBothFormatsAgree(t *testing.T) {
	legacy, err := DecodeCheckpoint([]byte(`  [{"questionId": 7}]`))
	require.NoError(t, err)
	envelope, err := DecodeCheckpoint([]byte(`{"answers": [{"questionId": 7}]}`))
	require.NoError(t, err)
	assert.Equal(t, legacy.Answers, envelope.Answers)
}

func TestDecodeCheckpointEmpty(t *testing.T) {
	for _, raw := range [][]byte{nil, {}, []byte("   ")} {
		snap, err := DecodeCheckpoint(raw)
		require.NoError(t, err)
		assert.Empty(t, snap.Answers)
	}
}

func TestDecodeCheckpointGarbage(t *testing.T) {
	_, err := DecodeCheckpoint([]byte("not json"))
	assert.ErrorIs(t, err, ErrBadCheckpoint)

	_, err = DecodeCheckpoint([]byte(`[{"questionId": `))
	assert.Error(t, err)
}

func TestEncodeAlwaysEnvelope(t *testing.T) {
	snap := &CheckpointSnapshot{Answers: []CheckpointAnswer{{QuestionID: 1}}}
	raw, err := snap.Encode()
	require.NoError(t, err)
	assert.Equal(t, byte('{'), raw[0])

	decoded, err := DecodeCheckpoint(raw)
	require.NoError(t, err)
	assert.Equal(t, snap.Answers, decoded.Answers)
}
