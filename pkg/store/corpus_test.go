package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lifeembedding/lifeembedding/pkg/models"
)

func TestTopOccupations(t *testing.T) {
	rows := []ClusterOccupationRow{
		{ClusterID: 1, Occupation: "painter", Count: 2},
		{ClusterID: 0, Occupation: "physicist", Count: 3},
		{ClusterID: 1, Occupation: "sculptor", Count: 5},
		{ClusterID: 0, Occupation: "chemist", Count: 3},
		{ClusterID: 0, Occupation: "astronomer", Count: 1},
	}

	got := TopOccupations(rows, 2)

	assert.Equal(t, []models.OccupationCount{
		{Occupation: "chemist", Count: 3},
		{Occupation: "physicist", Count: 3},
	}, got[0])
	assert.Equal(t, []models.OccupationCount{
		{Occupation: "sculptor", Count: 5},
		{Occupation: "painter", Count: 2},
	}, got[1])
	assert.Empty(t, got[7])
}

func TestValidateEmbeddings(t *testing.T) {
	records := []models.PersonEmbedding{
		{PersonID: "a", Vector: []float32{1, 2, 3}, EmbeddingDim: 3},
		{PersonID: "b", Vector: []float32{1, 2}, EmbeddingDim: 3},
	}

	assert.NoError(t, ValidateEmbeddings(records[:1], 3))
	assert.NoError(t, ValidateEmbeddings(records[:1], 0))

	err := ValidateEmbeddings(records, 3)
	assert.ErrorIs(t, err, ErrEmbeddingMismatch)
	var mismatch *EmbeddingMismatchError
	if assert.ErrorAs(t, err, &mismatch) {
		assert.Equal(t, "b", mismatch.PersonID)
		assert.Equal(t, 2, mismatch.Got)
	}
}
