package review

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProductReview(t *testing.T) {
	userID := uuid.New()
	r, err := NewProductReview(uuid.New(), uuid.New(), &userID, "Jane", 5, "Great", "Love it")
	require.NoError(t, err)
	assert.False(t, r.Anonymized)
	assert.Equal(t, &userID, r.UserID)

	for _, rating := range []int{0, 6} {
		_, err := NewProductReview(uuid.New(), uuid.New(), nil, "Jane", rating, "", "")
		assert.Error(t, err)
	}
	_, err = NewProductReview(uuid.New(), uuid.Nil, nil, "Jane", 3, "", "")
	assert.Error(t, err)
}
