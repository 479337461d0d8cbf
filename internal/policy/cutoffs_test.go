package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeCutoffs(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	cutoffs := ComputeCutoffs(now, 180, 90, 30)

	assert.Equal(t, now.AddDate(0, 0, -180), cutoffs.DeleteBefore)
	assert.Equal(t, now.AddDate(0, 0, -90), cutoffs.DemoteBefore)
	assert.Equal(t, now.AddDate(0, 0, -30), cutoffs.CreatedAfter)
}

func TestComputeCutoffs_ZeroDays(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	cutoffs := ComputeCutoffs(now, 0, 0, 0)

	assert.Equal(t, now, cutoffs.DeleteBefore)
	assert.Equal(t, now, cutoffs.DemoteBefore)
	assert.Equal(t, now, cutoffs.CreatedAfter)
}
