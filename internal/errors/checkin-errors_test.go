package errors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/cankaraca/gymstreak/common/errors"
)

func TestAlreadyCheckedInErrorReportsBothTimes(t *testing.T) {
	last := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
	next := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	err := AlreadyCheckedInError(last, next)

	assert.Equal(t, apperrors.CodeFailedPrecondition, err.Code)
	assert.Contains(t, err.Message, "2025-06-01T08:30:00Z")
	assert.Contains(t, err.Message, "2025-06-02T00:00:00Z")
}

func TestScoreUpdateContentionErrorCode(t *testing.T) {
	err := ScoreUpdateContentionError("user-1")

	assert.Equal(t, apperrors.CodeConflict, err.Code)
	assert.Contains(t, err.Message, "user-1")
}
