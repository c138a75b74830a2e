package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/cankaraca/gymstreak/common/errors"
)

func newTestCheckInService(repo *fakeCheckInRepo, at time.Time) *checkInService {
	svc := NewCheckInService(repo, nil, testLogger()).(*checkInService)
	svc.now = func() time.Time { return at }
	return svc
}

func TestCheckEligibilityWhenNoCheckInToday(t *testing.T) {
	repo := &fakeCheckInRepo{}
	svc := newTestCheckInService(repo, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))

	result, err := svc.CheckEligibility(context.Background(), "user-1")
	require.Nil(t, err)

	assert.True(t, result.CanCheckIn)
	assert.Empty(t, result.Reason)
	assert.Nil(t, result.LastCheckIn)
}

func TestRecordCheckInAssignsServerTimestamp(t *testing.T) {
	repo := &fakeCheckInRepo{}
	now := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
	svc := newTestCheckInService(repo, now)

	event, err := svc.RecordCheckIn(context.Background(), "user-1", "gym-9", "Iron Temple")
	require.Nil(t, err)

	assert.NotEmpty(t, event.EventId)
	assert.Equal(t, "user-1", event.UserId)
	assert.Equal(t, "gym-9", event.GymId)
	assert.Equal(t, "Iron Temple", event.GymName)
	assert.True(t, event.Timestamp.Equal(now))
	assert.Len(t, repo.events, 1)
}

func TestRecordCheckInSecondSameDayFails(t *testing.T) {
	repo := &fakeCheckInRepo{}
	morning := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	svc := newTestCheckInService(repo, morning)

	_, err := svc.RecordCheckIn(context.Background(), "user-1", "gym-9", "Iron Temple")
	require.Nil(t, err)

	// Same user, later the same UTC day.
	svc.now = func() time.Time { return morning.Add(9 * time.Hour) }
	_, err = svc.RecordCheckIn(context.Background(), "user-1", "gym-9", "Iron Temple")
	require.NotNil(t, err)
	assert.Equal(t, apperrors.CodeFailedPrecondition, err.Code)
	assert.Len(t, repo.events, 1)
}

func TestRecordCheckInAllowedNextUtcDay(t *testing.T) {
	repo := &fakeCheckInRepo{}
	evening := time.Date(2025, 6, 1, 23, 55, 0, 0, time.UTC)
	svc := newTestCheckInService(repo, evening)

	_, err := svc.RecordCheckIn(context.Background(), "user-1", "gym-9", "Iron Temple")
	require.Nil(t, err)

	// Five minutes later it is a new UTC day: the window is half-open.
	svc.now = func() time.Time { return evening.Add(10 * time.Minute) }
	_, err = svc.RecordCheckIn(context.Background(), "user-1", "gym-9", "Iron Temple")
	require.Nil(t, err)
	assert.Len(t, repo.events, 2)
}

func TestEligibilityAndRecordAgree(t *testing.T) {
	repo := &fakeCheckInRepo{}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestCheckInService(repo, now)

	result, err := svc.CheckEligibility(context.Background(), "user-1")
	require.Nil(t, err)
	require.True(t, result.CanCheckIn)

	// A positive pre-flight answer must not be contradicted by an
	// immediately following record call.
	_, err = svc.RecordCheckIn(context.Background(), "user-1", "gym-9", "Iron Temple")
	assert.Nil(t, err)

	result, err = svc.CheckEligibility(context.Background(), "user-1")
	require.Nil(t, err)
	assert.False(t, result.CanCheckIn)
	require.NotNil(t, result.LastCheckIn)
	assert.True(t, result.LastCheckIn.Equal(now))
	require.NotNil(t, result.NextEligibleTime)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), *result.NextEligibleTime)
}

func TestEligibilityDoesNotRecordAnything(t *testing.T) {
	repo := &fakeCheckInRepo{}
	svc := newTestCheckInService(repo, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	_, err := svc.CheckEligibility(context.Background(), "user-1")
	require.Nil(t, err)
	assert.Empty(t, repo.events)
}

func TestCheckInOtherUsersDoNotInterfere(t *testing.T) {
	repo := &fakeCheckInRepo{}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestCheckInService(repo, now)

	_, err := svc.RecordCheckIn(context.Background(), "user-1", "gym-9", "Iron Temple")
	require.Nil(t, err)

	_, err = svc.RecordCheckIn(context.Background(), "user-2", "gym-9", "Iron Temple")
	assert.Nil(t, err)
}
