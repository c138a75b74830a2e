package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/cankaraca/gymstreak/common/errors"
	"github.com/cankaraca/gymstreak/common/models"
)

type contestFixture struct {
	configRepo      *fakeConfigRepo
	contestRepo     *fakeContestRepo
	participantRepo *fakeParticipantRepo
	transactionRepo *fakeTransactionRepo
	svc             *contestService
}

func newContestFixture(at time.Time) *contestFixture {
	contestRepo := newFakeContestRepo()
	participantRepo := newFakeParticipantRepo()
	configRepo := &fakeConfigRepo{}
	transactionRepo := &fakeTransactionRepo{
		participants: participantRepo,
		contests:     contestRepo,
	}

	svc := NewContestService(
		configRepo,
		contestRepo,
		participantRepo,
		transactionRepo,
		nil,
		testLogger(),
	).(*contestService)
	svc.now = func() time.Time { return at }

	return &contestFixture{
		configRepo:      configRepo,
		contestRepo:     contestRepo,
		participantRepo: participantRepo,
		transactionRepo: transactionRepo,
		svc:             svc,
	}
}

func (f *contestFixture) withActiveContest(contestId string, start, end time.Time) {
	f.contestRepo.contests[contestId] = models.Contest{
		ContestId:   contestId,
		Title:       "June Grind",
		ContestType: models.ContestTypeMonthly,
		StartDate:   start,
		EndDate:     end,
	}
	f.configRepo.flags = &models.FeatureConfig{
		ContestEnabled:  true,
		ContestType:     models.ContestTypeMonthly,
		ActiveContestId: contestId,
	}
}

func TestGetActiveContestDisabledFlag(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	f := newContestFixture(now)
	f.withActiveContest("contest-1", now.Add(-24*time.Hour), now.Add(24*time.Hour))
	f.configRepo.flags.ContestEnabled = false

	contest, err := f.svc.GetActiveContest(context.Background())
	require.Nil(t, err)
	assert.Nil(t, contest)
}

func TestGetActiveContestNoFlagsRow(t *testing.T) {
	f := newContestFixture(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))

	contest, err := f.svc.GetActiveContest(context.Background())
	require.Nil(t, err)
	assert.Nil(t, contest)
}

func TestGetActiveContestMissingContestRow(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	f := newContestFixture(now)
	f.configRepo.flags = &models.FeatureConfig{
		ContestEnabled:  true,
		ActiveContestId: "contest-gone",
	}

	contest, err := f.svc.GetActiveContest(context.Background())
	require.Nil(t, err)
	assert.Nil(t, contest)
}

func TestGetActiveContestOutsideWindow(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	f := newContestFixture(now)
	f.withActiveContest("contest-1", now.Add(24*time.Hour), now.Add(48*time.Hour))

	contest, err := f.svc.GetActiveContest(context.Background())
	require.Nil(t, err)
	assert.Nil(t, contest)
}

func TestGetActiveContestWithinWindow(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	f := newContestFixture(now)
	f.withActiveContest("contest-1", now.Add(-24*time.Hour), now.Add(24*time.Hour))

	contest, err := f.svc.GetActiveContest(context.Background())
	require.Nil(t, err)
	require.NotNil(t, contest)
	assert.Equal(t, "contest-1", contest.ContestId)
}

func TestEnsureEnrolledCreatesOnce(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	f := newContestFixture(now)
	f.withActiveContest("contest-1", now.Add(-24*time.Hour), now.Add(24*time.Hour))
	contest, _ := f.svc.GetActiveContest(context.Background())

	participant, enrolled, err := f.svc.EnsureEnrolled(context.Background(), contest, "user-1", "Ayşe")
	require.Nil(t, err)
	assert.True(t, enrolled)
	assert.Equal(t, "Ayşe", participant.DisplayName)
	assert.Equal(t, 0, participant.Points)
	assert.Equal(t, 0, participant.CheckIns)
	assert.Equal(t, 0, participant.Streak)
	assert.True(t, participant.JoinedAt.Equal(now))
	assert.Equal(t, 1, f.contestRepo.contests["contest-1"].ParticipantCount)

	// Second call must be a no-op: same row back, counter untouched.
	again, enrolled, err := f.svc.EnsureEnrolled(context.Background(), contest, "user-1", "Ayşe")
	require.Nil(t, err)
	assert.False(t, enrolled)
	assert.Equal(t, participant.UserId, again.UserId)
	assert.Equal(t, 1, f.contestRepo.contests["contest-1"].ParticipantCount)
}

func TestEnsureEnrolledDefaultsDisplayName(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	f := newContestFixture(now)
	f.withActiveContest("contest-1", now.Add(-24*time.Hour), now.Add(24*time.Hour))
	contest, _ := f.svc.GetActiveContest(context.Background())

	participant, _, err := f.svc.EnsureEnrolled(context.Background(), contest, "user-1", "")
	require.Nil(t, err)
	assert.Equal(t, anonymousName, participant.DisplayName)
}

func TestEnsureEnrolledSurfacesTransactionFailure(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	f := newContestFixture(now)
	f.withActiveContest("contest-1", now.Add(-24*time.Hour), now.Add(24*time.Hour))
	contest, _ := f.svc.GetActiveContest(context.Background())
	f.transactionRepo.execErr = errors.New("transaction canceled")

	_, _, err := f.svc.EnsureEnrolled(context.Background(), contest, "user-1", "Ayşe")
	require.NotNil(t, err)
	assert.Equal(t, apperrors.CodeTransactionError, err.Code)
}

func TestApplyCheckInAddsTenPointsPerCheckIn(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	f := newContestFixture(now)
	f.withActiveContest("contest-1", now.Add(-30*24*time.Hour), now.Add(30*24*time.Hour))
	contest, _ := f.svc.GetActiveContest(context.Background())
	_, _, enrollErr := f.svc.EnsureEnrolled(context.Background(), contest, "user-1", "Ayşe")
	require.Nil(t, enrollErr)

	day1 := now
	day2 := now.Add(24 * time.Hour)
	day3 := now.Add(48 * time.Hour)

	for i, at := range []time.Time{day1, day2, day3} {
		updated, err := f.svc.ApplyCheckIn(context.Background(), "contest-1", "user-1", at)
		require.Nil(t, err)
		assert.Equal(t, i+1, updated.CheckIns)
		assert.Equal(t, (i+1)*pointsPerCheckIn, updated.Points)
		assert.Equal(t, i+1, updated.Streak)
		require.NotNil(t, updated.LastCheckInAt)
		assert.True(t, updated.LastCheckInAt.Equal(at))
	}
}

func TestApplyCheckInResetsStreakAfterGap(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	f := newContestFixture(now)
	f.withActiveContest("contest-1", now.Add(-30*24*time.Hour), now.Add(30*24*time.Hour))
	contest, _ := f.svc.GetActiveContest(context.Background())
	_, _, enrollErr := f.svc.EnsureEnrolled(context.Background(), contest, "user-1", "Ayşe")
	require.Nil(t, enrollErr)

	_, err := f.svc.ApplyCheckIn(context.Background(), "contest-1", "user-1", now)
	require.Nil(t, err)

	// Three days later the chain is broken.
	updated, err := f.svc.ApplyCheckIn(context.Background(), "contest-1", "user-1", now.Add(3*24*time.Hour))
	require.Nil(t, err)
	assert.Equal(t, 1, updated.Streak)
	assert.Equal(t, 2, updated.CheckIns)
	assert.Equal(t, 2*pointsPerCheckIn, updated.Points)
}

func TestApplyCheckInRetriesOnContention(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	f := newContestFixture(now)
	f.withActiveContest("contest-1", now.Add(-24*time.Hour), now.Add(24*time.Hour))
	contest, _ := f.svc.GetActiveContest(context.Background())
	_, _, enrollErr := f.svc.EnsureEnrolled(context.Background(), contest, "user-1", "Ayşe")
	require.Nil(t, enrollErr)

	f.participantRepo.contentionRounds = 2

	updated, err := f.svc.ApplyCheckIn(context.Background(), "contest-1", "user-1", now)
	require.Nil(t, err)
	assert.Equal(t, 1, updated.CheckIns)
}

func TestApplyCheckInGivesUpAfterRetries(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	f := newContestFixture(now)
	f.withActiveContest("contest-1", now.Add(-24*time.Hour), now.Add(24*time.Hour))
	contest, _ := f.svc.GetActiveContest(context.Background())
	_, _, enrollErr := f.svc.EnsureEnrolled(context.Background(), contest, "user-1", "Ayşe")
	require.Nil(t, enrollErr)

	f.participantRepo.contentionRounds = scoreUpdateRetries

	_, err := f.svc.ApplyCheckIn(context.Background(), "contest-1", "user-1", now)
	require.NotNil(t, err)
	assert.Equal(t, apperrors.CodeConflict, err.Code)
}

func TestApplyCheckInUnknownParticipant(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	f := newContestFixture(now)

	_, err := f.svc.ApplyCheckIn(context.Background(), "contest-1", "ghost", now)
	require.NotNil(t, err)
	assert.Equal(t, apperrors.CodeNotFound, err.Code)
}

func TestProcessContestCheckInNoActiveContest(t *testing.T) {
	f := newContestFixture(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))

	result := f.svc.ProcessContestCheckIn(context.Background(), "user-1", "Ayşe")
	require.NotNil(t, result)
	assert.True(t, result.Success)
	assert.False(t, result.ContestEnrolled)
	assert.Empty(t, result.ContestId)
	assert.Zero(t, result.PointsEarned)
}

func TestProcessContestCheckInEnrollsAndScores(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	f := newContestFixture(now)
	f.withActiveContest("contest-1", now.Add(-24*time.Hour), now.Add(24*time.Hour))

	result := f.svc.ProcessContestCheckIn(context.Background(), "user-1", "Ayşe")
	require.NotNil(t, result)
	assert.True(t, result.Success)
	assert.True(t, result.ContestEnrolled)
	assert.Equal(t, "contest-1", result.ContestId)
	assert.Equal(t, pointsPerCheckIn, result.PointsEarned)
	assert.Equal(t, pointsPerCheckIn, result.NewTotalPoints)

	// The returning user is no longer a fresh enrollment.
	f.svc.now = func() time.Time { return now.Add(12 * time.Hour) }
	result = f.svc.ProcessContestCheckIn(context.Background(), "user-1", "Ayşe")
	assert.True(t, result.Success)
	assert.False(t, result.ContestEnrolled)
	assert.Equal(t, 2*pointsPerCheckIn, result.NewTotalPoints)
}

func TestProcessContestCheckInSoftensFlagReadFailure(t *testing.T) {
	f := newContestFixture(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	f.configRepo.getErr = errors.New("dynamo down")

	result := f.svc.ProcessContestCheckIn(context.Background(), "user-1", "Ayşe")
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.False(t, result.ContestEnrolled)
	assert.NotEmpty(t, result.Message)
}

func TestProcessContestCheckInSoftensScoreFailure(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	f := newContestFixture(now)
	f.withActiveContest("contest-1", now.Add(-24*time.Hour), now.Add(24*time.Hour))
	f.participantRepo.updateErr = errors.New("dynamo down")

	result := f.svc.ProcessContestCheckIn(context.Background(), "user-1", "Ayşe")
	require.NotNil(t, result)
	assert.False(t, result.Success)
}
