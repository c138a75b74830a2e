package service

import (
	"context"
	"time"

	"github.com/cankaraca/gymstreak/common/database"
	apperrors "github.com/cankaraca/gymstreak/common/errors"
	"github.com/cankaraca/gymstreak/common/logger"
	"github.com/cankaraca/gymstreak/common/models"
	checkinerrors "github.com/cankaraca/gymstreak/internal/errors"
	"github.com/cankaraca/gymstreak/internal/events/publisher"
	"github.com/cankaraca/gymstreak/internal/repository"
)

const (
	pointsPerCheckIn   = 10
	anonymousName      = "Anonymous User"
	scoreUpdateRetries = 3
)

// ContestCheckInResult is always returned with a nil error from
// ProcessContestCheckIn: contest trouble must never fail a check-in that
// already succeeded, so every failure here is reported as a soft flag.
type ContestCheckInResult struct {
	Success         bool   `json:"success"`
	ContestEnrolled bool   `json:"contest_enrolled"`
	ContestId       string `json:"contest_id,omitempty"`
	PointsEarned    int    `json:"points_earned,omitempty"`
	NewTotalPoints  int    `json:"new_total_points,omitempty"`
	CurrentRank     int    `json:"current_rank,omitempty"`
	Message         string `json:"message"`
}

type ContestService interface {
	// GetActiveContest reads the feature flags fresh and returns the
	// currently running contest, or nil when contest processing should be
	// skipped entirely.
	GetActiveContest(ctx context.Context) (*models.Contest, *apperrors.AppError)

	EnsureEnrolled(ctx context.Context, contest *models.Contest, userId, displayName string) (*models.ContestParticipant, bool, *apperrors.AppError)
	ApplyCheckIn(ctx context.Context, contestId, userId string, checkInAt time.Time) (*models.ContestParticipant, *apperrors.AppError)

	ProcessContestCheckIn(ctx context.Context, userId, displayName string) *ContestCheckInResult
}

type contestService struct {
	configRepo      repository.ConfigRepository
	contestRepo     repository.ContestRepository
	participantRepo repository.ParticipantRepository
	transactionRepo database.TransactionRepository
	eventPublisher  *publisher.EventPublisher
	logger          *logger.Logger
	now             func() time.Time
}

func NewContestService(
	configRepo repository.ConfigRepository,
	contestRepo repository.ContestRepository,
	participantRepo repository.ParticipantRepository,
	transactionRepo database.TransactionRepository,
	eventPublisher *publisher.EventPublisher,
	logger *logger.Logger,
) ContestService {
	return &contestService{
		configRepo:      configRepo,
		contestRepo:     contestRepo,
		participantRepo: participantRepo,
		transactionRepo: transactionRepo,
		eventPublisher:  eventPublisher,
		logger:          logger,
		now:             time.Now,
	}
}

func (s *contestService) GetActiveContest(ctx context.Context) (*models.Contest, *apperrors.AppError) {
	flags, err := s.configRepo.GetFeatureFlags(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to read feature flags")
	}

	if flags == nil || !flags.ContestEnabled || flags.ActiveContestId == "" {
		return nil, nil
	}

	contest, err := s.contestRepo.GetById(ctx, flags.ActiveContestId)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to read contest")
	}
	if contest == nil {
		return nil, nil
	}

	now := s.now()
	if now.Before(contest.StartDate) || now.After(contest.EndDate) {
		return nil, nil
	}

	return contest, nil
}

// EnsureEnrolled returns the existing participant unchanged, or creates a
// fresh one and increments the contest's participant counter in the same
// transaction. The bool result reports whether a new enrollment happened.
func (s *contestService) EnsureEnrolled(
	ctx context.Context,
	contest *models.Contest,
	userId, displayName string,
) (*models.ContestParticipant, bool, *apperrors.AppError) {
	existing, err := s.participantRepo.GetByContestAndUser(ctx, contest.ContestId, userId)
	if err != nil {
		return nil, false, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to read participant")
	}
	if existing != nil {
		return existing, false, nil
	}

	if displayName == "" {
		displayName = anonymousName
	}

	participant := &models.ContestParticipant{
		UserId:      userId,
		ContestId:   contest.ContestId,
		DisplayName: displayName,
		Points:      0,
		CheckIns:    0,
		Streak:      0,
		Rank:        0,
		JoinedAt:    s.now().UTC(),
	}

	putParticipant, err := s.participantRepo.GetTransactionForAddingParticipant(ctx, participant)
	if err != nil {
		return nil, false, apperrors.Wrap(err, apperrors.CodeObjectMarshalError, "failed to build participant put")
	}
	incrementCount := s.contestRepo.GetTransactionForIncrementingParticipants(ctx, contest.ContestId)

	transactionBuilder := database.NewTransactionBuilder()
	transactionBuilder.AddPut(putParticipant)
	transactionBuilder.AddUpdate(incrementCount)

	if txErr := s.transactionRepo.Execute(ctx, transactionBuilder); txErr != nil {
		// A concurrent first check-in may have won the conditional put.
		// Re-read: finding the row means enrollment already happened and
		// the counter was incremented exactly once.
		raced, getErr := s.participantRepo.GetByContestAndUser(ctx, contest.ContestId, userId)
		if getErr == nil && raced != nil {
			return raced, false, nil
		}
		return nil, false, apperrors.Wrap(txErr, apperrors.CodeTransactionError, "failed to enroll participant")
	}

	s.logger.Info("Participant enrolled",
		"user_id", userId,
		"contest_id", contest.ContestId,
	)

	return participant, true, nil
}

// ApplyCheckIn advances points, check-in count and streak for one
// validated check-in. Rank is never touched here; the ranking recompute
// owns that field.
func (s *contestService) ApplyCheckIn(
	ctx context.Context,
	contestId, userId string,
	checkInAt time.Time,
) (*models.ContestParticipant, *apperrors.AppError) {
	for attempt := 0; attempt < scoreUpdateRetries; attempt++ {
		participant, err := s.participantRepo.GetByContestAndUser(ctx, contestId, userId)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to read participant")
		}
		if participant == nil {
			return nil, checkinerrors.ParticipantNotFoundError(contestId, userId)
		}

		newPoints := participant.Points + pointsPerCheckIn
		newCheckIns := participant.CheckIns + 1
		newStreak := nextStreakValue(participant.LastCheckInAt, checkInAt, participant.Streak)

		updated, err := s.participantRepo.UpdateScore(
			ctx,
			contestId, userId,
			newPoints, newCheckIns, newStreak,
			checkInAt,
			participant.CheckIns,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to update participant score")
		}
		if updated != nil {
			return updated, nil
		}

		// Condition failed: another writer advanced check_ins between our
		// read and write. Re-read and retry so no increment is lost.
		s.logger.Warn("Score update lost a write race, retrying",
			"user_id", userId,
			"contest_id", contestId,
			"attempt", attempt+1,
		)
	}

	return nil, checkinerrors.ScoreUpdateContentionError(userId)
}

func (s *contestService) ProcessContestCheckIn(
	ctx context.Context,
	userId, displayName string,
) *ContestCheckInResult {
	contest, err := s.GetActiveContest(ctx)
	if err != nil {
		return s.softFailure(userId, "contest processing unavailable", err)
	}
	if contest == nil {
		return &ContestCheckInResult{
			Success:         true,
			ContestEnrolled: false,
			Message:         "no active contest",
		}
	}

	_, enrolled, err := s.EnsureEnrolled(ctx, contest, userId, displayName)
	if err != nil {
		return s.softFailure(userId, "failed to enroll in contest", err)
	}

	updated, err := s.ApplyCheckIn(ctx, contest.ContestId, userId, s.now())
	if err != nil {
		return s.softFailure(userId, "failed to update contest score", err)
	}

	// Ranking recompute is dispatched asynchronously; the caller never
	// waits for it and a publish failure only costs rank freshness.
	if s.eventPublisher != nil {
		if pubErr := s.eventPublisher.PublishScoreUpdated(ctx, userId, contest.ContestId, updated.Points); pubErr != nil {
			s.logger.Warn("Failed to dispatch ranking recompute",
				"error", pubErr,
				"user_id", userId,
				"contest_id", contest.ContestId,
			)
		}
	}

	message := "check-in counted towards contest"
	if enrolled {
		message = "enrolled in contest and check-in counted"
	}

	return &ContestCheckInResult{
		Success:         true,
		ContestEnrolled: enrolled,
		ContestId:       contest.ContestId,
		PointsEarned:    pointsPerCheckIn,
		NewTotalPoints:  updated.Points,
		CurrentRank:     updated.Rank,
		Message:         message,
	}
}

func (s *contestService) softFailure(userId, message string, err *apperrors.AppError) *ContestCheckInResult {
	s.logger.Error("Contest check-in processing failed",
		"error", err,
		"user_id", userId,
	)

	return &ContestCheckInResult{
		Success:         false,
		ContestEnrolled: false,
		Message:         message,
	}
}
