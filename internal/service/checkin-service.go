package service

import (
	"context"
	"time"

	apperrors "github.com/cankaraca/gymstreak/common/errors"
	"github.com/cankaraca/gymstreak/common/logger"
	"github.com/cankaraca/gymstreak/common/models"
	checkinerrors "github.com/cankaraca/gymstreak/internal/errors"
	"github.com/cankaraca/gymstreak/internal/events/publisher"
	"github.com/cankaraca/gymstreak/internal/repository"
	"github.com/google/uuid"
)

// EligibilityResult is the read-only answer to "can this user check in
// right now". It uses the exact same day-window semantics as the write
// path so pre-flight checks and recording cannot disagree.
type EligibilityResult struct {
	CanCheckIn       bool       `json:"can_check_in"`
	Reason           string     `json:"reason,omitempty"`
	LastCheckIn      *time.Time `json:"last_check_in,omitempty"`
	NextEligibleTime *time.Time `json:"next_eligible_time,omitempty"`
}

type CheckInService interface {
	CheckEligibility(ctx context.Context, userId string) (*EligibilityResult, *apperrors.AppError)
	RecordCheckIn(ctx context.Context, userId, gymId, gymName string) (*models.CheckInEvent, *apperrors.AppError)
}

type checkInService struct {
	checkInRepo    repository.CheckInRepository
	eventPublisher *publisher.EventPublisher
	logger         *logger.Logger
	now            func() time.Time
}

func NewCheckInService(
	checkInRepo repository.CheckInRepository,
	eventPublisher *publisher.EventPublisher,
	logger *logger.Logger,
) CheckInService {
	return &checkInService{
		checkInRepo:    checkInRepo,
		eventPublisher: eventPublisher,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *checkInService) CheckEligibility(
	ctx context.Context,
	userId string,
) (*EligibilityResult, *apperrors.AppError) {
	todays, err := s.todaysCheckIns(ctx, userId)
	if err != nil {
		return nil, err
	}

	if len(todays) == 0 {
		return &EligibilityResult{CanCheckIn: true}, nil
	}

	last := todays[len(todays)-1].Timestamp
	_, nextEligible := utcDayWindow(s.now())

	return &EligibilityResult{
		CanCheckIn:       false,
		Reason:           "already checked in today",
		LastCheckIn:      &last,
		NextEligibleTime: &nextEligible,
	}, nil
}

func (s *checkInService) RecordCheckIn(
	ctx context.Context,
	userId, gymId, gymName string,
) (*models.CheckInEvent, *apperrors.AppError) {
	// Re-validate the daily rule right before writing. Two concurrent
	// requests can still both pass this read (check-then-act); the dedup
	// repair job is the durable backstop for that race.
	todays, err := s.todaysCheckIns(ctx, userId)
	if err != nil {
		return nil, err
	}

	if len(todays) > 0 {
		last := todays[len(todays)-1].Timestamp
		_, nextEligible := utcDayWindow(s.now())
		return nil, checkinerrors.AlreadyCheckedInError(last, nextEligible)
	}

	event := &models.CheckInEvent{
		EventId: uuid.New().String(),
		UserId:  userId,
		GymId:   gymId,
		GymName: gymName,
		// Server-assigned timestamp. Client clocks never decide which
		// daily window an event lands in.
		Timestamp: s.now().UTC(),
	}

	if createErr := s.checkInRepo.Create(ctx, event); createErr != nil {
		return nil, apperrors.Wrap(createErr, apperrors.CodeDatabaseError, "failed to record check-in")
	}

	s.logger.Info("Check-in recorded",
		"user_id", userId,
		"gym_id", gymId,
		"event_id", event.EventId,
	)

	if s.eventPublisher != nil {
		if pubErr := s.eventPublisher.PublishCheckInRecorded(ctx, event); pubErr != nil {
			s.logger.Warn("Failed to publish check-in recorded event",
				"error", pubErr,
				"event_id", event.EventId,
			)
		}
	}

	return event, nil
}

func (s *checkInService) todaysCheckIns(
	ctx context.Context,
	userId string,
) ([]models.CheckInEvent, *apperrors.AppError) {
	dayStart, dayEnd := utcDayWindow(s.now())

	events, err := s.checkInRepo.ListByUserBetween(ctx, userId, dayStart, dayEnd)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to query today's check-ins")
	}

	return events, nil
}
