package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cankaraca/gymstreak/common/database"
	apperrors "github.com/cankaraca/gymstreak/common/errors"
	"github.com/cankaraca/gymstreak/common/logger"
	"github.com/cankaraca/gymstreak/common/models"
	checkinerrors "github.com/cankaraca/gymstreak/internal/errors"
	"github.com/cankaraca/gymstreak/internal/events/publisher"
	"github.com/cankaraca/gymstreak/internal/repository"
)

// RebuildSummary reports one rebuild run. Errors are collected per user;
// a failing user never aborts the run.
type RebuildSummary struct {
	ContestId      string              `json:"contest_id"`
	DryRun         bool                `json:"dry_run"`
	UsersProcessed int                 `json:"users_processed"`
	UsersChanged   int                 `json:"users_changed"`
	RanksUpdated   int                 `json:"ranks_updated"`
	Errors         []string            `json:"errors,omitempty"`
	Details        []UserRebuildDetail `json:"details,omitempty"`
}

type UserRebuildDetail struct {
	UserId        string    `json:"user_id"`
	CheckIns      int       `json:"check_ins"`
	Points        int       `json:"points"`
	Streak        int       `json:"streak"`
	JoinedAt      time.Time `json:"joined_at"`
	LastCheckInAt time.Time `json:"last_check_in_at"`
	Created       bool      `json:"created"`
	Changed       bool      `json:"changed"`
}

type DedupSummary struct {
	DryRun          bool              `json:"dry_run"`
	UsersProcessed  int               `json:"users_processed"`
	DuplicatesFound int               `json:"duplicates_found"`
	Deleted         int               `json:"deleted"`
	Errors          []string          `json:"errors,omitempty"`
	Details         []UserDedupDetail `json:"details,omitempty"`
}

type UserDedupDetail struct {
	UserId  string   `json:"user_id"`
	Day     string   `json:"day"`
	Kept    string   `json:"kept_event_id"`
	Removed []string `json:"removed_event_ids"`
}

type BackfillService interface {
	// RebuildParticipation reconstructs every participant of the contest
	// from the authoritative check-in history. Idempotent: re-running
	// without new check-ins leaves the same state.
	RebuildParticipation(ctx context.Context, contestId string, dryRun bool) (*RebuildSummary, *apperrors.AppError)

	// DeduplicateCheckIns keeps the earliest event of each (user, UTC day)
	// pair and removes the rest. This is the durable answer to the
	// check-then-act race the live guard accepts.
	DeduplicateCheckIns(ctx context.Context, dryRun bool) (*DedupSummary, *apperrors.AppError)
}

type backfillService struct {
	checkInRepo     repository.CheckInRepository
	contestRepo     repository.ContestRepository
	participantRepo repository.ParticipantRepository
	transactionRepo database.TransactionRepository
	contestService  ContestService
	rankingService  RankingService
	eventPublisher  *publisher.EventPublisher
	logger          *logger.Logger
}

func NewBackfillService(
	checkInRepo repository.CheckInRepository,
	contestRepo repository.ContestRepository,
	participantRepo repository.ParticipantRepository,
	transactionRepo database.TransactionRepository,
	contestService ContestService,
	rankingService RankingService,
	eventPublisher *publisher.EventPublisher,
	logger *logger.Logger,
) BackfillService {
	return &backfillService{
		checkInRepo:     checkInRepo,
		contestRepo:     contestRepo,
		participantRepo: participantRepo,
		transactionRepo: transactionRepo,
		contestService:  contestService,
		rankingService:  rankingService,
		eventPublisher:  eventPublisher,
		logger:          logger,
	}
}

// replayWindow folds the live scoring and streak rules over a user's
// qualifying events in timestamp order, producing exactly the state the
// live path would have left behind.
func replayWindow(events []models.CheckInEvent) (checkIns, points, streak int, joinedAt, lastAt time.Time) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})

	var last *time.Time
	for i := range events {
		ts := events[i].Timestamp
		streak = nextStreakValue(last, ts, streak)
		checkIns++
		last = &ts
	}

	points = checkIns * pointsPerCheckIn
	joinedAt = events[0].Timestamp
	lastAt = events[len(events)-1].Timestamp
	return
}

func (s *backfillService) RebuildParticipation(
	ctx context.Context,
	contestId string,
	dryRun bool,
) (*RebuildSummary, *apperrors.AppError) {
	contest, err := s.contestRepo.GetById(ctx, contestId)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to read contest")
	}
	if contest == nil {
		return nil, checkinerrors.ContestNotFoundError(contestId)
	}

	events, err := s.checkInRepo.ListAllBetween(ctx, contest.StartDate, contest.EndDate)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to scan check-in history")
	}

	byUser := make(map[string][]models.CheckInEvent)
	for _, event := range events {
		byUser[event.UserId] = append(byUser[event.UserId], event)
	}

	summary := &RebuildSummary{
		ContestId: contestId,
		DryRun:    dryRun,
	}

	for userId, userEvents := range byUser {
		// Users with zero qualifying events never reach this loop, so no
		// spurious participants are created.
		summary.UsersProcessed++

		detail, err := s.rebuildUser(ctx, contest, userId, userEvents, dryRun)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("user %s: %v", userId, err))
			continue
		}

		if detail.Changed {
			summary.UsersChanged++
		}
		summary.Details = append(summary.Details, *detail)
	}

	if !dryRun {
		ranked, rankErr := s.rankingService.RecomputeRanks(ctx, contestId)
		if rankErr != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("rank recompute: %v", rankErr))
		}
		summary.RanksUpdated = ranked

		if s.eventPublisher != nil {
			if pubErr := s.eventPublisher.PublishBackfillCompleted(ctx, contestId, "rebuild"); pubErr != nil {
				s.logger.Warn("Failed to publish backfill completion", "error", pubErr)
			}
		}
	}

	s.logger.Info("Participation rebuild finished",
		"contest_id", contestId,
		"dry_run", dryRun,
		"users_processed", summary.UsersProcessed,
		"users_changed", summary.UsersChanged,
	)

	return summary, nil
}

func (s *backfillService) rebuildUser(
	ctx context.Context,
	contest *models.Contest,
	userId string,
	events []models.CheckInEvent,
	dryRun bool,
) (*UserRebuildDetail, error) {
	checkIns, points, streak, joinedAt, lastAt := replayWindow(events)

	existing, err := s.participantRepo.GetByContestAndUser(ctx, contest.ContestId, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to read participant: %w", err)
	}

	detail := &UserRebuildDetail{
		UserId:        userId,
		CheckIns:      checkIns,
		Points:        points,
		Streak:        streak,
		JoinedAt:      joinedAt,
		LastCheckInAt: lastAt,
	}

	if existing == nil {
		detail.Created = true
		detail.Changed = true

		if dryRun {
			return detail, nil
		}

		participant := &models.ContestParticipant{
			UserId:        userId,
			ContestId:     contest.ContestId,
			DisplayName:   anonymousName,
			Points:        points,
			CheckIns:      checkIns,
			Streak:        streak,
			JoinedAt:      joinedAt,
			LastCheckInAt: &lastAt,
		}

		putParticipant, err := s.participantRepo.GetTransactionForAddingParticipant(ctx, participant)
		if err != nil {
			return nil, fmt.Errorf("failed to build participant put: %w", err)
		}
		incrementCount := s.contestRepo.GetTransactionForIncrementingParticipants(ctx, contest.ContestId)

		transactionBuilder := database.NewTransactionBuilder()
		transactionBuilder.AddPut(putParticipant)
		transactionBuilder.AddUpdate(incrementCount)

		if txErr := s.transactionRepo.Execute(ctx, transactionBuilder); txErr != nil {
			return nil, fmt.Errorf("failed to create participant: %w", txErr)
		}

		return detail, nil
	}

	// joinedAt is preserved on existing records; everything derived from
	// the event history is recomputed.
	detail.JoinedAt = existing.JoinedAt
	detail.Changed = existing.CheckIns != checkIns ||
		existing.Points != points ||
		existing.Streak != streak ||
		existing.LastCheckInAt == nil ||
		!existing.LastCheckInAt.Equal(lastAt)

	if dryRun || !detail.Changed {
		return detail, nil
	}

	existing.Points = points
	existing.CheckIns = checkIns
	existing.Streak = streak
	existing.LastCheckInAt = &lastAt

	if err := s.participantRepo.Save(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to save participant: %w", err)
	}

	return detail, nil
}

func (s *backfillService) DeduplicateCheckIns(
	ctx context.Context,
	dryRun bool,
) (*DedupSummary, *apperrors.AppError) {
	events, err := s.checkInRepo.ListAll(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to scan check-in history")
	}

	byUser := make(map[string][]models.CheckInEvent)
	for _, event := range events {
		byUser[event.UserId] = append(byUser[event.UserId], event)
	}

	summary := &DedupSummary{DryRun: dryRun}

	for userId, userEvents := range byUser {
		summary.UsersProcessed++

		byDay := make(map[string][]models.CheckInEvent)
		for _, event := range userEvents {
			day := utcDayKey(event.Timestamp)
			byDay[day] = append(byDay[day], event)
		}

		for day, dayEvents := range byDay {
			if len(dayEvents) < 2 {
				continue
			}

			// Keep the earliest event of the day; it is the authoritative
			// check-in whenever the live guard let a duplicate through.
			sort.Slice(dayEvents, func(i, j int) bool {
				return dayEvents[i].Timestamp.Before(dayEvents[j].Timestamp)
			})

			detail := UserDedupDetail{
				UserId: userId,
				Day:    day,
				Kept:   dayEvents[0].EventId,
			}

			for i := 1; i < len(dayEvents); i++ {
				summary.DuplicatesFound++
				detail.Removed = append(detail.Removed, dayEvents[i].EventId)

				if dryRun {
					continue
				}

				if delErr := s.checkInRepo.Delete(ctx, &dayEvents[i]); delErr != nil {
					summary.Errors = append(summary.Errors,
						fmt.Sprintf("user %s day %s event %s: %v", userId, day, dayEvents[i].EventId, delErr))
					continue
				}
				summary.Deleted++
			}

			summary.Details = append(summary.Details, detail)
		}
	}

	if !dryRun {
		// Dedup is contest-agnostic; re-rank whatever contest is live so
		// its ordering reflects the repaired history.
		contest, gateErr := s.contestService.GetActiveContest(ctx)
		if gateErr != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("active contest lookup: %v", gateErr))
		} else if contest != nil {
			if _, rankErr := s.rankingService.RecomputeRanks(ctx, contest.ContestId); rankErr != nil {
				summary.Errors = append(summary.Errors, fmt.Sprintf("rank recompute: %v", rankErr))
			}

			if s.eventPublisher != nil {
				if pubErr := s.eventPublisher.PublishBackfillCompleted(ctx, contest.ContestId, "dedup"); pubErr != nil {
					s.logger.Warn("Failed to publish backfill completion", "error", pubErr)
				}
			}
		}
	}

	s.logger.Info("Check-in dedup finished",
		"dry_run", dryRun,
		"users_processed", summary.UsersProcessed,
		"duplicates_found", summary.DuplicatesFound,
		"deleted", summary.Deleted,
	)

	return summary, nil
}
