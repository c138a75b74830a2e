package service

import (
	"context"
	"sort"

	"github.com/cankaraca/gymstreak/common/cache"
	apperrors "github.com/cankaraca/gymstreak/common/errors"
	"github.com/cankaraca/gymstreak/common/logger"
	"github.com/cankaraca/gymstreak/common/models"
	"github.com/cankaraca/gymstreak/internal/repository"
)

type RankingService interface {
	// RecomputeRanks performs a full recompute of the contest ordering and
	// returns the number of participants ranked. Rank values are written
	// one attribute update at a time, never as one atomic commit, so they
	// are best-effort between recomputes; score fields are never touched.
	RecomputeRanks(ctx context.Context, contestId string) (int, *apperrors.AppError)

	// GetLeaderboard serves the cached ordering when redis has it and
	// falls back to ordering the store rows directly.
	GetLeaderboard(ctx context.Context, contestId string, limit int) ([]cache.LeaderboardEntry, *apperrors.AppError)
}

type rankingService struct {
	participantRepo repository.ParticipantRepository
	leaderboard     *cache.LeaderboardRepo
	logger          *logger.Logger
}

func NewRankingService(
	participantRepo repository.ParticipantRepository,
	leaderboard *cache.LeaderboardRepo,
	logger *logger.Logger,
) RankingService {
	return &rankingService{
		participantRepo: participantRepo,
		leaderboard:     leaderboard,
		logger:          logger,
	}
}

// rankParticipants sorts in place by points descending then check-ins
// descending and assigns dense 1-based ranks. Ties keep the incoming
// order (stable sort) and receive sequential ranks.
func rankParticipants(participants []models.ContestParticipant) {
	sort.SliceStable(participants, func(i, j int) bool {
		if participants[i].Points != participants[j].Points {
			return participants[i].Points > participants[j].Points
		}
		return participants[i].CheckIns > participants[j].CheckIns
	})

	for i := range participants {
		participants[i].Rank = i + 1
	}
}

func (s *rankingService) RecomputeRanks(ctx context.Context, contestId string) (int, *apperrors.AppError) {
	participants, err := s.participantRepo.ListByContest(ctx, contestId)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list participants")
	}

	if len(participants) == 0 {
		return 0, nil
	}

	rankParticipants(participants)

	if err := s.participantRepo.UpdateRanks(ctx, participants); err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to persist ranks")
	}

	if s.leaderboard != nil {
		entries := make([]cache.LeaderboardEntry, 0, len(participants))
		for _, p := range participants {
			entries = append(entries, cache.LeaderboardEntry{
				UserId:      p.UserId,
				DisplayName: p.DisplayName,
				Points:      p.Points,
				CheckIns:    p.CheckIns,
				Rank:        p.Rank,
			})
		}

		if cacheErr := s.leaderboard.ReplaceContestLeaderboard(ctx, contestId, entries); cacheErr != nil {
			// Cache refresh failure only costs read latency; the store
			// already holds the recomputed ranks.
			s.logger.Warn("Failed to refresh leaderboard cache",
				"error", cacheErr,
				"contest_id", contestId,
			)
		}
	}

	s.logger.Info("Ranks recomputed",
		"contest_id", contestId,
		"participants", len(participants),
	)

	return len(participants), nil
}

func (s *rankingService) GetLeaderboard(
	ctx context.Context,
	contestId string,
	limit int,
) ([]cache.LeaderboardEntry, *apperrors.AppError) {
	if s.leaderboard != nil {
		entries, err := s.leaderboard.GetContestLeaderboard(ctx, contestId, int64(limit))
		if err != nil {
			s.logger.Warn("Leaderboard cache read failed, falling back to store",
				"error", err,
				"contest_id", contestId,
			)
		} else if len(entries) > 0 {
			return entries, nil
		}
	}

	participants, err := s.participantRepo.ListByContest(ctx, contestId)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list participants")
	}

	rankParticipants(participants)

	if limit > 0 && len(participants) > limit {
		participants = participants[:limit]
	}

	entries := make([]cache.LeaderboardEntry, 0, len(participants))
	for _, p := range participants {
		entries = append(entries, cache.LeaderboardEntry{
			UserId:      p.UserId,
			DisplayName: p.DisplayName,
			Points:      p.Points,
			CheckIns:    p.CheckIns,
			Rank:        p.Rank,
		})
	}

	return entries, nil
}
