package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LeaderboardEntry is one row of a contest leaderboard as cached in redis.
type LeaderboardEntry struct {
	UserId      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Points      int    `json:"points"`
	CheckIns    int    `json:"check_ins"`
	Rank        int    `json:"rank"`
}

type LeaderboardRepo struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLeaderboardRepo(client *RedisClient, ttl time.Duration) *LeaderboardRepo {
	return &LeaderboardRepo{
		client: client.GetClient(),
		ttl:    ttl,
	}
}

// Key Generation Helpers

func contestLeaderboardKey(contestId string) string {
	return fmt.Sprintf("leaderboard:contest:%s", contestId)
}

func displayNamesHashKey() string {
	return "usernames"
}

// compositeScore orders members by points first and check-in count
// second, matching the ranking comparator.
func compositeScore(points, checkIns int) float64 {
	return float64(points) + float64(checkIns)/1e6
}

// Write Operations

// ReplaceContestLeaderboard swaps in a freshly recomputed ordering for
// the contest.
func (r *LeaderboardRepo) ReplaceContestLeaderboard(
	ctx context.Context,
	contestId string,
	entries []LeaderboardEntry,
) error {
	key := contestLeaderboardKey(contestId)

	pipe := r.client.Pipeline()
	pipe.Del(ctx, key)

	for _, entry := range entries {
		pipe.ZAdd(ctx, key, redis.Z{
			Score:  compositeScore(entry.Points, entry.CheckIns),
			Member: entry.UserId,
		})
		pipe.HSet(ctx, displayNamesHashKey(), entry.UserId, entry.DisplayName)
	}

	pipe.Expire(ctx, key, r.ttl)
	pipe.Expire(ctx, displayNamesHashKey(), r.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to replace contest leaderboard: %w", err)
	}

	return nil
}

// Read Operations

// GetContestLeaderboard returns up to limit members in rank order, or an
// empty slice when the contest has no cached ordering.
func (r *LeaderboardRepo) GetContestLeaderboard(
	ctx context.Context,
	contestId string,
	limit int64,
) ([]LeaderboardEntry, error) {
	key := contestLeaderboardKey(contestId)

	members, err := r.client.ZRevRangeWithScores(ctx, key, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read contest leaderboard: %w", err)
	}

	entries := make([]LeaderboardEntry, 0, len(members))
	for i, member := range members {
		userId, ok := member.Member.(string)
		if !ok {
			continue
		}

		displayName, err := r.client.HGet(ctx, displayNamesHashKey(), userId).Result()
		if err == redis.Nil {
			displayName = ""
		} else if err != nil {
			return nil, fmt.Errorf("failed to read display name: %w", err)
		}

		points := int(member.Score)
		entries = append(entries, LeaderboardEntry{
			UserId:      userId,
			DisplayName: displayName,
			Points:      points,
			Rank:        i + 1,
		})
	}

	return entries, nil
}
