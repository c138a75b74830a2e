package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cankaraca/gymstreak/common/logger"
	checkinerrors "github.com/cankaraca/gymstreak/internal/errors"
	"github.com/cankaraca/gymstreak/internal/middleware"
	"github.com/cankaraca/gymstreak/internal/service"
)

const defaultLeaderboardLimit = 100

type ContestHandler struct {
	contestService service.ContestService
	rankingService service.RankingService
	logger         *logger.Logger
}

func NewContestHandler(
	contestService service.ContestService,
	rankingService service.RankingService,
	logger *logger.Logger,
) *ContestHandler {
	return &ContestHandler{
		contestService: contestService,
		rankingService: rankingService,
		logger:         logger,
	}
}

type contestCheckInRequest struct {
	UserId  string `json:"user_id" binding:"required"`
	GymId   string `json:"gym_id" binding:"required"`
	GymName string `json:"gym_name" binding:"required"`
}

// ProcessContestCheckIn is the best-effort follow-up to a recorded
// check-in. It always answers 200: contest trouble is reported inside
// the payload, never as a transport failure, so the check-in the user
// already made can never appear to fail retroactively.
func (h *ContestHandler) ProcessContestCheckIn(ctx *gin.Context) {
	var req contestCheckInRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondInvalidInput(ctx, "user_id, gym_id and gym_name are required")
		return
	}

	if ctx.GetString(middleware.ContextUserIDKey) != req.UserId {
		respondAppError(ctx, checkinerrors.IdentityMismatchError())
		return
	}

	displayName := ctx.GetString(middleware.ContextDisplayNameKey)
	result := h.contestService.ProcessContestCheckIn(ctx.Request.Context(), req.UserId, displayName)

	respondOK(ctx, result)
}

func (h *ContestHandler) GetLeaderboard(ctx *gin.Context) {
	contestId := ctx.Param("id")
	if contestId == "" {
		respondInvalidInput(ctx, "contest id is required")
		return
	}

	limit := defaultLeaderboardLimit
	if raw := ctx.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries, err := h.rankingService.GetLeaderboard(ctx.Request.Context(), contestId, limit)
	if err != nil {
		respondAppError(ctx, err)
		return
	}

	respondOK(ctx, gin.H{
		"contest_id":  contestId,
		"leaderboard": entries,
	})
}
