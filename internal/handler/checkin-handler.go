package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/cankaraca/gymstreak/common/logger"
	checkinerrors "github.com/cankaraca/gymstreak/internal/errors"
	"github.com/cankaraca/gymstreak/internal/middleware"
	"github.com/cankaraca/gymstreak/internal/service"
)

type CheckInHandler struct {
	checkInService service.CheckInService
	logger         *logger.Logger
}

func NewCheckInHandler(checkInService service.CheckInService, logger *logger.Logger) *CheckInHandler {
	return &CheckInHandler{
		checkInService: checkInService,
		logger:         logger,
	}
}

type eligibilityRequest struct {
	UserId string `json:"user_id" binding:"required"`
}

type recordCheckInRequest struct {
	UserId  string `json:"user_id" binding:"required"`
	GymId   string `json:"gym_id" binding:"required"`
	GymName string `json:"gym_name" binding:"required"`
}

type recordCheckInResponse struct {
	Success   bool   `json:"success"`
	CheckInId string `json:"check_in_id,omitempty"`
}

// CheckEligibility is the read-only pre-flight check. It shares window
// semantics with RecordCheckIn, so a positive answer here cannot be
// contradicted by an immediately following record call (absent a
// concurrent caller).
func (h *CheckInHandler) CheckEligibility(ctx *gin.Context) {
	var req eligibilityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondInvalidInput(ctx, "user_id is required")
		return
	}

	if ctx.GetString(middleware.ContextUserIDKey) != req.UserId {
		respondAppError(ctx, checkinerrors.IdentityMismatchError())
		return
	}

	result, err := h.checkInService.CheckEligibility(ctx.Request.Context(), req.UserId)
	if err != nil {
		respondAppError(ctx, err)
		return
	}

	respondOK(ctx, result)
}

func (h *CheckInHandler) RecordCheckIn(ctx *gin.Context) {
	var req recordCheckInRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondInvalidInput(ctx, "user_id, gym_id and gym_name are required")
		return
	}

	if ctx.GetString(middleware.ContextUserIDKey) != req.UserId {
		respondAppError(ctx, checkinerrors.IdentityMismatchError())
		return
	}

	event, err := h.checkInService.RecordCheckIn(ctx.Request.Context(), req.UserId, req.GymId, req.GymName)
	if err != nil {
		respondAppError(ctx, err)
		return
	}

	respondOK(ctx, recordCheckInResponse{
		Success:   true,
		CheckInId: event.EventId,
	})
}
