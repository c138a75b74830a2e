package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cankaraca/gymstreak/common/logger"
	"github.com/cankaraca/gymstreak/internal/service"
)

// AdminHandler exposes the repair jobs. Both endpoints are shared-secret
// protected and accept a dry_run flag that computes the full diff without
// writing anything.
type AdminHandler struct {
	backfillService service.BackfillService
	adminSecret     string
	logger          *logger.Logger
}

func NewAdminHandler(
	backfillService service.BackfillService,
	adminSecret string,
	logger *logger.Logger,
) *AdminHandler {
	return &AdminHandler{
		backfillService: backfillService,
		adminSecret:     adminSecret,
		logger:          logger,
	}
}

type rebuildRequest struct {
	ContestId string `json:"contest_id" binding:"required"`
	DryRun    bool   `json:"dry_run"`
}

type dedupRequest struct {
	DryRun bool `json:"dry_run"`
}

// RequireSecret compares the shared secret in constant time.
func (h *AdminHandler) RequireSecret() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		provided := ctx.GetHeader("X-Admin-Secret")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(h.adminSecret)) != 1 {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    "FORBIDDEN",
				"message": "invalid admin secret",
			})
			return
		}
		ctx.Next()
	}
}

func (h *AdminHandler) RebuildParticipation(ctx *gin.Context) {
	var req rebuildRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondInvalidInput(ctx, "contest_id is required")
		return
	}

	h.logger.Info("Admin rebuild requested",
		"contest_id", req.ContestId,
		"dry_run", req.DryRun,
	)

	summary, err := h.backfillService.RebuildParticipation(ctx.Request.Context(), req.ContestId, req.DryRun)
	if err != nil {
		respondAppError(ctx, err)
		return
	}

	respondOK(ctx, summary)
}

func (h *AdminHandler) DeduplicateCheckIns(ctx *gin.Context) {
	var req dedupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondInvalidInput(ctx, "invalid request body")
		return
	}

	h.logger.Info("Admin dedup requested", "dry_run", req.DryRun)

	summary, err := h.backfillService.DeduplicateCheckIns(ctx.Request.Context(), req.DryRun)
	if err != nil {
		respondAppError(ctx, err)
		return
	}

	respondOK(ctx, summary)
}
