package errors

import (
	"fmt"
	"time"

	apperrors "github.com/cankaraca/gymstreak/common/errors"
)

func AlreadyCheckedInError(lastCheckIn, nextEligible time.Time) *apperrors.AppError {
	return apperrors.New(apperrors.CodeFailedPrecondition,
		fmt.Sprintf("you have already checked in today at %s, next check-in available at %s",
			lastCheckIn.Format(time.RFC3339), nextEligible.Format(time.RFC3339)))
}

func IdentityMismatchError() *apperrors.AppError {
	return apperrors.New(apperrors.CodeForbidden,
		"authenticated user does not match the requested user")
}

func ContestNotFoundError(contestId string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeNotFound,
		fmt.Sprintf("contest not found: %s", contestId))
}

func ParticipantNotFoundError(contestId, userId string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeNotFound,
		fmt.Sprintf("participant %s not found in contest %s", userId, contestId))
}

func ScoreUpdateContentionError(userId string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeConflict,
		fmt.Sprintf("score update for user %s kept losing to concurrent writers", userId))
}
