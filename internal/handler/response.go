package handler

import (
	"net/http"

	apperrors "github.com/cankaraca/gymstreak/common/errors"
	"github.com/gin-gonic/gin"
)

// JSONResponse is the uniform envelope for API responses.
type JSONResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func respondOK(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, JSONResponse{
		Code:    "OK",
		Message: "success",
		Data:    data,
	})
}

func respondAppError(ctx *gin.Context, err *apperrors.AppError) {
	ctx.JSON(apperrors.ToHTTPStatus(err.Code), JSONResponse{
		Code:    err.Code,
		Message: err.Message,
	})
}

func respondInvalidInput(ctx *gin.Context, message string) {
	respondAppError(ctx, apperrors.New(apperrors.CodeInvalidInput, message))
}
