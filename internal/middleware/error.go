package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pageza/pantrychef/backend/internal/apperrors"
)

// RespondError writes err as {"error": {code, message, details}} with the
// status matching its code. Rate limit errors also set Retry-After.
func RespondError(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	if secs := apperrors.RetryAfterSeconds(appErr); secs > 0 {
		c.Header("Retry-After", strconv.Itoa(secs))
	}

	resp := appErr.ToResponse()
	if appErr.Code == apperrors.CodeInternal {
		// Internal causes stay in the logs.
		resp.Error.Message = "internal server error"
		resp.Error.Details = nil
	}
	c.JSON(appErr.HTTPStatus(), resp)
}

// ErrorHandler renders the last error a handler attached with c.Error when
// nothing has been written yet.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		if apperrors.GetCode(err) == apperrors.CodeInternal {
			logger.Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("route", c.FullPath()),
				zap.Error(err),
			)
		}
		RespondError(c, err)
	}
}
