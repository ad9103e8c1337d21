package errors

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Respond writes err as a JSON error response and logs it.
func Respond(c *gin.Context, err error) {
	structuredErr := AsStructuredError(err)
	if structuredErr == nil {
		return
	}
	logError(c, structuredErr)
	c.AbortWithStatusJSON(structuredErr.HTTPStatus(), structuredErr.ToResponse())
}

func logError(c *gin.Context, err *Error) {
	var event *zerolog.Event
	switch err.Type {
	case TypeValidation, TypeNotFound:
		event = log.Info()
	case TypeUnauthorized, TypeForbidden:
		event = log.Warn()
	default:
		event = log.Error().Err(err.Cause)
	}

	event = event.
		Str("error_type", string(err.Type)).
		Str("path", c.Request.URL.Path).
		Str("method", c.Request.Method).
		Int("status", err.HTTPStatus())

	if requestID, ok := c.Get("request_id"); ok {
		event = event.Interface("request_id", requestID)
	}
	if userID, ok := c.Get("user_id"); ok {
		event = event.Interface("user_id", userID)
	}
	for k, v := range err.Context {
		event = event.Interface(k, v)
	}
	event.Msg(err.Message)
}
