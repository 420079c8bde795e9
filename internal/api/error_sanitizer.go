package api

import (
	"strings"

	"github.com/ignite/region-insights/internal/pkg/logger"
)

// sanitizedError logs the full internal error and returns a public-safe message.
func sanitizedError(code int, internalErr error, publicMsg string) string {
	if internalErr != nil {
		logger.Error(publicMsg, "status", code, "error", internalErr)
		if hint := safeErrorHint(internalErr); hint != "" {
			return publicMsg + ": " + hint
		}
	}
	return publicMsg
}

// safeErrorHint classifies an upstream failure without exposing its text.
func safeErrorHint(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "dial tcp"):
		return "downstream service unavailable"
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "deadline exceeded"):
		return "downstream request timed out"
	case strings.Contains(msg, "ses"), strings.Contains(msg, "webhook"):
		return "digest delivery failed"
	case strings.Contains(msg, "s3"), strings.Contains(msg, "dynamodb"), strings.Contains(msg, "archive"):
		return "archive write failed"
	default:
		return ""
	}
}
