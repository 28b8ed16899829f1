package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"dkn/internal/apperror"
	"dkn/internal/http/middleware"
)

// errorPayload is the body of every failed response.
type errorPayload struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Code      string `json:"code"`
	RequestID string `json:"request_id"`
}

// writeError writes the error envelope. message must be safe to show clients.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorPayload{
		Success:   false,
		Message:   message,
		Code:      code,
		RequestID: middleware.RequestIDFromCtx(c),
	})
}

// writeSuccess adds "success": true to payload and writes it.
func writeSuccess(c *fiber.Ctx, status int, payload fiber.Map) error {
	if payload == nil {
		payload = fiber.Map{}
	}
	payload["success"] = true
	return c.Status(status).JSON(payload)
}

// handleError renders a service error. Storage errors and anything outside
// the apperror taxonomy are logged and reported as a generic 500.
func handleError(c *fiber.Ctx, err error) error {
	appErr, ok := apperror.As(err)
	if !ok {
		appErr = apperror.Storage("Server error", err)
	}
	if appErr.Kind == apperror.KindStorage {
		zap.L().Error("request_failed",
			zap.String("request_id", middleware.RequestIDFromCtx(c)),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}
	return writeError(c, appErr.Status(), string(appErr.Kind), appErr.Message)
}

func fileTooLargeMessage(maxUploadBytes int64) string {
	return fmt.Sprintf("File size too large. Maximum size is %dMB.", maxUploadBytes>>20)
}

// ErrorHandler returns the global fiber error handler. Oversized request
// bodies are reported as a 400 with the upload limit in the message.
func ErrorHandler(maxUploadBytes int64) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		fe, ok := err.(*fiber.Error)
		if !ok {
			return handleError(c, err)
		}

		switch fe.Code {
		case fiber.StatusBadRequest:
			return writeError(c, fe.Code, "BAD_REQUEST", "Bad request")
		case fiber.StatusNotFound:
			return writeError(c, fe.Code, "NOT_FOUND", "Route not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, fe.Code, "METHOD_NOT_ALLOWED", "Method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, fiber.StatusBadRequest, "FILE_TOO_LARGE", fileTooLargeMessage(maxUploadBytes))
		case fiber.StatusServiceUnavailable:
			return writeError(c, fe.Code, "SERVICE_UNAVAILABLE", "Service unavailable")
		default:
			if fe.Code >= fiber.StatusInternalServerError {
				zap.L().Error("request_failed",
					zap.String("request_id", middleware.RequestIDFromCtx(c)),
					zap.String("path", c.Path()),
					zap.Error(err),
				)
				return writeError(c, fe.Code, "INTERNAL_ERROR", "Internal server error")
			}
			return writeError(c, fe.Code, "REQUEST_ERROR", fe.Message)
		}
	}
}
