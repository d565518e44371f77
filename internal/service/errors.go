package service

import (
	"errors"

	"ai-medchat-be/pkg/document"
	"ai-medchat-be/pkg/rag/session"

	"github.com/gofiber/fiber/v2"
)

// toHTTPError maps domain errors to client errors; anything else stays a 500
func toHTTPError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrMissingSessionID), errors.Is(err, session.ErrInvalidSessionID):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, document.ErrUnsupportedFormat):
		return fiber.NewError(fiber.StatusUnsupportedMediaType, err.Error())
	default:
		return err
	}
}
