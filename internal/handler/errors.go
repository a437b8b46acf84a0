package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/rs/zerolog/log"
)

func errorBody(status int, message string) fiber.Map {
	return fiber.Map{
		"error":   utils.StatusMessage(status),
		"message": message,
	}
}

func errorResponse(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(errorBody(status, message))
}

// ErrorHandler renders errors that escape handlers, including unknown routes and
// wrong methods, with the same JSON body as handler errors.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
		message = fe.Message
	}

	switch status {
	case fiber.StatusNotFound:
		message = "route " + c.Method() + " " + c.Path() + " not found"
	case fiber.StatusMethodNotAllowed:
		message = "method " + c.Method() + " not allowed on " + c.Path()
	}

	if status >= fiber.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
			Str("path", c.Path()).
			Msg("unhandled error")
		message = "internal server error"
	}

	return errorResponse(c, status, message)
}
