package handlers

import (
	"errors"
	"strconv"

	"bluewar-ledger/services"

	"github.com/gofiber/fiber/v2"
)

// statusFor maps service sentinel errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrMemberInactive):
		return fiber.StatusUnauthorized
	case errors.Is(err, services.ErrMatchNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrMemberNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrDuplicateUser), errors.Is(err, services.ErrDuplicateMember):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, msg string, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{
		"error": msg,
		"cause": err.Error(),
	})
}

func badRequest(c *fiber.Ctx, msg string, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
		"cause": err.Error(),
	})
}

func idParam(c *fiber.Ctx, name string) (uint, error) {
	n, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || n == 0 {
		return 0, errors.New("id must be a positive integer")
	}
	return uint(n), nil
}
