package controllers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
)

// queryValues copies the request query string into url.Values so the
// verification helpers can canonicalize it.
func queryValues(c *fiber.Ctx) url.Values {
	values := url.Values{}
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		values.Add(string(key), string(value))
	})
	return values
}

// errorJSON is a helper for consistent error responses
func errorJSON(c *fiber.Ctx, status int, message string) error {
	code := "error"
	switch status {
	case fiber.StatusBadRequest:
		code = "bad_request"
	case fiber.StatusUnauthorized:
		code = "unauthorized"
	case fiber.StatusNotFound:
		code = "not_found"
	case fiber.StatusBadGateway:
		code = "bad_gateway"
	case fiber.StatusInternalServerError:
		code = "internal_server_error"
	}
	return c.Status(status).JSON(fiber.Map{
		"error":   code,
		"message": message,
	})
}
