package serverutils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"venturelink-be/internal/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusFor(t *testing.T, err error) (int, string) {
	t.Helper()
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/", func(ctx *fiber.Ctx) error {
		return err
	})

	resp, reqErr := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, reqErr)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var parsed struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(body, &parsed))
	assert.False(t, parsed.Success)
	return resp.StatusCode, parsed.Message
}

func TestErrorHandlerMapsDomainErrors(t *testing.T) {
	status, _ := statusFor(t, apperror.NewAuth("bad credentials"))
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, msg := statusFor(t, apperror.NewPermission("not a participant"))
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "not a participant", msg)

	status, _ = statusFor(t, apperror.NewValidation("empty content"))
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = statusFor(t, apperror.NewNotFound("conversation not found"))
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = statusFor(t, apperror.NewTransient("db down", errors.New("timeout")))
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
}

func TestErrorHandlerHidesInternalDetails(t *testing.T) {
	status, msg := statusFor(t, errors.New("pq: connection refused"))
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", msg)

	// The wrapped cause of a transient error stays out of the response.
	_, msg = statusFor(t, apperror.NewTransient("failed to save message", errors.New("secret dsn")))
	assert.Equal(t, "failed to save message", msg)
}

func TestValidateRequest(t *testing.T) {
	type payload struct {
		Content string `validate:"required,max=10"`
	}

	assert.NoError(t, ValidateRequest(&payload{Content: "ok"}))

	err := ValidateRequest(&payload{})
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "Content")
}
