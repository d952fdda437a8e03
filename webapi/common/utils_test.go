package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/amirasaad/mileage/pkg/domain"
	"github.com/amirasaad/mileage/pkg/domain/mileage"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorToStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{mileage.ErrAccountNotFound, fiber.StatusNotFound},
		{domain.ErrNotFound, fiber.StatusNotFound},
		{mileage.ErrInvalidAmount, fiber.StatusBadRequest},
		{mileage.ErrInvalidKind, fiber.StatusBadRequest},
		{mileage.ErrInvalidRankField, fiber.StatusBadRequest},
		{mileage.ErrPointsOverflow, fiber.StatusBadRequest},
		{fmt.Errorf("%w: too long", domain.ErrValidation), fiber.StatusBadRequest},
		{fmt.Errorf("update account: %w", mileage.ErrConcurrentModification), fiber.StatusConflict},
		{domain.ErrUnauthorized, fiber.StatusUnauthorized},
		{domain.ErrForbidden, fiber.StatusForbidden},
		{fiber.ErrMethodNotAllowed, fiber.StatusMethodNotAllowed},
		{errors.New("boom"), fiber.StatusInternalServerError},
		{nil, fiber.StatusInternalServerError},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ErrorToStatusCode(tc.err), "%v", tc.err)
	}
}

func TestProblemDetailsJSON(t *testing.T) {
	app := fiber.New()
	app.Get("/x", func(c *fiber.Ctx) error {
		return ProblemDetailsJSON(c, "Write failed", mileage.ErrConcurrentModification)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/x?y=1", nil))
	require.NoError(t, err)
	defer resp.Body.Close() //nolint: errcheck

	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get(fiber.HeaderContentType))
	var pd ProblemDetails
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pd))
	assert.Equal(t, "Write failed", pd.Title)
	assert.Equal(t, fiber.StatusConflict, pd.Status)
	assert.Equal(t, "/x?y=1", pd.Instance)
	assert.Equal(t, mileage.ErrConcurrentModification.Error(), pd.Detail)
}

type pointsRequest struct {
	Points int64  `json:"points" validate:"required,gt=0"`
	Note   string `json:"note" validate:"max=5"`
}

func TestBindAndValidate(t *testing.T) {
	app := fiber.New()
	app.Post("/", func(c *fiber.Ctx) error {
		input, err := BindAndValidate[pointsRequest](c)
		if input == nil {
			return err
		}
		return SuccessResponseJSON(c, fiber.StatusOK, "ok", input)
	})

	send := func(body string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	resp := send(`{"points":5,"note":"hi"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var ok Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ok))
	assert.Equal(t, "ok", ok.Message)

	resp = send(`{"points":`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = send(`{"points":0,"note":"too long"}`)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	var pd ProblemDetails
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pd))
	assert.Equal(t, "Validation failed", pd.Title)
	assert.Equal(t, map[string]any{"Points": "required", "Note": "max"}, pd.Errors)
}
