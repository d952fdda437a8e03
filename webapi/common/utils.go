// Package common holds the response envelope, problem details and request
// binding shared by the HTTP handlers.
package common

import (
	"errors"

	"github.com/amirasaad/mileage/pkg/domain"
	"github.com/amirasaad/mileage/pkg/domain/mileage"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// Response defines the standard API response structure for success cases.
type Response struct {
	Status  int    `json:"status"`         // HTTP status code
	Message string `json:"message"`        // Human-readable explanation
	Data    any    `json:"data,omitempty"` // Response data
}

// ProblemDetails follows RFC 9457 Problem Details for HTTP APIs.
type ProblemDetails struct {
	Type     string `json:"type,omitempty"`     // A URI reference that identifies the problem type
	Title    string `json:"title"`              // Short, human-readable summary
	Status   int    `json:"status"`             // HTTP status code
	Detail   string `json:"detail,omitempty"`   // Human-readable explanation
	Instance string `json:"instance,omitempty"` // URI reference that identifies the specific occurrence
	Errors   any    `json:"errors,omitempty"`   // Optional: additional error details
}

// SuccessResponseJSON writes the success envelope.
func SuccessResponseJSON(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Response{Status: status, Message: message, Data: data})
}

// ErrorResponseJSON returns a response following RFC 9457 Problem Details
func ErrorResponseJSON(
	c *fiber.Ctx,
	status int,
	title string,
	detail any,
) error {
	pd := ProblemDetails{
		Type:   "about:blank",
		Title:  title,
		Status: status,
	}
	if detail != nil {
		if s, ok := detail.(string); ok {
			pd.Detail = s
		} else {
			pd.Errors = detail
		}
	}
	pd.Instance = c.OriginalURL()

	return c.Status(status).JSON(pd, "application/problem+json")
}

// ProblemDetailsJSON writes err as problem details, deriving the status from
// the error unless one is given.
func ProblemDetailsJSON(c *fiber.Ctx, title string, err error, status ...int) error {
	code := ErrorToStatusCode(err)
	if len(status) > 0 {
		code = status[0]
	}
	var detail any
	if err != nil {
		detail = err.Error()
	}
	return ErrorResponseJSON(c, code, title, detail)
}

// ErrorToStatusCode maps domain errors to appropriate HTTP status codes.
func ErrorToStatusCode(err error) int {
	var fe *fiber.Error
	switch {
	case err == nil:
		return fiber.StatusInternalServerError
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, mileage.ErrAccountNotFound), errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, mileage.ErrInvalidAmount),
		errors.Is(err, mileage.ErrInvalidKind),
		errors.Is(err, mileage.ErrInvalidRankField),
		errors.Is(err, mileage.ErrPointsOverflow),
		errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, mileage.ErrConcurrentModification):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

// BindAndValidate parses the request body and validates it using go-playground/validator.
// Returns a pointer to the struct (populated), or writes an error response and returns nil.
func BindAndValidate[T any](c *fiber.Ctx) (*T, error) {
	var input T
	if err := c.BodyParser(&input); err != nil {
		return nil, ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid request body", err.Error())
	}
	if err := validate.Struct(input); err != nil {
		return nil, ErrorResponseJSON(c, fiber.StatusBadRequest, "Validation failed", validationErrors(err))
	}
	return &input, nil
}

// BindQuery parses and validates query parameters into T.
func BindQuery[T any](c *fiber.Ctx) (*T, error) {
	var input T
	if err := c.QueryParser(&input); err != nil {
		return nil, ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid query", err.Error())
	}
	if err := validate.Struct(input); err != nil {
		return nil, ErrorResponseJSON(c, fiber.StatusBadRequest, "Validation failed", validationErrors(err))
	}
	return &input, nil
}

func validationErrors(err error) any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return fields
}
