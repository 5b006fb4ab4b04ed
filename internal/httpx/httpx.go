// Package httpx holds the request binding and error rendering shared by all handlers.
package httpx

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/freshcart/storefront/internal/auth"
	"github.com/freshcart/storefront/internal/backend"
	"github.com/freshcart/storefront/internal/infrastructure/logger"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// ValidationError lists the offending fields by their JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, msg := range e.Fields {
		parts = append(parts, f+" "+msg)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Bind parses the request body into dst and validates it.
func Bind(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return Validate(dst)
}

// Validate runs struct validation on v.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
	}
	return &ValidationError{Fields: fields}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "eqfield":
		return "must match " + fe.Param()
	default:
		return "is invalid"
	}
}

// ParseID reads a positive integer route parameter.
func ParseID(c *fiber.Ctx, name string) (int, error) {
	id, err := strconv.Atoi(c.Params(name))
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// Fail writes a {"message": ...} body with the given status.
func Fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"message": message})
}

// Error renders err. Errors that carry no HTTP meaning become a 500 and are logged.
func Error(c *fiber.Ctx, err error) error {
	var (
		fe   *fiber.Error
		verr *ValidationError
	)
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "validation failed", "fields": verr.Fields})
	case errors.As(err, &fe):
		return Fail(c, fe.Code, fe.Message)
	case errors.Is(err, auth.ErrNoSession), errors.Is(err, auth.ErrInvalidClaim), errors.Is(err, backend.ErrUnauthorized):
		return auth.Unauthorized(c)
	case errors.Is(err, backend.ErrForbidden):
		return Fail(c, fiber.StatusForbidden, backend.MessageOf(err))
	case errors.Is(err, backend.ErrNotFound):
		return Fail(c, fiber.StatusNotFound, backend.MessageOf(err))
	case errors.Is(err, backend.ErrConflict):
		return Fail(c, fiber.StatusConflict, backend.MessageOf(err))
	case errors.Is(err, backend.ErrValidation):
		return Fail(c, fiber.StatusBadRequest, backend.MessageOf(err))
	case backend.IsUnavailable(err):
		logger.FromContext(c.UserContext()).Warn("backend unavailable", zap.Error(err))
		return Fail(c, fiber.StatusServiceUnavailable, "service temporarily unavailable, please try again")
	}
	logger.FromContext(c.UserContext()).Error("unhandled error", zap.Error(err))
	return Fail(c, fiber.StatusInternalServerError, "internal server error")
}

// ErrorHandler is installed as fiber.Config.ErrorHandler.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return Error(c, err)
}
