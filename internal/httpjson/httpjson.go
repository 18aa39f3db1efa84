// Package httpjson holds the JSON request/response helpers shared by every
// HTTP handler.
package httpjson

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/joao-fontenele/chopflow/internal/domain"
)

const maxBodyBytes = 1 << 20

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Decode reads a JSON body into dst and runs struct validation on it.
// Unknown fields are ignored. Any failure wraps domain.ErrInvalid.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty request body", domain.ErrInvalid)
		}
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalid)
	}
	return Validate(dst)
}

// Validate runs the validator over a struct and converts the first failing
// field into a readable message.
func Validate(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%w: %s", domain.ErrInvalid, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %v", domain.ErrInvalid, err)
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "url":
		return field + " must be a valid URL"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gte", "lte":
		return fmt.Sprintf("%s is out of range", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// Write encodes data as the JSON response body.
func Write(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func WriteError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	Write(w, logger, status, map[string]string{"error": message})
}

// WriteDomainError maps a domain error onto the HTTP status taxonomy:
// invalid and conflict are 400, unauthorized 401, forbidden 403, not found
// 404 and gateway failures 400. Anything else is logged and answered with a
// generic 500.
func WriteDomainError(w http.ResponseWriter, logger *slog.Logger, err error, msg string) {
	switch {
	case errors.Is(err, domain.ErrInvalid),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrGateway):
		WriteError(w, logger, http.StatusBadRequest, publicMessage(err))
	case errors.Is(err, domain.ErrUnauthorized):
		WriteError(w, logger, http.StatusUnauthorized, publicMessage(err))
	case errors.Is(err, domain.ErrForbidden):
		WriteError(w, logger, http.StatusForbidden, publicMessage(err))
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, logger, http.StatusNotFound, publicMessage(err))
	default:
		logger.Error(msg, "error", err)
		WriteError(w, logger, http.StatusInternalServerError, "internal server error")
	}
}

// publicMessage returns the detail following the sentinel, so
// "create review: invalid input: rating must be at most 5" is shown as
// "rating must be at most 5". A bare sentinel is shown as-is.
func publicMessage(err error) string {
	text := err.Error()
	for _, sentinel := range []error{
		domain.ErrInvalid, domain.ErrConflict, domain.ErrGateway,
		domain.ErrUnauthorized, domain.ErrForbidden, domain.ErrNotFound,
	} {
		if !errors.Is(err, sentinel) {
			continue
		}
		marker := sentinel.Error() + ": "
		if i := strings.LastIndex(text, marker); i >= 0 {
			return text[i+len(marker):]
		}
		return sentinel.Error()
	}
	return text
}
