package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"leave-ledger/internal/apperror"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const maxBodyBytes = 1 << 20

var errInvalidBody = apperror.New(apperror.CodeInvalidInput, "invalid request body", http.StatusBadRequest)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func formatFieldName(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	return cases.Title(language.English).String(s)
}

// mapValidationError turns the first failed rule into an INVALID_INPUT error.
func mapValidationError(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return apperror.Wrap(errInvalidBody, err)
	}

	e := errs[0]
	field := formatFieldName(e.Field())
	var msg string
	switch e.Tag() {
	case "required", "required_if":
		msg = field + " is required"
	case "oneof":
		msg = fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "datetime":
		msg = field + " must be a date in YYYY-MM-DD format"
	case "min", "gte":
		msg = fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max", "lte":
		msg = fmt.Sprintf("%s must be at most %s", field, e.Param())
	default:
		msg = field + " is invalid"
	}
	return apperror.Wrap(errInvalidBody, errors.New(msg))
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
func (h *Handler) decodeAndValidate(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperror.Wrap(errInvalidBody, err)
	}
	if err := h.validate.Struct(dst); err != nil {
		return mapValidationError(err)
	}
	return nil
}
