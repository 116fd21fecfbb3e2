package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/eugenenazirov/cutlist-optimizer/internal/storage"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// Money is compared numerically so gte/gt tags work on prices.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})

	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("hardware_type", func(fl validator.FieldLevel) bool {
		return slices.Contains(storage.HardwareTypes, fl.Field().String())
	})

	return v
}

// fieldErrors converts validator errors into a map of field path to message.
// Paths drop the request type name, e.g. "cutList[2].length".
func fieldErrors(err error) map[string]string {
	out := make(map[string]string)
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return out
	}
	for _, fe := range ve {
		out[fieldPath(fe)] = fieldMessage(fe)
	}
	return out
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return fmt.Sprintf("Minimum length is %s", fe.Param())
	case "max":
		return fmt.Sprintf("Maximum length is %s", fe.Param())
	case "url":
		return "Must be a valid URL"
	case "gt":
		return fmt.Sprintf("Must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("Must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	case "hardware_type":
		return "Must be one of: " + strings.Join(storage.HardwareTypes, ", ")
	default:
		return fmt.Sprintf("Validation failed on '%s'", fe.Tag())
	}
}

// decodeRequest decodes the JSON body into T and validates it. On failure it
// writes the error response and returns false. An empty body is accepted
// when allowEmpty is set and leaves T at its zero value.
func decodeRequest[T any](w http.ResponseWriter, r *http.Request, allowEmpty bool) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "Request too large",
				fmt.Sprintf("request body must not exceed %d bytes", tooLarge.Limit))
			return req, false
		case errors.Is(err, io.EOF) && allowEmpty:
		default:
			writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
			return req, false
		}
	}
	if !validateRequest(w, &req) {
		return req, false
	}
	return req, true
}

// validateRequest runs struct validation and writes a 400 response listing
// the offending fields when it fails.
func validateRequest(w http.ResponseWriter, req any) bool {
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  "Validation failed",
			Fields: fieldErrors(err),
		})
		return false
	}
	return true
}
