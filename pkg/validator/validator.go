package validator

import (
	"context"
	"reflect"
	"strings"

	"github.com/go-playground/validator"

	"registro/internal/model"
)

var global *validator.Validate

const (
	ErrInvalidFormat      = "Invalid format"
	ErrFieldRequired      = "Field is required"
	ErrFieldExceedsMaxLen = "Field exceeds maximum length"
	ErrFieldBelowMinLen   = "Field is below minimum length"
	ErrUnknownValidation  = "Unknown validation error"

	ErrUnknownPlantel = "Unknown plantel"
	ErrUnknownRole    = "Unknown role"
)

func init() {
	SetValidator(New())
}

func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	_ = v.RegisterValidation("plantel", validatePlantel)
	_ = v.RegisterValidation("rol", validateRole)
	return v
}

func SetValidator(v *validator.Validate) {
	global = v
}

func Validator() *validator.Validate {
	return global
}

// jsonFieldName makes reported field names match the wire names, so a failed
// FullName check surfaces as "full_name".
func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}

func validatePlantel(fl validator.FieldLevel) bool {
	return model.IsPlantel(fl.Field().String())
}

func validateRole(fl validator.FieldLevel) bool {
	return model.IsRole(fl.Field().String())
}

// FieldErrors maps a wire field name to a human-readable message. An empty
// map means the structure passed validation.
type FieldErrors map[string]string

// Validate runs struct validation and collects every failed field instead of
// stopping at the first one. Returns nil when the structure is valid.
func Validate(ctx context.Context, structure any) FieldErrors {
	return parseValidationErrors(Validator().StructCtx(ctx, structure))
}

func parseValidationErrors(err error) FieldErrors {
	if err == nil {
		return nil
	}
	vErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(vErrors) == 0 {
		return nil
	}
	fe := make(FieldErrors, len(vErrors))
	for _, ve := range vErrors {
		var msg string
		switch ve.Tag() {
		case "required":
			msg = ErrFieldRequired
		case "max":
			msg = ErrFieldExceedsMaxLen
		case "min":
			msg = ErrFieldBelowMinLen
		case "email":
			msg = ErrInvalidFormat
		case "plantel":
			msg = ErrUnknownPlantel
		case "rol":
			msg = ErrUnknownRole
		default:
			msg = ErrUnknownValidation
		}
		fe[ve.Field()] = msg
	}
	return fe
}
