// Package intake normalizes and validates raw registration submissions
// before any folio is allocated or anything is persisted.
package intake

import (
	"context"
	"strings"
	"unicode"

	"registro/internal/dto"
	"registro/internal/model"
	"registro/pkg/validator"
)

const (
	msgChildRequired = "Requerido para ALUMNO."
	msgGradeRequired = "Requerido para ALUMNO."
)

// Normalize trims every field and coerces the enumerated ones into catalog
// form: plantel is title-cased ("  primaria " -> "Primaria"), role is
// upper-cased ("acompañante mujer" -> "ACOMPAÑANTE MUJER"). Pure; validation
// happens afterwards on the normalized copy, so malformed-but-coercible
// input never fails on casing alone.
func Normalize(req dto.RegisterParticipantRequest) dto.RegisterParticipantRequest {
	return dto.RegisterParticipantRequest{
		FullName:  strings.TrimSpace(req.FullName),
		Plantel:   titleCase(strings.TrimSpace(req.Plantel)),
		ChildName: strings.TrimSpace(req.ChildName),
		Grade:     strings.TrimSpace(req.Grade),
		Role:      strings.ToUpper(strings.TrimSpace(req.Role)),
		Email:     strings.TrimSpace(req.Email),
	}
}

// Validate checks an already-normalized submission: struct tags cover the
// required fields and the plantel/role catalogs, then the student-role
// conditional requires child_name and grado. Returns nil when valid.
func Validate(ctx context.Context, req dto.RegisterParticipantRequest) validator.FieldErrors {
	fe := validator.Validate(ctx, req)

	if model.IsStudentRole(req.Role) {
		if req.ChildName == "" {
			if fe == nil {
				fe = validator.FieldErrors{}
			}
			fe["child_name"] = msgChildRequired
		}
		if req.Grade == "" {
			if fe == nil {
				fe = validator.FieldErrors{}
			}
			fe["grado"] = msgGradeRequired
		}
	}
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// titleCase upper-cases the first letter and lower-cases the rest. The
// plantel catalog is single-word, which keeps this deliberately simpler
// than a full word-by-word title casing.
func titleCase(s string) string {
	runes := []rune(strings.ToLower(s))
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
