package validator

import (
	"context"
	"testing"
)

type sample struct {
	Name    string `json:"full_name" validate:"required,max=10"`
	Plantel string `json:"plantel" validate:"required,plantel"`
	Role    string `json:"role" validate:"required,rol"`
}

func TestValidateCollectsAllFields(t *testing.T) {
	fe := Validate(context.Background(), sample{})
	if fe == nil {
		t.Fatal("expected field errors")
	}
	for _, f := range []string{"full_name", "plantel", "role"} {
		if fe[f] != ErrFieldRequired {
			t.Errorf("%s = %q, want %q", f, fe[f], ErrFieldRequired)
		}
	}
}

func TestValidateDomainTags(t *testing.T) {
	fe := Validate(context.Background(), sample{
		Name:    "Ana",
		Plantel: "Kinder",
		Role:    "MASCOTA",
	})
	if fe["plantel"] != ErrUnknownPlantel {
		t.Errorf("plantel = %q, want %q", fe["plantel"], ErrUnknownPlantel)
	}
	if fe["role"] != ErrUnknownRole {
		t.Errorf("role = %q, want %q", fe["role"], ErrUnknownRole)
	}
}

func TestValidateValid(t *testing.T) {
	fe := Validate(context.Background(), sample{
		Name:    "Ana",
		Plantel: "Primaria",
		Role:    "TUTOR",
	})
	if fe != nil {
		t.Errorf("unexpected field errors: %v", fe)
	}
}
