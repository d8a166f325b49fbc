package model

import "time"

// Participant is the single persisted entity: one row per registration.
// Folio (db column "clave") is stamped by the repository inside the
// registration transaction and is unique when non-empty.
type Participant struct {
	ID        int64     `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Plantel   string    `db:"plantel" json:"plantel"`
	ChildName string    `db:"child_name" json:"child_name"`
	Grade     string    `db:"grado" json:"grado"`
	Role      string    `db:"role" json:"role"`
	Folio     string    `db:"clave" json:"clave"`
	Email     string    `db:"email" json:"email,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"-"`
}

const (
	PlantelPrimaria     = "Primaria"
	PlantelSecundaria   = "Secundaria"
	PlantelPreparatoria = "Preparatoria"
)

var Planteles = []string{
	PlantelPrimaria,
	PlantelSecundaria,
	PlantelPreparatoria,
}

const (
	RoleAcompananteHombre = "ACOMPAÑANTE HOMBRE"
	RoleAcompananteMujer  = "ACOMPAÑANTE MUJER"
	RoleAbuelito          = "ABUELITO"
	RoleAbuelita          = "ABUELITA"
	RoleTutor             = "TUTOR"
	RoleAlumno            = "ALUMNO"
)

// Roles is the full participation catalog: adult companions, grandparents,
// tutors and the student grade bands per plantel.
var Roles = []string{
	RoleAcompananteHombre,
	RoleAcompananteMujer,
	RoleAbuelito,
	RoleAbuelita,
	RoleTutor,
	RoleAlumno,
	"ALUMNOS LMA BAJAH",
	"ALUMNOS LMA BAJAM",
	"ALUMNOS LMA ALTAH",
	"ALUMNOS LMA ALTAM",
	"ALUMNOS LMA SECH",
	"ALUMNOS LMA SECM",
	"ALUMNOS LMA PREPH",
	"ALUMNOS LMA PREPM",
}

// RoleLabels maps catalog values to the friendly wording printed on badges.
var RoleLabels = map[string]string{
	RoleAcompananteHombre: "Acompañante Hombres",
	RoleAcompananteMujer:  "Acompañante Mujer",
	RoleAbuelito:          "Abuelito",
	RoleAbuelita:          "Abuelita",
	"ALUMNOS LMA BAJAH":   "ALUMNOS LMA Primaria (primaria baja hombres 1°, 2° y 3°)",
	"ALUMNOS LMA BAJAM":   "ALUMNOS LMA Primaria (primaria baja mujeres 1°, 2° y 3°)",
	"ALUMNOS LMA ALTAH":   "ALUMNOS LMA Primaria (primaria alta hombres 4°, 5° y 6°)",
	"ALUMNOS LMA ALTAM":   "ALUMNOS LMA Primaria (primaria alta mujeres 4°, 5° y 6°)",
	"ALUMNOS LMA SECH":    "ALUMNOS LMA Secundaria (hombres)",
	"ALUMNOS LMA SECM":    "ALUMNOS LMA Secundaria (mujeres)",
	"ALUMNOS LMA PREPH":   "ALUMNOS LMA Preparatoria (hombres)",
	"ALUMNOS LMA PREPM":   "ALUMNOS LMA Preparatoria (mujeres)",
}

func RoleLabel(role string) string {
	if label, ok := RoleLabels[role]; ok {
		return label
	}
	return role
}

func IsPlantel(v string) bool {
	for _, p := range Planteles {
		if v == p {
			return true
		}
	}
	return false
}

func IsRole(v string) bool {
	for _, r := range Roles {
		if v == r {
			return true
		}
	}
	return false
}

// IsStudentRole reports whether the role describes a registered student,
// which makes child_name and grado mandatory on intake.
func IsStudentRole(role string) bool {
	if role == RoleAlumno {
		return true
	}
	const bandPrefix = "ALUMNOS LMA "
	return len(role) > len(bandPrefix) && role[:len(bandPrefix)] == bandPrefix
}
