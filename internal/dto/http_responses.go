package dto

import (
	"github.com/wb-go/wbf/ginext"

	"registro/pkg/validator"
)

const (
	ErrStoreFailed  = "store_failed"
	ErrRenderFailed = "render_failed"

	DetailMissingQ            = "Falta parámetro q"
	DetailParticipantNotFound = "Participante no encontrado"
)

// RegisterParticipantRequest carries the raw submission fields. Validation
// tags run against the normalized copy produced by the intake package.
type RegisterParticipantRequest struct {
	FullName  string `json:"full_name" validate:"required,max=120"`
	Plantel   string `json:"plantel" validate:"required,plantel"`
	ChildName string `json:"child_name" validate:"omitempty,max=120"`
	Grade     string `json:"grado" validate:"omitempty,max=60"`
	Role      string `json:"role" validate:"required,rol"`
	Email     string `json:"email" validate:"omitempty,email"`
}

// BadgeIssuedMessage is published to RabbitMQ after a registration commits;
// the consumer worker turns it into a confirmation email.
type BadgeIssuedMessage struct {
	ParticipantID int64  `json:"participant_id"`
	Folio         string `json:"folio"`
	Plantel       string `json:"plantel"`
	FullName      string `json:"full_name"`
	Email         string `json:"email,omitempty"`
}

type PlantelCount struct {
	Plantel string `json:"plantel"`
	Total   int    `json:"total"`
}

type RoleCount struct {
	Role  string `json:"role"`
	Total int    `json:"total"`
}

type StatsResponse struct {
	Total      int            `json:"total"`
	PorPlantel []PlantelCount `json:"por_plantel"`
	PorRole    []RoleCount    `json:"por_role"`
}

type DetailResponse struct {
	Detail string `json:"detail"`
}

type ServerErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// ValidationErrorResponse answers a rejected submission with the offending
// field -> message pairs. Client fault, never logged as a server error.
func ValidationErrorResponse(c *ginext.Context, fe validator.FieldErrors) {
	c.JSON(400, fe)
}

func MissingParamError(c *ginext.Context, detail string) {
	c.JSON(400, DetailResponse{Detail: detail})
}

func NotFoundError(c *ginext.Context, detail string) {
	c.JSON(404, DetailResponse{Detail: detail})
}

func ServerError(c *ginext.Context, code, detail string) {
	c.JSON(500, ServerErrorResponse{Error: code, Detail: detail})
}
