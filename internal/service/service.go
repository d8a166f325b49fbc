package service

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"registro/internal/badge"
	"registro/internal/dto"
	"registro/internal/intake"
	"registro/internal/model"
	"registro/internal/repo"
)

// Publisher is the slice of the rabbit client the service needs.
type Publisher interface {
	Publish(message []byte, delaySeconds int) error
}

type Service interface {
	Register(ctx *ginext.Context)
	List(ctx *ginext.Context)
	ExportCSV(ctx *ginext.Context)
	Stats(ctx *ginext.Context)
	Reprint(ctx *ginext.Context)
}

type service struct {
	repo     repo.Repository
	log      *zerolog.Logger
	renderer badge.Renderer
	pub      Publisher
}

func NewService(repo repo.Repository, logger *zerolog.Logger, renderer badge.Renderer, pub Publisher) Service {
	return &service{
		repo:     repo,
		log:      logger,
		renderer: renderer,
		pub:      pub,
	}
}

// Register accepts a submission, validates it, persists the participant with
// a freshly allocated folio and answers with the rendered badge PDF. A
// render failure after the commit still leaves the record in place.
func (s *service) Register(ctx *ginext.Context) {
	var req dto.RegisterParticipantRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.MissingParamError(ctx, "JSON inválido")
		return
	}

	req = intake.Normalize(req)
	if fe := intake.Validate(ctx, req); fe != nil {
		dto.ValidationErrorResponse(ctx, fe)
		return
	}

	participant := &model.Participant{
		FullName:  req.FullName,
		Plantel:   req.Plantel,
		ChildName: req.ChildName,
		Grade:     req.Grade,
		Role:      req.Role,
		Email:     req.Email,
	}

	if err := s.repo.Register(ctx.Request.Context(), participant); err != nil {
		s.log.Error().Err(err).Msg("failed to register participant")
		dto.ServerError(ctx, dto.ErrStoreFailed, err.Error())
		return
	}

	s.log.Info().
		Int64("participant_id", participant.ID).
		Str("folio", participant.Folio).
		Str("plantel", participant.Plantel).
		Msg("participant registered")

	s.publishBadgeIssued(participant)
	s.serveBadge(ctx, participant)
}

// publishBadgeIssued hands the registration to the notification worker.
// Best effort: a broker hiccup must not fail a committed registration.
func (s *service) publishBadgeIssued(p *model.Participant) {
	msg := dto.BadgeIssuedMessage{
		ParticipantID: p.ID,
		Folio:         p.Folio,
		Plantel:       p.Plantel,
		FullName:      p.FullName,
		Email:         p.Email,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal badge message")
		return
	}
	if err := s.pub.Publish(payload, 0); err != nil {
		s.log.Error().Err(err).Msg("failed to publish badge message")
	}
}

func (s *service) serveBadge(ctx *ginext.Context, p *model.Participant) {
	rendered, err := s.renderer.Render(p)
	if err != nil {
		s.log.Error().Err(err).Int64("participant_id", p.ID).Msg("failed to render badge")
		dto.ServerError(ctx, dto.ErrRenderFailed, err.Error())
		return
	}

	filename := p.Folio
	if filename == "" {
		filename = "credencial"
	}
	filename += ".pdf"

	switch v := rendered.(type) {
	case badge.RenderedFile:
		ctx.FileAttachment(string(v), filepath.Base(string(v)))
	case badge.RenderedBytes:
		ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		ctx.Data(200, "application/pdf", v)
	default:
		s.log.Error().Int64("participant_id", p.ID).Msgf("unusable render result %T", rendered)
		dto.ServerError(ctx, dto.ErrRenderFailed, "unusable render result")
	}
}

func (s *service) List(ctx *ginext.Context) {
	participants, err := s.repo.ListAll(ctx.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list participants")
		dto.ServerError(ctx, dto.ErrStoreFailed, err.Error())
		return
	}
	if participants == nil {
		participants = []model.Participant{}
	}
	ctx.JSON(200, participants)
}

var csvHeader = []string{
	"ID",
	"Folio",
	"Nombre participante",
	"Plantel",
	"Nombre alumno",
	"Grado",
	"Rol",
	"Fecha registro",
}

func (s *service) ExportCSV(ctx *ginext.Context) {
	participants, err := s.repo.ListForExport(ctx.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to export participants")
		dto.ServerError(ctx, dto.ErrStoreFailed, err.Error())
		return
	}

	ctx.Header("Content-Type", "text/csv")
	ctx.Header("Content-Disposition", `attachment; filename="participantes_maraton.csv"`)
	ctx.Status(200)

	w := csv.NewWriter(ctx.Writer)
	_ = w.Write(csvHeader)
	for _, p := range participants {
		_ = w.Write([]string{
			strconv.FormatInt(p.ID, 10),
			p.Folio,
			p.FullName,
			p.Plantel,
			p.ChildName,
			p.Grade,
			p.Role,
			p.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	w.Flush()
}

func (s *service) Stats(ctx *ginext.Context) {
	total, err := s.repo.CountAll(ctx.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to count participants")
		dto.ServerError(ctx, dto.ErrStoreFailed, err.Error())
		return
	}

	byPlantel, err := s.repo.CountByPlantel(ctx.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to count by plantel")
		dto.ServerError(ctx, dto.ErrStoreFailed, err.Error())
		return
	}

	byRole, err := s.repo.CountByRole(ctx.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to count by role")
		dto.ServerError(ctx, dto.ErrStoreFailed, err.Error())
		return
	}

	resp := dto.StatsResponse{
		Total:      total,
		PorPlantel: make([]dto.PlantelCount, 0, len(byPlantel)),
		PorRole:    make([]dto.RoleCount, 0, len(byRole)),
	}
	for _, gc := range byPlantel {
		resp.PorPlantel = append(resp.PorPlantel, dto.PlantelCount{Plantel: gc.Value, Total: gc.Total})
	}
	for _, gc := range byRole {
		resp.PorRole = append(resp.PorRole, dto.RoleCount{Role: gc.Value, Total: gc.Total})
	}

	ctx.JSON(200, resp)
}

// Reprint regenerates the badge for an existing record, looked up by folio
// first (case-insensitive) and by numeric id as a fallback.
func (s *service) Reprint(ctx *ginext.Context) {
	q := ctx.Query("q")
	if q == "" {
		dto.MissingParamError(ctx, dto.DetailMissingQ)
		return
	}

	participant, err := s.repo.FindByFolio(ctx.Request.Context(), q)
	if err != nil {
		if !errors.Is(err, repo.ErrParticipantNotFound) {
			s.log.Error().Err(err).Str("q", q).Msg("failed to look up participant")
			dto.ServerError(ctx, dto.ErrStoreFailed, err.Error())
			return
		}
		id, convErr := strconv.ParseInt(q, 10, 64)
		if convErr != nil {
			dto.NotFoundError(ctx, dto.DetailParticipantNotFound)
			return
		}
		participant, err = s.repo.FindByID(ctx.Request.Context(), id)
		if err != nil {
			dto.NotFoundError(ctx, dto.DetailParticipantNotFound)
			return
		}
	}

	s.serveBadge(ctx, participant)
}
