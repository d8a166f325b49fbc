package consumerWorker

import (
	"context"
	"encoding/json"

	"github.com/wb-go/wbf/zlog"

	"registro/internal/dto"
	"registro/internal/mailer"
	"registro/internal/rabbit"
	"registro/internal/repo"
)

// Reader consumes badge-issued messages and sends the confirmation email.
// Everything here is best effort: a registration is never affected by a
// notification failure.
type Reader struct {
	RMQ    *rabbit.Client
	repo   repo.Repository
	smtp   mailer.Config
	done   chan struct{}
	cancel context.CancelFunc
}

func NewReader(rmq *rabbit.Client, repo repo.Repository, smtp mailer.Config) *Reader {
	return &Reader{
		RMQ:  rmq,
		repo: repo,
		smtp: smtp,
		done: make(chan struct{}),
	}
}

func (r *Reader) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	zlog.Logger.Info().Msg("badge notification worker started")

	go func() {
		defer close(r.done)

		handler := func(body []byte) error {
			var msg dto.BadgeIssuedMessage
			if err := json.Unmarshal(body, &msg); err != nil {
				zlog.Logger.Error().
					Err(err).
					Msgf("Failed to unmarshal message: %s", string(body))
				return err
			}

			zlog.Logger.Info().
				Int64("participant_id", msg.ParticipantID).
				Str("folio", msg.Folio).
				Msg("badge-issued message received")

			// Re-read the record: the message may be stale and the folio
			// on record is authoritative.
			participant, err := r.repo.FindByID(cctx, msg.ParticipantID)
			if err != nil {
				zlog.Logger.Error().
					Err(err).
					Int64("participant_id", msg.ParticipantID).
					Msg("Failed to get participant from DB in worker")
				return nil
			}

			if participant.Email == "" {
				zlog.Logger.Info().
					Int64("participant_id", participant.ID).
					Msg("no contact email on record, skipping notification")
				return nil
			}

			if err := mailer.SendBadgeEmail(
				&zlog.Logger,
				r.smtp,
				participant.Email,
				participant.FullName,
				participant.Folio,
			); err != nil {
				zlog.Logger.Warn().
					Err(err).
					Msg("Failed to send notification on e-mail")
			}

			return nil
		}

		if err := r.RMQ.Consume(handler); err != nil {
			zlog.Logger.Error().Err(err).Msg("Failed to start consuming")
			return
		}

		<-cctx.Done()
		zlog.Logger.Info().Msg("badge notification worker stopped by context")
	}()
}

func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}
