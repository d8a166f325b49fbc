package mailer

import (
	"fmt"
	"net/smtp"

	"github.com/rs/zerolog"
)

type Config struct {
	Host     string
	Port     int
	From     string
	Password string
}

// Enabled reports whether enough SMTP settings are present to actually send.
func (c Config) Enabled() bool {
	return c.Host != "" && c.From != ""
}

// SendBadgeEmail mails the registration confirmation carrying the folio.
func SendBadgeEmail(log *zerolog.Logger, cfg Config, recipientEmail, fullName, folio string) error {
	if !cfg.Enabled() {
		log.Debug().Msg("SMTP disabled, skipping confirmation email")
		return nil
	}

	subject := "Registro Maratón LMA"
	body := fmt.Sprintf(
		"Hola %s:\n\nTu registro al Maratón LMA quedó completo con el folio %s.\nImprime y presenta tu gafete el día del evento.",
		fullName, folio,
	)
	if folio == "" {
		body = fmt.Sprintf(
			"Hola %s:\n\nTu registro al Maratón LMA quedó completo.\nImprime y presenta tu gafete el día del evento.",
			fullName,
		)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		cfg.From, recipientEmail, subject, body,
	)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	auth := smtp.PlainAuth("", cfg.From, cfg.Password, cfg.Host)

	if err := smtp.SendMail(addr, auth, cfg.From, []string{recipientEmail}, []byte(msg)); err != nil {
		log.Warn().Msgf("failed to send email to %s: %v", recipientEmail, err)
		return fmt.Errorf("send email: %w", err)
	}

	log.Info().Str("email", recipientEmail).Str("folio", folio).Msg("confirmation email sent")
	return nil
}
