package worker

import (
	"context"
	"fmt"

	"github.com/desofme/bank/internal/config"
	"github.com/desofme/bank/internal/domain"
	"github.com/desofme/bank/internal/metrics"
	emailProvider "github.com/desofme/bank/pkg/email"

	"go.uber.org/zap"
)

const confirmationSubject = "Confirmation mail"

type emailSender struct {
	sender  emailProvider.Sender
	config  config.EmailConfig
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func newEmailSender(
	sender emailProvider.Sender,
	config config.EmailConfig,
	metrics *metrics.Metrics,
	logger *zap.Logger,
) *emailSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &emailSender{
		sender:  sender,
		config:  config,
		metrics: metrics,
		logger:  logger.Named("email_sender"),
	}
}

type confirmationEmailInput struct {
	FullName string
	Link     string
}

func (s *emailSender) SendConfirmationEmail(ctx context.Context, email domain.ConfirmationEmail) error {
	if !s.config.Enabled {
		s.logger.Debug("email disabled, confirmation skipped", zap.String("to", email.Email))
		return nil
	}

	templateInput := confirmationEmailInput{FullName: email.FullName, Link: email.Link}
	sendInput := emailProvider.SendEmailInput{Subject: confirmationSubject, To: email.Email}

	if err := sendInput.GenerateBodyFromHTML(s.config.TemplatesDir, s.config.Templates.Confirmation, templateInput); err != nil {
		s.metrics.ObserveEmailSent(metrics.OutcomeInternalError)
		return fmt.Errorf("generate email failed: %w", err)
	}

	if err := s.sender.Send(sendInput); err != nil {
		s.metrics.ObserveEmailSent(metrics.OutcomeInternalError)
		return fmt.Errorf("send email failed: %w", err)
	}

	s.metrics.ObserveEmailSent(metrics.OutcomeSuccess)
	s.logger.Info("confirmation email sent", zap.String("to", email.Email))

	return nil
}
