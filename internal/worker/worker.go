package worker

import (
	"context"

	"github.com/desofme/bank/internal/config"
	"github.com/desofme/bank/internal/domain"
	"github.com/desofme/bank/internal/metrics"
	emailProvider "github.com/desofme/bank/pkg/email"

	"go.uber.org/zap"
)

type Workers struct {
	EmailSender EmailSender
}

type Deps struct {
	EmailProvider emailProvider.Sender
	Config        *config.Config
	Metrics       *metrics.Metrics
	Logger        *zap.Logger
}

type EmailSender interface {
	SendConfirmationEmail(ctx context.Context, email domain.ConfirmationEmail) error
}

func NewWorkers(deps Deps) *Workers {
	return &Workers{
		EmailSender: newEmailSender(deps.EmailProvider, deps.Config.Email, deps.Metrics, deps.Logger),
	}
}
