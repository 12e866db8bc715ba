package service

import (
	"context"
	"time"

	"github.com/desofme/bank/internal/config"
	"github.com/desofme/bank/internal/domain"
	"github.com/desofme/bank/internal/metrics"
	"github.com/desofme/bank/internal/repository"
	"github.com/desofme/bank/pkg/hash"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Services struct {
	Auth Auth
}

type Deps struct {
	Config   *config.Config
	Logger   *zap.Logger
	Hasher   hash.PasswordHasher
	Repos    *repository.Repositories
	Notifier ConfirmationNotifier
	Locker   Locker
	Metrics  *metrics.Metrics
}

func NewServices(deps Deps) *Services {
	return &Services{
		Auth: newAuthService(authDeps{
			transactor: deps.Repos.Transactor,
			hasher:     deps.Hasher,
			notifier:   deps.Notifier,
			locker:     deps.Locker,
			metrics:    deps.Metrics,
			logger:     deps.Logger,
			host:       deps.Config.App.Host,
			tokenTTL:   deps.Config.Auth.ConfirmTokenTTL,
			lockTTL:    deps.Config.Auth.RegistrationLock,
		}),
	}
}

type CustomerRequest struct {
	Name     string
	Surname  string
	Email    string
	Pin      string
	Password string
}

type CustomerResponse struct {
	CustomerID uuid.UUID `json:"customer_id"`
}

// Auth provisions customer accounts. Both operations report every outcome through the envelope.
type Auth interface {
	Register(ctx context.Context, input CustomerRequest) domain.Result[CustomerResponse]
	Confirm(ctx context.Context, token string) domain.Result[CustomerResponse]
}

// ConfirmationNotifier hands a confirmation email to an independent worker.
type ConfirmationNotifier interface {
	NotifyConfirmation(ctx context.Context, email domain.ConfirmationEmail) error
}

// Locker guards a key for ttl. release is nil when the lock was not acquired.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), acquired bool, err error)
}
