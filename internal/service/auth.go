package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desofme/bank/internal/domain"
	"github.com/desofme/bank/internal/metrics"
	"github.com/desofme/bank/internal/repository"
	"github.com/desofme/bank/pkg/hash"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ConfirmMailPath       = "/api/v1/auth/confirm-mail/"
	registrationLockScope = "registration:email:"
)

type authDeps struct {
	transactor repository.Transactor
	hasher     hash.PasswordHasher
	notifier   ConfirmationNotifier
	locker     Locker
	metrics    *metrics.Metrics
	logger     *zap.Logger
	host       string
	tokenTTL   time.Duration
	lockTTL    time.Duration
	now        func() time.Time
}

type authService struct {
	transactor repository.Transactor
	hasher     hash.PasswordHasher
	notifier   ConfirmationNotifier
	locker     Locker
	metrics    *metrics.Metrics
	logger     *zap.Logger
	host       string
	tokenTTL   time.Duration
	lockTTL    time.Duration
	now        func() time.Time
}

func newAuthService(deps authDeps) *authService {
	if deps.logger == nil {
		deps.logger = zap.NewNop()
	}
	if deps.now == nil {
		deps.now = time.Now
	}

	return &authService{
		transactor: deps.transactor,
		hasher:     deps.hasher,
		notifier:   deps.notifier,
		locker:     deps.locker,
		metrics:    deps.metrics,
		logger:     deps.logger.Named("auth"),
		host:       strings.TrimRight(deps.host, "/"),
		tokenTTL:   deps.tokenTTL,
		lockTTL:    deps.lockTTL,
		now:        deps.now,
	}
}

// Register creates a disabled customer and its confirmation token in one transaction,
// then queues the confirmation email. The email is never awaited.
func (s *authService) Register(ctx context.Context, input CustomerRequest) (res domain.Result[CustomerResponse]) {
	defer func() {
		if p := recover(); p != nil {
			res = s.failure("register", fmt.Errorf("panic: %v", p), zap.String("email", input.Email))
			s.metrics.ObserveRegistration(metrics.OutcomeInternalError)
		}
	}()

	customer, token, err := s.register(ctx, input)
	if err != nil {
		s.metrics.ObserveRegistration(outcome(err))
		return s.failure("register", err, zap.String("email", input.Email))
	}

	s.notifyConfirmation(ctx, customer, token)

	s.metrics.ObserveRegistration(metrics.OutcomeSuccess)
	s.logger.Info("customer registered", zap.Stringer("customer_id", customer.ID))

	return domain.Success(CustomerResponse{CustomerID: customer.ID}, http.StatusCreated, http.StatusText(http.StatusCreated))
}

func (s *authService) register(ctx context.Context, input CustomerRequest) (*domain.Customer, *domain.ConfirmToken, error) {
	release, err := s.lockRegistration(ctx, input.Email)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	customer, err := s.newCustomer(input)
	if err != nil {
		return nil, nil, err
	}

	var token *domain.ConfirmToken
	err = s.transactor.RunInTx(ctx, func(repos repository.TxRepositories) error {
		if err := validateCustomer(ctx, repos.Customers, customer); err != nil {
			return err
		}

		if err := repos.Customers.Create(ctx, customer); err != nil {
			switch {
			case errors.Is(err, domain.ErrDuplicateEmail):
				return fmt.Errorf("%w: %s", ErrCustomerExistsByEmail, customer.Email)
			case errors.Is(err, domain.ErrDuplicatePin):
				return ErrCustomerExistsByPin
			}
			return fmt.Errorf("create customer failed: %w", err)
		}

		token, err = domain.NewConfirmToken(customer, s.tokenTTL, s.now())
		if err != nil {
			return fmt.Errorf("generate confirm token failed: %w", err)
		}

		if err := repos.ConfirmTokens.Create(ctx, token); err != nil {
			return fmt.Errorf("create confirm token failed: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return customer, token, nil
}

// lockRegistration rejects a second in-flight registration of the same email as retryable.
// The unique index stays the real guard, so a locker outage only logs.
func (s *authService) lockRegistration(ctx context.Context, email string) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}

	release, acquired, err := s.locker.Acquire(ctx, registrationLockScope+normalizeEmail(email), s.lockTTL)
	if err != nil {
		s.logger.Warn("registration lock unavailable", zap.Error(err))
		return noop, nil
	}
	// whether the email is taken is decided by the store once the holder finishes
	if !acquired {
		return nil, ErrRegistrationInProgress
	}

	return release, nil
}

func (s *authService) newCustomer(input CustomerRequest) (*domain.Customer, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate customer id failed: %w", err)
	}

	if len(input.Password) > hash.MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	password, err := s.hasher.Hash(input.Password)
	if err != nil {
		if errors.Is(err, hash.ErrPasswordTooLong) {
			return nil, ErrPasswordTooLong
		}
		return nil, fmt.Errorf("hash password failed: %w", err)
	}

	return &domain.Customer{
		ID:        id,
		Name:      input.Name,
		Surname:   input.Surname,
		Email:     normalizeEmail(input.Email),
		Pin:       input.Pin,
		Password:  password,
		Enabled:   false,
		CreatedAt: s.now(),
	}, nil
}

// normalizeEmail matches the case-insensitive collation of customer.email.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateCustomer(ctx context.Context, customers repository.Customers, customer *domain.Customer) error {
	if _, err := customers.GetByEmail(ctx, customer.Email); err == nil {
		return fmt.Errorf("%w: %s", ErrCustomerExistsByEmail, customer.Email)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("get customer by email failed: %w", err)
	}

	if _, err := customers.GetByPin(ctx, customer.Pin); err == nil {
		return ErrCustomerExistsByPin
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("get customer by pin failed: %w", err)
	}

	return nil
}

func (s *authService) notifyConfirmation(ctx context.Context, customer *domain.Customer, token *domain.ConfirmToken) {
	if s.notifier == nil {
		s.logger.Warn("no notifier configured, confirmation email dropped", zap.Stringer("customer_id", customer.ID))
		return
	}

	email := domain.ConfirmationEmail{
		Email:    customer.Email,
		FullName: customer.FullName(),
		Link:     s.confirmationLink(token.Token),
	}

	// customer and token are committed at this point, a lost email is not a registration failure
	if err := s.notifier.NotifyConfirmation(context.WithoutCancel(ctx), email); err != nil {
		s.metrics.IncrementNotificationErrors()
		s.logger.Error("queue confirmation email failed",
			zap.Error(err),
			zap.Stringer("customer_id", customer.ID),
		)
	}
}

func (s *authService) confirmationLink(token string) string {
	return s.host + ConfirmMailPath + token
}

// Confirm activates the customer owning token and deletes the token in one transaction.
func (s *authService) Confirm(ctx context.Context, token string) (res domain.Result[CustomerResponse]) {
	defer func() {
		if p := recover(); p != nil {
			res = s.failure("confirm", fmt.Errorf("panic: %v", p))
			s.metrics.ObserveConfirmation(metrics.OutcomeInternalError)
		}
	}()

	customerID, err := s.confirm(ctx, token)
	if err != nil {
		s.metrics.ObserveConfirmation(outcome(err))
		return s.failure("confirm", err)
	}

	s.metrics.ObserveConfirmation(metrics.OutcomeSuccess)
	s.logger.Info("customer confirmed", zap.Stringer("customer_id", customerID))

	return domain.Success(CustomerResponse{CustomerID: customerID}, http.StatusOK, http.StatusText(http.StatusOK))
}

func (s *authService) confirm(ctx context.Context, value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, ErrTokenNotFound
	}

	var customerID uuid.UUID
	err := s.transactor.RunInTx(ctx, func(repos repository.TxRepositories) error {
		token, err := repos.ConfirmTokens.GetByToken(ctx, value)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return ErrTokenNotFound
			}
			return fmt.Errorf("get confirm token failed: %w", err)
		}

		if token.IsExpired(s.now()) {
			return ErrTokenExpired
		}

		customer, err := repos.Customers.GetByEmail(ctx, token.Email)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%w: %s", ErrCustomerNotFound, token.Email)
			}
			return fmt.Errorf("get customer by email failed: %w", err)
		}

		if err := repos.Customers.Enable(ctx, customer.ID); err != nil {
			return fmt.Errorf("enable customer failed: %w", err)
		}

		if err := repos.ConfirmTokens.Delete(ctx, token.Token); err != nil {
			if errors.Is(err, domain.ErrNoRowsAffected) {
				return ErrTokenNotFound
			}
			return fmt.Errorf("delete confirm token failed: %w", err)
		}

		customerID = customer.ID
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	return customerID, nil
}

func (s *authService) failure(op string, err error, fields ...zap.Field) domain.Result[CustomerResponse] {
	fields = append(fields, zap.String("op", op), zap.Error(err))

	if code, ok := clientStatus(err); ok {
		s.logger.Error("request rejected", fields...)
		return domain.Failure[CustomerResponse](code, err.Error())
	}

	s.logger.Error("unexpected failure", fields...)
	return domain.Failure[CustomerResponse](http.StatusInternalServerError, internalErrorMessage)
}

func outcome(err error) string {
	if IsClientError(err) {
		return metrics.OutcomeClientError
	}
	return metrics.OutcomeInternalError
}
