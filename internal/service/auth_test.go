package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desofme/bank/internal/domain"
	"github.com/desofme/bank/internal/metrics"
	"github.com/desofme/bank/internal/repository"
	"github.com/desofme/bank/internal/repository/memory"
	"github.com/desofme/bank/pkg/hash"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

const testHost = "https://bank.example.com/"

type notifierMock struct {
	mock.Mock
}

func (m *notifierMock) NotifyConfirmation(ctx context.Context, email domain.ConfirmationEmail) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

type lockerStub struct {
	acquired bool
	err      error
	released int
}

func (l *lockerStub) Acquire(context.Context, string, time.Duration) (func(), bool, error) {
	if l.err != nil || !l.acquired {
		return nil, l.acquired, l.err
	}
	return func() { l.released++ }, true, nil
}

type AuthServiceSuite struct {
	suite.Suite
	ctx      context.Context
	store    *memory.Store
	notifier *notifierMock
	metrics  *metrics.Metrics
	now      time.Time
	service  *authService
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}

func (s *AuthServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New()
	s.notifier = new(notifierMock)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.now = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.service = s.newService(s.store, nil, 0)
}

func (s *AuthServiceSuite) newService(transactor repository.Transactor, locker Locker, ttl time.Duration) *authService {
	deps := authDeps{
		transactor: transactor,
		hasher:     hash.NewBcryptHasher(bcrypt.MinCost),
		notifier:   s.notifier,
		locker:     locker,
		metrics:    s.metrics,
		host:       testHost,
		tokenTTL:   ttl,
		now:        func() time.Time { return s.now },
	}
	return newAuthService(deps)
}

func request(email, pin string) CustomerRequest {
	return CustomerRequest{
		Name:     "Jane",
		Surname:  "Doe",
		Email:    email,
		Pin:      pin,
		Password: "p",
	}
}

// registerOne registers a@x.com and returns the issued token.
func (s *AuthServiceSuite) registerOne() (domain.Result[CustomerResponse], string) {
	var token string
	s.notifier.On("NotifyConfirmation", mock.Anything, mock.AnythingOfType("domain.ConfirmationEmail")).
		Run(func(args mock.Arguments) {
			email := args.Get(1).(domain.ConfirmationEmail)
			token = strings.TrimPrefix(email.Link, strings.TrimRight(testHost, "/")+ConfirmMailPath)
		}).
		Return(nil).Once()

	res := s.service.Register(s.ctx, request("a@x.com", "111"))
	s.Require().True(res.OK(), res.Message)
	return res, token
}

func (s *AuthServiceSuite) TestRegisterCreatesDisabledCustomerAndToken() {
	res, token := s.registerOne()

	s.Equal(http.StatusCreated, res.Code)
	s.Equal("Created", res.Message)
	s.NotEmpty(res.Data.CustomerID)

	customer, err := s.store.Customers().GetByEmail(s.ctx, "a@x.com")
	s.Require().NoError(err)
	s.Equal(res.Data.CustomerID, customer.ID)
	s.False(customer.Enabled)
	s.NotEqual("p", customer.Password)
	s.NoError(bcrypt.CompareHashAndPassword([]byte(customer.Password), []byte("p")))

	s.Equal(1, s.store.CustomerCount())
	s.Equal(1, s.store.TokenCount())

	stored, err := s.store.ConfirmTokens().GetByToken(s.ctx, token)
	s.Require().NoError(err)
	s.Equal(customer.ID, stored.CustomerID)
	s.Equal("a@x.com", stored.Email)
	s.Nil(stored.ExpiresAt)

	s.notifier.AssertNumberOfCalls(s.T(), "NotifyConfirmation", 1)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Registrations.WithLabelValues(metrics.OutcomeSuccess)))
}

func (s *AuthServiceSuite) TestRegisterSendsActivationLink() {
	s.notifier.On("NotifyConfirmation", mock.Anything, mock.MatchedBy(func(email domain.ConfirmationEmail) bool {
		return email.Email == "a@x.com" &&
			email.FullName == "Jane Doe" &&
			strings.HasPrefix(email.Link, "https://bank.example.com/api/v1/auth/confirm-mail/")
	})).Return(nil).Once()

	res := s.service.Register(s.ctx, request("a@x.com", "111"))

	s.True(res.OK())
	s.notifier.AssertExpectations(s.T())
}

func (s *AuthServiceSuite) TestRegisterDuplicateEmail() {
	s.registerOne()

	res := s.service.Register(s.ctx, request("a@x.com", "222"))

	s.False(res.OK())
	s.Nil(res.Data)
	s.Equal(http.StatusBadRequest, res.Code)
	s.Equal("customer exists by email: a@x.com", res.Message)
	s.Equal(1, s.store.CustomerCount())
	s.Equal(1, s.store.TokenCount())
	s.notifier.AssertNumberOfCalls(s.T(), "NotifyConfirmation", 1)
}

func (s *AuthServiceSuite) TestRegisterDuplicatePin() {
	s.registerOne()

	res := s.service.Register(s.ctx, request("b@x.com", "111"))

	s.False(res.OK())
	s.Equal(http.StatusBadRequest, res.Code)
	s.Equal(ErrCustomerExistsByPin.Error(), res.Message)
	s.Equal(1, s.store.CustomerCount())
	s.Equal(1, s.store.TokenCount())
}

func (s *AuthServiceSuite) TestRegisterStoreConstraintIsTheGuard() {
	s.registerOne()

	// the pre-check misses the existing row, as it would under a concurrent commit
	service := s.newService(blindTransactor{store: s.store}, nil, 0)

	res := service.Register(s.ctx, request("a@x.com", "222"))
	s.Equal(http.StatusBadRequest, res.Code)
	s.Equal("customer exists by email: a@x.com", res.Message)

	res = service.Register(s.ctx, request("b@x.com", "111"))
	s.Equal(http.StatusBadRequest, res.Code)
	s.Equal(ErrCustomerExistsByPin.Error(), res.Message)

	s.Equal(1, s.store.CustomerCount())
	s.Equal(1, s.store.TokenCount())
}

func (s *AuthServiceSuite) TestRegisterConcurrentSameEmail() {
	s.notifier.On("NotifyConfirmation", mock.Anything, mock.Anything).Return(nil)

	const workers = 8
	results := make([]domain.Result[CustomerResponse], workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = s.service.Register(s.ctx, request("a@x.com", string(rune('0'+i))))
		}()
	}
	wg.Wait()

	successes := 0
	for _, res := range results {
		if res.OK() {
			successes++
			continue
		}
		s.Equal(http.StatusBadRequest, res.Code)
		s.Contains(res.Message, ErrCustomerExistsByEmail.Error())
	}

	s.Equal(1, successes)
	s.Equal(1, s.store.CustomerCount())
	s.Equal(1, s.store.TokenCount())
	s.notifier.AssertNumberOfCalls(s.T(), "NotifyConfirmation", 1)
}

func (s *AuthServiceSuite) TestRegisterNotifierFailureKeepsRegistration() {
	s.notifier.On("NotifyConfirmation", mock.Anything, mock.Anything).Return(errors.New("redis down")).Once()

	res := s.service.Register(s.ctx, request("a@x.com", "111"))

	s.True(res.OK())
	s.Equal(http.StatusCreated, res.Code)
	s.Equal(1, s.store.CustomerCount())
	s.Equal(1, s.store.TokenCount())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.NotificationErrors))
}

func (s *AuthServiceSuite) TestRegisterUnexpectedFailureIsGeneric() {
	service := s.newService(failingTransactor{err: errors.New("dial tcp 10.0.0.1:3306: connection refused")}, nil, 0)

	res := service.Register(s.ctx, request("a@x.com", "111"))

	s.False(res.OK())
	s.Equal(http.StatusInternalServerError, res.Code)
	s.Equal(internalErrorMessage, res.Message)
	s.notifier.AssertNotCalled(s.T(), "NotifyConfirmation", mock.Anything, mock.Anything)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Registrations.WithLabelValues(metrics.OutcomeInternalError)))
}

func (s *AuthServiceSuite) TestRegisterRollsBackWhenTokenWriteFails() {
	service := s.newService(tokenFailingTransactor{store: s.store}, nil, 0)

	res := service.Register(s.ctx, request("a@x.com", "111"))

	s.Equal(http.StatusInternalServerError, res.Code)
	s.Zero(s.store.CustomerCount())
	s.Zero(s.store.TokenCount())
	s.notifier.AssertNotCalled(s.T(), "NotifyConfirmation", mock.Anything, mock.Anything)
}

func (s *AuthServiceSuite) TestRegisterLock() {
	s.Run("held lock reports registration in progress", func() {
		service := s.newService(s.store, &lockerStub{acquired: false}, 0)

		res := service.Register(s.ctx, request("a@x.com", "111"))

		s.Equal(http.StatusConflict, res.Code)
		s.Equal(ErrRegistrationInProgress.Error(), res.Message)
		s.Zero(s.store.CustomerCount())
		s.Equal(1.0, testutil.ToFloat64(s.metrics.Registrations.WithLabelValues(metrics.OutcomeClientError)))
	})

	s.Run("lock outage does not block registration", func() {
		s.notifier.On("NotifyConfirmation", mock.Anything, mock.Anything).Return(nil).Once()
		service := s.newService(s.store, &lockerStub{err: errors.New("redis down")}, 0)

		res := service.Register(s.ctx, request("a@x.com", "111"))

		s.True(res.OK())
	})

	s.Run("acquired lock is released", func() {
		s.notifier.On("NotifyConfirmation", mock.Anything, mock.Anything).Return(nil).Once()
		locker := &lockerStub{acquired: true}
		service := s.newService(s.store, locker, 0)

		res := service.Register(s.ctx, request("b@x.com", "222"))

		s.True(res.OK())
		s.Equal(1, locker.released)
	})
}

func (s *AuthServiceSuite) TestRegisterWhileSameEmailInFlight() {
	s.Require().NoError(s.store.Customers().Create(s.ctx, &domain.Customer{
		ID:    uuid.New(),
		Email: "b@x.com",
		Pin:   "111",
	}))

	locker := newKeyLocker()
	paused := &pausingTransactor{store: s.store, entered: make(chan struct{}), proceed: make(chan struct{})}
	first := s.newService(paused, locker, 0)
	second := s.newService(s.store, locker, 0)

	done := make(chan domain.Result[CustomerResponse])
	go func() {
		done <- first.Register(s.ctx, request("a@x.com", "111"))
	}()
	<-paused.entered

	inFlight := second.Register(s.ctx, request("a@x.com", "222"))
	s.Equal(http.StatusConflict, inFlight.Code)
	s.Equal(ErrRegistrationInProgress.Error(), inFlight.Message)

	close(paused.proceed)
	res := <-done
	s.Equal(http.StatusBadRequest, res.Code)
	s.Equal(ErrCustomerExistsByPin.Error(), res.Message)

	_, err := s.store.Customers().GetByEmail(s.ctx, "a@x.com")
	s.ErrorIs(err, domain.ErrNotFound)

	s.notifier.On("NotifyConfirmation", mock.Anything, mock.Anything).Return(nil).Once()
	retried := second.Register(s.ctx, request("a@x.com", "222"))
	s.True(retried.OK(), retried.Message)
}

func (s *AuthServiceSuite) TestRegisterPasswordTooLong() {
	input := request("a@x.com", "111")
	input.Password = strings.Repeat("é", 72)

	res := s.service.Register(s.ctx, input)

	s.Equal(http.StatusBadRequest, res.Code)
	s.Equal(ErrPasswordTooLong.Error(), res.Message)
	s.Zero(s.store.CustomerCount())

	input.Password = strings.Repeat("a", 72)
	s.notifier.On("NotifyConfirmation", mock.Anything, mock.Anything).Return(nil).Once()
	s.True(s.service.Register(s.ctx, input).OK())
}

func (s *AuthServiceSuite) TestRegisterEmailIsCaseInsensitive() {
	s.notifier.On("NotifyConfirmation", mock.Anything, mock.MatchedBy(func(email domain.ConfirmationEmail) bool {
		return email.Email == "a@x.com"
	})).Return(nil).Once()

	res := s.service.Register(s.ctx, request(" A@X.com", "111"))
	s.Require().True(res.OK(), res.Message)

	customer, err := s.store.Customers().GetByEmail(s.ctx, "a@x.com")
	s.Require().NoError(err)
	s.Equal(res.Data.CustomerID, customer.ID)

	dup := s.service.Register(s.ctx, request("a@X.COM", "222"))
	s.Equal(http.StatusBadRequest, dup.Code)
	s.Equal("customer exists by email: a@x.com", dup.Message)
	s.Equal(1, s.store.CustomerCount())
}

func (s *AuthServiceSuite) TestConfirmActivatesOnce() {
	registered, token := s.registerOne()

	res := s.service.Confirm(s.ctx, token)

	s.Require().True(res.OK(), res.Message)
	s.Equal(http.StatusOK, res.Code)
	s.Equal("OK", res.Message)
	s.Equal(registered.Data.CustomerID, res.Data.CustomerID)

	customer, err := s.store.Customers().GetByEmail(s.ctx, "a@x.com")
	s.Require().NoError(err)
	s.True(customer.Enabled)
	s.Zero(s.store.TokenCount())

	replay := s.service.Confirm(s.ctx, token)
	s.False(replay.OK())
	s.Equal(http.StatusBadRequest, replay.Code)
	s.Equal(ErrTokenNotFound.Error(), replay.Message)

	customer, err = s.store.Customers().GetByEmail(s.ctx, "a@x.com")
	s.Require().NoError(err)
	s.True(customer.Enabled)
}

func (s *AuthServiceSuite) TestConfirmUnknownToken() {
	s.registerOne()

	for _, token := range []string{"", "unknown", "00000000-0000-0000-0000-000000000000"} {
		res := s.service.Confirm(s.ctx, token)

		s.Equal(http.StatusBadRequest, res.Code)
		s.Equal(ErrTokenNotFound.Error(), res.Message)
	}

	customer, err := s.store.Customers().GetByEmail(s.ctx, "a@x.com")
	s.Require().NoError(err)
	s.False(customer.Enabled)
	s.Equal(1, s.store.TokenCount())
}

func (s *AuthServiceSuite) TestConfirmCustomerMissing() {
	s.Require().NoError(s.store.ConfirmTokens().Create(s.ctx, &domain.ConfirmToken{
		Token: "orphan",
		Email: "ghost@x.com",
	}))

	res := s.service.Confirm(s.ctx, "orphan")

	s.Equal(http.StatusBadRequest, res.Code)
	s.Equal("customer not found: ghost@x.com", res.Message)
	s.Equal(1, s.store.TokenCount())
}

func (s *AuthServiceSuite) TestConfirmExpiredToken() {
	s.service = s.newService(s.store, nil, time.Hour)
	_, token := s.registerOne()

	stored, err := s.store.ConfirmTokens().GetByToken(s.ctx, token)
	s.Require().NoError(err)
	s.Require().NotNil(stored.ExpiresAt)
	s.Equal(s.now.Add(time.Hour), *stored.ExpiresAt)

	s.now = s.now.Add(2 * time.Hour)
	res := s.service.Confirm(s.ctx, token)

	s.Equal(http.StatusBadRequest, res.Code)
	s.Equal(ErrTokenExpired.Error(), res.Message)

	customer, err := s.store.Customers().GetByEmail(s.ctx, "a@x.com")
	s.Require().NoError(err)
	s.False(customer.Enabled)
}

func (s *AuthServiceSuite) TestConfirmConcurrentSameToken() {
	_, token := s.registerOne()

	const workers = 8
	results := make([]domain.Result[CustomerResponse], workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = s.service.Confirm(s.ctx, token)
		}()
	}
	wg.Wait()

	successes := 0
	for _, res := range results {
		if res.OK() {
			successes++
			continue
		}
		s.Equal(ErrTokenNotFound.Error(), res.Message)
	}
	s.Equal(1, successes)
}

func (s *AuthServiceSuite) TestEndToEnd() {
	registered, token := s.registerOne()
	s.Equal(http.StatusCreated, registered.Code)

	customer, err := s.store.Customers().GetByEmail(s.ctx, "a@x.com")
	s.Require().NoError(err)
	s.False(customer.Enabled)
	s.Equal(1, s.store.TokenCount())

	confirmed := s.service.Confirm(s.ctx, token)
	s.Require().True(confirmed.OK())
	s.Equal(registered.Data.CustomerID, confirmed.Data.CustomerID)

	customer, err = s.store.Customers().GetByEmail(s.ctx, "a@x.com")
	s.Require().NoError(err)
	s.True(customer.Enabled)
	s.Zero(s.store.TokenCount())

	again := s.service.Confirm(s.ctx, token)
	s.Equal(http.StatusBadRequest, again.Code)
	s.Equal(ErrTokenNotFound.Error(), again.Message)
}

// blindTransactor hides existing customers from lookups so only the store constraint can reject duplicates.
type blindTransactor struct {
	store *memory.Store
}

func (t blindTransactor) RunInTx(ctx context.Context, fn func(repos repository.TxRepositories) error) error {
	return t.store.RunInTx(ctx, func(repos repository.TxRepositories) error {
		repos.Customers = blindCustomers{Customers: repos.Customers}
		return fn(repos)
	})
}

type blindCustomers struct {
	repository.Customers
}

func (blindCustomers) GetByEmail(context.Context, string) (*domain.Customer, error) {
	return nil, domain.ErrNotFound
}

func (blindCustomers) GetByPin(context.Context, string) (*domain.Customer, error) {
	return nil, domain.ErrNotFound
}

type failingTransactor struct {
	err error
}

func (t failingTransactor) RunInTx(context.Context, func(repos repository.TxRepositories) error) error {
	return t.err
}

type tokenFailingTransactor struct {
	store *memory.Store
}

func (t tokenFailingTransactor) RunInTx(ctx context.Context, fn func(repos repository.TxRepositories) error) error {
	return t.store.RunInTx(ctx, func(repos repository.TxRepositories) error {
		repos.ConfirmTokens = failingTokens{ConfirmTokens: repos.ConfirmTokens}
		return fn(repos)
	})
}

type failingTokens struct {
	repository.ConfirmTokens
}

func (failingTokens) Create(context.Context, *domain.ConfirmToken) error {
	return errors.New("disk full")
}

// keyLocker is an in-process Locker keyed like the redis one.
type keyLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newKeyLocker() *keyLocker {
	return &keyLocker{held: make(map[string]bool)}
}

func (l *keyLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true

	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, true, nil
}

// pausingTransactor signals entered and waits for proceed before running the transaction.
type pausingTransactor struct {
	store   *memory.Store
	entered chan struct{}
	proceed chan struct{}
}

func (t *pausingTransactor) RunInTx(ctx context.Context, fn func(repos repository.TxRepositories) error) error {
	close(t.entered)
	<-t.proceed
	return t.store.RunInTx(ctx, fn)
}
