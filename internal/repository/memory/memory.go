// Package memory implements the repository contracts in process memory.
// Transactions are serialized by a single lock and rolled back by restoring a snapshot.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/desofme/bank/internal/domain"
	"github.com/desofme/bank/internal/repository"

	"github.com/google/uuid"
)

type Store struct {
	txMu sync.Mutex

	mu        sync.RWMutex
	customers map[uuid.UUID]domain.Customer
	tokens    map[string]domain.ConfirmToken
}

func New() *Store {
	return &Store{
		customers: make(map[uuid.UUID]domain.Customer),
		tokens:    make(map[string]domain.ConfirmToken),
	}
}

// NewRepositories returns repositories backed by a fresh Store.
func NewRepositories() (*repository.Repositories, *Store) {
	store := New()
	return &repository.Repositories{
		Customers:     store.Customers(),
		ConfirmTokens: store.ConfirmTokens(),
		Transactor:    store,
	}, store
}

func (s *Store) Customers() repository.Customers {
	return &customers{store: s}
}

func (s *Store) ConfirmTokens() repository.ConfirmTokens {
	return &confirmTokens{store: s}
}

func (s *Store) RunInTx(_ context.Context, fn func(repos repository.TxRepositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	customersSnapshot := maps.Clone(s.customers)
	tokensSnapshot := maps.Clone(s.tokens)
	s.mu.RUnlock()

	committed := false
	defer func() {
		if committed {
			return
		}
		s.mu.Lock()
		s.customers = customersSnapshot
		s.tokens = tokensSnapshot
		s.mu.Unlock()
	}()

	if err := fn(repository.TxRepositories{
		Customers:     s.Customers(),
		ConfirmTokens: s.ConfirmTokens(),
	}); err != nil {
		return err
	}

	committed = true
	return nil
}

// CustomerCount and TokenCount expose the store size for assertions.
func (s *Store) CustomerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.customers)
}

func (s *Store) TokenCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}

type customers struct {
	store *Store
}

func (c *customers) GetByEmail(_ context.Context, email string) (*domain.Customer, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	for _, customer := range c.store.customers {
		if customer.Email == email {
			return &customer, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (c *customers) GetByPin(_ context.Context, pin string) (*domain.Customer, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	for _, customer := range c.store.customers {
		if customer.Pin == pin {
			return &customer, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (c *customers) Create(_ context.Context, customer *domain.Customer) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	for _, existing := range c.store.customers {
		switch {
		case existing.ID == customer.ID:
			return domain.ErrDuplicateEntry
		case existing.Email == customer.Email:
			return domain.ErrDuplicateEmail
		case existing.Pin == customer.Pin:
			return domain.ErrDuplicatePin
		}
	}

	c.store.customers[customer.ID] = *customer
	return nil
}

func (c *customers) Enable(_ context.Context, id uuid.UUID) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	customer, ok := c.store.customers[id]
	if !ok || customer.Enabled {
		return domain.ErrNoRowsAffected
	}

	customer.Enabled = true
	c.store.customers[id] = customer
	return nil
}

type confirmTokens struct {
	store *Store
}

func (t *confirmTokens) Create(_ context.Context, token *domain.ConfirmToken) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if _, ok := t.store.tokens[token.Token]; ok {
		return domain.ErrDuplicateEntry
	}

	t.store.tokens[token.Token] = *token
	return nil
}

func (t *confirmTokens) GetByToken(_ context.Context, token string) (*domain.ConfirmToken, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	confirmToken, ok := t.store.tokens[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &confirmToken, nil
}

func (t *confirmTokens) Delete(_ context.Context, token string) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if _, ok := t.store.tokens[token]; !ok {
		return domain.ErrNoRowsAffected
	}

	delete(t.store.tokens, token)
	return nil
}
