// Package memory provides an in-process [authcore.UserStore] for tests,
// development servers and single-node deployments.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/eamcap/authcore"
)

// Store keeps accounts in a map keyed by ID with a secondary email index.
// IDs are assigned sequentially starting at 1.
type Store struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]authcore.Account
	byEmail map[string]int64
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		nextID:  1,
		byID:    make(map[int64]authcore.Account),
		byEmail: make(map[string]int64),
	}
}

// FindByEmail looks an account up by email, ignoring case.
func (s *Store) FindByEmail(ctx context.Context, email string) (authcore.Account, error) {
	if err := ctx.Err(); err != nil {
		return authcore.Account{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[emailKey(email)]
	if !ok {
		return authcore.Account{}, authcore.ErrAccountNotFound
	}
	return s.byID[id], nil
}

// FindByID returns the account with id or [authcore.ErrAccountNotFound].
func (s *Store) FindByID(ctx context.Context, id int64) (authcore.Account, error) {
	if err := ctx.Err(); err != nil {
		return authcore.Account{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byID[id]
	if !ok {
		return authcore.Account{}, authcore.ErrAccountNotFound
	}
	return a, nil
}

// ExistsByEmail reports whether any account, active or not, uses email.
func (s *Store) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byEmail[emailKey(email)]
	return ok, nil
}

// Save inserts a when its ID is zero and replaces the stored record
// otherwise. The email uniqueness check and the write happen under one lock.
func (s *Store) Save(ctx context.Context, a authcore.Account) (authcore.Account, error) {
	if err := ctx.Err(); err != nil {
		return authcore.Account{}, err
	}

	key := emailKey(a.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == 0 {
		if _, taken := s.byEmail[key]; taken {
			return authcore.Account{}, authcore.ErrDuplicateEmail
		}
		a.ID = s.nextID
		s.nextID++
		s.byID[a.ID] = a
		s.byEmail[key] = a.ID
		return a, nil
	}

	prev, ok := s.byID[a.ID]
	if !ok {
		return authcore.Account{}, authcore.ErrAccountNotFound
	}
	if owner, taken := s.byEmail[key]; taken && owner != a.ID {
		return authcore.Account{}, authcore.ErrDuplicateEmail
	}
	delete(s.byEmail, emailKey(prev.Email))
	s.byID[a.ID] = a
	s.byEmail[key] = a.ID
	return a, nil
}

// SetActive flips the active flag of an account. Deactivated accounts can
// no longer log in, refresh or resolve through CurrentAccount.
func (s *Store) SetActive(ctx context.Context, id int64, active bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return authcore.ErrAccountNotFound
	}
	a.Active = active
	s.byID[id] = a
	return nil
}

// Delete removes an account. Deleting a missing account is not an error.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.byID[id]; ok {
		delete(s.byEmail, emailKey(a.Email))
		delete(s.byID, id)
	}
	return nil
}

// Len returns the number of stored accounts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ authcore.UserStore = (*Store)(nil)
