package core

import (
	"context"
	"errors"
	"sync"
	"time"
)

// memStore is an in-memory Store with the same identity semantics as the
// PostgreSQL schema. Tests inject failures through failPhone and panicPhone.
type memStore struct {
	mu        sync.Mutex
	customers []Customer
	leads     []Lead

	calls      int // Session method calls, Release excluded
	acquired   int
	released   int
	acquireErr error

	failPhone  map[string]error // NationalNumber -> error from InsertLead
	panicPhone string
}

func newMemStore() *memStore {
	return &memStore{failPhone: map[string]error{}}
}

func (m *memStore) Acquire(ctx context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.acquireErr != nil {
		return nil, m.acquireErr
	}
	m.acquired++
	return &memSession{store: m}, nil
}

func (m *memStore) snapshot() ([]Customer, []Lead) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Customer(nil), m.customers...), append([]Lead(nil), m.leads...)
}

type memSession struct {
	store *memStore
}

func (s *memSession) FindCustomerByPhone(ctx context.Context, phone PhoneIdentity) (Customer, error) {
	m := s.store
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for _, c := range m.customers {
		if c.Phone == phone {
			return c, nil
		}
	}
	return Customer{}, ErrNotFound
}

func (s *memSession) InsertCustomer(ctx context.Context, c Customer) (Customer, error) {
	m := s.store
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if c.Phone.NationalNumber == m.panicPhone && m.panicPhone != "" {
		panic("simulated driver panic")
	}
	for _, existing := range m.customers {
		if existing.Phone == c.Phone {
			return existing, nil
		}
	}
	c.ID = int64(len(m.customers) + 1)
	m.customers = append(m.customers, c)
	return c, nil
}

func (s *memSession) FindLeadByKey(ctx context.Context, key LeadKey) (Lead, error) {
	m := s.store
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for _, l := range m.leads {
		if l.LeadDate == key.LeadDate && l.Phone == key.Phone {
			return l, nil
		}
	}
	return Lead{}, ErrNotFound
}

func (s *memSession) InsertLead(ctx context.Context, l Lead) (Lead, error) {
	m := s.store
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err, ok := m.failPhone[l.Phone.NationalNumber]; ok {
		return Lead{}, err
	}
	for _, existing := range m.leads {
		if existing.LeadDate == l.LeadDate && existing.Phone == l.Phone {
			return Lead{}, ErrDuplicateLead
		}
	}
	l.ID = int64(len(m.leads) + 1)
	l.CreatedAt = time.Now()
	m.leads = append(m.leads, l)
	return l, nil
}

func (s *memSession) UpdateLeadCustomerStatus(ctx context.Context, leadID int64, status string) error {
	m := s.store
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for i := range m.leads {
		if m.leads[i].ID == leadID {
			m.leads[i].CustomerStatus = status
			return nil
		}
	}
	return ErrNotFound
}

func (s *memSession) Release() {
	s.store.mu.Lock()
	s.store.released++
	s.store.mu.Unlock()
}

var errSimulated = errors.New("simulated: connection reset by peer")
