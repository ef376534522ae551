package courtbot

import (
	"context"
	"sync"
)

// InMemoryStore implements Store with process-local maps. Used by tests
// and local development.
type InMemoryStore struct {
	mu           sync.RWMutex
	customers    map[string]Customer
	reservations map[string]Reservation
	config       StorageConfig
}

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore(config StorageConfig) (*InMemoryStore, error) {
	config.applyDefaults()
	return &InMemoryStore{
		customers:    make(map[string]Customer),
		reservations: make(map[string]Reservation),
		config:       config,
	}, nil
}

// SeedCustomer inserts or replaces a customer record. Account creation is
// owned by the top-up flow in the real backends; this exists for seeding
// demo and test data.
func (m *InMemoryStore) SeedCustomer(c Customer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[c.DNI] = c
}

func (m *InMemoryStore) GetCustomer(ctx context.Context, dni string) (*Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	customer, ok := m.customers[dni]
	if !ok {
		return nil, nil // Customer not found
	}
	return &customer, nil
}

func (m *InMemoryStore) DebitCredits(ctx context.Context, dni string, amount int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	customer, ok := m.customers[dni]
	if !ok {
		return 0, ErrCustomerNotFound
	}
	if customer.Credits < amount {
		return 0, ErrInsufficientCredits
	}

	customer.Credits -= amount
	m.customers[dni] = customer
	return customer.Credits, nil
}

func (m *InMemoryStore) PutReservation(ctx context.Context, res Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.reservations[res.ID]; exists {
		return ErrReservationExists
	}
	m.reservations[res.ID] = res
	return nil
}

// Reservations returns a snapshot of every stored reservation.
func (m *InMemoryStore) Reservations() []Reservation {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Reservation, 0, len(m.reservations))
	for _, res := range m.reservations {
		out = append(out, res)
	}
	return out
}

func (m *InMemoryStore) Close() error {
	return nil
}

func (m *InMemoryStore) HealthCheck() error {
	return nil
}
