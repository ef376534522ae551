package courtbot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresStore implements Store on PostgreSQL. Tables are provisioned
// externally, like the DynamoDB ones.
type PostgresStore struct {
	db     *sql.DB
	config StorageConfig
}

// NewPostgresStore creates a new Postgres-backed store.
func NewPostgresStore(config StorageConfig) (*PostgresStore, error) {
	if config.PostgresDSN == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}
	config.applyDefaults()

	db, err := sql.Open("postgres", config.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open Postgres connection: %w", err)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping Postgres: %w", err)
	}

	return &PostgresStore{
		db:     db,
		config: config,
	}, nil
}

func (p *PostgresStore) GetCustomer(ctx context.Context, dni string) (*Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	query := fmt.Sprintf("SELECT customer_dni, credits FROM %s WHERE customer_dni = $1", p.config.CustomersTable)

	var customer Customer
	err := p.db.QueryRowContext(ctx, query, dni).Scan(&customer.DNI, &customer.Credits)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Customer not found
		}
		return nil, fmt.Errorf("failed to get customer from Postgres: %w", err)
	}

	return &customer, nil
}

// DebitCredits decrements the balance with a guarded UPDATE ... RETURNING
// so the check and the write are one statement.
func (p *PostgresStore) DebitCredits(ctx context.Context, dni string, amount int) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	query := fmt.Sprintf(
		"UPDATE %s SET credits = credits - $2 WHERE customer_dni = $1 AND credits >= $2 RETURNING credits",
		p.config.CustomersTable)

	var newBalance int
	err := p.db.QueryRowContext(ctx, query, dni, amount).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Either the account is missing or the balance was short
			existing, lookupErr := p.GetCustomer(ctx, dni)
			if lookupErr != nil {
				return 0, lookupErr
			}
			if existing == nil {
				return 0, ErrCustomerNotFound
			}
			return 0, ErrInsufficientCredits
		}
		return 0, fmt.Errorf("failed to debit credits in Postgres: %w", err)
	}

	return newBalance, nil
}

func (p *PostgresStore) PutReservation(ctx context.Context, res Reservation) error {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	query := fmt.Sprintf(
		`INSERT INTO %s
			(reservation_id, customer_dni, court_type, reservation_date, reservation_time,
			 reservation_datetime, cost, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.config.ReservationsTable)

	_, err := p.db.ExecContext(ctx, query,
		res.ID, res.CustomerDNI, res.CourtType, res.Date, res.Time,
		res.DateTime, res.Cost, res.Status, res.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrReservationExists
		}
		return fmt.Errorf("failed to put reservation to Postgres: %w", err)
	}

	return nil
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}

func (p *PostgresStore) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.Timeout)
	defer cancel()
	return p.db.PingContext(ctx)
}
