package courtbot

import (
	"context"
	"errors"
	"time"
)

// Customer is a persisted account holding a prepaid credit balance.
// Accounts are created by the top-up flow; this module only reads and
// debits them.
type Customer struct {
	DNI     string `json:"customer_dni" bson:"customer_dni" dynamodbav:"customer_dni"`
	Credits int    `json:"credits" bson:"credits" dynamodbav:"credits"`
}

// Reservation is a booked court slot. Written exactly once, never updated.
type Reservation struct {
	ID          string `json:"reservation_id" bson:"reservation_id" dynamodbav:"reservation_id"`
	CustomerDNI string `json:"customer_dni" bson:"customer_dni" dynamodbav:"customer_dni"`
	CourtType   string `json:"court_type" bson:"court_type" dynamodbav:"court_type"`
	Date        string `json:"reservation_date" bson:"reservation_date" dynamodbav:"reservation_date"`
	Time        string `json:"reservation_time" bson:"reservation_time" dynamodbav:"reservation_time"`
	DateTime    string `json:"reservation_datetime" bson:"reservation_datetime" dynamodbav:"reservation_datetime"`
	Cost        int    `json:"cost" bson:"cost" dynamodbav:"cost"`
	Status      string `json:"status" bson:"status" dynamodbav:"status"`
	CreatedAt   string `json:"created_at" bson:"created_at" dynamodbav:"created_at"`
}

var (
	// ErrInsufficientCredits is returned by DebitCredits when the guarded
	// decrement would leave a negative balance.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrCustomerNotFound is returned by DebitCredits when the DNI has no
	// account.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrReservationExists is returned by PutReservation on an id conflict.
	ErrReservationExists = errors.New("reservation id already exists")
)

// Store persists customers and reservations.
type Store interface {
	// GetCustomer returns the customer record, or nil when the DNI has no
	// account.
	GetCustomer(ctx context.Context, dni string) (*Customer, error)

	// DebitCredits subtracts amount from the customer's balance as one
	// conditional write and returns the new balance. Fails with
	// ErrInsufficientCredits when the balance does not cover the amount.
	DebitCredits(ctx context.Context, dni string, amount int) (int, error)

	// PutReservation inserts a reservation, failing with
	// ErrReservationExists when the id is already taken.
	PutReservation(ctx context.Context, res Reservation) error

	Close() error
	HealthCheck() error
}

// StorageType selects a storage backend.
type StorageType string

const (
	StorageTypeDynamo   StorageType = "dynamo"
	StorageTypeMongo    StorageType = "mongo"
	StorageTypeRedis    StorageType = "redis"
	StorageTypePostgres StorageType = "postgres"
	StorageTypeInMemory StorageType = "memory"
)

// StorageConfig holds configuration for the different storage backends.
type StorageConfig struct {
	Type StorageType `json:"type"`

	// DynamoDB configuration
	AWSRegion string `json:"aws_region,omitempty"`

	// MongoDB configuration
	MongoURI      string `json:"mongo_uri,omitempty"`
	MongoDatabase string `json:"mongo_database,omitempty"`

	// Redis configuration
	RedisAddress  string `json:"redis_address,omitempty"`
	RedisPassword string `json:"redis_password,omitempty"`
	RedisDB       int    `json:"redis_db,omitempty"`

	// Postgres configuration
	PostgresDSN string `json:"postgres_dsn,omitempty"`

	// Table / collection names shared by all backends
	CustomersTable    string `json:"customers_table,omitempty"`
	ReservationsTable string `json:"reservations_table,omitempty"`

	Timeout time.Duration `json:"timeout,omitempty"`
}

// applyDefaults fills the config fields every backend relies on.
func (c *StorageConfig) applyDefaults() {
	if c.CustomersTable == "" {
		c.CustomersTable = "customers"
	}
	if c.ReservationsTable == "" {
		c.ReservationsTable = "reservations"
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
}

// NewStore creates a store for the configured backend.
func NewStore(config StorageConfig) (Store, error) {
	switch config.Type {
	case StorageTypeMongo:
		return NewMongoStore(config)
	case StorageTypeRedis:
		return NewRedisStore(config)
	case StorageTypePostgres:
		return NewPostgresStore(config)
	case StorageTypeInMemory:
		return NewInMemoryStore(config)
	case StorageTypeDynamo:
		return NewDynamoStore(config)
	default:
		return NewDynamoStore(config) // Default fallback
	}
}
