package courtbot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// debit retries when the optimistic transaction loses a race
const redisDebitRetries = 5

// RedisStore implements Store on Redis, with records stored as JSON
// values under per-entity keys.
type RedisStore struct {
	client *redis.Client
	config StorageConfig
}

// NewRedisStore creates a new Redis-backed store.
func NewRedisStore(config StorageConfig) (*RedisStore, error) {
	config.applyDefaults()

	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddress,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		client: client,
		config: config,
	}, nil
}

func (r *RedisStore) customerKey(dni string) string {
	return fmt.Sprintf("%s:%s", r.config.CustomersTable, dni)
}

func (r *RedisStore) reservationKey(id string) string {
	return fmt.Sprintf("%s:%s", r.config.ReservationsTable, id)
}

func (r *RedisStore) GetCustomer(ctx context.Context, dni string) (*Customer, error) {
	data, err := r.client.Get(ctx, r.customerKey(dni)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Customer not found
		}
		return nil, fmt.Errorf("failed to get customer from Redis: %w", err)
	}

	var customer Customer
	if err := json.Unmarshal([]byte(data), &customer); err != nil {
		return nil, fmt.Errorf("failed to unmarshal customer: %w", err)
	}

	return &customer, nil
}

// DebitCredits runs the read-check-write as an optimistic WATCH
// transaction, retrying when a concurrent write invalidates it.
func (r *RedisStore) DebitCredits(ctx context.Context, dni string, amount int) (int, error) {
	key := r.customerKey(dni)
	var newBalance int

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return ErrCustomerNotFound
		}
		if err != nil {
			return err
		}

		var customer Customer
		if err := json.Unmarshal([]byte(data), &customer); err != nil {
			return err
		}
		if customer.Credits < amount {
			return ErrInsufficientCredits
		}

		customer.Credits -= amount
		payload, err := json.Marshal(customer)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		if err == nil {
			newBalance = customer.Credits
		}
		return err
	}

	for i := 0; i < redisDebitRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return newBalance, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue // Lost the race, retry
		}
		if errors.Is(err, ErrCustomerNotFound) || errors.Is(err, ErrInsufficientCredits) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to debit credits in Redis: %w", err)
	}

	return 0, fmt.Errorf("debit transaction for %s kept losing races", dni)
}

// PutReservation inserts a reservation with SETNX so an id can never be
// overwritten.
func (r *RedisStore) PutReservation(ctx context.Context, res Reservation) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal reservation: %w", err)
	}

	set, err := r.client.SetNX(ctx, r.reservationKey(res.ID), payload, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to put reservation to Redis: %w", err)
	}
	if !set {
		return ErrReservationExists
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.Timeout)
	defer cancel()
	return r.client.Ping(ctx).Err()
}
