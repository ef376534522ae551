package courtbot

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store for MongoDB.
type MongoStore struct {
	client       *mongo.Client
	customers    *mongo.Collection
	reservations *mongo.Collection
	config       StorageConfig
}

// NewMongoStore creates a new MongoDB-backed store.
func NewMongoStore(config StorageConfig) (*MongoStore, error) {
	if config.MongoURI == "" {
		return nil, fmt.Errorf("MongoDB URI is required")
	}
	if config.MongoDatabase == "" {
		config.MongoDatabase = "courtbot"
	}
	config.applyDefaults()

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Test connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	database := client.Database(config.MongoDatabase)
	customers := database.Collection(config.CustomersTable)
	reservations := database.Collection(config.ReservationsTable)

	// Unique indexes back the conditional-write semantics
	indexes := map[*mongo.Collection]string{
		customers:    "customer_dni",
		reservations: "reservation_id",
	}
	for collection, field := range indexes {
		_, err = collection.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: field, Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			// Indexes might already exist
			log.Warn().Err(err).Str("field", field).Msg("failed to create MongoDB index")
		}
	}

	return &MongoStore{
		client:       client,
		customers:    customers,
		reservations: reservations,
		config:       config,
	}, nil
}

func (m *MongoStore) GetCustomer(ctx context.Context, dni string) (*Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	defer cancel()

	var customer Customer
	err := m.customers.FindOne(ctx, bson.M{"customer_dni": dni}).Decode(&customer)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil // Customer not found
		}
		return nil, fmt.Errorf("failed to get customer from MongoDB: %w", err)
	}

	return &customer, nil
}

// DebitCredits decrements the balance with a guarded FindOneAndUpdate so
// the check and the write are one MongoDB operation.
func (m *MongoStore) DebitCredits(ctx context.Context, dni string, amount int) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	defer cancel()

	filter := bson.M{
		"customer_dni": dni,
		"credits":      bson.M{"$gte": amount},
	}
	update := bson.M{"$inc": bson.M{"credits": -amount}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var customer Customer
	err := m.customers.FindOneAndUpdate(ctx, filter, update, opts).Decode(&customer)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Either the account is missing or the balance was short
			existing, lookupErr := m.GetCustomer(ctx, dni)
			if lookupErr != nil {
				return 0, lookupErr
			}
			if existing == nil {
				return 0, ErrCustomerNotFound
			}
			return 0, ErrInsufficientCredits
		}
		return 0, fmt.Errorf("failed to debit credits in MongoDB: %w", err)
	}

	return customer.Credits, nil
}

func (m *MongoStore) PutReservation(ctx context.Context, res Reservation) error {
	ctx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	defer cancel()

	_, err := m.reservations.InsertOne(ctx, res)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrReservationExists
		}
		return fmt.Errorf("failed to put reservation to MongoDB: %w", err)
	}

	return nil
}

func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.config.Timeout)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *MongoStore) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.config.Timeout)
	defer cancel()
	return m.client.Ping(ctx, nil)
}
