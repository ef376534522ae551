package courtbot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoStore implements Store for DynamoDB, the backend the bot runs on
// in production.
type DynamoStore struct {
	client *dynamodb.Client
	config StorageConfig
}

// NewDynamoStore creates a new DynamoDB-backed store.
func NewDynamoStore(config StorageConfig) (*DynamoStore, error) {
	if config.AWSRegion == "" {
		config.AWSRegion = "us-east-1"
	}
	config.applyDefaults()

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(config.AWSRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(cfg)

	// Test connection by describing the customers table
	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()

	_, err = client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(config.CustomersTable),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DynamoDB table %s: %w", config.CustomersTable, err)
	}

	return &DynamoStore{
		client: client,
		config: config,
	}, nil
}

// GetCustomer retrieves a customer record by DNI. Absent records return
// nil without an error.
func (d *DynamoStore) GetCustomer(ctx context.Context, dni string) (*Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	result, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.config.CustomersTable),
		Key: map[string]types.AttributeValue{
			"customer_dni": &types.AttributeValueMemberS{Value: dni},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get customer from DynamoDB: %w", err)
	}

	if result.Item == nil {
		return nil, nil // Customer not found
	}

	var customer Customer
	if err := attributevalue.UnmarshalMap(result.Item, &customer); err != nil {
		return nil, fmt.Errorf("failed to unmarshal customer: %w", err)
	}

	return &customer, nil
}

// DebitCredits decrements the balance with a conditional update so the
// check and the write are one DynamoDB operation.
func (d *DynamoStore) DebitCredits(ctx context.Context, dni string, amount int) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	result, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.config.CustomersTable),
		Key: map[string]types.AttributeValue{
			"customer_dni": &types.AttributeValueMemberS{Value: dni},
		},
		UpdateExpression:    aws.String("SET credits = credits - :amount"),
		ConditionExpression: aws.String("attribute_exists(customer_dni) AND credits >= :amount"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":amount": &types.AttributeValueMemberN{Value: strconv.Itoa(amount)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return 0, ErrInsufficientCredits
		}
		return 0, fmt.Errorf("failed to debit credits in DynamoDB: %w", err)
	}

	var updated struct {
		Credits int `dynamodbav:"credits"`
	}
	if err := attributevalue.UnmarshalMap(result.Attributes, &updated); err != nil {
		return 0, fmt.Errorf("failed to unmarshal updated balance: %w", err)
	}

	return updated.Credits, nil
}

// PutReservation inserts a reservation, refusing to overwrite an existing
// id.
func (d *DynamoStore) PutReservation(ctx context.Context, res Reservation) error {
	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	item, err := attributevalue.MarshalMap(res)
	if err != nil {
		return fmt.Errorf("failed to marshal reservation: %w", err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.config.ReservationsTable),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(reservation_id)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return ErrReservationExists
		}
		return fmt.Errorf("failed to put reservation to DynamoDB: %w", err)
	}

	return nil
}

// Close closes the DynamoDB connection.
func (d *DynamoStore) Close() error {
	// DynamoDB client doesn't need explicit closing
	return nil
}

// HealthCheck checks if both tables are accessible.
func (d *DynamoStore) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), d.config.Timeout)
	defer cancel()

	for _, table := range []string{d.config.CustomersTable, d.config.ReservationsTable} {
		_, err := d.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(table),
		})
		if err != nil {
			return err
		}
	}
	return nil
}
