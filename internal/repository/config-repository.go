package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/cankaraca/gymstreak/common/database"
	"github.com/cankaraca/gymstreak/common/models"
)

type ConfigRepository interface {
	// GetFeatureFlags reads the singleton flag record. The record is
	// mutated externally between requests, so callers fetch it per
	// operation and never hold on to the result.
	GetFeatureFlags(ctx context.Context) (*models.FeatureConfig, error)
}

type configRepo struct {
	db *database.DynamoDBClient
}

func NewConfigRepository(db *database.DynamoDBClient) ConfigRepository {
	return &configRepo{db: db}
}

func (r *configRepo) GetFeatureFlags(ctx context.Context) (*models.FeatureConfig, error) {
	result, err := r.db.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.ConfigPK()},
			"SK": &types.AttributeValueMemberS{Value: models.FeatureFlagsSK()},
		},
		ConsistentRead: aws.Bool(true),
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get feature flags: %w", err)
	}

	if result.Item == nil {
		return nil, nil
	}

	var flags models.FeatureConfig
	if err := attributevalue.UnmarshalMap(result.Item, &flags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal feature flags: %w", err)
	}

	return &flags, nil
}
