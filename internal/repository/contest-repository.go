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

type ContestRepository interface {
	GetById(ctx context.Context, contestId string) (*models.Contest, error)

	// Transactions
	GetTransactionForIncrementingParticipants(ctx context.Context, contestId string) types.Update
}

type contestRepo struct {
	db *database.DynamoDBClient
}

func NewContestRepository(db *database.DynamoDBClient) ContestRepository {
	return &contestRepo{db: db}
}

func (r *contestRepo) GetById(ctx context.Context, contestId string) (*models.Contest, error) {
	result, err := r.db.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.ContestPK(contestId)},
			"SK": &types.AttributeValueMemberS{Value: models.MetaSK()},
		},
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get contest: %w", err)
	}

	if result.Item == nil {
		return nil, nil
	}

	var contest models.Contest
	if err := attributevalue.UnmarshalMap(result.Item, &contest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal contest: %w", err)
	}

	return &contest, nil
}

// Transactions

func (r *contestRepo) GetTransactionForIncrementingParticipants(
	ctx context.Context,
	contestId string,
) types.Update {
	return types.Update{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.ContestPK(contestId)},
			"SK": &types.AttributeValueMemberS{Value: models.MetaSK()},
		},
		UpdateExpression: aws.String(`
			SET participant_count = if_not_exists(participant_count, :zero) + :inc
		`),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":inc":  &types.AttributeValueMemberN{Value: "1"},
			":zero": &types.AttributeValueMemberN{Value: "0"},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}
}
