package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/cankaraca/gymstreak/common/database"
	"github.com/cankaraca/gymstreak/common/models"
)

type ParticipantRepository interface {
	GetByContestAndUser(ctx context.Context, contestId, userId string) (*models.ContestParticipant, error)
	ListByContest(ctx context.Context, contestId string) ([]models.ContestParticipant, error)

	// UpdateScore applies a conditional read-modify-write: the update only
	// lands if check_ins still equals expectedCheckIns. Returns nil, nil
	// when the condition fails so the caller can re-read and retry.
	UpdateScore(ctx context.Context, contestId, userId string, points, checkIns, streak int, lastCheckInAt time.Time, expectedCheckIns int) (*models.ContestParticipant, error)

	// Save writes the full participant item without conditions. Used by the
	// backfill rebuild, never by the live scoring path.
	Save(ctx context.Context, participant *models.ContestParticipant) error

	// UpdateRanks persists recomputed rank values, touching only the rank
	// attribute so a score update committed after the ranking snapshot was
	// read is never reverted.
	UpdateRanks(ctx context.Context, participants []models.ContestParticipant) error

	// Transactions
	GetTransactionForAddingParticipant(ctx context.Context, participant *models.ContestParticipant) (types.Put, error)
}

type participantRepo struct {
	db *database.DynamoDBClient
}

func NewParticipantRepository(db *database.DynamoDBClient) ParticipantRepository {
	return &participantRepo{db: db}
}

func (r *participantRepo) GetByContestAndUser(
	ctx context.Context,
	contestId, userId string,
) (*models.ContestParticipant, error) {
	result, err := r.db.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.ContestPK(contestId)},
			"SK": &types.AttributeValueMemberS{Value: models.ParticipantSK(userId)},
		},
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}

	if result.Item == nil {
		return nil, nil
	}

	var participant models.ContestParticipant
	if err := attributevalue.UnmarshalMap(result.Item, &participant); err != nil {
		return nil, fmt.Errorf("failed to unmarshal participant: %w", err)
	}

	return &participant, nil
}

func (r *participantRepo) ListByContest(
	ctx context.Context,
	contestId string,
) ([]models.ContestParticipant, error) {
	participants := make([]models.ContestParticipant, 0)

	var lastKey map[string]types.AttributeValue
	for {
		result, err := r.db.Client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.db.Table()),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: models.ContestPK(contestId)},
				":sk": &types.AttributeValueMemberS{Value: models.ParticipantSKPrefix()},
			},
			ExclusiveStartKey: lastKey,
		})

		if err != nil {
			return nil, fmt.Errorf("failed to query participants: %w", err)
		}

		var page []models.ContestParticipant
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal participants: %w", err)
		}
		participants = append(participants, page...)

		if result.LastEvaluatedKey == nil {
			break
		}
		lastKey = result.LastEvaluatedKey
	}

	return participants, nil
}

func (r *participantRepo) UpdateScore(
	ctx context.Context,
	contestId, userId string,
	points, checkIns, streak int,
	lastCheckInAt time.Time,
	expectedCheckIns int,
) (*models.ContestParticipant, error) {
	result, err := r.db.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.ContestPK(contestId)},
			"SK": &types.AttributeValueMemberS{Value: models.ParticipantSK(userId)},
		},
		UpdateExpression: aws.String("SET points = :points, check_ins = :checkIns, streak = :streak, last_check_in_at = :lastCheckInAt"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":points":        &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", points)},
			":checkIns":      &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", checkIns)},
			":streak":        &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", streak)},
			":lastCheckInAt": &types.AttributeValueMemberS{Value: lastCheckInAt.Format(time.RFC3339Nano)},
			":expected":      &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expectedCheckIns)},
		},
		ConditionExpression: aws.String("attribute_exists(PK) AND check_ins = :expected"),
		ReturnValues:        types.ReturnValueAllNew,
	})

	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update participant score: %w", err)
	}

	var participant models.ContestParticipant
	if err := attributevalue.UnmarshalMap(result.Attributes, &participant); err != nil {
		return nil, fmt.Errorf("failed to unmarshal participant: %w", err)
	}

	return &participant, nil
}

func (r *participantRepo) Save(ctx context.Context, participant *models.ContestParticipant) error {
	participant.PK = models.ContestPK(participant.ContestId)
	participant.SK = models.ParticipantSK(participant.UserId)

	item, err := attributevalue.MarshalMap(participant)
	if err != nil {
		return fmt.Errorf("failed to marshal participant: %w", err)
	}

	_, err = r.db.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.db.Table()),
		Item:      item,
	})

	if err != nil {
		return fmt.Errorf("failed to save participant: %w", err)
	}

	return nil
}

func (r *participantRepo) UpdateRanks(
	ctx context.Context,
	participants []models.ContestParticipant,
) error {
	for i := range participants {
		p := &participants[i]

		_, err := r.db.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName: aws.String(r.db.Table()),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: models.ContestPK(p.ContestId)},
				"SK": &types.AttributeValueMemberS{Value: models.ParticipantSK(p.UserId)},
			},
			UpdateExpression: aws.String("SET #rnk = :rank"),
			ExpressionAttributeNames: map[string]string{
				"#rnk": "rank",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":rank": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", p.Rank)},
			},
			ConditionExpression: aws.String("attribute_exists(PK)"),
		})

		if err != nil {
			var ccf *types.ConditionalCheckFailedException
			if errors.As(err, &ccf) {
				// Row removed since the listing; nothing to rank.
				continue
			}
			return fmt.Errorf("failed to update rank for participant %s: %w", p.UserId, err)
		}
	}

	return nil
}

// Transactions

func (r *participantRepo) GetTransactionForAddingParticipant(
	ctx context.Context,
	participant *models.ContestParticipant,
) (types.Put, error) {
	participant.PK = models.ContestPK(participant.ContestId)
	participant.SK = models.ParticipantSK(participant.UserId)

	item, err := attributevalue.MarshalMap(participant)
	if err != nil {
		return types.Put{}, fmt.Errorf("failed to marshal participant: %w", err)
	}

	return types.Put{
		TableName:           aws.String(r.db.Table()),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	}, nil
}
