package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/cankaraca/gymstreak/common/database"
	"github.com/cankaraca/gymstreak/common/models"
)

type CheckInRepository interface {
	Create(ctx context.Context, event *models.CheckInEvent) error
	ListByUserBetween(ctx context.Context, userId string, start, end time.Time) ([]models.CheckInEvent, error)
	ListAllBetween(ctx context.Context, start, end time.Time) ([]models.CheckInEvent, error)
	ListAll(ctx context.Context) ([]models.CheckInEvent, error)
	Delete(ctx context.Context, event *models.CheckInEvent) error
}

type checkInRepo struct {
	db *database.DynamoDBClient
}

func NewCheckInRepository(db *database.DynamoDBClient) CheckInRepository {
	return &checkInRepo{db: db}
}

func (r *checkInRepo) Create(ctx context.Context, event *models.CheckInEvent) error {
	event.PK = models.UserPK(event.UserId)
	event.SK = models.CheckInSK(event.Timestamp, event.EventId)

	item, err := attributevalue.MarshalMap(event)
	if err != nil {
		return fmt.Errorf("failed to marshal check-in event: %w", err)
	}

	_, err = r.db.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.db.Table()),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})

	if err != nil {
		return fmt.Errorf("failed to create check-in event: %w", err)
	}

	return nil
}

// ListByUserBetween returns the user's events with start <= timestamp < end.
// The upper bound key carries no event id suffix, so an event stamped
// exactly at end sorts after it and falls outside the BETWEEN range,
// which keeps the interval half-open.
func (r *checkInRepo) ListByUserBetween(
	ctx context.Context,
	userId string,
	start, end time.Time,
) ([]models.CheckInEvent, error) {
	events := make([]models.CheckInEvent, 0)

	var lastKey map[string]types.AttributeValue
	for {
		result, err := r.db.Client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.db.Table()),
			KeyConditionExpression: aws.String("PK = :pk AND SK BETWEEN :start AND :end"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":    &types.AttributeValueMemberS{Value: models.UserPK(userId)},
				":start": &types.AttributeValueMemberS{Value: models.CheckInSKTimeBound(start)},
				":end":   &types.AttributeValueMemberS{Value: models.CheckInSKTimeBound(end)},
			},
			ExclusiveStartKey: lastKey,
		})

		if err != nil {
			return nil, fmt.Errorf("failed to query check-in events: %w", err)
		}

		var page []models.CheckInEvent
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal check-in events: %w", err)
		}
		events = append(events, page...)

		if result.LastEvaluatedKey == nil {
			break
		}
		lastKey = result.LastEvaluatedKey
	}

	return events, nil
}

// ListAllBetween returns every user's events inside [start, end], both
// bounds inclusive to match the contest window. The stored timestamp
// attribute trims trailing fractional zeros, so a string BETWEEN in the
// scan filter would misorder sub-second values at the boundary; the
// bounds are applied in code instead. Used by the backfill jobs only;
// the live path never scans.
func (r *checkInRepo) ListAllBetween(
	ctx context.Context,
	start, end time.Time,
) ([]models.CheckInEvent, error) {
	all, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	events := make([]models.CheckInEvent, 0, len(all))
	for _, event := range all {
		if withinInclusiveWindow(event.Timestamp, start, end) {
			events = append(events, event)
		}
	}

	return events, nil
}

func withinInclusiveWindow(ts, start, end time.Time) bool {
	return !ts.Before(start) && !ts.After(end)
}

func (r *checkInRepo) ListAll(ctx context.Context) ([]models.CheckInEvent, error) {
	return r.scan(ctx,
		aws.String("begins_with(SK, :prefix)"),
		map[string]types.AttributeValue{
			":prefix": &types.AttributeValueMemberS{Value: models.CheckInSKPrefix()},
		},
	)
}

func (r *checkInRepo) Delete(ctx context.Context, event *models.CheckInEvent) error {
	_, err := r.db.Client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.UserPK(event.UserId)},
			"SK": &types.AttributeValueMemberS{Value: models.CheckInSK(event.Timestamp, event.EventId)},
		},
	})

	if err != nil {
		return fmt.Errorf("failed to delete check-in event: %w", err)
	}

	return nil
}

func (r *checkInRepo) scan(
	ctx context.Context,
	filter *string,
	values map[string]types.AttributeValue,
) ([]models.CheckInEvent, error) {
	events := make([]models.CheckInEvent, 0)

	var lastKey map[string]types.AttributeValue
	for {
		input := &dynamodb.ScanInput{
			TableName:                 aws.String(r.db.Table()),
			FilterExpression:          filter,
			ExpressionAttributeValues: values,
			ExclusiveStartKey:         lastKey,
		}

		result, err := r.db.Client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to scan check-in events: %w", err)
		}

		var page []models.CheckInEvent
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal check-in events: %w", err)
		}
		events = append(events, page...)

		if result.LastEvaluatedKey == nil {
			break
		}
		lastKey = result.LastEvaluatedKey
	}

	return events, nil
}
