package publisher

import (
	"context"
	"fmt"
	"time"

	commonevents "github.com/cankaraca/gymstreak/common/events"
	"github.com/cankaraca/gymstreak/common/logger"
	"github.com/cankaraca/gymstreak/common/models"
	"github.com/cankaraca/gymstreak/common/natsjetstream"
)

type EventPublisher struct {
	publisher *natsjetstream.Publisher
	logger    *logger.Logger
}

func NewEventPublisher(client *natsjetstream.Client, logger *logger.Logger) *EventPublisher {
	return &EventPublisher{
		publisher: natsjetstream.NewPublisher(client),
		logger:    logger,
	}
}

func (p *EventPublisher) PublishCheckInRecorded(ctx context.Context, checkIn *models.CheckInEvent) error {
	event := &commonevents.CheckInRecordedEvent{
		EventId:   checkIn.EventId,
		UserId:    checkIn.UserId,
		GymId:     checkIn.GymId,
		Timestamp: checkIn.Timestamp,
	}

	if err := p.publisher.PublishJSON(ctx, commonevents.CheckInRecorded, event); err != nil {
		p.logger.Error(fmt.Sprintf("Failed to publish check-in recorded event: %v", err))
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

func (p *EventPublisher) PublishScoreUpdated(ctx context.Context, userId, contestId string, newScore int) error {
	event := &commonevents.ScoreUpdatedEvent{
		UserId:    userId,
		ContestId: contestId,
		NewScore:  newScore,
		TimeStamp: time.Now().Unix(),
	}

	if err := p.publisher.PublishJSON(ctx, commonevents.ScoreUpdated, event); err != nil {
		p.logger.Error(fmt.Sprintf("Failed to publish score updated event: %v", err))
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Info(fmt.Sprintf("Published score updated event for user: %s", userId))
	return nil
}

func (p *EventPublisher) PublishBackfillCompleted(ctx context.Context, contestId, job string) error {
	event := &commonevents.BackfillCompletedEvent{
		ContestId: contestId,
		Job:       job,
		TimeStamp: time.Now().Unix(),
	}

	if err := p.publisher.PublishJSON(ctx, commonevents.BackfillCompleted, event); err != nil {
		p.logger.Error(fmt.Sprintf("Failed to publish backfill completed event: %v", err))
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
