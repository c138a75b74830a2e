package events

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	commonevents "github.com/cankaraca/gymstreak/common/events"
	"github.com/cankaraca/gymstreak/common/logger"
	"github.com/cankaraca/gymstreak/common/natsjetstream"
	"github.com/cankaraca/gymstreak/internal/service"
)

// EventSubscriber runs the asynchronous ranking recompute: every score
// update lands here via JetStream, decoupled from the check-in request
// that caused it.
type EventSubscriber struct {
	natsClient     *natsjetstream.Client
	subscriber     *natsjetstream.Subscriber
	rankingService service.RankingService
	logger         *logger.Logger
}

func NewEventSubscriber(
	natsClient *natsjetstream.Client,
	rankingService service.RankingService,
	logger *logger.Logger,
) *EventSubscriber {
	return &EventSubscriber{
		natsClient:     natsClient,
		subscriber:     natsjetstream.NewSubscriber(natsClient),
		rankingService: rankingService,
		logger:         logger.With("component", "event-subscriber"),
	}
}

func (s *EventSubscriber) Start(ctx context.Context) error {
	s.logger.Info("Starting event subscriptions")

	if err := s.subscribeToScoreUpdates(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to score updates: %w", err)
	}

	s.logger.Info("All event subscriptions started")
	return nil
}

func (s *EventSubscriber) subscribeToScoreUpdates(ctx context.Context) error {
	cfg := natsjetstream.ConsumerConfig{
		StreamName:    commonevents.CheckInEventsStream,
		ConsumerName:  "ranking-score-consumer",
		Durable:       "ranking-score",
		FilterSubject: commonevents.ScoreUpdated,
		AckPolicy:     "explicit",
	}

	s.logger.Info("Subscribing to score updates",
		"stream", cfg.StreamName,
		"consumer", cfg.ConsumerName,
	)

	return s.subscriber.Subscribe(ctx, cfg, s.handleScoreUpdated)
}

func (s *EventSubscriber) handleScoreUpdated(ctx context.Context, msg jetstream.Msg) error {
	var event commonevents.ScoreUpdatedEvent
	if err := natsjetstream.UnmarshalJSON(msg, &event); err != nil {
		s.logger.Error("Failed to unmarshal score updated event",
			"error", err,
		)
		return fmt.Errorf("unmarshal error: %w", err)
	}

	s.logger.Debug("Processing score updated event",
		"user_id", event.UserId,
		"contest_id", event.ContestId,
	)

	count, err := s.rankingService.RecomputeRanks(ctx, event.ContestId)
	if err != nil {
		s.logger.Error("Failed to recompute ranks",
			"error", err,
			"contest_id", event.ContestId,
		)
		return fmt.Errorf("rank recompute error: %w", err)
	}

	s.logger.Info("Ranks recomputed from score update",
		"contest_id", event.ContestId,
		"participants", count,
	)

	return nil
}
