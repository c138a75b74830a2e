package events

import "time"

const (
	// Streams
	CheckInEventsStream = "CHECKIN_EVENTS"

	// Events
	CheckInRecorded   = "events.checkin.recorded"
	ScoreUpdated      = "events.checkin.scoreUpdated"
	BackfillCompleted = "events.checkin.backfillCompleted"

	// Event Wildcards
	CheckInEventsWildcard = "events.checkin.*"
)

type CheckInRecordedEvent struct {
	EventId   string    `json:"event_id"`
	UserId    string    `json:"user_id"`
	GymId     string    `json:"gym_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ScoreUpdatedEvent triggers an asynchronous ranking recompute for the
// contest it names.
type ScoreUpdatedEvent struct {
	UserId    string `json:"user_id"`
	ContestId string `json:"contest_id"`
	NewScore  int    `json:"new_score"`
	TimeStamp int64  `json:"timestamp"`
}

type BackfillCompletedEvent struct {
	ContestId string `json:"contest_id"`
	Job       string `json:"job"`
	TimeStamp int64  `json:"timestamp"`
}
