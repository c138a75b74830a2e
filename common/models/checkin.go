package models

import (
	"fmt"
	"time"
)

// CheckInEvent is an immutable record of a user visiting a gym. Events are
// only ever created by the recorder and deleted by the dedup repair job.
type CheckInEvent struct {
	EventId   string    `dynamodbav:"event_id" json:"id"`
	UserId    string    `dynamodbav:"user_id" json:"user_id"`
	GymId     string    `dynamodbav:"gym_id" json:"gym_id"`
	GymName   string    `dynamodbav:"gym_name" json:"gym_name"`
	Timestamp time.Time `dynamodbav:"timestamp" json:"timestamp"`

	PK string `dynamodbav:"PK" json:"-"`
	SK string `dynamodbav:"SK" json:"-"`
}

// checkInSKTimeLayout is a fixed-width RFC3339 variant so that sort keys
// order lexicographically by timestamp. RFC3339Nano trims trailing zeros
// and would break that ordering.
const checkInSKTimeLayout = "2006-01-02T15:04:05.000000000Z"

// Key handlers

func UserPK(userId string) string {
	return fmt.Sprintf("USER#%s", userId)
}

func CheckInSK(timestamp time.Time, eventId string) string {
	return fmt.Sprintf("CHECKIN#%s#%s", timestamp.UTC().Format(checkInSKTimeLayout), eventId)
}

func CheckInSKPrefix() string {
	return "CHECKIN#"
}

func CheckInSKTimeBound(timestamp time.Time) string {
	return fmt.Sprintf("CHECKIN#%s", timestamp.UTC().Format(checkInSKTimeLayout))
}
