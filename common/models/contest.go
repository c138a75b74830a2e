package models

import (
	"fmt"
	"time"
)

type ContestType string

const (
	ContestTypeWeekly  ContestType = "weekly"
	ContestTypeMonthly ContestType = "monthly"
)

// Contest definitions are created and edited by an external admin process.
// This engine only reads them, except for ParticipantCount which is
// incremented on first enrollment.
type Contest struct {
	ContestId        string      `dynamodbav:"contest_id"`
	Title            string      `dynamodbav:"title"`
	ContestType      ContestType `dynamodbav:"contest_type"`
	StartDate        time.Time   `dynamodbav:"start_date"`
	EndDate          time.Time   `dynamodbav:"end_date"`
	IsActive         bool        `dynamodbav:"is_active"`
	ParticipantCount int         `dynamodbav:"participant_count"`
	CreatedAt        time.Time   `dynamodbav:"created_at"`
	UpdatedAt        time.Time   `dynamodbav:"updated_at"`

	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
}

// Key handlers

func ContestPK(contestId string) string {
	return fmt.Sprintf("CONTEST#%s", contestId)
}

func MetaSK() string {
	return "META"
}
