package models

import (
	"fmt"
	"time"
)

// ContestParticipant is a user's scoring record within one contest, keyed
// by (contestId, userId). Rank is written only by the ranking recompute
// and may be transiently stale between a score update and the next
// recompute.
type ContestParticipant struct {
	UserId        string     `dynamodbav:"user_id" json:"user_id"`
	ContestId     string     `dynamodbav:"contest_id" json:"contest_id"`
	DisplayName   string     `dynamodbav:"display_name" json:"display_name"`
	Points        int        `dynamodbav:"points" json:"points"`
	CheckIns      int        `dynamodbav:"check_ins" json:"check_ins"`
	Streak        int        `dynamodbav:"streak" json:"streak"`
	Rank          int        `dynamodbav:"rank" json:"rank"`
	JoinedAt      time.Time  `dynamodbav:"joined_at" json:"joined_at"`
	LastCheckInAt *time.Time `dynamodbav:"last_check_in_at" json:"last_check_in_at,omitempty"`

	PK string `dynamodbav:"PK" json:"-"`
	SK string `dynamodbav:"SK" json:"-"`
}

// Key handlers

func ParticipantSK(userId string) string {
	return fmt.Sprintf("PARTICIPANT#%s", userId)
}

func ParticipantSKPrefix() string {
	return "PARTICIPANT#"
}
