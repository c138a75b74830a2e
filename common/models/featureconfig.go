package models

// FeatureConfig is the singleton flag record deciding whether contest
// processing is active and which contest is current. It is mutated
// externally and must be read fresh on every operation, never cached.
type FeatureConfig struct {
	ContestEnabled  bool        `dynamodbav:"contest_enabled"`
	ContestType     ContestType `dynamodbav:"contest_type"`
	ActiveContestId string      `dynamodbav:"active_contest_id"`

	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
}

// Key handlers

func ConfigPK() string {
	return "CONFIG"
}

func FeatureFlagsSK() string {
	return "FEATURE_FLAGS"
}
