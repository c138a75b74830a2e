package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/cankaraca/gymstreak/common/database"
	"github.com/cankaraca/gymstreak/common/logger"
	"github.com/cankaraca/gymstreak/common/models"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "console"})
}

// fakeCheckInRepo keeps events in memory and mirrors the store's window
// semantics: ListByUserBetween is half-open, ListAllBetween is inclusive.
type fakeCheckInRepo struct {
	events  []models.CheckInEvent
	listErr error
}

func (f *fakeCheckInRepo) Create(ctx context.Context, event *models.CheckInEvent) error {
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeCheckInRepo) ListByUserBetween(ctx context.Context, userId string, start, end time.Time) ([]models.CheckInEvent, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.CheckInEvent
	for _, e := range f.events {
		if e.UserId != userId {
			continue
		}
		if !e.Timestamp.Before(start) && e.Timestamp.Before(end) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (f *fakeCheckInRepo) ListAllBetween(ctx context.Context, start, end time.Time) ([]models.CheckInEvent, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.CheckInEvent
	for _, e := range f.events {
		if !e.Timestamp.Before(start) && !e.Timestamp.After(end) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeCheckInRepo) ListAll(ctx context.Context) ([]models.CheckInEvent, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.CheckInEvent(nil), f.events...), nil
}

func (f *fakeCheckInRepo) Delete(ctx context.Context, event *models.CheckInEvent) error {
	for i, e := range f.events {
		if e.EventId == event.EventId {
			f.events = append(f.events[:i], f.events[i+1:]...)
			return nil
		}
	}
	return nil
}

type fakeContestRepo struct {
	contests map[string]models.Contest
	getErr   error
}

func newFakeContestRepo() *fakeContestRepo {
	return &fakeContestRepo{contests: make(map[string]models.Contest)}
}

func (f *fakeContestRepo) GetById(ctx context.Context, contestId string) (*models.Contest, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	c, ok := f.contests[contestId]
	if !ok {
		return nil, nil
	}
	copy := c
	return &copy, nil
}

func (f *fakeContestRepo) GetTransactionForIncrementingParticipants(ctx context.Context, contestId string) types.Update {
	return types.Update{}
}

type fakeParticipantRepo struct {
	participants map[string]models.ContestParticipant
	pendingAdd   *models.ContestParticipant
	updateErr    error

	// contentionRounds forces UpdateScore condition failures for the
	// first N calls to exercise the retry loop.
	contentionRounds int

	// afterList runs after ListByContest returns its snapshot, letting
	// tests interleave writes between the listing and what follows.
	afterList func()
}

func newFakeParticipantRepo() *fakeParticipantRepo {
	return &fakeParticipantRepo{participants: make(map[string]models.ContestParticipant)}
}

func participantKey(contestId, userId string) string {
	return fmt.Sprintf("%s/%s", contestId, userId)
}

func (f *fakeParticipantRepo) GetByContestAndUser(ctx context.Context, contestId, userId string) (*models.ContestParticipant, error) {
	p, ok := f.participants[participantKey(contestId, userId)]
	if !ok {
		return nil, nil
	}
	copy := p
	return &copy, nil
}

func (f *fakeParticipantRepo) ListByContest(ctx context.Context, contestId string) ([]models.ContestParticipant, error) {
	var out []models.ContestParticipant
	for _, p := range f.participants {
		if p.ContestId == contestId {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserId < out[j].UserId })

	if f.afterList != nil {
		hook := f.afterList
		f.afterList = nil
		hook()
	}

	return out, nil
}

func (f *fakeParticipantRepo) UpdateScore(ctx context.Context, contestId, userId string, points, checkIns, streak int, lastCheckInAt time.Time, expectedCheckIns int) (*models.ContestParticipant, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if f.contentionRounds > 0 {
		f.contentionRounds--
		return nil, nil
	}

	key := participantKey(contestId, userId)
	p, ok := f.participants[key]
	if !ok || p.CheckIns != expectedCheckIns {
		return nil, nil
	}

	p.Points = points
	p.CheckIns = checkIns
	p.Streak = streak
	ts := lastCheckInAt
	p.LastCheckInAt = &ts
	f.participants[key] = p

	copy := p
	return &copy, nil
}

func (f *fakeParticipantRepo) Save(ctx context.Context, participant *models.ContestParticipant) error {
	f.participants[participantKey(participant.ContestId, participant.UserId)] = *participant
	return nil
}

func (f *fakeParticipantRepo) UpdateRanks(ctx context.Context, participants []models.ContestParticipant) error {
	for _, p := range participants {
		key := participantKey(p.ContestId, p.UserId)
		stored, ok := f.participants[key]
		if !ok {
			continue
		}
		stored.Rank = p.Rank
		f.participants[key] = stored
	}
	return nil
}

func (f *fakeParticipantRepo) GetTransactionForAddingParticipant(ctx context.Context, participant *models.ContestParticipant) (types.Put, error) {
	copy := *participant
	f.pendingAdd = &copy
	return types.Put{}, nil
}

type fakeConfigRepo struct {
	flags  *models.FeatureConfig
	getErr error
}

func (f *fakeConfigRepo) GetFeatureFlags(ctx context.Context) (*models.FeatureConfig, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.flags == nil {
		return nil, nil
	}
	copy := *f.flags
	return &copy, nil
}

// fakeTransactionRepo applies the enrollment transaction the way the
// store would: conditional participant insert plus counter increment, all
// or nothing.
type fakeTransactionRepo struct {
	participants *fakeParticipantRepo
	contests     *fakeContestRepo
	execErr      error
}

func (f *fakeTransactionRepo) Execute(ctx context.Context, tb *database.TransactionBuilder) error {
	if f.execErr != nil {
		f.participants.pendingAdd = nil
		return f.execErr
	}

	p := f.participants.pendingAdd
	f.participants.pendingAdd = nil
	if p == nil {
		return errors.New("no pending participant put")
	}

	key := participantKey(p.ContestId, p.UserId)
	if _, exists := f.participants.participants[key]; exists {
		return errors.New("conditional check failed")
	}

	f.participants.participants[key] = *p

	if c, ok := f.contests.contests[p.ContestId]; ok {
		c.ParticipantCount++
		f.contests.contests[p.ContestId] = c
	}

	return nil
}
