package services

import (
	"context"
	"testing"
	"time"

	"github.com/clubpadel/championship-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doublesChampionship() *models.Championship {
	return &models.Championship{
		ID:         1,
		Name:       "Torneo de Parejas",
		Sport:      "padel",
		SeasonID:   2026,
		Modality:   models.ModalityDoubles,
		Doubles:    true,
		StartDate:  time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC),
		MaxEntries: 16,
		StageIDs:   []int{1},
	}
}

func roundRobinStage(doc models.StageDocument) *models.Stage {
	return &models.Stage{ID: 1, ChampionshipID: 1, Kind: models.StageRoundRobin, Document: doc, Version: 3}
}

func placementFixture() *enrollmentService {
	// placePlayer и checkEligibility не трогают БД.
	return &enrollmentService{
		enrollmentRepo: newFakeEnrollmentRepo(),
		rankingRepo:    newFakeRankingRepo(),
	}
}

func TestPlacePlayerAcceptsPendingInviteFirst(t *testing.T) {
	svc := placementFixture()
	champ := doublesChampionship()
	now := time.Now()

	invite := &models.Invitation{ID: "inv-1", InviterID: 5, TargetID: 7, State: models.InvitePending, SentAt: now.Add(-time.Hour)}
	stage := roundRobinStage(models.StageDocument{Groups: []models.Group{{
		Name: "Grupo 1",
		Slots: []models.Slot{
			{State: models.SlotPartialTeam, Players: []int{5}, Invite: invite},
			{State: models.SlotEmpty},
		},
		Matches: []models.MatchRef{{MatchID: 11, SlotA: 0, SlotB: 1}},
	}}})

	// Даже с собственным приглашаемым игрок сначала занимает адресованное
	// ему место.
	invitee := 9
	pl, err := svc.placePlayer(stage, champ, 7, &invitee, now)
	require.NoError(t, err)

	assert.Equal(t, 0, pl.groupIdx)
	assert.Equal(t, 0, pl.slotIdx)
	slot := stage.Document.Groups[0].Slots[0]
	assert.Equal(t, []int{5, 7}, slot.Players)
	assert.Equal(t, models.SlotFullTeam, slot.State)
	assert.Equal(t, models.InviteAccepted, invite.State)
	require.NotNil(t, invite.RespondedAt)

	require.Len(t, pl.affected, 1)
	assert.Equal(t, 11, pl.affected[0].MatchID)
	require.Len(t, pl.events, 1)
	assert.Equal(t, models.EventInviteAccepted, pl.events[0].Type)
	assert.Equal(t, 5, pl.events[0].TargetPlayerID)
}

func TestPlacePlayerAcceptingInviteCancelsCompetingOnes(t *testing.T) {
	svc := placementFixture()
	champ := doublesChampionship()
	now := time.Now()

	first := &models.Invitation{ID: "inv-1", InviterID: 5, TargetID: 7, State: models.InvitePending, SentAt: now.Add(-2 * time.Hour)}
	second := &models.Invitation{ID: "inv-2", InviterID: 6, TargetID: 7, State: models.InvitePending, SentAt: now.Add(-time.Hour)}
	stage := roundRobinStage(models.StageDocument{Groups: []models.Group{{
		Name: "Grupo 1",
		Slots: []models.Slot{
			{State: models.SlotPartialTeam, Players: []int{5}, Invite: first},
			{State: models.SlotPartialTeam, Players: []int{6}, Invite: second},
		},
	}}})

	_, err := svc.placePlayer(stage, champ, 7, nil, now)
	require.NoError(t, err)

	assert.Equal(t, models.InviteAccepted, first.State)
	assert.Equal(t, models.InviteCancelled, second.State)
	// Освободившийся слот снова открыт для общего размещения.
	assert.Equal(t, []int{6}, stage.Document.Groups[0].Slots[1].Players)

	pl, err := svc.placePlayer(stage, champ, 8, nil, now)
	require.NoError(t, err)
	assert.Equal(t, 1, pl.slotIdx)
	assert.Equal(t, []int{6, 8}, stage.Document.Groups[0].Slots[1].Players)
}

func TestPlacePlayerCreatesInviteInEmptySlot(t *testing.T) {
	svc := placementFixture()
	champ := doublesChampionship()
	now := time.Now()

	stage := roundRobinStage(models.StageDocument{Groups: []models.Group{{
		Name:  "Grupo 1",
		Slots: []models.Slot{{State: models.SlotEmpty}},
	}}})

	invitee := 9
	pl, err := svc.placePlayer(stage, champ, 3, &invitee, now)
	require.NoError(t, err)

	slot := stage.Document.Groups[0].Slots[0]
	assert.Equal(t, []int{3}, slot.Players)
	assert.Equal(t, models.SlotPartialTeam, slot.State)
	require.NotNil(t, slot.Invite)
	assert.Equal(t, 3, slot.Invite.InviterID)
	assert.Equal(t, 9, slot.Invite.TargetID)
	assert.Equal(t, models.InvitePending, slot.Invite.State)

	require.Len(t, pl.events, 1)
	assert.Equal(t, models.EventInviteSent, pl.events[0].Type)
	assert.Equal(t, 9, pl.events[0].TargetPlayerID)
}

func TestPlacePlayerFillsHalfEmptySlot(t *testing.T) {
	svc := placementFixture()
	champ := doublesChampionship()
	now := time.Now()

	// Слот игрока 5 ждёт конкретного партнёра, слот игрока 6 открыт.
	targeted := &models.Invitation{ID: "inv-1", InviterID: 5, TargetID: 99, State: models.InvitePending, SentAt: now.Add(-time.Hour)}
	stage := roundRobinStage(models.StageDocument{Groups: []models.Group{{
		Name: "Grupo 1",
		Slots: []models.Slot{
			{State: models.SlotPartialTeam, Players: []int{5}, Invite: targeted},
			{State: models.SlotSingle, Players: []int{6}},
		},
	}}})

	pl, err := svc.placePlayer(stage, champ, 3, nil, now)
	require.NoError(t, err)

	assert.Equal(t, 1, pl.slotIdx)
	assert.Equal(t, []int{6, 3}, stage.Document.Groups[0].Slots[1].Players)
	assert.Equal(t, models.SlotFullTeam, stage.Document.Groups[0].Slots[1].State)
	// Чужое действующее приглашение не занято.
	assert.Equal(t, []int{5}, stage.Document.Groups[0].Slots[0].Players)
}

func TestPlacePlayerExpiredInviteSlotIsOpen(t *testing.T) {
	svc := placementFixture()
	champ := doublesChampionship()
	now := time.Now()

	stale := &models.Invitation{ID: "inv-1", InviterID: 5, TargetID: 99, State: models.InvitePending, SentAt: now.Add(-models.InviteTTL - time.Hour)}
	stage := roundRobinStage(models.StageDocument{Groups: []models.Group{{
		Name: "Grupo 1",
		Slots: []models.Slot{
			{State: models.SlotPartialTeam, Players: []int{5}, Invite: stale},
		},
	}}})

	pl, err := svc.placePlayer(stage, champ, 3, nil, now)
	require.NoError(t, err)

	assert.Equal(t, 0, pl.slotIdx)
	assert.Equal(t, []int{5, 3}, stage.Document.Groups[0].Slots[0].Players)
	assert.Equal(t, models.InviteExpired, stale.State)
}

func TestPlacePlayerAppendsNewSlotWhenNothingFits(t *testing.T) {
	svc := placementFixture()
	champ := doublesChampionship()
	now := time.Now()

	stage := roundRobinStage(models.StageDocument{})

	pl, err := svc.placePlayer(stage, champ, 3, nil, now)
	require.NoError(t, err)

	assert.Equal(t, 0, pl.groupIdx)
	assert.Equal(t, 0, pl.slotIdx)
	require.Len(t, stage.Document.Groups, 1)
	slot := stage.Document.Groups[0].Slots[0]
	assert.Equal(t, []int{3}, slot.Players)
	assert.Equal(t, models.SlotSingle, slot.State)
	require.Len(t, pl.events, 1)
	assert.Equal(t, models.EventEnrollmentPlaced, pl.events[0].Type)
}

func TestPlacePlayerEliminationFillsEnrollmentSides(t *testing.T) {
	svc := placementFixture()
	champ := doublesChampionship()
	champ.Modality = models.ModalitySingles
	champ.Doubles = false
	now := time.Now()

	stage := &models.Stage{
		ID:             1,
		ChampionshipID: 1,
		Kind:           models.StageElimination,
		Document: models.StageDocument{Rounds: []models.Round{{
			Matches: []models.EliminationMatch{
				{MatchID: 21, SideA: models.EliminationSide{Players: []int{1}}, SideB: models.EliminationSide{FromEnrollment: true}},
				{MatchID: 22, SideA: models.EliminationSide{FromEnrollment: true}, SideB: models.EliminationSide{FromEnrollment: true}},
			},
		}}},
	}

	pl, err := svc.placePlayer(stage, champ, 3, nil, now)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, stage.Document.Rounds[0].Matches[0].SideB.Players)
	require.Len(t, pl.affected, 1)
	assert.Equal(t, 21, pl.affected[0].MatchID)

	// Следующий игрок занимает первую свободную сторону второго матча.
	pl2, err := svc.placePlayer(stage, champ, 4, nil, now)
	require.NoError(t, err)
	assert.Equal(t, []int{4}, stage.Document.Rounds[0].Matches[1].SideA.Players)
	assert.Equal(t, 22, pl2.affected[0].MatchID)
}

func TestPlacePlayerEliminationFullBracket(t *testing.T) {
	svc := placementFixture()
	champ := doublesChampionship()
	champ.Modality = models.ModalitySingles
	champ.Doubles = false

	stage := &models.Stage{
		Kind: models.StageElimination,
		Document: models.StageDocument{Rounds: []models.Round{{
			Matches: []models.EliminationMatch{
				{MatchID: 21, SideA: models.EliminationSide{Players: []int{1}}, SideB: models.EliminationSide{Players: []int{2}}},
			},
		}}},
	}

	_, err := svc.placePlayer(stage, champ, 3, nil, time.Now())
	assert.ErrorIs(t, err, ErrChampionshipFull)
}

func TestCancelCompetingInvites(t *testing.T) {
	now := time.Now()
	accepted := &models.Invitation{ID: "a", InviterID: 1, TargetID: 7, State: models.InviteAccepted, SentAt: now}
	competing := &models.Invitation{ID: "b", InviterID: 2, TargetID: 7, State: models.InvitePending, SentAt: now}
	other := &models.Invitation{ID: "c", InviterID: 3, TargetID: 8, State: models.InvitePending, SentAt: now}

	doc := models.StageDocument{Groups: []models.Group{{Slots: []models.Slot{
		{State: models.SlotFullTeam, Players: []int{1, 7}, Invite: accepted},
		{State: models.SlotPartialTeam, Players: []int{2}, Invite: competing},
		{State: models.SlotPartialTeam, Players: []int{3}, Invite: other},
	}}}}

	cancelCompetingInvites(&doc, 7, accepted.ID)

	assert.Equal(t, models.InviteAccepted, accepted.State)
	assert.Equal(t, models.InviteCancelled, competing.State)
	// Приглашения других игроков не трогаются.
	assert.Equal(t, models.InvitePending, other.State)
}

func TestHasExpiredInviteFor(t *testing.T) {
	stale := &models.Invitation{ID: "a", InviterID: 1, TargetID: 7, State: models.InvitePending, SentAt: time.Now().Add(-models.InviteTTL - time.Hour)}
	doc := models.StageDocument{Groups: []models.Group{{Slots: []models.Slot{
		{State: models.SlotPartialTeam, Players: []int{1}, Invite: stale},
	}}}}

	assert.True(t, hasExpiredInviteFor(&doc, 7))
	assert.False(t, hasExpiredInviteFor(&doc, 8))
}

func TestCheckEligibilityLicense(t *testing.T) {
	svc := placementFixture()
	champ := doublesChampionship()

	player := testPlayer(1)
	player.LicenseExpiry = nil
	assert.ErrorIs(t, svc.checkEligibility(context.Background(), champ, player), ErrLicenseNotValid)

	lapsed := champ.StartDate.AddDate(0, -1, 0)
	player.LicenseExpiry = &lapsed
	assert.ErrorIs(t, svc.checkEligibility(context.Background(), champ, player), ErrLicenseNotValid)
}

func TestCheckEligibilityAlreadyEnrolled(t *testing.T) {
	svc := placementFixture()
	champ := doublesChampionship()

	enrollmentRepo := svc.enrollmentRepo.(*fakeEnrollmentRepo)
	require.NoError(t, enrollmentRepo.Create(context.Background(), nil, &models.Enrollment{PlayerID: 1, ChampionshipID: champ.ID}))
	champ.EnrollmentIDs = []int{1}

	err := svc.checkEligibility(context.Background(), champ, testPlayer(1))
	assert.ErrorIs(t, err, ErrAlreadyEnrolled)
}

func TestCheckEligibilityCapacity(t *testing.T) {
	svc := placementFixture()
	champ := doublesChampionship()
	champ.MaxEntries = 2
	champ.EnrollmentIDs = []int{10, 11}

	err := svc.checkEligibility(context.Background(), champ, testPlayer(1))
	assert.ErrorIs(t, err, ErrChampionshipFull)
}

func TestCheckEligibilityGenderAndAge(t *testing.T) {
	svc := placementFixture()
	champ := doublesChampionship()
	male := models.GenderMale
	champ.Rules.Gender = &male

	player := testPlayer(1) // женский профиль
	assert.ErrorIs(t, svc.checkEligibility(context.Background(), champ, player), ErrNotEligible)

	champ.Rules.Gender = nil
	minAge := 40
	champ.Rules.MinAge = &minAge
	assert.ErrorIs(t, svc.checkEligibility(context.Background(), champ, player), ErrNotEligible)
}

func TestCheckEligibilityPointsWindow(t *testing.T) {
	svc := placementFixture()
	champ := doublesChampionship()
	minPoints := 100
	champ.Rules.MinPoints = &minPoints

	player := testPlayer(1)

	// Нет записи рейтинга при рейтинговом правиле.
	assert.ErrorIs(t, svc.checkEligibility(context.Background(), champ, player), ErrRankingRequired)

	rankingRepo := svc.rankingRepo.(*fakeRankingRepo)
	scope := models.RankingScope{SeasonID: champ.SeasonID, Sport: champ.Sport, Modality: champ.Modality}
	require.NoError(t, rankingRepo.Create(context.Background(), nil, &models.Ranking{PlayerID: 1, Scope: scope, Points: 40}))

	assert.ErrorIs(t, svc.checkEligibility(context.Background(), champ, player), ErrNotEligible)

	require.NoError(t, rankingRepo.ApplyDelta(context.Background(), nil, 1, 100, 0, 0, 0))
	assert.NoError(t, svc.checkEligibility(context.Background(), champ, player))
}
