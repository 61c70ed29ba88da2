package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/clubpadel/championship-system/models"
	"github.com/clubpadel/championship-system/repositories"
	"github.com/google/uuid"
)

// stageWriteAttempts — число попыток записи документа этапа при
// конфликте версий, прежде чем вернуть ошибку вызывающему.
const stageWriteAttempts = 3

type EnrollmentService interface {
	// Enroll записывает игрока на чемпионат. Для парного разряда может
	// быть передан приглашаемый партнёр.
	Enroll(ctx context.Context, playerID, championshipID int, inviteeID *int) (*models.Enrollment, []models.DomainEvent, error)
	// RespondToInvitation обрабатывает ответ на приглашение в пару.
	RespondToInvitation(ctx context.Context, playerID, championshipID int, accept bool) ([]models.DomainEvent, error)
}

type enrollmentService struct {
	db               *sql.DB
	enrollmentRepo   repositories.EnrollmentRepository
	championshipRepo repositories.ChampionshipRepository
	stageRepo        repositories.StageRepository
	matchRepo        repositories.MatchRepository
	playerRepo       repositories.PlayerRepository
	rankingRepo      repositories.RankingRepository
}

func NewEnrollmentService(
	db *sql.DB,
	enrollmentRepo repositories.EnrollmentRepository,
	championshipRepo repositories.ChampionshipRepository,
	stageRepo repositories.StageRepository,
	matchRepo repositories.MatchRepository,
	playerRepo repositories.PlayerRepository,
	rankingRepo repositories.RankingRepository,
) EnrollmentService {
	return &enrollmentService{
		db:               db,
		enrollmentRepo:   enrollmentRepo,
		championshipRepo: championshipRepo,
		stageRepo:        stageRepo,
		matchRepo:        matchRepo,
		playerRepo:       playerRepo,
		rankingRepo:      rankingRepo,
	}
}

// placement — результат размещения игрока в документе этапа.
type placement struct {
	groupIdx int
	slotIdx  int
	// affected — матчи, составы которых надо переписать в хранилище.
	affected []models.MatchRef
	events   []models.DomainEvent
}

func (s *enrollmentService) Enroll(ctx context.Context, playerID, championshipID int, inviteeID *int) (*models.Enrollment, []models.DomainEvent, error) {
	champ, err := s.championshipRepo.GetByID(ctx, championshipID)
	if err != nil {
		if errors.Is(err, repositories.ErrChampionshipNotFound) {
			return nil, nil, ErrChampionshipNotFound
		}
		return nil, nil, fmt.Errorf("failed to get championship %d: %w", championshipID, err)
	}
	if champ.Closed {
		return nil, nil, ErrChampionshipClosed
	}
	if len(champ.StageIDs) == 0 {
		return nil, nil, ErrChampionshipNoStages
	}

	player, err := s.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, nil, ErrPlayerNotFound
		}
		return nil, nil, fmt.Errorf("failed to get player %d: %w", playerID, err)
	}

	if err := s.checkEligibility(ctx, champ, player); err != nil {
		return nil, nil, err
	}

	if inviteeID != nil {
		if !champ.Doubles {
			return nil, nil, ErrInviteSinglesForbidden
		}
		if _, err := s.playerRepo.GetByID(ctx, *inviteeID); err != nil {
			if errors.Is(err, repositories.ErrPlayerNotFound) {
				return nil, nil, ErrPlayerNotFound
			}
			return nil, nil, fmt.Errorf("failed to get invitee %d: %w", *inviteeID, err)
		}
	}

	now := time.Now()
	for attempt := 0; attempt < stageWriteAttempts; attempt++ {
		stage, err := s.stageRepo.GetByID(ctx, champ.StageIDs[0])
		if err != nil {
			if errors.Is(err, repositories.ErrStageNotFound) {
				return nil, nil, ErrStageNotFound
			}
			return nil, nil, fmt.Errorf("failed to load first stage: %w", err)
		}

		pl, err := s.placePlayer(stage, champ, playerID, inviteeID, now)
		if err != nil {
			return nil, nil, err
		}

		enrollment, commitErr := s.commitPlacement(ctx, champ, stage, playerID, pl, now)
		if commitErr != nil {
			if errors.Is(commitErr, repositories.ErrStageVersionConflict) {
				continue // документ ушёл вперёд, перечитываем и повторяем
			}
			return nil, nil, commitErr
		}
		return enrollment, pl.events, nil
	}
	return nil, nil, ErrStageWriteConflict
}

// checkEligibility применяет все правила допуска; любое нарушение —
// ошибка валидации, частичных записей не остаётся.
func (s *enrollmentService) checkEligibility(ctx context.Context, champ *models.Championship, player *models.Player) error {
	if !player.LicenseCovers(champ.StartDate) {
		return ErrLicenseNotValid
	}

	if _, err := s.enrollmentRepo.GetByPlayerAndChampionship(ctx, player.ID, champ.ID); err == nil {
		return ErrAlreadyEnrolled
	} else if !errors.Is(err, repositories.ErrEnrollmentNotFound) {
		return fmt.Errorf("failed to check existing enrollment: %w", err)
	}

	if len(champ.EnrollmentIDs) >= champ.MaxEntries {
		return ErrChampionshipFull
	}

	rules := champ.Rules
	if rules.Gender != nil && player.Gender != *rules.Gender {
		return ErrNotEligible
	}
	age := player.AgeAt(champ.StartDate)
	if rules.MinAge != nil && age < *rules.MinAge {
		return ErrNotEligible
	}
	if rules.MaxAge != nil && age > *rules.MaxAge {
		return ErrNotEligible
	}

	if rules.MinPoints != nil || rules.MaxPoints != nil {
		scope := models.RankingScope{
			SeasonID: champ.SeasonID,
			Sport:    champ.Sport,
			Modality: champ.Modality,
			Gender:   rules.Gender,
		}
		ranking, err := s.rankingRepo.GetByPlayerAndScope(ctx, player.ID, scope)
		if err != nil {
			if errors.Is(err, repositories.ErrRankingNotFound) {
				// Отсутствие рейтинга при рейтинговом правиле — само по себе отказ.
				return ErrRankingRequired
			}
			return fmt.Errorf("failed to resolve ranking for eligibility: %w", err)
		}
		if rules.MinPoints != nil && ranking.Points < *rules.MinPoints {
			return ErrNotEligible
		}
		if rules.MaxPoints != nil && ranking.Points > *rules.MaxPoints {
			return ErrNotEligible
		}
	}
	return nil
}

// placePlayer выполняет алгоритм размещения по шагам, первый успешный
// шаг выигрывает. Мутирует документ этапа в памяти.
func (s *enrollmentService) placePlayer(stage *models.Stage, champ *models.Championship, playerID int, inviteeID *int, now time.Time) (*placement, error) {
	doc := &stage.Document
	seats := champ.SeatsPerSlot()

	// Шаг 1: игрок — адресат действующего приглашения. Принятие гасит
	// остальные его приглашения в этом чемпионате (побеждает первое
	// принятое).
	if gi, si, ok := doc.FindPendingInvite(playerID, now); ok {
		slot := &doc.Groups[gi].Slots[si]
		slot.Invite.State = models.InviteAccepted
		respondedAt := now
		slot.Invite.RespondedAt = &respondedAt
		slot.SetPlayers(append(slot.Players, playerID), seats)
		cancelCompetingInvites(doc, playerID, slot.Invite.ID)
		return &placement{
			groupIdx: gi,
			slotIdx:  si,
			affected: doc.Groups[gi].MatchRefsForSlot(si),
			events: []models.DomainEvent{
				newEvent(models.EventInviteAccepted, champ.ID, slot.Invite.InviterID, slot.Invite),
			},
		}, nil
	}

	if stage.Kind == models.StageElimination {
		return s.placeInElimination(doc, champ, playerID, seats)
	}

	// Шаг 2: регистрация пары с приглашением партнёра.
	if inviteeID != nil {
		gi, si := findOrAppendEmptySlot(doc)
		slot := &doc.Groups[gi].Slots[si]
		invite := &models.Invitation{
			ID:        uuid.NewString(),
			InviterID: playerID,
			TargetID:  *inviteeID,
			State:     models.InvitePending,
			SentAt:    now,
		}
		slot.Invite = invite
		slot.SetPlayers([]int{playerID}, seats)
		return &placement{
			groupIdx: gi,
			slotIdx:  si,
			affected: doc.Groups[gi].MatchRefsForSlot(si),
			events: []models.DomainEvent{
				newEvent(models.EventInviteSent, champ.ID, *inviteeID, invite),
			},
		}, nil
	}

	// Шаг 3: дозаполнение полупустого слота.
	if seats > 1 {
		for gi := range doc.Groups {
			for si := range doc.Groups[gi].Slots {
				slot := &doc.Groups[gi].Slots[si]
				if slot.State == models.SlotDisqualified || slot.Occupied() != 1 {
					continue
				}
				open := slot.Invite == nil ||
					slot.Invite.State != models.InvitePending ||
					slot.Invite.TargetID == playerID ||
					slot.Invite.ExpiredAt(now)
				if !open {
					continue
				}
				if slot.Invite != nil && slot.Invite.ExpiredAt(now) {
					slot.Invite.State = models.InviteExpired
				}
				slot.SetPlayers(append(slot.Players, playerID), seats)
				return &placement{
					groupIdx: gi,
					slotIdx:  si,
					affected: doc.Groups[gi].MatchRefsForSlot(si),
					events: []models.DomainEvent{
						newEvent(models.EventEnrollmentPlaced, champ.ID, playerID, nil),
					},
				}, nil
			}
		}
	}

	// Шаг 4: новый слот только с этим игроком.
	gi, si := findOrAppendEmptySlot(doc)
	slot := &doc.Groups[gi].Slots[si]
	slot.SetPlayers([]int{playerID}, seats)
	return &placement{
		groupIdx: gi,
		slotIdx:  si,
		affected: doc.Groups[gi].MatchRefsForSlot(si),
		events: []models.DomainEvent{
			newEvent(models.EventEnrollmentPlaced, champ.ID, playerID, nil),
		},
	}, nil
}

// placeInElimination заполняет первую сторону матча, помеченную
// origin=enrollment и ещё не добравшую участников.
func (s *enrollmentService) placeInElimination(doc *models.StageDocument, champ *models.Championship, playerID, seats int) (*placement, error) {
	for ri := range doc.Rounds {
		for mi := range doc.Rounds[ri].Matches {
			em := &doc.Rounds[ri].Matches[mi]
			for _, side := range []*models.EliminationSide{&em.SideA, &em.SideB} {
				if !side.FromEnrollment || len(side.Players) >= seats {
					continue
				}
				side.Players = append(side.Players, playerID)
				return &placement{
					groupIdx: ri,
					slotIdx:  mi,
					affected: []models.MatchRef{{MatchID: em.MatchID}},
					events: []models.DomainEvent{
						newEvent(models.EventEnrollmentPlaced, champ.ID, playerID, nil),
					},
				}, nil
			}
		}
	}
	return nil, ErrChampionshipFull
}

// findOrAppendEmptySlot переиспользует первый пустой слот кругового этапа
// либо добавляет новый (создавая группу при необходимости).
func findOrAppendEmptySlot(doc *models.StageDocument) (int, int) {
	for gi := range doc.Groups {
		for si := range doc.Groups[gi].Slots {
			if doc.Groups[gi].Slots[si].State == models.SlotEmpty {
				return gi, si
			}
		}
	}
	if len(doc.Groups) == 0 {
		doc.Groups = append(doc.Groups, models.Group{Name: "Grupo 1"})
	}
	gi := len(doc.Groups) - 1
	doc.Groups[gi].Slots = append(doc.Groups[gi].Slots, models.Slot{State: models.SlotEmpty})
	return gi, len(doc.Groups[gi].Slots) - 1
}

// commitPlacement записывает размещение одной транзакцией: документ этапа
// (compare-and-swap), запись на участие, составы затронутых матчей и
// списки идентификаторов чемпионата.
func (s *enrollmentService) commitPlacement(ctx context.Context, champ *models.Championship, stage *models.Stage, playerID int, pl *placement, now time.Time) (*models.Enrollment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.stageRepo.UpdateDocument(ctx, tx, stage); err != nil {
		return nil, err
	}

	enrollment := &models.Enrollment{
		PlayerID:       playerID,
		ChampionshipID: champ.ID,
	}
	enrollment.PlacedAt(stage.ID, pl.groupIdx, pl.slotIdx)
	if stage.Kind == models.StageRoundRobin {
		slot := &stage.Document.Groups[pl.groupIdx].Slots[pl.slotIdx]
		if slot.Invite != nil && slot.Invite.State == models.InvitePending {
			enrollment.Invite = slot.Invite
		}
	}
	for _, ref := range pl.affected {
		enrollment.MatchIDs = append(enrollment.MatchIDs, ref.MatchID)
	}

	if err := s.enrollmentRepo.Create(ctx, tx, enrollment); err != nil {
		if errors.Is(err, repositories.ErrEnrollmentConflict) {
			return nil, ErrAlreadyEnrolled
		}
		return nil, fmt.Errorf("failed to create enrollment: %w", err)
	}

	if err := s.championshipRepo.AppendEnrollmentID(ctx, tx, champ.ID, enrollment.ID); err != nil {
		return nil, fmt.Errorf("failed to append enrollment to championship: %w", err)
	}

	if err := s.rewriteAffectedMatches(ctx, tx, stage, pl.affected); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit enrollment: %w", err)
	}
	return enrollment, nil
}

// rewriteAffectedMatches — единственная точка, переносящая владельцев
// слотов в составы матчей независимого хранилища.
func (s *enrollmentService) rewriteAffectedMatches(ctx context.Context, exec repositories.SQLExecutor, stage *models.Stage, affected []models.MatchRef) error {
	for _, ref := range affected {
		var side1, side2 []int
		switch stage.Kind {
		case models.StageRoundRobin:
			group := &stage.Document.Groups[refGroup(stage, ref)]
			side1 = group.Slots[ref.SlotA].Players
			side2 = group.Slots[ref.SlotB].Players
		case models.StageElimination:
			em, ok := findEliminationMatch(&stage.Document, ref.MatchID)
			if !ok {
				continue
			}
			side1 = em.SideA.Players
			side2 = em.SideB.Players
		}
		if err := s.matchRepo.UpdateSides(ctx, exec, ref.MatchID, side1, side2); err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				continue // матч мог быть удалён нормализацией
			}
			return fmt.Errorf("failed to propagate players into match %d: %w", ref.MatchID, err)
		}
	}
	return nil
}

// refGroup находит группу, содержащую ссылку на матч.
func refGroup(stage *models.Stage, ref models.MatchRef) int {
	for gi := range stage.Document.Groups {
		for _, r := range stage.Document.Groups[gi].Matches {
			if r.MatchID == ref.MatchID {
				return gi
			}
		}
	}
	return 0
}

func findEliminationMatch(doc *models.StageDocument, matchID int) (*models.EliminationMatch, bool) {
	for ri := range doc.Rounds {
		for mi := range doc.Rounds[ri].Matches {
			if doc.Rounds[ri].Matches[mi].MatchID == matchID {
				return &doc.Rounds[ri].Matches[mi], true
			}
		}
	}
	return nil, false
}

func (s *enrollmentService) RespondToInvitation(ctx context.Context, playerID, championshipID int, accept bool) ([]models.DomainEvent, error) {
	champ, err := s.championshipRepo.GetByID(ctx, championshipID)
	if err != nil {
		if errors.Is(err, repositories.ErrChampionshipNotFound) {
			return nil, ErrChampionshipNotFound
		}
		return nil, fmt.Errorf("failed to get championship %d: %w", championshipID, err)
	}
	if len(champ.StageIDs) == 0 {
		return nil, ErrChampionshipNoStages
	}

	now := time.Now()
	for attempt := 0; attempt < stageWriteAttempts; attempt++ {
		stage, err := s.stageRepo.GetByID(ctx, champ.StageIDs[0])
		if err != nil {
			if errors.Is(err, repositories.ErrStageNotFound) {
				return nil, ErrStageNotFound
			}
			return nil, fmt.Errorf("failed to load first stage: %w", err)
		}

		gi, si, ok := stage.Document.FindPendingInvite(playerID, now)
		if !ok {
			if hasExpiredInviteFor(&stage.Document, playerID) {
				return nil, ErrInviteExpired
			}
			return nil, ErrInviteNotPending
		}
		slot := &stage.Document.Groups[gi].Slots[si]
		invite := slot.Invite
		respondedAt := now
		invite.RespondedAt = &respondedAt

		var events []models.DomainEvent
		var affected []models.MatchRef
		if accept {
			invite.State = models.InviteAccepted
			slot.SetPlayers(append(slot.Players, playerID), champ.SeatsPerSlot())
			// Первый принятый ответ гасит остальные приглашения игрока
			// в этом чемпионате.
			cancelCompetingInvites(&stage.Document, playerID, invite.ID)
			affected = stage.Document.Groups[gi].MatchRefsForSlot(si)
			events = append(events, newEvent(models.EventInviteAccepted, champ.ID, invite.InviterID, invite))
		} else {
			invite.State = models.InviteRejected
			events = append(events, newEvent(models.EventInviteRejected, champ.ID, invite.InviterID, invite))
		}

		commitErr := s.commitInviteResponse(ctx, champ, stage, playerID, gi, si, invite, accept, affected)
		if commitErr != nil {
			if errors.Is(commitErr, repositories.ErrStageVersionConflict) {
				continue
			}
			return nil, commitErr
		}
		return events, nil
	}
	return nil, ErrStageWriteConflict
}

func (s *enrollmentService) commitInviteResponse(ctx context.Context, champ *models.Championship, stage *models.Stage, playerID, gi, si int, invite *models.Invitation, accepted bool, affected []models.MatchRef) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.stageRepo.UpdateDocument(ctx, tx, stage); err != nil {
		return err
	}

	// Состояние приглашения дублируется в записи пригласившего.
	if inviter, err := s.enrollmentRepo.GetByPlayerAndChampionship(ctx, invite.InviterID, champ.ID); err == nil {
		if inviter.Invite != nil && inviter.Invite.ID == invite.ID {
			inviter.Invite = invite
			if err := s.enrollmentRepo.Update(ctx, tx, inviter); err != nil {
				return fmt.Errorf("failed to update inviter enrollment: %w", err)
			}
		}
	} else if !errors.Is(err, repositories.ErrEnrollmentNotFound) {
		return fmt.Errorf("failed to load inviter enrollment: %w", err)
	}

	if accepted {
		enrollment := &models.Enrollment{
			PlayerID:       playerID,
			ChampionshipID: champ.ID,
		}
		enrollment.PlacedAt(stage.ID, gi, si)
		for _, ref := range affected {
			enrollment.MatchIDs = append(enrollment.MatchIDs, ref.MatchID)
		}
		if err := s.enrollmentRepo.Create(ctx, tx, enrollment); err != nil {
			if errors.Is(err, repositories.ErrEnrollmentConflict) {
				return ErrAlreadyEnrolled
			}
			return fmt.Errorf("failed to create invitee enrollment: %w", err)
		}
		if err := s.championshipRepo.AppendEnrollmentID(ctx, tx, champ.ID, enrollment.ID); err != nil {
			return fmt.Errorf("failed to append enrollment to championship: %w", err)
		}
		if err := s.rewriteAffectedMatches(ctx, tx, stage, affected); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit invitation response: %w", err)
	}
	return nil
}

func hasExpiredInviteFor(doc *models.StageDocument, playerID int) bool {
	for gi := range doc.Groups {
		for si := range doc.Groups[gi].Slots {
			inv := doc.Groups[gi].Slots[si].Invite
			if inv != nil && inv.TargetID == playerID &&
				(inv.State == models.InviteExpired || inv.ExpiredAt(time.Now())) {
				return true
			}
		}
	}
	return false
}

func cancelCompetingInvites(doc *models.StageDocument, playerID int, acceptedID string) {
	for gi := range doc.Groups {
		for si := range doc.Groups[gi].Slots {
			inv := doc.Groups[gi].Slots[si].Invite
			if inv != nil && inv.ID != acceptedID && inv.TargetID == playerID && inv.State == models.InvitePending {
				inv.State = models.InviteCancelled
			}
		}
	}
}

func newEvent(eventType models.EventType, championshipID, targetPlayerID int, payload interface{}) models.DomainEvent {
	return models.DomainEvent{
		ID:             uuid.NewString(),
		Type:           eventType,
		ChampionshipID: championshipID,
		TargetPlayerID: targetPlayerID,
		Payload:        payload,
		OccurredAt:     time.Now(),
	}
}
