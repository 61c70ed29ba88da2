package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/clubpadel/championship-system/brackets"
	"github.com/clubpadel/championship-system/models"
	"github.com/clubpadel/championship-system/repositories"
	"github.com/clubpadel/championship-system/storage"
	"golang.org/x/sync/errgroup"
)

type ChampionshipService interface {
	Create(ctx context.Context, champ *models.Championship) (*models.Championship, error)
	GetByID(ctx context.Context, id int) (*models.Championship, error)
	// GetFullByID загружает чемпионат вместе с этапами, записями и матчами.
	GetFullByID(ctx context.Context, id int) (*models.Championship, error)
	List(ctx context.Context, filter repositories.ListChampionshipsFilter) ([]models.Championship, error)
	Update(ctx context.Context, champ *models.Championship) (*models.Championship, error)
	// AddStage сохраняет подготовленный документ этапа и создаёт записи
	// матчей для всех ссылок документа.
	AddStage(ctx context.Context, championshipID int, stage *models.Stage) (*models.Stage, error)
	// ProcessStart нормализует первый этап перед началом игр.
	ProcessStart(ctx context.Context, championshipID int) (*brackets.NormalizeResult, []models.DomainEvent, error)
	// Close подводит итоги последнего этапа, начисляет очки за места и
	// помечает чемпионат закрытым. Повторный вызов — ошибка.
	Close(ctx context.Context, championshipID int) (map[int]int, []models.DomainEvent, error)
	UploadPoster(ctx context.Context, championshipID int, contentType string, file io.Reader) (*models.Championship, error)
}

type championshipService struct {
	db               *sql.DB
	championshipRepo repositories.ChampionshipRepository
	stageRepo        repositories.StageRepository
	enrollmentRepo   repositories.EnrollmentRepository
	matchRepo        repositories.MatchRepository
	points           PointsService
	uploader         storage.FileUploader
	logger           *slog.Logger
}

func NewChampionshipService(
	db *sql.DB,
	championshipRepo repositories.ChampionshipRepository,
	stageRepo repositories.StageRepository,
	enrollmentRepo repositories.EnrollmentRepository,
	matchRepo repositories.MatchRepository,
	points PointsService,
	uploader storage.FileUploader,
	logger *slog.Logger,
) ChampionshipService {
	return &championshipService{
		db:               db,
		championshipRepo: championshipRepo,
		stageRepo:        stageRepo,
		enrollmentRepo:   enrollmentRepo,
		matchRepo:        matchRepo,
		points:           points,
		uploader:         uploader,
		logger:           logger,
	}
}

func (s *championshipService) Create(ctx context.Context, champ *models.Championship) (*models.Championship, error) {
	if err := validateChampionship(champ); err != nil {
		return nil, err
	}
	if err := s.championshipRepo.Create(ctx, champ); err != nil {
		if errors.Is(err, repositories.ErrChampionshipNameConflict) {
			return nil, ErrChampionshipNameConflict
		}
		return nil, fmt.Errorf("failed to create championship: %w", err)
	}
	return champ, nil
}

func validateChampionship(champ *models.Championship) error {
	if !champ.EndDate.After(champ.StartDate) {
		return ErrChampionshipInvalidDateRange
	}
	if champ.MaxEntries <= 0 {
		return ErrChampionshipInvalidCapacity
	}
	champ.Doubles = champ.Modality == models.ModalityDoubles
	return nil
}

func (s *championshipService) GetByID(ctx context.Context, id int) (*models.Championship, error) {
	champ, err := s.championshipRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrChampionshipNotFound) {
			return nil, ErrChampionshipNotFound
		}
		return nil, fmt.Errorf("failed to get championship %d: %w", id, err)
	}
	s.attachPosterURL(champ)
	return champ, nil
}

// GetFullByID собирает полную картину чемпионата, загружая связанные
// сущности параллельно.
func (s *championshipService) GetFullByID(ctx context.Context, id int) (*models.Championship, error) {
	champ, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		stages, err := s.stageRepo.ListByChampionship(gctx, id)
		if err != nil {
			return fmt.Errorf("failed to list stages: %w", err)
		}
		champ.Stages = stages
		return nil
	})
	g.Go(func() error {
		enrollments, err := s.enrollmentRepo.ListByChampionship(gctx, id)
		if err != nil {
			return fmt.Errorf("failed to list enrollments: %w", err)
		}
		champ.Enrollments = enrollments
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range champ.Stages {
		matches, err := s.matchRepo.ListByStage(ctx, champ.Stages[i].ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list matches of stage %d: %w", champ.Stages[i].ID, err)
		}
		champ.Matches = append(champ.Matches, matches...)
	}
	return champ, nil
}

func (s *championshipService) List(ctx context.Context, filter repositories.ListChampionshipsFilter) ([]models.Championship, error) {
	championships, err := s.championshipRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list championships: %w", err)
	}
	for i := range championships {
		s.attachPosterURL(&championships[i])
	}
	return championships, nil
}

func (s *championshipService) Update(ctx context.Context, champ *models.Championship) (*models.Championship, error) {
	current, err := s.GetByID(ctx, champ.ID)
	if err != nil {
		return nil, err
	}
	if current.Closed {
		return nil, ErrChampionshipClosed
	}
	if err := validateChampionship(champ); err != nil {
		return nil, err
	}
	if err := s.championshipRepo.Update(ctx, champ); err != nil {
		if errors.Is(err, repositories.ErrChampionshipNameConflict) {
			return nil, ErrChampionshipNameConflict
		}
		return nil, fmt.Errorf("failed to update championship %d: %w", champ.ID, err)
	}
	return champ, nil
}

// AddStage принимает готовый документ этапа (структуру сетки готовит
// администратор), создаёт в хранилище матч на каждую ссылку документа и
// проставляет выданные идентификаторы обратно в документ.
func (s *championshipService) AddStage(ctx context.Context, championshipID int, stage *models.Stage) (*models.Stage, error) {
	champ, err := s.GetByID(ctx, championshipID)
	if err != nil {
		return nil, err
	}
	if champ.Closed {
		return nil, ErrChampionshipClosed
	}

	stage.ChampionshipID = championshipID
	stage.Version = 0

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.stageRepo.Create(ctx, tx, stage); err != nil {
		return nil, fmt.Errorf("failed to create stage: %w", err)
	}
	if err := s.materializeStageMatches(ctx, tx, champ, stage); err != nil {
		return nil, err
	}
	// Документ перезаписывается с проставленными id матчей; Create уже
	// сохранил исходный, поэтому версия уходит на 1.
	if err := s.stageRepo.UpdateDocument(ctx, tx, stage); err != nil {
		return nil, err
	}
	if err := s.championshipRepo.AppendStageID(ctx, tx, championshipID, stage.ID); err != nil {
		return nil, fmt.Errorf("failed to append stage to championship: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit stage: %w", err)
	}
	return stage, nil
}

func (s *championshipService) materializeStageMatches(ctx context.Context, exec repositories.SQLExecutor, champ *models.Championship, stage *models.Stage) error {
	create := func() (*models.Match, error) {
		match := &models.Match{
			StageID: stage.ID,
			Doubles: champ.Doubles,
			Gender:  champ.Rules.Gender,
			Status:  models.MatchScheduled,
		}
		if err := s.matchRepo.Create(ctx, exec, match); err != nil {
			return nil, fmt.Errorf("failed to create stage match: %w", err)
		}
		return match, nil
	}

	doc := &stage.Document
	for gi := range doc.Groups {
		group := &doc.Groups[gi]
		for mi := range group.Matches {
			match, err := create()
			if err != nil {
				return err
			}
			group.Matches[mi].MatchID = match.ID
			match.Side1 = group.Slots[group.Matches[mi].SlotA].Players
			match.Side2 = group.Slots[group.Matches[mi].SlotB].Players
			if err := s.matchRepo.UpdateSides(ctx, exec, match.ID, match.Side1, match.Side2); err != nil {
				return fmt.Errorf("failed to seed match %d sides: %w", match.ID, err)
			}
		}
	}
	for ri := range doc.Rounds {
		for mi := range doc.Rounds[ri].Matches {
			em := &doc.Rounds[ri].Matches[mi]
			match, err := create()
			if err != nil {
				return err
			}
			em.MatchID = match.ID
			if err := s.matchRepo.UpdateSides(ctx, exec, match.ID, em.SideA.Players, em.SideB.Players); err != nil {
				return fmt.Errorf("failed to seed match %d sides: %w", match.ID, err)
			}
		}
	}
	return nil
}

func (s *championshipService) ProcessStart(ctx context.Context, championshipID int) (*brackets.NormalizeResult, []models.DomainEvent, error) {
	champ, err := s.GetByID(ctx, championshipID)
	if err != nil {
		return nil, nil, err
	}
	if champ.Closed {
		return nil, nil, ErrChampionshipClosed
	}
	if len(champ.StageIDs) == 0 {
		return nil, nil, ErrChampionshipNoStages
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

		result := brackets.Normalize(&stage.Document, stage.Kind, champ.SeatsPerSlot(), now)
		if !result.Changed() {
			// Нечего менять: повторный запуск нормализации — no-op.
			return &result, nil, nil
		}

		commitErr := s.commitNormalization(ctx, champ, stage, result)
		if commitErr != nil {
			if errors.Is(commitErr, repositories.ErrStageVersionConflict) {
				continue
			}
			return nil, nil, commitErr
		}

		events := []models.DomainEvent{
			newEvent(models.EventStageNormalized, champ.ID, 0, result),
		}
		return &result, events, nil
	}
	return nil, nil, ErrStageWriteConflict
}

func (s *championshipService) commitNormalization(ctx context.Context, champ *models.Championship, stage *models.Stage, result brackets.NormalizeResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.stageRepo.UpdateDocument(ctx, tx, stage); err != nil {
		return err
	}
	if len(result.RemovedMatchIDs) > 0 {
		if err := s.matchRepo.DeleteByIDs(ctx, tx, result.RemovedMatchIDs); err != nil {
			return fmt.Errorf("failed to delete matches of disqualified slots: %w", err)
		}
		if err := s.enrollmentRepo.RemoveMatchIDs(ctx, tx, champ.ID, result.RemovedMatchIDs); err != nil {
			return fmt.Errorf("failed to detach removed matches from enrollments: %w", err)
		}
	}
	// Слитые пары получают объединённый состав и в хранилище матчей.
	if result.PairedSlots > 0 || result.MergedGroups > 0 {
		if err := s.rewriteAllMatchSides(ctx, tx, stage); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit normalization: %w", err)
	}
	return nil
}

// rewriteAllMatchSides переписывает составы всех матчей кругового этапа
// по текущему документу.
func (s *championshipService) rewriteAllMatchSides(ctx context.Context, exec repositories.SQLExecutor, stage *models.Stage) error {
	for gi := range stage.Document.Groups {
		group := &stage.Document.Groups[gi]
		for _, ref := range group.Matches {
			side1 := group.Slots[ref.SlotA].Players
			side2 := group.Slots[ref.SlotB].Players
			if err := s.matchRepo.UpdateSides(ctx, exec, ref.MatchID, side1, side2); err != nil {
				if errors.Is(err, repositories.ErrMatchNotFound) {
					continue
				}
				return fmt.Errorf("failed to rewrite match %d sides: %w", ref.MatchID, err)
			}
		}
	}
	return nil
}

func (s *championshipService) Close(ctx context.Context, championshipID int) (map[int]int, []models.DomainEvent, error) {
	champ, err := s.GetByID(ctx, championshipID)
	if err != nil {
		return nil, nil, err
	}
	if champ.Closed {
		return nil, nil, ErrChampionshipClosed
	}
	if len(champ.StageIDs) == 0 {
		return nil, nil, ErrChampionshipNoStages
	}

	// Итоги подводятся только по последнему этапу.
	lastStageID := champ.StageIDs[len(champ.StageIDs)-1]
	stage, err := s.stageRepo.GetByID(ctx, lastStageID)
	if err != nil {
		if errors.Is(err, repositories.ErrStageNotFound) {
			return nil, nil, ErrStageNotFound
		}
		return nil, nil, fmt.Errorf("failed to load last stage: %w", err)
	}

	matches, err := s.matchRepo.ListByStage(ctx, stage.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list matches of stage %d: %w", stage.ID, err)
	}
	byID := make(map[int]*models.Match, len(matches))
	for i := range matches {
		byID[matches[i].ID] = &matches[i]
	}

	var positions map[int]int
	switch stage.Kind {
	case models.StageElimination:
		positions, err = brackets.EliminationPlacements(stage.Document.Rounds, byID)
	case models.StageRoundRobin:
		positions, err = brackets.RoundRobinPlacements(&stage.Document, byID)
	default:
		err = fmt.Errorf("unknown stage kind %q", stage.Kind)
	}
	if err != nil {
		return nil, nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.points.AwardPositionPoints(ctx, tx, champ, positions); err != nil {
		return nil, nil, err
	}
	if err := s.championshipRepo.MarkClosed(ctx, tx, champ.ID); err != nil {
		return nil, nil, fmt.Errorf("failed to mark championship %d closed: %w", champ.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit championship closing: %w", err)
	}

	s.logger.Info("championship closed",
		slog.Int("championship_id", champ.ID),
		slog.Int("players_awarded", len(positions)))

	events := []models.DomainEvent{
		newEvent(models.EventChampionshipClosed, champ.ID, 0, positions),
	}
	return positions, events, nil
}

func (s *championshipService) UploadPoster(ctx context.Context, championshipID int, contentType string, file io.Reader) (*models.Championship, error) {
	champ, err := s.GetByID(ctx, championshipID)
	if err != nil {
		return nil, err
	}
	if s.uploader == nil {
		return nil, ErrForbiddenOperation
	}

	key := fmt.Sprintf("championships/%d/poster", championshipID)
	uploaded, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload poster: %w", err)
	}
	if champ.PosterKey != nil && *champ.PosterKey != uploaded.Key {
		if delErr := s.uploader.Delete(ctx, *champ.PosterKey); delErr != nil {
			s.logger.Warn("failed to delete previous poster",
				slog.String("key", *champ.PosterKey), slog.Any("error", delErr))
		}
	}
	if err := s.championshipRepo.UpdatePosterKey(ctx, championshipID, &uploaded.Key); err != nil {
		return nil, fmt.Errorf("failed to save poster key: %w", err)
	}
	champ.PosterKey = &uploaded.Key
	s.attachPosterURL(champ)
	return champ, nil
}

func (s *championshipService) attachPosterURL(champ *models.Championship) {
	if champ.PosterKey == nil || s.uploader == nil {
		return
	}
	url := s.uploader.GetPublicURL(*champ.PosterKey)
	champ.PosterURL = &url
}
