package services

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/clubpadel/championship-system/brackets"
	"github.com/clubpadel/championship-system/models"
)

// Notifier доставляет доменные события подписчикам. Доставка
// fire-and-forget: сбой уведомления никогда не влияет на исход операции.
type Notifier interface {
	Dispatch(ctx context.Context, events []models.DomainEvent)
}

type hubNotifier struct {
	hub    *brackets.Hub
	logger *slog.Logger
}

func NewHubNotifier(hub *brackets.Hub, logger *slog.Logger) Notifier {
	return &hubNotifier{hub: hub, logger: logger}
}

// Dispatch рассылает события в комнату чемпионата. Комнаты ключуются
// идентификатором чемпионата.
func (n *hubNotifier) Dispatch(ctx context.Context, events []models.DomainEvent) {
	for _, event := range events {
		room := championshipRoom(event.ChampionshipID)
		n.hub.BroadcastToRoom(room, brackets.WebSocketMessage{
			Type:    string(event.Type),
			Payload: event,
		})
		n.logger.Debug("domain event dispatched",
			slog.String("type", string(event.Type)),
			slog.String("room", room),
			slog.Int("target_player_id", event.TargetPlayerID))
	}
}

func championshipRoom(championshipID int) string {
	return "championship:" + strconv.Itoa(championshipID)
}
