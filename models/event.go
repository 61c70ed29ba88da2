package models

import "time"

// EventType — типы доменных событий, публикуемых после мутаций.
type EventType string

const (
	EventInviteSent         EventType = "INVITE_SENT"
	EventInviteAccepted     EventType = "INVITE_ACCEPTED"
	EventInviteRejected     EventType = "INVITE_REJECTED"
	EventEnrollmentPlaced   EventType = "ENROLLMENT_PLACED"
	EventStageNormalized    EventType = "STAGE_NORMALIZED"
	EventMatchScored        EventType = "MATCH_SCORED"
	EventChampionshipClosed EventType = "CHAMPIONSHIP_CLOSED"
)

// DomainEvent возвращается сервисами ядра вместо прямой отправки
// уведомлений: доставкой занимается отдельный диспетчер, её сбои
// не влияют на результат операции.
type DomainEvent struct {
	ID             string      `json:"id"`
	Type           EventType   `json:"type"`
	ChampionshipID int         `json:"championship_id"`
	TargetPlayerID int         `json:"target_player_id,omitempty"`
	Payload        interface{} `json:"payload,omitempty"`
	OccurredAt     time.Time   `json:"occurred_at"`
}
