package models

import "fmt"

// ============================================================
// Realtime Events
// ============================================================

type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

func ParseEventType(raw string) (EventType, error) {
	switch t := EventType(raw); t {
	case EventInsert, EventUpdate, EventDelete:
		return t, nil
	default:
		return "", fmt.Errorf("unknown event type %q", raw)
	}
}

// Event: уведомление об изменении строки. Для delete в Row есть как минимум ID.
type Event struct {
	Type EventType `json:"type"`
	Row  Item      `json:"row"`
}
