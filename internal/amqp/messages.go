package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

type EventType string

const (
	ExpenseAdded   EventType = "expense.added"
	ExpenseDeleted EventType = "expense.deleted"
	ConfigSaved    EventType = "config.saved"
)

// RecordEvent announces that a user's records changed. It carries no amounts;
// consumers re-read the store when they need data.
type RecordEvent struct {
	Type      EventType `json:"type"`
	User      string    `json:"user"`
	ExpenseID string    `json:"expenseId,omitempty"`
	Month     string    `json:"month,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordEvent(t EventType, user string) *RecordEvent {
	return &RecordEvent{Type: t, User: user, Timestamp: time.Now()}
}

func (m *RecordEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordEventFromJSON decodes and checks the mandatory fields.
func RecordEventFromJSON(data []byte) (*RecordEvent, error) {
	var msg RecordEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case ExpenseAdded, ExpenseDeleted, ConfigSaved:
	default:
		return nil, errors.New("unknown event type " + string(msg.Type))
	}
	if msg.User == "" {
		return nil, errors.New("event without user")
	}
	return &msg, nil
}
