package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// Record kinds and operations carried by change events.
const (
	KindAccount     = "account"
	KindTransaction = "transaction"
	KindValuation   = "valuation"
	KindConfig      = "config"
	KindAll         = "all"

	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpReset  = "reset"
)

// ChangeEvent tells consumers that records changed. It carries only the
// identity of the change; consumers read the current state from the store.
type ChangeEvent struct {
	Kind      string    `json:"kind"`
	Op        string    `json:"op"`
	ID        string    `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeEvent(kind, op, id string) ChangeEvent {
	return ChangeEvent{
		Kind:      kind,
		Op:        op,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ChangeEventFromJSON decodes an event and rejects events without kind or op.
func ChangeEventFromJSON(data []byte) (ChangeEvent, error) {
	var e ChangeEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return ChangeEvent{}, err
	}
	if e.Kind == "" || e.Op == "" {
		return ChangeEvent{}, errors.New("change event without kind or op")
	}
	return e, nil
}
