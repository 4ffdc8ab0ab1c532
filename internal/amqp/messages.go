package amqp

import (
	"encoding/json"
	"time"
)

// Rollup actions carried on the wire.
const (
	ActionCreate = "create"
	ActionDelete = "delete"
)

// RollupMessage tells the worker a (user, day) rollup may be stale.
// It carries only identifiers; the worker re-derives the balance from
// the transactions table.
type RollupMessage struct {
	TransactionID string    `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	DateKey       string    `json:"date_key"`
	Action        string    `json:"action"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewRollupMessage(transactionID, userID, dateKey, action string) *RollupMessage {
	return &RollupMessage{
		TransactionID: transactionID,
		UserID:        userID,
		DateKey:       dateKey,
		Action:        action,
		Timestamp:     time.Now(),
	}
}

func (m *RollupMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RollupMessageFromJSON(data []byte) (*RollupMessage, error) {
	var msg RollupMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
