package amqp

import (
	"encoding/json"
	"time"
)

// ExpenseRecordedMessage tells the ledger worker that an expense is ready for
// export. It carries only the id and version; the worker fetches the full
// expense from the database, so a stale message never exports stale data.
type ExpenseRecordedMessage struct {
	ID        string    `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseRecordedMessage creates a message for a freshly stored expense.
func NewExpenseRecordedMessage(id string, version int64) *ExpenseRecordedMessage {
	return &ExpenseRecordedMessage{
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseRecordedMessageFromJSON creates a message from JSON bytes
func ExpenseRecordedMessageFromJSON(data []byte) (*ExpenseRecordedMessage, error) {
	var msg ExpenseRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
