package amqp

import (
	"encoding/json"
	"time"

	"backoffice/internal/ledger"
)

// LedgerEntryMessage carries a full history entry to the mirror worker.
type LedgerEntryMessage struct {
	Entry       ledger.Entry `json:"entry"`
	PublishedAt time.Time    `json:"publishedAt"`
}

func NewLedgerEntryMessage(e ledger.Entry) *LedgerEntryMessage {
	return &LedgerEntryMessage{
		Entry:       e,
		PublishedAt: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEntryMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEntryMessageFromJSON decodes a message, including typed snapshots.
func LedgerEntryMessageFromJSON(data []byte) (*LedgerEntryMessage, error) {
	var msg LedgerEntryMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
