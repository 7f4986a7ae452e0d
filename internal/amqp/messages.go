package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"budgetbook/internal/remote"
)

// RowMessage carries one mirrored transaction to the worker.
type RowMessage struct {
	Text      string      `json:"text"`
	Amount    json.Number `json:"amount"`
	CreatedAt time.Time   `json:"created_at"`
}

func NewRowMessage(text string, amount decimal.Decimal, createdAt time.Time) *RowMessage {
	return &RowMessage{
		Text:      text,
		Amount:    json.Number(amount.String()),
		CreatedAt: createdAt,
	}
}

// ToJSON converts the message to JSON bytes
func (m *RowMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Row converts the message into the remote row it describes.
func (m *RowMessage) Row() (remote.Row, error) {
	amount, err := decimal.NewFromString(m.Amount.String())
	if err != nil {
		return remote.Row{}, fmt.Errorf("invalid amount %q", m.Amount)
	}
	r := remote.Row{Text: m.Text, Amount: amount, CreatedAt: m.CreatedAt}
	if err := r.Validate(); err != nil {
		return remote.Row{}, err
	}
	return r, nil
}

// RowMessageFromJSON decodes and validates a message body.
func RowMessageFromJSON(data []byte) (*RowMessage, error) {
	var msg RowMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Amount == "" {
		return nil, errors.New("missing amount")
	}
	if _, err := msg.Row(); err != nil {
		return nil, err
	}
	return &msg, nil
}
