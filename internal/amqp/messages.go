package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// TransactionCreatedMessage announces a transaction that should be checked
// against the cashback offers. The worker loads the full record from the
// shared database by ID.
type TransactionCreatedMessage struct {
	TransactionID string    `json:"transactionId"`
	MerchantName  string    `json:"merchantName"`
	AmountCents   int64     `json:"amountCents"`
	Source        string    `json:"source"`
	Timestamp     time.Time `json:"timestamp"`
}

// Message sources.
const (
	SourceWebhook = "webhook"
	SourceManual  = "manual"
	SourceReceipt = "receipt"
)

var errMissingTransactionID = errors.New("message has no transaction id")

func NewTransactionCreatedMessage(id, merchant string, amountCents int64, source string) *TransactionCreatedMessage {
	return &TransactionCreatedMessage{
		TransactionID: id,
		MerchantName:  merchant,
		AmountCents:   amountCents,
		Source:        source,
		Timestamp:     time.Now(),
	}
}

func (m *TransactionCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionCreatedMessageFromJSON decodes and validates a message body.
func TransactionCreatedMessageFromJSON(data []byte) (*TransactionCreatedMessage, error) {
	var msg TransactionCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.TransactionID == "" {
		return nil, errMissingTransactionID
	}
	return &msg, nil
}
