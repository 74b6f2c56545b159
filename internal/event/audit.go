package event

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditRecord captures a consumer failure so operators can inspect and
// re-drive the message. Deliveries are acked either way; the audit row is
// what keeps a failed message from disappearing.
type AuditRecord struct {
	ID           uuid.UUID
	RoutingKey   string
	FunctionName string
	Payload      json.RawMessage
	Error        string
	Environment  string
	ContentHash  string
	CreatedAt    time.Time
}

type AuditRepository interface {
	SaveAuditRecord(ctx context.Context, rec *AuditRecord) error
}

// NewAuditRecord fingerprints the payload so repeated failures of the same
// message are recognizable across redeliveries.
func NewAuditRecord(routingKey, functionName string, payload []byte, handlerErr error, environment string) *AuditRecord {
	hash := sha256.Sum256(payload)
	errMsg := ""
	if handlerErr != nil {
		errMsg = handlerErr.Error()
	}
	return &AuditRecord{
		ID:           uuid.New(),
		RoutingKey:   routingKey,
		FunctionName: functionName,
		Payload:      json.RawMessage(payload),
		Error:        errMsg,
		Environment:  environment,
		ContentHash:  hex.EncodeToString(hash[:]),
		CreatedAt:    time.Now(),
	}
}
