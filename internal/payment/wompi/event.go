package wompi

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Event is the webhook payload the gateway posts on transaction updates.
type Event struct {
	Event     string    `json:"event"`
	Data      EventData `json:"data"`
	Signature Signature `json:"signature"`
	Timestamp int64     `json:"timestamp"`
}

type EventData struct {
	Transaction Transaction `json:"transaction"`
}

type Transaction struct {
	ID            string `json:"id"`
	Reference     string `json:"reference"`
	Status        string `json:"status"`
	AmountInCents int64  `json:"amount_in_cents"`
}

type Signature struct {
	Properties []string `json:"properties"`
	Checksum   string   `json:"checksum"`
}

// VerifyChecksum recomputes the event checksum from the signed transaction
// properties, the event timestamp and the shared events secret. An empty
// secret disables verification, for local setups without one configured.
func (e *Event) VerifyChecksum(secret string) error {
	if secret == "" {
		return nil
	}

	var sb strings.Builder
	for _, prop := range e.Signature.Properties {
		val, err := e.propertyValue(prop)
		if err != nil {
			return err
		}
		sb.WriteString(val)
	}
	sb.WriteString(fmt.Sprintf("%d", e.Timestamp))
	sb.WriteString(secret)

	sum := sha256.Sum256([]byte(sb.String()))
	computed := hex.EncodeToString(sum[:])

	if !strings.EqualFold(computed, e.Signature.Checksum) {
		return fmt.Errorf("event checksum mismatch")
	}
	return nil
}

func (e *Event) propertyValue(prop string) (string, error) {
	switch prop {
	case "transaction.id":
		return e.Data.Transaction.ID, nil
	case "transaction.reference":
		return e.Data.Transaction.Reference, nil
	case "transaction.status":
		return e.Data.Transaction.Status, nil
	case "transaction.amount_in_cents":
		return fmt.Sprintf("%d", e.Data.Transaction.AmountInCents), nil
	default:
		return "", fmt.Errorf("unknown signed property %q", prop)
	}
}
