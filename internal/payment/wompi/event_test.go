package wompi

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testEvent() Event {
	return Event{
		Event: "transaction.updated",
		Data: EventData{Transaction: Transaction{
			ID:            "tx-1",
			Reference:     "ref-1",
			Status:        "APPROVED",
			AmountInCents: 200000,
		}},
		Timestamp: 1757000000,
		Signature: Signature{
			Properties: []string{"transaction.id", "transaction.status", "transaction.amount_in_cents"},
		},
	}
}

func sign(e *Event, secret string) {
	payload := fmt.Sprintf("%s%s%d%d%s",
		e.Data.Transaction.ID,
		e.Data.Transaction.Status,
		e.Data.Transaction.AmountInCents,
		e.Timestamp,
		secret)
	sum := sha256.Sum256([]byte(payload))
	e.Signature.Checksum = hex.EncodeToString(sum[:])
}

func TestVerifyChecksum(t *testing.T) {
	event := testEvent()
	sign(&event, "secret")

	assert.NoError(t, event.VerifyChecksum("secret"))
}

func TestVerifyChecksumCaseInsensitive(t *testing.T) {
	event := testEvent()
	sign(&event, "secret")
	event.Signature.Checksum = strings.ToUpper(event.Signature.Checksum)

	assert.NoError(t, event.VerifyChecksum("secret"))
}

func TestVerifyChecksumMismatch(t *testing.T) {
	event := testEvent()
	sign(&event, "secret")
	event.Data.Transaction.Status = "DECLINED" // tampered after signing

	assert.Error(t, event.VerifyChecksum("secret"))
}

func TestVerifyChecksumWrongSecret(t *testing.T) {
	event := testEvent()
	sign(&event, "secret")

	assert.Error(t, event.VerifyChecksum("other"))
}

func TestVerifyChecksumDisabledWithoutSecret(t *testing.T) {
	event := testEvent()
	event.Signature.Checksum = "garbage"

	assert.NoError(t, event.VerifyChecksum(""))
}

func TestVerifyChecksumUnknownProperty(t *testing.T) {
	event := testEvent()
	event.Signature.Properties = []string{"transaction.customer_email"}
	sign(&event, "secret")

	assert.Error(t, event.VerifyChecksum("secret"))
}
