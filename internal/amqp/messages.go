package amqp

import (
	"encoding/json"
	"time"
)

// Envelope kinds. A delivery envelope points at an outbound message row, a
// mirror envelope at a transaction waiting for the ledger mirror.
const (
	KindDelivery = "delivery"
	KindMirror   = "mirror"
)

// Envelope is the lightweight queue message. It carries only a kind and a row
// id; the worker fetches the full record from the database, so a stale or
// replayed envelope never delivers stale content.
type Envelope struct {
	Kind      string    `json:"kind"`
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEnvelope builds an envelope stamped with the current time.
func NewEnvelope(kind string, id int64) *Envelope {
	return &Envelope{Kind: kind, ID: id, Timestamp: time.Now()}
}

// ToJSON converts the envelope to JSON bytes.
func (e *Envelope) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EnvelopeFromJSON parses an envelope from JSON bytes.
func EnvelopeFromJSON(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
