package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnvelopeVersion is written on every new row. Rows without a version predate
// versioning and are read as version 1.
const EnvelopeVersion = 1

// ErrMalformedEnvelope marks payloads that can never be delivered.
var ErrMalformedEnvelope = errors.New("malformed outbox envelope")

// ActorRef identifies who produced the event.
type ActorRef struct {
	UserID    uuid.UUID  `json:"userId"`
	CompanyID *uuid.UUID `json:"companyId,omitempty"`
	Role      string     `json:"role,omitempty"`
}

// PayloadEnvelope is the JSON document stored in outbox_events.payload and
// published verbatim as the message body.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// DecodeEnvelope parses raw and checks the fields every consumer relies on.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.Version == 0 {
		env.Version = 1
	}
	if _, err := uuid.Parse(env.EventID); err != nil {
		return env, fmt.Errorf("%w: event id %q", ErrMalformedEnvelope, env.EventID)
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return env, fmt.Errorf("%w: no data", ErrMalformedEnvelope)
	}
	return env, nil
}
