package outbox

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnvelopeVersion is stamped on every new row; readers accept 1..EnvelopeVersion.
const EnvelopeVersion = 1

// ActorRef names the account whose action produced the event.
type ActorRef struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role,omitempty"`
}

// PayloadEnvelope is what outbox_events.payload holds: an id for consumer
// dedupe, the event time and the typed body as raw JSON.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"event_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

func newEnvelope(data any, occurredAt time.Time, actor *ActorRef) ([]byte, PayloadEnvelope, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, PayloadEnvelope{}, fmt.Errorf("marshal event data: %w", err)
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	env := PayloadEnvelope{
		Version:    EnvelopeVersion,
		EventID:    uuid.NewString(),
		OccurredAt: occurredAt.UTC(),
		Actor:      actor,
		Data:       body,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, PayloadEnvelope{}, fmt.Errorf("marshal envelope: %w", err)
	}
	return raw, env, nil
}

// DecodeEnvelope parses a stored payload and rejects envelopes a publisher cannot forward.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Version < 1 || env.Version > EnvelopeVersion {
		return env, fmt.Errorf("unsupported envelope version %d", env.Version)
	}
	if env.EventID == "" {
		return env, fmt.Errorf("envelope missing event_id")
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return env, fmt.Errorf("envelope missing data")
	}
	return env, nil
}
