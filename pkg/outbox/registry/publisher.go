package registry

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/oddspool/oddspool-backend/pkg/config"
	"github.com/oddspool/oddspool-backend/pkg/db/models"
	"github.com/oddspool/oddspool-backend/pkg/enums"
	"github.com/oddspool/oddspool-backend/pkg/outbox"
	"github.com/oddspool/oddspool-backend/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its aggregate, channel, and payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Channel        string
	PayloadFactory func() interface{}
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
}

// Message is the wire shape published for UI refresh consumers.
type Message struct {
	EventID       string                    `json:"event_id"`
	EventType     enums.OutboxEventType     `json:"event_type"`
	AggregateType enums.OutboxAggregateType `json:"aggregate_type"`
	AggregateID   uuid.UUID                 `json:"aggregate_id"`
	Version       int                       `json:"version"`
	OccurredAt    string                    `json:"occurred_at"`
	Data          json.RawMessage           `json:"data"`
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

// Error implements error.
func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewEventRegistry builds the registry, routing every event to the configured channel.
func NewEventRegistry(cfg config.OutboxConfig) (*EventRegistry, error) {
	if cfg.Channel == "" {
		return nil, fmt.Errorf("outbox channel is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	marketChannel := cfg.Channel
	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventStakePlaced,
			AggregateType:  enums.AggregateStake,
			PayloadFactory: func() interface{} { return &payloads.StakePlacedEvent{} },
		},
		{
			EventType:      enums.EventPromoRedeemed,
			AggregateType:  enums.AggregatePromoCode,
			PayloadFactory: func() interface{} { return &payloads.PromoRedeemedEvent{} },
		},
		{
			EventType:      enums.EventStakeSettled,
			AggregateType:  enums.AggregateStake,
			PayloadFactory: func() interface{} { return &payloads.StakeSettledEvent{} },
		},
		{
			EventType:      enums.EventMarketSettled,
			AggregateType:  enums.AggregateMarket,
			PayloadFactory: func() interface{} { return &payloads.MarketSettledEvent{} },
		},
		{
			EventType:      enums.EventPoolDriftDetected,
			AggregateType:  enums.AggregateMarket,
			PayloadFactory: func() interface{} { return &payloads.PoolDriftDetectedEvent{} },
		},
	} {
		desc.Channel = marketChannel
		reg.register(desc)
	}

	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("%s: %w", event.EventType, err))
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}

// Encode renders the message published on the descriptor's channel.
func (e *ResolvedEvent) Encode(row models.OutboxEvent) ([]byte, error) {
	msg := Message{
		EventID:       e.Envelope.EventID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Version:       e.Envelope.Version,
		OccurredAt:    e.Envelope.OccurredAt.UTC().Format("2006-01-02T15:04:05.999999999Z07:00"),
		Data:          e.Envelope.Data,
	}
	return json.Marshal(msg)
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}
