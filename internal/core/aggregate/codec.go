package aggregate

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Codec maps event type tags to payload factories.
type Codec struct {
	mu        sync.RWMutex
	factories map[string]func() Payload
}

// NewCodec creates an empty codec.
func NewCodec() *Codec {
	return &Codec{factories: make(map[string]func() Payload)}
}

// Register adds payload factories keyed by the EventType of the value they build.
// Registering the same type twice panics: it is a wiring bug.
func (c *Codec) Register(factories ...func() Payload) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, factory := range factories {
		eventType := factory().EventType()
		if _, exists := c.factories[eventType]; exists {
			panic(fmt.Sprintf("aggregate: event type %q registered twice", eventType))
		}
		c.factories[eventType] = factory
	}
}

// Encode serializes a payload.
func (c *Codec) Encode(p Payload) (json.RawMessage, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", p.EventType(), err)
	}
	return data, nil
}

// Decode builds the registered payload for eventType and fills it from data.
func (c *Codec) Decode(eventType string, data json.RawMessage) (Payload, error) {
	c.mu.RLock()
	factory, ok := c.factories[eventType]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, eventType)
	}

	p := factory()
	if len(data) > 0 {
		if err := json.Unmarshal(data, p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s payload: %w", eventType, err)
		}
	}
	return p, nil
}
