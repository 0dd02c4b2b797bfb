package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
)

type versionKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry turns consumed message bodies back into typed payloads.
// It starts with the v1 decoder of every catalog event.
type DecoderRegistry struct {
	mu       sync.RWMutex
	decoders map[versionKey]decoderFunc
}

func NewDecoderRegistry() *DecoderRegistry {
	r := &DecoderRegistry{decoders: make(map[versionKey]decoderFunc, len(catalog))}
	for _, e := range catalog {
		r.decoders[versionKey{e.eventType, 1}] = e.decode
	}
	return r
}

// Register adds or replaces the decoder for one payload version.
func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decode func(json.RawMessage) (any, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[versionKey{eventType, version}] = decode
}

func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error) {
	r.mu.RLock()
	decode, ok := r.decoders[versionKey{eventType, version}]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no decoder for %s v%d", eventType, version)
	}
	return decode(payload)
}
