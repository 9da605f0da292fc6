package es

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Mapper converts typed domain events to their storable byte form and back.
// It holds the transcoder, the topic registry, and the optional compression
// and encryption stages: compress then encrypt on encode, decrypt then
// decompress on decode.
//
// Construct one Mapper at process start and share it by reference; it is
// read-only after registration completes.
type Mapper struct {
	transcoder *Transcoder
	topics     *TopicRegistry
	compressor Compressor
	cipher     Cipher
}

func NewMapper(transcoder *Transcoder, topics *TopicRegistry, opts ...MapperOption) *Mapper {
	m := &Mapper{
		transcoder: transcoder,
		topics:     topics,
	}
	for _, opt := range opts {
		opt.applyToMapper(m)
	}
	return m
}

func (m *Mapper) Transcoder() *Transcoder { return m.transcoder }
func (m *Mapper) Topics() *TopicRegistry  { return m.topics }

// encodeState serializes the event payload (meta id/version excluded by
// their field tags) and runs the optional pipeline stages.
func (m *Mapper) encodeState(ev Event) ([]byte, error) {
	state, err := m.transcoder.Encode(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.Topic(), err)
	}
	if m.compressor != nil {
		if state, err = m.compressor.Compress(state); err != nil {
			return nil, fmt.Errorf("compress %s: %w", ev.Topic(), err)
		}
	}
	if m.cipher != nil {
		if state, err = m.cipher.Encrypt(state); err != nil {
			return nil, fmt.Errorf("encrypt %s: %w", ev.Topic(), err)
		}
	}
	return state, nil
}

func (m *Mapper) decodeState(state []byte) (map[string]any, error) {
	var err error
	if m.cipher != nil {
		if state, err = m.cipher.Decrypt(state); err != nil {
			return nil, err
		}
	}
	if m.compressor != nil {
		if state, err = m.compressor.Decompress(state); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptedLog, err)
		}
	}
	return m.transcoder.Decode(state)
}

// ToStoredEvent maps a domain event to its durable form.
func (m *Mapper) ToStoredEvent(ev Event) (StoredEvent, error) {
	state, err := m.encodeState(ev)
	if err != nil {
		return StoredEvent{}, err
	}
	meta := ev.Meta()
	return StoredEvent{
		AggregateID: meta.AggregateID,
		Version:     meta.Version,
		Topic:       ev.Topic(),
		State:       state,
	}, nil
}

// ToOutboxEntry maps a domain event to its version-less delivery copy.
func (m *Mapper) ToOutboxEntry(ev Event) (OutboxEntry, error) {
	state, err := m.encodeState(ev)
	if err != nil {
		return OutboxEntry{}, err
	}
	return OutboxEntry{
		ID:          gonanoid.Must(),
		AggregateID: ev.Meta().AggregateID,
		Topic:       ev.Topic(),
		State:       state,
	}, nil
}

// FromStoredEvent reconstructs a fully-typed event from its durable form,
// resolving the concrete type from the stored topic and assigning decoded
// fields directly, bypassing normal constructors.
func (m *Mapper) FromStoredEvent(se StoredEvent) (Event, error) {
	fields, err := m.decodeState(se.State)
	if err != nil {
		return nil, err
	}
	ev, err := m.topics.New(se.Topic)
	if err != nil {
		return nil, err
	}
	if err := assignFields(ev, fields); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrCorruptedLog, se.Topic, err)
	}
	meta := ev.Meta()
	meta.AggregateID = se.AggregateID
	meta.Version = se.Version
	return ev, nil
}
