package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/speakcast/speakcast/internal/codec"
	"github.com/speakcast/speakcast/internal/tts"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// collaborator slot. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tts   map[string]func(ProviderEntry) (tts.Provider, error)
	codec map[string]func(ProviderEntry) (codec.Encoder, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		tts:   make(map[string]func(ProviderEntry) (tts.Provider, error)),
		codec: make(map[string]func(ProviderEntry) (codec.Encoder, error)),
	}
}

// RegisterTTS registers a TTS provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterTTS(name string, factory func(ProviderEntry) (tts.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts[name] = factory
}

// RegisterCodec registers an audio codec factory under name.
func (r *Registry) RegisterCodec(name string, factory func(ProviderEntry) (codec.Encoder, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codec[name] = factory
}

// CreateTTS instantiates a TTS provider using the factory registered under entry.Name.
// Returns [ErrProviderNotRegistered] if no factory has been registered for that name.
func (r *Registry) CreateTTS(entry ProviderEntry) (tts.Provider, error) {
	r.mu.RLock()
	factory, ok := r.tts[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: tts/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateCodec instantiates an audio codec encoder using the factory registered under entry.Name.
func (r *Registry) CreateCodec(entry ProviderEntry) (codec.Encoder, error) {
	r.mu.RLock()
	factory, ok := r.codec[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: codec/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
