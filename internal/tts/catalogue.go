package tts

import (
	"context"
	"fmt"
	"sync"
)

// Catalogue is the explicit, initialized-once-at-startup voice cache spec §9
// calls for ("accessed through a single handle", not a hidden singleton).
// It wraps a Provider's ListVoices result and can be refreshed on demand.
type Catalogue struct {
	mu       sync.RWMutex
	provider Provider
	voices   []Voice
	byID     map[string]Voice
}

// NewCatalogue populates a Catalogue from provider.ListVoices at startup.
func NewCatalogue(ctx context.Context, provider Provider) (*Catalogue, error) {
	c := &Catalogue{provider: provider}
	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Refresh re-queries the provider and replaces the cached voice list.
func (c *Catalogue) Refresh(ctx context.Context) error {
	voices, err := c.provider.ListVoices(ctx)
	if err != nil {
		return fmt.Errorf("tts: refresh voice catalogue: %w", err)
	}
	byID := make(map[string]Voice, len(voices))
	for _, v := range voices {
		byID[v.ID] = v
	}
	c.mu.Lock()
	c.voices = voices
	c.byID = byID
	c.mu.Unlock()
	return nil
}

// Voices returns the cached voice list.
func (c *Catalogue) Voices() []Voice {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Voice, len(c.voices))
	copy(out, c.voices)
	return out
}

// Has reports whether voiceID is present in the cached catalogue.
func (c *Catalogue) Has(voiceID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.byID[voiceID]
	return ok
}

// Get returns the cached Voice for voiceID, if present.
func (c *Catalogue) Get(voiceID string) (Voice, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.byID[voiceID]
	return v, ok
}
