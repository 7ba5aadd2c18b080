// Package mock provides a test double for the tts.Provider interface,
// mirroring the teacher's pkg/provider/tts/mock test-double style adapted to
// a blocking call instead of a streaming channel.
package mock

import (
	"context"
	"sync"

	"github.com/speakcast/speakcast/internal/tts"
)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	Text    string
	VoiceID string
}

// Provider is a mock implementation of tts.Provider.
type Provider struct {
	mu sync.Mutex

	// SynthesizeResult is returned by Synthesize, unless SynthesizeErr is set.
	SynthesizeResult []byte
	SynthesizeErr    error

	// ListVoicesResult is returned by ListVoices.
	ListVoicesResult []tts.Voice
	ListVoicesErr    error

	SynthesizeCalls []SynthesizeCall
}

// Synthesize records the call and returns SynthesizeResult, SynthesizeErr.
func (p *Provider) Synthesize(_ context.Context, text string, voiceID string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SynthesizeCalls = append(p.SynthesizeCalls, SynthesizeCall{Text: text, VoiceID: voiceID})
	if p.SynthesizeErr != nil {
		return nil, p.SynthesizeErr
	}
	out := make([]byte, len(p.SynthesizeResult))
	copy(out, p.SynthesizeResult)
	return out, nil
}

// ListVoices returns ListVoicesResult, ListVoicesErr.
func (p *Provider) ListVoices(_ context.Context) ([]tts.Voice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ListVoicesResult, p.ListVoicesErr
}

// Reset clears all recorded calls.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SynthesizeCalls = nil
}

var _ tts.Provider = (*Provider)(nil)
