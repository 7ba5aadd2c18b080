package audio

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-audio/wav"

	"github.com/speakcast/speakcast/internal/codec"
)

// WAVEncoder implements codec.Encoder for the "wav" output_format by
// wrapping the contract PCM in a standard WAV container, using the same
// go-audio/wav writer the Assembler uses for per-chunk files. It is the
// counterpart to internal/codec/passthrough for callers that want a
// self-describing container rather than raw samples.
type WAVEncoder struct{}

// NewWAVEncoder returns a WAVEncoder.
func NewWAVEncoder() *WAVEncoder { return &WAVEncoder{} }

// Encode wraps pcm in a WAV header matching the contract sample rate, bit
// depth, and channel count.
func (e *WAVEncoder) Encode(_ context.Context, pcm []byte) ([]byte, error) {
	if err := ValidateContract(pcm); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := wav.NewEncoder(&buf, ContractSampleRate, ContractBitDepth, ContractChannels, 1)
	if err := enc.Write(pcmToIntBuffer(pcm)); err != nil {
		return nil, fmt.Errorf("audio: encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("audio: close wav encoder: %w", err)
	}
	return buf.Bytes(), nil
}

// Format returns "wav".
func (e *WAVEncoder) Format() string { return "wav" }

var _ codec.Encoder = (*WAVEncoder)(nil)
