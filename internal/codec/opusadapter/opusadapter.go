// Package opusadapter implements codec.Encoder for the "opus" output format
// using layeh.com/gopus, the same Opus binding the teacher uses for its
// Discord voice path (pkg/audio/discord/opus.go). Episodes are assembled
// internally as 24kHz mono PCM (spec §4.6), unlike the teacher's 48kHz
// stereo Discord stream, so the sample rate/channel count differ but the
// encode/decode call shape is the same.
package opusadapter

import (
	"context"
	"fmt"

	"layeh.com/gopus"

	"github.com/speakcast/speakcast/internal/codec"
)

const (
	sampleRate  = 24000
	channels    = 1
	frameMs     = 20
	frameSize   = sampleRate * frameMs / 1000 // 480 samples per frame
)

// Encoder implements codec.Encoder backed by a gopus Opus encoder.
type Encoder struct {
	enc *gopus.Encoder
}

// New constructs an Opus Encoder configured for 24kHz mono audio.
func New() (*Encoder, error) {
	enc, err := gopus.NewEncoder(sampleRate, channels, gopus.Audio)
	if err != nil {
		return nil, fmt.Errorf("opusadapter: create encoder: %w", err)
	}
	return &Encoder{enc: enc}, nil
}

// Encode splits pcm into fixed-size Opus frames and concatenates the encoded
// packets, each length-prefixed so a decoder can recover frame boundaries.
func (e *Encoder) Encode(_ context.Context, pcm []byte) ([]byte, error) {
	samples := bytesToInt16s(pcm)
	var out []byte
	for offset := 0; offset < len(samples); offset += frameSize {
		end := offset + frameSize
		frame := samples[offset:min(end, len(samples))]
		if len(frame) < frameSize {
			padded := make([]int16, frameSize)
			copy(padded, frame)
			frame = padded
		}
		packet, err := e.enc.Encode(frame, frameSize, len(frame)*2)
		if err != nil {
			return nil, fmt.Errorf("opusadapter: encode frame at sample %d: %w", offset, err)
		}
		out = append(out, lengthPrefix(len(packet))...)
		out = append(out, packet...)
	}
	return out, nil
}

// Format returns "opus".
func (e *Encoder) Format() string { return "opus" }

func lengthPrefix(n int) []byte {
	return []byte{byte(n), byte(n >> 8), byte(n >> 16), byte(n >> 24)}
}

func bytesToInt16s(b []byte) []int16 {
	pcm := make([]int16, len(b)/2)
	for i := range pcm {
		pcm[i] = int16(b[i*2]) | int16(b[i*2+1])<<8
	}
	return pcm
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

var _ codec.Encoder = (*Encoder)(nil)
