// Package codec defines the narrow collaborator interface over audio codec
// encoders (spec §1 "explicitly out of scope: audio codec encoders for
// MP3/Opus/FLAC, consumed as encode(pcm, format) → bytes").
package codec

import "context"

// Encoder converts 24kHz mono 16-bit PCM samples (the assembled episode's
// internal format, spec §4.6) into a requested output container/codec.
type Encoder interface {
	// Encode converts pcm (little-endian int16 samples) into the encoder's
	// output format and returns the encoded bytes.
	Encode(ctx context.Context, pcm []byte) ([]byte, error)

	// Format returns the output_format name this encoder produces (e.g.
	// "opus", "mp3"), matching Episode.OutputFormat.
	Format() string
}
