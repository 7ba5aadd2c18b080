// Package audio implements the Audio Assembler (spec §4.6, component C6):
// validating the TTS collaborator's PCM contract, concatenating per-chunk
// audio sample-accurately, and delegating re-encoding to a codec.Encoder.
package audio

import (
	"fmt"

	"github.com/speakcast/speakcast/internal/model/apperr"
)

// Contract is the fixed PCM format every TTS chunk must satisfy (spec §4.6
// "24 kHz, mono, 16-bit by contract of the TTS collaborator").
const (
	ContractSampleRate = 24000
	ContractChannels   = 1
	ContractBitDepth   = 16
)

// ValidateContract checks that pcm is a well-formed sequence of 16-bit mono
// samples at the contract sample rate. Since raw PCM bytes carry no header,
// the only checkable invariant is byte alignment (an odd length can't be
// whole int16 samples); sample rate and channel count are asserted by the
// caller having requested them from the Provider, matching the teacher's
// own FormatConverter pattern of validating PCM alignment before use
// (pkg/audio/convert.go).
func ValidateContract(pcm []byte) error {
	if len(pcm)%2 != 0 {
		return fmt.Errorf("audio: pcm byte length %d is not a whole number of 16-bit samples: %w", len(pcm), apperr.ErrAudioContractMismatch)
	}
	return nil
}

// DurationSecs returns the playback duration of pcm at the contract sample
// rate, used to populate Chunk.DurationSecs and Episode.TotalDurationSecs.
func DurationSecs(pcm []byte) float64 {
	samples := len(pcm) / 2
	return float64(samples) / float64(ContractSampleRate)
}

// ResampleMono16 resamples 16-bit mono PCM from srcRate to dstRate using
// linear interpolation, adapted from the teacher's pkg/audio/convert.go. It
// converts PCM whose sample rate differs from the contract; ValidateContract
// cannot detect such a mismatch, since raw PCM carries no sample rate.
func ResampleMono16(pcm []byte, srcRate, dstRate int) []byte {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate || len(pcm) < 2 {
		return pcm
	}
	srcSamples := len(pcm) / 2
	dstSamples := int(int64(srcSamples) * int64(dstRate) / int64(srcRate))
	if dstSamples == 0 {
		return nil
	}

	out := make([]byte, dstSamples*2)
	ratio := float64(srcRate) / float64(dstRate)

	for i := 0; i < dstSamples; i++ {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := int16(pcm[srcIdx*2]) | int16(pcm[srcIdx*2+1])<<8
		var s1 int16
		if srcIdx+1 < srcSamples {
			s1 = int16(pcm[(srcIdx+1)*2]) | int16(pcm[(srcIdx+1)*2+1])<<8
		} else {
			s1 = s0
		}

		interpolated := int16(float64(s0)*(1-frac) + float64(s1)*frac)
		out[i*2] = byte(interpolated)
		out[i*2+1] = byte(interpolated >> 8)
	}
	return out
}
