package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"golang.org/x/sync/singleflight"

	"github.com/speakcast/speakcast/internal/codec"
)

// Assembler concatenates per-chunk WAV files into a single full-episode
// artifact and delegates re-encoding to a codec.Encoder (spec §4.6). Full
// assembly is computed lazily on first request, cached on disk beside the
// chunks, and invalidated on any chunk change, guarded by a per-episode
// advisory mutex (golang.org/x/sync/singleflight, as the teacher uses it
// elsewhere to collapse concurrent duplicate work).
type Assembler struct {
	dataDir string
	group   singleflight.Group
}

// NewAssembler roots all chunk/artifact paths under dataDir.
func NewAssembler(dataDir string) *Assembler {
	return &Assembler{dataDir: dataDir}
}

// ChunkPath returns the on-disk path for a chunk's WAV audio, matching the
// persisted layout `<data>/audio/<episode_id>/<chunk_index>.wav` (spec §6).
func (a *Assembler) ChunkPath(episodeID string, chunkIndex int) string {
	return filepath.Join(a.dataDir, "audio", episodeID, fmt.Sprintf("%d.wav", chunkIndex))
}

// ArtifactPath returns the on-disk path for an episode's cached full-episode
// artifact in the given output format (`full.<fmt>`, spec §6).
func (a *Assembler) ArtifactPath(episodeID, format string) string {
	return filepath.Join(a.dataDir, "audio", episodeID, "full."+format)
}

// WriteChunk validates pcm against the TTS PCM contract and writes it as a
// WAV file at ChunkPath(episodeID, chunkIndex), returning its path and
// playback duration.
func (a *Assembler) WriteChunk(episodeID string, chunkIndex int, pcm []byte) (path string, durationSecs float64, err error) {
	if err := ValidateContract(pcm); err != nil {
		return "", 0, err
	}
	path = a.ChunkPath(episodeID, chunkIndex)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", 0, fmt.Errorf("audio: create chunk dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("audio: create chunk file: %w", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, ContractSampleRate, ContractBitDepth, ContractChannels, 1)
	buf := pcmToIntBuffer(pcm)
	if err := enc.Write(buf); err != nil {
		return "", 0, fmt.Errorf("audio: write chunk wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", 0, fmt.Errorf("audio: close chunk wav: %w", err)
	}

	return path, DurationSecs(pcm), nil
}

// Invalidate removes any cached full-episode artifacts for episodeID. Called
// whenever a chunk transitions away from ready (spec §4.6 "invalidated
// whenever any chunk transitions away from ready").
func (a *Assembler) Invalidate(episodeID string) error {
	dir := filepath.Join(a.dataDir, "audio", episodeID)
	matches, err := filepath.Glob(filepath.Join(dir, "full.*"))
	if err != nil {
		return fmt.Errorf("audio: glob cached artifacts: %w", err)
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("audio: remove cached artifact %q: %w", m, err)
		}
	}
	return nil
}

// RemoveEpisodeDir deletes an episode's entire audio directory (chunks and
// any cached full-episode artifacts), used on episode deletion (spec §8
// round-trip law "delete_episode(e) ⇒ no orphan files beneath
// <data>/audio/<e.id>/").
func (a *Assembler) RemoveEpisodeDir(episodeID string) error {
	dir := filepath.Join(a.dataDir, "audio", episodeID)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("audio: remove episode dir %q: %w", dir, err)
	}
	return nil
}

// Assemble returns the path to the full-episode artifact in enc.Format(),
// computing and caching it on first request. Concurrent calls for the same
// episode collapse onto a single assembly pass.
func (a *Assembler) Assemble(ctx context.Context, episodeID string, chunkCount int, enc codec.Encoder) (string, error) {
	artifactPath := a.ArtifactPath(episodeID, enc.Format())
	if _, err := os.Stat(artifactPath); err == nil {
		return artifactPath, nil
	}

	result, err, _ := a.group.Do(episodeID+"/"+enc.Format(), func() (any, error) {
		pcm, err := a.concatenateChunks(episodeID, chunkCount)
		if err != nil {
			return nil, err
		}
		encoded, err := enc.Encode(ctx, pcm)
		if err != nil {
			return nil, fmt.Errorf("audio: encode episode %q: %w", episodeID, err)
		}
		if err := os.MkdirAll(filepath.Dir(artifactPath), 0o755); err != nil {
			return nil, fmt.Errorf("audio: create artifact dir: %w", err)
		}
		if err := os.WriteFile(artifactPath, encoded, 0o644); err != nil {
			return nil, fmt.Errorf("audio: write artifact: %w", err)
		}
		return artifactPath, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// concatenateChunks reads each chunk WAV file in ascending index order and
// returns the sample-accurate concatenation of their raw PCM (spec §4.6
// "concatenation is sample-accurate; no cross-fades").
func (a *Assembler) concatenateChunks(episodeID string, chunkCount int) ([]byte, error) {
	var out []byte
	for i := 0; i < chunkCount; i++ {
		path := a.ChunkPath(episodeID, i)
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("audio: open chunk %d: %w", i, err)
		}
		pcm, err := readWAVPCM(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("audio: read chunk %d: %w", i, err)
		}
		if err := ValidateContract(pcm); err != nil {
			return nil, fmt.Errorf("audio: chunk %d: %w", i, err)
		}
		out = append(out, pcm...)
	}
	return out, nil
}

func readWAVPCM(f *os.File) ([]byte, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("audio: not a valid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("audio: decode pcm buffer: %w", err)
	}
	return intBufferToPCM(buf), nil
}

func pcmToIntBuffer(pcm []byte) *audio.IntBuffer {
	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(pcm[i*2]) | int16(pcm[i*2+1])<<8)
	}
	return &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: ContractChannels,
			SampleRate:  ContractSampleRate,
		},
		Data:           samples,
		SourceBitDepth: ContractBitDepth,
	}
}

func intBufferToPCM(buf *audio.IntBuffer) []byte {
	out := make([]byte, len(buf.Data)*2)
	for i, s := range buf.Data {
		out[i*2] = byte(int16(s))
		out[i*2+1] = byte(int16(s) >> 8)
	}
	return out
}
