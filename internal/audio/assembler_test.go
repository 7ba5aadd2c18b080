package audio

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speakcast/speakcast/internal/codec/passthrough"
)

func sineSamples(n int) []byte {
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		v := int16((i % 100) * 300)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

func TestValidateContract_RejectsOddByteLength(t *testing.T) {
	err := ValidateContract([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestDurationSecs(t *testing.T) {
	pcm := sineSamples(ContractSampleRate) // exactly 1 second of samples
	assert.InDelta(t, 1.0, DurationSecs(pcm), 0.0001)
}

func TestAssembler_WriteChunkAndAssemble(t *testing.T) {
	dir := t.TempDir()
	a := NewAssembler(dir)

	pcm0 := sineSamples(100)
	pcm1 := sineSamples(200)

	_, dur0, err := a.WriteChunk("ep1", 0, pcm0)
	require.NoError(t, err)
	assert.Greater(t, dur0, 0.0)

	_, _, err = a.WriteChunk("ep1", 1, pcm1)
	require.NoError(t, err)

	enc := passthrough.New()
	path, err := a.Assemble(context.Background(), "ep1", 2, enc)
	require.NoError(t, err)
	assert.FileExists(t, path)

	// Second call should hit the cache (file already exists), not re-assemble.
	path2, err := a.Assemble(context.Background(), "ep1", 2, enc)
	require.NoError(t, err)
	assert.Equal(t, path, path2)
}

func TestAssembler_InvalidateRemovesCachedArtifact(t *testing.T) {
	dir := t.TempDir()
	a := NewAssembler(dir)
	_, _, err := a.WriteChunk("ep2", 0, sineSamples(50))
	require.NoError(t, err)

	enc := passthrough.New()
	path, err := a.Assemble(context.Background(), "ep2", 1, enc)
	require.NoError(t, err)
	assert.FileExists(t, path)

	require.NoError(t, a.Invalidate("ep2"))
	assert.NoFileExists(t, path)
}
