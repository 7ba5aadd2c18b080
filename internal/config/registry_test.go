package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speakcast/speakcast/internal/codec"
	"github.com/speakcast/speakcast/internal/tts"
)

type stubProvider struct{ tts.Provider }

type stubEncoder struct{ codec.Encoder }

func TestRegistry_RegisterAndCreateTTS(t *testing.T) {
	r := NewRegistry()
	want := &stubProvider{}
	r.RegisterTTS("custom", func(ProviderEntry) (tts.Provider, error) { return want, nil })

	got, err := r.CreateTTS(ProviderEntry{Name: "custom"})
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestRegistry_CreateTTS_NotRegistered(t *testing.T) {
	r := NewRegistry()
	_, err := r.CreateTTS(ProviderEntry{Name: "unknown"})
	require.ErrorIs(t, err, ErrProviderNotRegistered)
}

func TestRegistry_RegisterAndCreateCodec(t *testing.T) {
	r := NewRegistry()
	want := &stubEncoder{}
	r.RegisterCodec("custom", func(ProviderEntry) (codec.Encoder, error) { return want, nil })

	got, err := r.CreateCodec(ProviderEntry{Name: "custom"})
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestRegistry_CreateCodec_NotRegistered(t *testing.T) {
	r := NewRegistry()
	_, err := r.CreateCodec(ProviderEntry{Name: "unknown"})
	require.ErrorIs(t, err, ErrProviderNotRegistered)
}

func TestRegistry_ReRegisterOverwritesPreviousFactory(t *testing.T) {
	r := NewRegistry()
	first := &stubProvider{}
	second := &stubProvider{}
	r.RegisterTTS("custom", func(ProviderEntry) (tts.Provider, error) { return first, nil })
	r.RegisterTTS("custom", func(ProviderEntry) (tts.Provider, error) { return second, nil })

	got, err := r.CreateTTS(ProviderEntry{Name: "custom"})
	require.NoError(t, err)
	assert.Same(t, second, got)
}
