// Package openaiadapter adapts the OpenAI text-to-speech API behind the
// tts.Provider interface, grounded on the teacher's own use of
// github.com/openai/openai-go in pkg/provider/embeddings/openai (spec treats
// the TTS model as an opaque collaborator; this is one concrete, swappable
// implementation of it, the same role the teacher's elevenlabs/coqui
// adapters play for pkg/provider/tts.Provider).
package openaiadapter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/speakcast/speakcast/internal/model/apperr"
	"github.com/speakcast/speakcast/internal/tts"
)

// DefaultModel is the OpenAI TTS model used when none is configured.
const DefaultModel = "tts-1"

// knownVoices lists OpenAI's fixed set of built-in voices. OpenAI's TTS API
// has no voice-listing endpoint, so ListVoices returns this static catalogue
// rather than calling out to the network (spec §9 "voice cache").
var knownVoices = []tts.Voice{
	{ID: "alloy", Name: "Alloy", Provider: "openai"},
	{ID: "echo", Name: "Echo", Provider: "openai"},
	{ID: "fable", Name: "Fable", Provider: "openai"},
	{ID: "onyx", Name: "Onyx", Provider: "openai"},
	{ID: "nova", Name: "Nova", Provider: "openai"},
	{ID: "shimmer", Name: "Shimmer", Provider: "openai"},
}

// Provider implements tts.Provider using the OpenAI Audio Speech API.
type Provider struct {
	client oai.Client
	model  string
}

// Option configures a Provider.
type Option func(*config)

type config struct {
	baseURL string
	model   string
	timeout time.Duration
}

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithModel overrides DefaultModel.
func WithModel(model string) Option {
	return func(c *config) { c.model = model }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// New constructs a Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openaiadapter: apiKey must not be empty")
	}
	cfg := &config{model: DefaultModel}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}

	client := oai.NewClient(reqOpts...)
	return &Provider{client: client, model: cfg.model}, nil
}

// Synthesize renders text in the given voice via the OpenAI Speech API and
// returns raw PCM samples (response_format "pcm" is 24kHz mono 16-bit,
// matching the contract validated in internal/audio).
func (p *Provider) Synthesize(ctx context.Context, text string, voiceID string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("openaiadapter: empty text: %w", apperr.ErrEmptyContent)
	}
	resp, err := p.client.Audio.Speech.New(ctx, oai.AudioSpeechNewParams{
		Model:          p.model,
		Input:          text,
		Voice:          oai.AudioSpeechNewParamsVoice(voiceID),
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatPCM,
	})
	if err != nil {
		return nil, fmt.Errorf("openaiadapter: synthesize: %w: %w", apperr.ErrSynthesisFailed, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, fmt.Errorf("openaiadapter: read audio response: %w: %w", apperr.ErrSynthesisFailed, err)
	}
	return buf.Bytes(), nil
}

// ListVoices returns OpenAI's static built-in voice catalogue.
func (p *Provider) ListVoices(_ context.Context) ([]tts.Voice, error) {
	out := make([]tts.Voice, len(knownVoices))
	copy(out, knownVoices)
	return out, nil
}

var _ tts.Provider = (*Provider)(nil)
