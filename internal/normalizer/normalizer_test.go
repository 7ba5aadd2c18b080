package normalizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/speakcast/speakcast/internal/model"
)

func TestNormalize_DeterministicOnRepeat(t *testing.T) {
	cfg := model.DefaultCleaningSettings()
	raw := "# Title\n\nSome **bold** text with a [link](https://example.com)."
	first := Normalize(raw, cfg)
	second := Normalize(raw, cfg)
	assert.Equal(t, first, second)
}

func TestNormalize_EmptyInput(t *testing.T) {
	assert.Equal(t, "", Normalize("   \n\t ", model.DefaultCleaningSettings()))
}

func TestNormalize_CodeBlockSkip(t *testing.T) {
	cfg := model.DefaultCleaningSettings()
	cfg.CodeBlockRule = model.CodeBlockSkip
	out := Normalize("intro\n\n```go\nfunc main() {}\n```\n\noutro", cfg)
	assert.NotContains(t, out, "func main")
	assert.Contains(t, out, "intro")
	assert.Contains(t, out, "outro")
}

func TestNormalize_CodeBlockDescribe(t *testing.T) {
	cfg := model.DefaultCleaningSettings()
	cfg.CodeBlockRule = model.CodeBlockDescribe
	out := Normalize("```go\nfunc main() {}\n```", cfg)
	assert.Contains(t, out, "code block omitted")
}

func TestNormalize_SpeakURLs(t *testing.T) {
	cfg := model.DefaultCleaningSettings()
	cfg.SpeakURLs = true
	out := Normalize("see [docs](https://example.com/docs)", cfg)
	assert.Contains(t, out, "https://example.com/docs")
}

func TestNormalize_SpeakURLsDisabled(t *testing.T) {
	cfg := model.DefaultCleaningSettings()
	cfg.SpeakURLs = false
	out := Normalize("see [docs](https://example.com/docs)", cfg)
	assert.NotContains(t, out, "https://example.com/docs")
	assert.Contains(t, out, "docs")
}

func TestNormalize_StripsParentheticalsWhenNotPreserved(t *testing.T) {
	cfg := model.DefaultCleaningSettings()
	cfg.PreserveParentheses = false
	out := Normalize("The system (version 2) is fast.", cfg)
	assert.NotContains(t, out, "version 2")
}

func TestNormalize_PreservesParentheses(t *testing.T) {
	cfg := model.DefaultCleaningSettings()
	cfg.PreserveParentheses = true
	out := Normalize("The system (version 2) is fast.", cfg)
	assert.Contains(t, out, "version 2")
}

func TestNormalize_ExpandAbbreviations(t *testing.T) {
	cfg := model.DefaultCleaningSettings()
	cfg.ExpandAbbreviations = true
	out := Normalize("Call the API over HTTP.", cfg)
	assert.Contains(t, strings.ToLower(out), "application programming interface")
}

func TestExpandAbbreviations_OrderIndependentAcrossCalls(t *testing.T) {
	const input = "Deploy the API over HTTP using the CLI against the DB, driven by CI/CD and a JSON config in YAML on k8s."
	first := expandAbbreviations(input)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, expandAbbreviations(input))
	}
}

func TestNormalize_HandleTables(t *testing.T) {
	cfg := model.DefaultCleaningSettings()
	cfg.HandleTables = true
	src := "| Name | Age |\n| --- | --- |\n| Ada | 30 |\n"
	out := Normalize(src, cfg)
	assert.Contains(t, out, "Name: Ada")
	assert.Contains(t, out, "Age: 30")
}

func TestNormalize_HTMLInput(t *testing.T) {
	cfg := model.DefaultCleaningSettings()
	src := "<html><body><article><h1>Title</h1><p>Body text with a <script>evil()</script> payload.</p></article></body></html>"
	out := Normalize(src, cfg)
	assert.NotContains(t, out, "evil()")
	assert.Contains(t, out, "Body text")
}
