package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speakcast/speakcast/internal/model"
)

func TestSplit_ParagraphBasic(t *testing.T) {
	chunks := Split("A.\n\nB.\n\nC.", model.StrategyParagraph, 100, model.BreathingNone)
	require.Len(t, chunks, 3)
	assert.Equal(t, "A.", chunks[0].Text)
	assert.Equal(t, "B.", chunks[1].Text)
	assert.Equal(t, "C.", chunks[2].Text)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 2, chunks[2].Index)
}

func TestSplit_EmptyTextYieldsNoChunks(t *testing.T) {
	chunks := Split("   \n\t  ", model.StrategyParagraph, 100, model.BreathingNone)
	assert.Empty(t, chunks)
}

func TestSplit_IsDeterministic(t *testing.T) {
	text := "First paragraph here.\n\nSecond paragraph, with more words to test packing behavior across boundaries."
	a := Split(text, model.StrategyParagraph, 40, model.BreathingNormal)
	b := Split(text, model.StrategyParagraph, 40, model.BreathingNormal)
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Text, b[i].Text)
		assert.Equal(t, a[i].Label, b[i].Label)
	}
}

func TestSplit_ParagraphOverflowSubdividesOnSentences(t *testing.T) {
	text := "Sentence one is here. Sentence two is here. Sentence three is here."
	chunks := Split(text, model.StrategyParagraph, 30, model.BreathingNone)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 60, "packed pieces should stay close to the limit")
	}
}

func TestSplit_SingleSentenceLongerThanMaxCharsHardSplits(t *testing.T) {
	long := "Thisisaverylongsinglewordrunningsentencewithoutanybreaksatallwhichmustbehardsplit"
	chunks := Split(long, model.StrategyMaxChars, 20, model.BreathingNone)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 20)
	}
	assert.NotContains(t, chunks[0].Text, "...", "hard split never truncates content")
}

func TestSplit_SentenceStrategyRespectsAbbreviations(t *testing.T) {
	text := "Dr. Smith arrived. He was early."
	chunks := Split(text, model.StrategySentence, 100, model.BreathingNone)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Text, "Dr. Smith arrived.")
}

func TestSplit_HeadingStrategyPartitions(t *testing.T) {
	text := "# Intro\n\nHello there.\n\n# Body\n\nMore content here."
	chunks := Split(text, model.StrategyHeading, 1000, model.BreathingNone)
	require.Len(t, chunks, 2)
	assert.Contains(t, chunks[0].Text, "# Intro")
	assert.Contains(t, chunks[1].Text, "# Body")
}

func TestSplit_BreathingIntensityInsertsMarkers(t *testing.T) {
	text := "One. Two. Three."
	none := Split(text, model.StrategySentence, 1000, model.BreathingNone)
	heavy := Split(text, model.StrategySentence, 1000, model.BreathingHeavy)
	require.Len(t, none, 1)
	require.Len(t, heavy, 1)
	assert.NotEqual(t, none[0].Text, heavy[0].Text)
	assert.Contains(t, heavy[0].Text, "...")
}

func TestSplit_MaxCharsIgnoresStructure(t *testing.T) {
	text := "word1 word2 word3 word4 word5 word6 word7 word8"
	chunks := Split(text, model.StrategyMaxChars, 15, model.BreathingNone)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 15)
	}
}
