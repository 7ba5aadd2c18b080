// Package chunker splits cleaned text into an ordered sequence of
// TTS-ready fragments per a chunking strategy, with a deterministic
// breathing-pause pass layered on top (spec §4.3, component C3).
package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/speakcast/speakcast/internal/model"
)

// Chunk is the chunker's own output unit, mirroring the subset of
// model.Chunk that this package is responsible for producing.
type Chunk struct {
	Index int
	Text  string
	Label string
}

// Split divides text into chunks according to strategy, packing pieces up to
// maxChars and inserting breathing pauses according to intensity. It never
// returns an error: a whitespace-only input yields zero chunks, and the
// caller (internal/library) is responsible for rejecting an empty chunk plan
// with EmptyContent (spec §4.3 edge cases).
func Split(text string, strategy model.ChunkStrategy, maxChars int, intensity model.BreathingIntensity) []Chunk {
	if maxChars <= 0 {
		maxChars = 1000
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	var pieces []labeledPiece
	switch strategy {
	case model.StrategySentence:
		pieces = sentencePack(trimmed, maxChars)
	case model.StrategyHeading:
		pieces = headingPack(trimmed, maxChars)
	case model.StrategyMaxChars:
		pieces = maxCharsPack(trimmed, maxChars)
	default: // paragraph
		pieces = paragraphPack(trimmed, maxChars)
	}

	chunks := make([]Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = Chunk{
			Index: i,
			Text:  insertBreathing(p.text, intensity),
			Label: p.label,
		}
	}
	return chunks
}

type labeledPiece struct {
	text  string
	label string
}

var blankLineSplit = regexp.MustCompile(`\n\s*\n+`)

// paragraphPack splits on blank-line boundaries, subdividing any paragraph
// that overflows maxChars on sentence boundaries and, failing that, on word
// boundaries (spec §4.3 "paragraph").
func paragraphPack(text string, maxChars int) []labeledPiece {
	raw := blankLineSplit.Split(text, -1)
	var out []labeledPiece
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		label := paragraphLabel(p)
		if len(p) <= maxChars {
			out = append(out, labeledPiece{text: p, label: label})
			continue
		}
		sentences := splitSentences(p)
		packed := greedyPack(sentences, maxChars)
		for _, piece := range packed {
			out = append(out, labeledPiece{text: piece, label: label})
		}
	}
	return out
}

var headingLinePattern = regexp.MustCompile(`(?m)^#\s+.+$`)

func paragraphLabel(p string) string {
	if strings.HasPrefix(p, "# ") {
		return "heading"
	}
	return "paragraph"
}

// headingPack partitions along top-level heading lines, then applies
// paragraph packing within each section: consecutive paragraphs of one
// section are joined (blank-line separated) while they fit in maxChars
// (spec §4.3 "heading").
func headingPack(text string, maxChars int) []labeledPiece {
	idx := headingLinePattern.FindAllStringIndex(text, -1)
	if len(idx) == 0 {
		return paragraphPack(text, maxChars)
	}

	var sections []string
	if idx[0][0] > 0 {
		sections = append(sections, text[:idx[0][0]])
	}
	for i, loc := range idx {
		end := len(text)
		if i+1 < len(idx) {
			end = idx[i+1][0]
		}
		sections = append(sections, text[loc[0]:end])
	}

	var out []labeledPiece
	for _, section := range sections {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}
		start := len(out)
		for _, p := range paragraphPack(section, maxChars) {
			if n := len(out); n > start && len(out[n-1].text)+2+len(p.text) <= maxChars {
				out[n-1].text += "\n\n" + p.text
				continue
			}
			out = append(out, p)
		}
	}
	return out
}

// sentencePack splits on sentence terminators and packs sentences greedily
// up to maxChars (spec §4.3 "sentence").
func sentencePack(text string, maxChars int) []labeledPiece {
	sentences := splitSentences(text)
	packed := greedyPack(sentences, maxChars)
	out := make([]labeledPiece, len(packed))
	for i, p := range packed {
		out[i] = labeledPiece{text: p, label: "sentence"}
	}
	return out
}

// maxCharsPack ignores structure entirely and packs greedily on word
// boundaries up to maxChars (spec §4.3 "max_chars").
func maxCharsPack(text string, maxChars int) []labeledPiece {
	words := strings.Fields(text)
	var out []labeledPiece
	var cur strings.Builder
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		out = append(out, labeledPiece{text: cur.String(), label: "fragment"})
		cur.Reset()
	}
	for _, w := range words {
		for len(w) > maxChars {
			// A single word longer than the limit is cut at a rune boundary.
			flush()
			cut := maxChars
			for cut > 0 && !utf8.RuneStart(w[cut]) {
				cut--
			}
			if cut == 0 {
				_, cut = utf8.DecodeRuneInString(w)
			}
			out = append(out, labeledPiece{text: w[:cut], label: "fragment"})
			w = w[cut:]
		}
		candidateLen := cur.Len() + len(w)
		if cur.Len() > 0 {
			candidateLen++
		}
		if candidateLen > maxChars && cur.Len() > 0 {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w)
	}
	flush()
	return out
}

// sentenceTerminator matches '.', '!', or '?' followed by whitespace (or
// end of string). splitSentences masks the commonAbbreviations below before
// matching, so their periods never end a sentence; a decimal point such as
// "3.5" is not matched because no whitespace follows it (spec §4.3
// "respecting abbreviations and decimal numbers").
var sentenceTerminator = regexp.MustCompile(`[.!?]+(\s+|$)`)
var decimalPattern = regexp.MustCompile(`\d\.\d`)

var commonAbbreviations = []string{
	"Mr.", "Mrs.", "Ms.", "Dr.", "Prof.", "Sr.", "Jr.", "St.",
	"e.g.", "i.e.", "etc.", "vs.", "Inc.", "Ltd.", "Co.",
}

func splitSentences(text string) []string {
	masked := text
	placeholders := make(map[string]string)
	for i, abbr := range commonAbbreviations {
		ph := fmt.Sprintf("\x00ABBR%d\x00", i)
		masked = strings.ReplaceAll(masked, abbr, ph)
		placeholders[ph] = abbr
	}
	for _, loc := range decimalPattern.FindAllStringIndex(masked, -1) {
		_ = loc // decimals survive the terminator regex unmasked since '.' inside \d.\d has no trailing whitespace
	}

	var sentences []string
	last := 0
	for _, loc := range sentenceTerminator.FindAllStringIndex(masked, -1) {
		piece := masked[last:loc[1]]
		sentences = append(sentences, strings.TrimSpace(piece))
		last = loc[1]
	}
	if last < len(masked) {
		rest := strings.TrimSpace(masked[last:])
		if rest != "" {
			sentences = append(sentences, rest)
		}
	}

	for i, s := range sentences {
		for ph, abbr := range placeholders {
			s = strings.ReplaceAll(s, ph, abbr)
		}
		sentences[i] = s
	}

	var out []string
	for _, s := range sentences {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// greedyPack packs sentences into pieces no longer than maxChars. A single
// sentence longer than maxChars is hard-split on word boundaries rather than
// truncated (spec §4.3 edge case).
func greedyPack(sentences []string, maxChars int) []string {
	var out []string
	var cur strings.Builder
	for _, s := range sentences {
		if len(s) > maxChars {
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
			out = append(out, hardSplitWords(s, maxChars)...)
			continue
		}
		extra := len(s)
		if cur.Len() > 0 {
			extra++ // separating space
		}
		if cur.Len()+extra > maxChars && cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(s)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

func hardSplitWords(s string, maxChars int) []string {
	pieces := maxCharsPack(s, maxChars)
	out := make([]string, len(pieces))
	for i, p := range pieces {
		out[i] = p.text
	}
	return out
}

// breathingMarkers maps intensity to the punctuation inserted between
// sentences within a chunk. Chosen as pure text so no TTS engine-specific
// control codes are needed (spec §4.3).
var breathingMarkers = map[model.BreathingIntensity]string{
	model.BreathingNone:   "",
	model.BreathingLight:  "  ",
	model.BreathingNormal: "... ",
	model.BreathingHeavy:  "......  ",
}

// insertBreathing inserts a pause marker between sentence boundaries already
// present in text. It operates purely on punctuation, so it is idempotent
// with respect to re-running on already-processed text only insofar as the
// caller always runs it exactly once per chunk (spec §4.3 determinism).
func insertBreathing(text string, intensity model.BreathingIntensity) string {
	marker, ok := breathingMarkers[intensity]
	if !ok || marker == "" {
		return text
	}
	return sentenceTerminator.ReplaceAllStringFunc(text, func(m string) string {
		trimmed := strings.TrimRight(m, " \t\n")
		if trimmed == "" || trimmed == m {
			// No whitespace follows: this is the chunk's final terminator.
			return m
		}
		return trimmed + marker
	})
}
