// Package normalizer turns raw imported text into cleaned, speakable prose
// (spec §4.2, component C2). It never fails: malformed input degrades to
// best-effort cleanup rather than returning an error, so a Source can always
// be ingested.
package normalizer

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"

	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/speakcast/speakcast/internal/model"
)

// Normalize applies cfg to raw and returns a single UTF-8 string of prose.
// Equal (raw, cfg) pairs always produce byte-identical output (spec §4.2,
// invariant §8.3) — there is no wall-clock or random input anywhere in the
// pipeline below.
func Normalize(raw string, cfg model.CleaningSettings) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	var body string
	if looksLikeHTML(raw) {
		body = extractFromHTML(raw, cfg)
	} else {
		body = cleanMarkdown(raw, cfg)
	}

	if cfg.ExpandAbbreviations {
		body = expandAbbreviations(body)
	}
	if !cfg.PreserveParentheses {
		body = stripParentheticals(body)
	}

	return collapseBlankLines(body)
}

// htmlTagPattern is a cheap heuristic for "this looks like HTML, not
// markdown": the presence of a real opening tag dominates, per spec §4.2.
var htmlTagPattern = regexp.MustCompile(`(?i)<(html|body|div|p|span|table|article|section|h[1-6])[\s>]`)

func looksLikeHTML(s string) bool {
	return htmlTagPattern.MatchString(s)
}

// extractFromHTML runs a readability-style extraction (title + main body)
// then sanitizes the remaining markup before handing it to the same
// markdown-aware cleaning pass used for the plaintext/markdown path — the
// sanitized HTML is re-walked as if it were markdown prose with inline tags
// stripped, since readability.FromReader already leaves near-semantic HTML.
func extractFromHTML(raw string, cfg model.CleaningSettings) string {
	article, err := readability.FromReader(strings.NewReader(raw), nil)
	body := raw
	title := ""
	if err == nil {
		body = article.Content
		title = article.Title
	}

	sanitizePolicy := bluemonday.StrictPolicy()
	if !cfg.RemoveNonText {
		sanitizePolicy = bluemonday.UGCPolicy()
	}
	clean := sanitizePolicy.Sanitize(body)
	clean = html.UnescapeString(clean)
	clean = stripResidualTags(clean)

	out := cleanMarkdown(clean, cfg)
	if title != "" {
		out = title + "\n\n" + out
	}
	return out
}

var residualTagPattern = regexp.MustCompile(`<[^>]+>`)

func stripResidualTags(s string) string {
	return residualTagPattern.ReplaceAllString(s, "")
}

// cleanMarkdown walks the markdown AST of src and emits speakable prose
// according to cfg. Headings are preserved as their own lines so the
// Chunker can anchor on them (spec §4.2).
func cleanMarkdown(src string, cfg model.CleaningSettings) string {
	source := []byte(src)
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM, emoji.Emoji),
	)
	doc := md.Parser().Parse(text.NewReader(source))

	var out bytes.Buffer
	var skipDepth int // >0 while inside a node we are omitting entirely (e.g. a skipped code block)

	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if skipDepth > 0 {
			if !entering {
				skipDepth--
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			if entering {
				out.WriteString(strings.Repeat("#", node.Level) + " ")
			} else {
				out.WriteString("\n\n")
			}

		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if !entering {
				return ast.WalkContinue, nil
			}
			switch cfg.CodeBlockRule {
			case model.CodeBlockSkip:
				return ast.WalkSkipChildren, nil
			case model.CodeBlockDescribe:
				out.WriteString("(code block omitted) ")
				return ast.WalkSkipChildren, nil
			default: // inline: keep the code's text verbatim
				out.Write(codeBlockLines(n, source))
				out.WriteString(" ")
				return ast.WalkSkipChildren, nil
			}

		case *ast.Image:
			if cfg.RemoveNonText {
				return ast.WalkSkipChildren, nil
			}
			if entering {
				out.Write(node.Text(source))
				out.WriteString(" ")
			}
			return ast.WalkSkipChildren, nil

		case *ast.AutoLink:
			if entering && cfg.SpeakURLs {
				out.Write(node.URL(source))
				out.WriteString(" ")
			}
			return ast.WalkSkipChildren, nil

		case *ast.Link:
			if entering {
				return ast.WalkContinue, nil
			}
			if cfg.SpeakURLs {
				out.WriteString(" (")
				out.Write(node.Destination)
				out.WriteString(")")
			}

		case *extast.Table:
			if entering {
				out.WriteString(renderTable(node, source, cfg))
				return ast.WalkSkipChildren, nil
			}

		case *ast.Text:
			out.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				out.WriteString(" ")
			}

		case *ast.Paragraph:
			if !entering {
				out.WriteString("\n\n")
			}

		case *ast.HTMLBlock, *ast.RawHTML:
			if cfg.RemoveNonText {
				return ast.WalkSkipChildren, nil
			}
		}

		return ast.WalkContinue, nil
	})

	return out.String()
}

// codeBlockLines returns the raw source text spanned by a code block node.
func codeBlockLines(n ast.Node, source []byte) []byte {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return bytes.TrimSpace(buf.Bytes())
}

// renderTable converts a table to row-by-row sentences when handle_tables is
// set, e.g. "column A: value; column B: value." (spec §4.2). When
// handle_tables is false the table is rendered as a flat list of its cell
// text, losing structure but keeping content speakable.
func renderTable(table *extast.Table, source []byte, cfg model.CleaningSettings) string {
	var headers []string
	var out strings.Builder

	row := table.FirstChild()
	for row != nil {
		isHeader := row.Kind() == extast.KindTableHeader
		var cells []string
		cell := row.FirstChild()
		for cell != nil {
			cells = append(cells, strings.TrimSpace(string(extractPlainText(cell, source))))
			cell = cell.NextSibling()
		}

		if isHeader {
			headers = cells
			if !cfg.HandleTables {
				out.WriteString(strings.Join(cells, ", ") + ".\n")
			}
		} else if cfg.HandleTables && len(headers) > 0 {
			var sentence strings.Builder
			for i, v := range cells {
				if i < len(headers) {
					fmt.Fprintf(&sentence, "%s: %s; ", headers[i], v)
				} else {
					sentence.WriteString(v + "; ")
				}
			}
			out.WriteString(strings.TrimSuffix(sentence.String(), "; ") + ".\n")
		} else {
			out.WriteString(strings.Join(cells, ", ") + ".\n")
		}
		row = row.NextSibling()
	}
	return out.String() + "\n"
}

// extractPlainText recursively collects the text segments under n.
func extractPlainText(n ast.Node, source []byte) []byte {
	var buf bytes.Buffer
	ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := child.(*ast.Text); ok {
				buf.Write(t.Segment.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return buf.Bytes()
}

// abbreviations is the fixed dictionary applied when expand_abbreviations is
// set (spec §4.2). Matching is whole-word and case-insensitive.
var abbreviations = map[string]string{
	"k8s":    "kubernetes",
	"cli":    "command line interface",
	"api":    "application programming interface",
	"db":     "database",
	"http":   "H T T P",
	"json":   "jayson",
	"sql":    "sequel",
	"ci/cd":  "continuous integration and continuous delivery",
	"yaml":   "yamel",
}

// abbreviationKeys is abbreviations' keys in a fixed order, so
// expandAbbreviations applies them deterministically regardless of Go's
// randomized map iteration order (spec §4.2/§8 normalizer determinism: "same
// input + same configuration → byte-identical output" — two keys whose
// expansions overlap as substrings of each other would otherwise produce a
// different result depending on which happened to apply first).
var abbreviationKeys = sortedKeys(abbreviations)

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func expandAbbreviations(s string) string {
	for _, abbr := range abbreviationKeys {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(abbr) + `\b`)
		s = re.ReplaceAllString(s, abbreviations[abbr])
	}
	return s
}

var parentheticalPattern = regexp.MustCompile(`\([^()]*\)`)

// stripParentheticals removes parenthetical asides. Applied repeatedly since
// removing one level can expose a previously-nested pair; bounded to avoid
// pathological input looping forever.
func stripParentheticals(s string) string {
	for i := 0; i < 10; i++ {
		next := parentheticalPattern.ReplaceAllString(s, "")
		if next == s {
			break
		}
		s = next
	}
	return s
}

var blankLinesPattern = regexp.MustCompile(`\n{3,}`)
var trailingSpacePattern = regexp.MustCompile(`[ \t]+\n`)

func collapseBlankLines(s string) string {
	s = trailingSpacePattern.ReplaceAllString(s, "\n")
	s = blankLinesPattern.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s) + "\n"
}
