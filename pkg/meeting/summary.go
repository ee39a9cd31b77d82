package meeting

import (
	"encoding/json"
	"html"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
)

// SummaryBundle holds the AI summary and the human notes of a meeting.
// Either, both or neither may be present.
type SummaryBundle struct {
	summary     string
	notes       string
	summaryText string
}

// NewSummaryBundle trims both values; whitespace-only values are absent.
func NewSummaryBundle(summary, notes string) SummaryBundle {
	b := SummaryBundle{
		summary: strings.TrimSpace(summary),
		notes:   strings.TrimSpace(notes),
	}
	if b.summary != "" {
		b.summaryText = PlainText(b.summary)
	}
	return b
}

// Summary returns the AI summary and whether one exists.
func (b SummaryBundle) Summary() (string, bool) {
	return b.summary, b.summary != ""
}

// Notes returns the human notes and whether they exist.
func (b SummaryBundle) Notes() (string, bool) {
	return b.notes, b.notes != ""
}

func (b SummaryBundle) HasSummary() bool { return b.summary != "" }

func (b SummaryBundle) HasNotes() bool { return b.notes != "" }

// SummaryWords counts the words of the summary with markup removed.
func (b SummaryBundle) SummaryWords() int {
	return WordCount(b.summaryText)
}

var (
	mdConverter = converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	stripPolicy = bluemonday.StrictPolicy()
)

// HTMLToMarkdown converts an HTML fragment to markdown. On conversion
// failure the tag-stripped text is returned instead.
func HTMLToMarkdown(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	md, err := mdConverter.ConvertString(fragment)
	if err != nil || strings.TrimSpace(md) == "" {
		return PlainText(fragment)
	}
	return strings.TrimSpace(md)
}

// PlainText removes all markup from s and unescapes entities.
func PlainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(stripPolicy.Sanitize(s)))
}

// ProseMirrorNode is a node of a ProseMirror document as stored by the
// recorder for panels and notes.
type ProseMirrorNode struct {
	Type    string            `json:"type"`
	Text    string            `json:"text,omitempty"`
	Attrs   map[string]any    `json:"attrs,omitempty"`
	Content []ProseMirrorNode `json:"content,omitempty"`
}

// FlattenProseMirror renders a ProseMirror document as markdown-flavoured
// plain text. Invalid input yields "".
func FlattenProseMirror(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var doc ProseMirrorNode
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ""
	}
	var lines []string
	flattenBlock(doc, 0, &lines)
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func flattenBlock(n ProseMirrorNode, depth int, lines *[]string) {
	switch n.Type {
	case "text":
		*lines = append(*lines, n.Text)
	case "paragraph":
		*lines = append(*lines, inlineText(n))
	case "heading":
		level := 1
		if v, ok := n.Attrs["level"].(float64); ok && v >= 1 && v <= 6 {
			level = int(v)
		}
		*lines = append(*lines, strings.Repeat("#", level)+" "+inlineText(n))
	case "bulletList", "orderedList":
		for _, item := range n.Content {
			flattenListItem(item, depth, lines)
		}
	default:
		for _, c := range n.Content {
			flattenBlock(c, depth, lines)
		}
	}
}

func flattenListItem(item ProseMirrorNode, depth int, lines *[]string) {
	indent := strings.Repeat("  ", depth)
	first := true
	for _, c := range item.Content {
		if c.Type == "bulletList" || c.Type == "orderedList" {
			flattenBlock(c, depth+1, lines)
			continue
		}
		marker := "  "
		if first {
			marker = "- "
			first = false
		}
		*lines = append(*lines, indent+marker+inlineText(c))
	}
}

func inlineText(n ProseMirrorNode) string {
	if n.Type == "text" {
		return n.Text
	}
	var b strings.Builder
	for _, c := range n.Content {
		switch c.Type {
		case "text":
			b.WriteString(c.Text)
		case "hardBreak":
			b.WriteString("\n")
		default:
			b.WriteString(inlineText(c))
		}
	}
	return b.String()
}
