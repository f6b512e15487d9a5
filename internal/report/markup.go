package report

import (
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	"golang.org/x/net/html"
)

// span is a piece of inline text with a single weight. A span with brk set is a forced line break.
type span struct {
	text string
	bold bool
	brk  bool
}

type paragraph struct {
	spans []span
}

func (p paragraph) empty() bool {
	for _, s := range p.spans {
		if s.brk || strings.TrimSpace(s.text) != "" {
			return false
		}
	}
	return true
}

var markdown = goldmark.New()

// parseMarkdown converts Markdown into paragraphs of bold/plain spans.
// Only weight survives: links keep their text, code keeps its literal content.
func parseMarkdown(src string) []paragraph {
	source := []byte(src)
	doc := markdown.Parser().Parse(text.NewReader(source))
	c := &converter{source: source}
	c.blocks(doc, "", 0)
	c.finish()
	return c.paragraphs
}

type converter struct {
	source     []byte
	paragraphs []paragraph
	cur        *paragraph
	htmlBold   int
}

func (c *converter) blocks(parent ast.Node, lead string, depth int) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Paragraph, *ast.TextBlock:
			c.start(lead)
			c.inlines(node, false)
			c.finish()
			lead = ""
		case *ast.Heading:
			c.start(lead)
			c.inlines(node, true)
			c.finish()
			lead = ""
		case *ast.List:
			index := node.Start
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				marker := "• "
				if node.IsOrdered() {
					marker = strconv.Itoa(index) + ". "
					index++
				}
				c.blocks(item, strings.Repeat("  ", depth)+marker, depth+1)
			}
			lead = ""
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			c.start(lead)
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				segment := lines.At(i)
				if i > 0 {
					c.lineBreak()
				}
				c.add(strings.TrimRight(string(segment.Value(c.source)), "\r\n"), false)
			}
			c.finish()
			lead = ""
		case *ast.HTMLBlock:
			c.start(lead)
			lines := node.Lines()
			var raw strings.Builder
			for i := 0; i < lines.Len(); i++ {
				segment := lines.At(i)
				raw.Write(segment.Value(c.source))
			}
			c.html(raw.String())
			c.finish()
			lead = ""
		case *ast.ThematicBreak:
		default:
			c.blocks(node, lead, depth)
		}
	}
}

func (c *converter) inlines(parent ast.Node, bold bool) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Text:
			c.add(literal(node.Segment.Value(c.source)), bold)
			if node.SoftLineBreak() || node.HardLineBreak() {
				c.lineBreak()
			}
		case *ast.String:
			c.add(string(node.Value), bold)
		case *ast.Emphasis:
			c.inlines(node, bold || node.Level >= 2)
		case *ast.CodeSpan:
			for child := node.FirstChild(); child != nil; child = child.NextSibling() {
				if t, ok := child.(*ast.Text); ok {
					c.add(string(t.Segment.Value(c.source)), bold)
				}
			}
		case *ast.AutoLink:
			c.add(string(node.URL(c.source)), bold)
		case *ast.RawHTML:
			var raw strings.Builder
			for i := 0; i < node.Segments.Len(); i++ {
				segment := node.Segments.At(i)
				raw.Write(segment.Value(c.source))
			}
			c.html(raw.String())
		default:
			c.inlines(node, bold)
		}
	}
}

// html applies the small tag set the model emits: b/strong toggle weight, br breaks the line.
// Other tags are dropped and their text kept.
func (c *converter) html(raw string) {
	z := html.NewTokenizer(strings.NewReader(raw))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return
		case html.TextToken:
			c.add(strings.ReplaceAll(string(z.Text()), "\n", " "), false)
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "b", "strong":
				c.htmlBold++
			case "br":
				c.lineBreak()
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "b", "strong":
				if c.htmlBold > 0 {
					c.htmlBold--
				}
			case "p", "div", "li":
				c.lineBreak()
			}
		}
	}
}

// literal resolves backslash escapes and character references.
func literal(raw []byte) string {
	return string(util.ResolveEntityNames(util.ResolveNumericReferences(util.UnescapePunctuations(raw))))
}

func (c *converter) start(lead string) {
	c.finish()
	c.cur = &paragraph{}
	if lead != "" {
		c.cur.spans = append(c.cur.spans, span{text: lead})
	}
}

func (c *converter) finish() {
	if c.cur == nil {
		return
	}
	spans := c.cur.spans
	for len(spans) > 0 && spans[len(spans)-1].brk {
		spans = spans[:len(spans)-1]
	}
	c.cur.spans = spans
	if !c.cur.empty() {
		c.paragraphs = append(c.paragraphs, *c.cur)
	}
	c.cur = nil
}

func (c *converter) add(s string, bold bool) {
	if s == "" {
		return
	}
	if c.cur == nil {
		c.cur = &paragraph{}
	}
	bold = bold || c.htmlBold > 0
	if n := len(c.cur.spans); n > 0 {
		last := &c.cur.spans[n-1]
		if !last.brk && last.bold == bold {
			last.text += s
			return
		}
	}
	c.cur.spans = append(c.cur.spans, span{text: s, bold: bold})
}

func (c *converter) lineBreak() {
	if c.cur == nil {
		return
	}
	c.cur.spans = append(c.cur.spans, span{brk: true})
}
