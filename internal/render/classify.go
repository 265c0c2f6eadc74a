// Package render turns generated plain text into paginated documents.
package render

import (
	"html/template"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DocType selects which classification rules apply.
type DocType string

const (
	DocCV          DocType = "cv"
	DocCoverLetter DocType = "cover_letter"
)

// BlockType is the kind of a layout block.
type BlockType string

const (
	BlockTitle     BlockType = "title"
	BlockContact   BlockType = "contact"
	BlockHeading   BlockType = "heading"
	BlockParagraph BlockType = "paragraph"
	BlockSpacer    BlockType = "spacer"
)

// Spacer heights in inches.
const (
	SpaceEmptyLine     = 0.1
	SpaceSeparator     = 0.15
	SpaceBeforeHeading = 0.1
	SpaceAfterContact  = 0.2
)

const (
	contactWindow    = 5
	maxHeadingLength = 50
)

// Block is one layout block. Text and Lines hold markup-escaped content.
type Block struct {
	Type   BlockType
	Text   string
	Lines  []string
	Height float64
}

// Markup returns the escaped block content for the layout template.
func (b Block) Markup() template.HTML {
	if b.Type == BlockContact {
		return template.HTML(strings.Join(b.Lines, "<br>"))
	}
	return template.HTML(b.Text)
}

// Document is an ordered sequence of layout blocks.
type Document struct {
	Type   DocType
	Blocks []Block
}

// Types returns the block types in order.
func (d *Document) Types() []BlockType {
	types := make([]BlockType, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		types = append(types, b.Type)
	}
	return types
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escape(s string) string { return escaper.Replace(s) }

type classifier struct {
	doc *Document

	resume        bool
	titleSeen     bool
	windowEnd     int
	contact       []string
	contactClosed bool
}

// Classify assigns every line of text to a layout block. Only CVs get title
// and contact detection.
func Classify(text string, docType DocType) *Document {
	c := &classifier{
		doc:    &Document{Type: docType},
		resume: docType == DocCV,
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return c.doc
	}

	for i, raw := range lines {
		c.line(i, strings.TrimSpace(raw))
	}
	c.closeContact()

	return c.doc
}

func (c *classifier) line(i int, line string) {
	if c.resume && !c.titleSeen && line != "" && !isSeparator(line) {
		c.titleSeen = true
		c.windowEnd = i + contactWindow
		c.add(Block{Type: BlockTitle, Text: escape(line)})
		return
	}

	if c.resume && c.titleSeen && !c.contactClosed {
		if i > c.windowEnd {
			c.closeContact()
		} else if isContact(line) {
			c.contact = append(c.contact, escape(line))
			return
		} else if len(c.contact) > 0 {
			if line == "" || isSeparator(line) {
				return
			}
			c.closeContact()
		} else if line == "" || isHeading(line) {
			// The block must start before the first section.
			c.closeContact()
		}
	}

	switch {
	case line == "":
		c.spacer(SpaceEmptyLine)
	case isSeparator(line):
		c.spacer(SpaceSeparator)
	case isUpperHeading(line):
		c.heading(line)
	case strings.HasPrefix(line, "#"):
		if heading := strings.TrimSpace(strings.TrimLeft(line, "#")); heading != "" {
			c.heading(heading)
		} else {
			c.spacer(SpaceSeparator)
		}
	default:
		c.add(Block{Type: BlockParagraph, Text: escape(line)})
	}
}

func (c *classifier) closeContact() {
	if c.contactClosed {
		return
	}
	c.contactClosed = true
	if len(c.contact) == 0 {
		return
	}
	c.add(Block{Type: BlockContact, Lines: c.contact})
	c.spacer(SpaceAfterContact)
}

func (c *classifier) heading(text string) {
	c.spacer(SpaceBeforeHeading)
	c.add(Block{Type: BlockHeading, Text: escape(text)})
}

func (c *classifier) spacer(height float64) {
	c.add(Block{Type: BlockSpacer, Height: height})
}

func (c *classifier) add(b Block) {
	c.doc.Blocks = append(c.doc.Blocks, b)
}

func isContact(line string) bool {
	if line == "" {
		return false
	}
	if strings.ContainsAny(line, "|@+") {
		return true
	}
	lower := strings.ToLower(line)
	return strings.Contains(lower, "linkedin") || strings.Contains(lower, "github")
}

func isSeparator(line string) bool {
	if line == "" {
		return false
	}
	for _, r := range line {
		if r != '-' && r != '–' && r != '—' {
			return false
		}
	}
	return true
}

func isHeading(line string) bool {
	return isUpperHeading(line) || strings.HasPrefix(line, "#")
}

func isUpperHeading(line string) bool {
	if utf8.RuneCountInString(line) >= maxHeadingLength {
		return false
	}
	cased := false
	for _, r := range line {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			cased = true
		}
	}
	return cased
}
