package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strings"
)

// PageSize is a supported paper size.
type PageSize string

const (
	PageLetter PageSize = "letter"
	PageA4     PageSize = "a4"
)

// MarginInches is applied on every side of the page.
const MarginInches = 0.75

//go:embed templates/document.html
var layoutSource string

var layoutTemplate = template.Must(template.New("document").Parse(layoutSource))

// ParsePageSize accepts "letter" or "a4" in any case; empty means letter.
func ParsePageSize(s string) (PageSize, error) {
	switch PageSize(strings.ToLower(strings.TrimSpace(s))) {
	case "", PageLetter:
		return PageLetter, nil
	case PageA4:
		return PageA4, nil
	default:
		return "", fmt.Errorf("unsupported page size %q", s)
	}
}

// Dimensions returns the paper width and height in inches.
func (p PageSize) Dimensions() (width, height float64) {
	if p == PageA4 {
		return 8.27, 11.69
	}
	return 8.5, 11
}

// Style returns the inline CSS for a spacer block.
func (b Block) Style() template.CSS {
	return template.CSS(fmt.Sprintf("height: %.2fin", b.Height))
}

type layoutData struct {
	Title     string
	PageCSS   template.CSS
	MarginCSS template.CSS
	Blocks    []Block
}

// Layout renders doc as a standalone HTML page. Print engines honor the @page
// rule for paper size and margins, and flow blocks across pages.
func Layout(doc *Document, page PageSize) ([]byte, error) {
	data := layoutData{
		Title:     strings.ReplaceAll(string(doc.Type), "_", " "),
		PageCSS:   template.CSS(page),
		MarginCSS: template.CSS(fmt.Sprintf("%.2fin", MarginInches)),
		Blocks:    doc.Blocks,
	}
	if page == PageA4 {
		data.PageCSS = "A4"
	}

	var buf bytes.Buffer
	if err := layoutTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute layout: %w", err)
	}
	return buf.Bytes(), nil
}
