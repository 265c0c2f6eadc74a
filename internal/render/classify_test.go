package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyTitleAndContact(t *testing.T) {
	text := strings.Join([]string{
		"JANE DOE",
		"Data Scientist",
		"Tunis, Tunisia | jane@example.com | +216 00 000 000",
		"",
		"PROFESSIONAL SUMMARY",
		"- Built models.",
	}, "\n")

	doc := Classify(text, DocCV)

	assert.Equal(t, []BlockType{
		BlockTitle,
		BlockParagraph,
		BlockContact,
		BlockSpacer,
		BlockSpacer,
		BlockHeading,
		BlockParagraph,
	}, doc.Types())

	assert.Equal(t, "JANE DOE", doc.Blocks[0].Text)
	assert.Equal(t, "Data Scientist", doc.Blocks[1].Text)
	assert.Equal(t, []string{"Tunis, Tunisia | jane@example.com | +216 00 000 000"}, doc.Blocks[2].Lines)
	assert.Equal(t, SpaceAfterContact, doc.Blocks[3].Height)
	assert.Equal(t, SpaceBeforeHeading, doc.Blocks[4].Height)
	assert.Equal(t, "PROFESSIONAL SUMMARY", doc.Blocks[5].Text)
	assert.Equal(t, "- Built models.", doc.Blocks[6].Text)
}

func TestClassifyContactBlock(t *testing.T) {
	cases := []struct {
		name    string
		lines   []string
		want    []BlockType
		contact []string
	}{
		{
			name:    "consecutive lines with blank inside",
			lines:   []string{"John Smith", "john@example.com", "", "linkedin.com/in/john", "GitHub: jsmith", "Experienced engineer."},
			want:    []BlockType{BlockTitle, BlockContact, BlockSpacer, BlockParagraph},
			contact: []string{"john@example.com", "linkedin.com/in/john", "GitHub: jsmith"},
		},
		{
			name:  "no contact lines",
			lines: []string{"John Smith", "Engineer", "", "SKILLS"},
			want:  []BlockType{BlockTitle, BlockParagraph, BlockSpacer, BlockSpacer, BlockHeading},
		},
		{
			name:  "contact outside window is body",
			lines: []string{"John Smith", "one", "two", "three", "four", "five", "john@example.com"},
			want: []BlockType{
				BlockTitle,
				BlockParagraph, BlockParagraph, BlockParagraph, BlockParagraph, BlockParagraph,
				BlockParagraph,
			},
		},
		{
			name:    "block closes when window ends",
			lines:   []string{"John Smith", "a", "b", "c", "d", "+1 555 0100", "+1 555 0101"},
			want:    []BlockType{BlockTitle, BlockParagraph, BlockParagraph, BlockParagraph, BlockParagraph, BlockContact, BlockSpacer, BlockParagraph},
			contact: []string{"+1 555 0100"},
		},
		{
			name:    "only one contact block",
			lines:   []string{"John Smith", "john@example.com", "Summary text", "me@work.com"},
			want:    []BlockType{BlockTitle, BlockContact, BlockSpacer, BlockParagraph, BlockParagraph},
			contact: []string{"john@example.com"},
		},
		{
			name:    "separator before title",
			lines:   []string{"---", "John Smith", "john@example.com"},
			want:    []BlockType{BlockSpacer, BlockTitle, BlockContact, BlockSpacer},
			contact: []string{"john@example.com"},
		},
		{
			name:  "blank line before any contact ends the scan",
			lines: []string{"JANE DOE", "", "SUMMARY", "Engineer fluent in C++ and Go.", "", "EXPERIENCE"},
			want: []BlockType{
				BlockTitle, BlockSpacer,
				BlockSpacer, BlockHeading, BlockParagraph,
				BlockSpacer,
				BlockSpacer, BlockHeading,
			},
		},
		{
			name:  "heading before any contact ends the scan",
			lines: []string{"JANE DOE", "## Summary", "Team lead | Go | Kubernetes"},
			want:  []BlockType{BlockTitle, BlockSpacer, BlockHeading, BlockParagraph},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := Classify(strings.Join(tc.lines, "\n"), DocCV)
			require.Equal(t, tc.want, doc.Types())

			if tc.contact != nil {
				for _, b := range doc.Blocks {
					if b.Type == BlockContact {
						assert.Equal(t, tc.contact, b.Lines)
					}
				}
			}
		})
	}
}

func TestClassifySeparators(t *testing.T) {
	for _, line := range []string{"---", "-", "----------", "–––", "—", "-–—"} {
		t.Run(line, func(t *testing.T) {
			doc := Classify("Some text\n"+line+"\nMore text", DocCoverLetter)
			require.Equal(t, []BlockType{BlockParagraph, BlockSpacer, BlockParagraph}, doc.Types())
			assert.Equal(t, SpaceSeparator, doc.Blocks[1].Height)

			cv := Classify("JANE DOE\nSUMMARY\n"+line, DocCV)
			assert.Equal(t, BlockSpacer, cv.Blocks[len(cv.Blocks)-1].Type)
		})
	}
}

func TestClassifyHeadings(t *testing.T) {
	cases := []struct {
		line    string
		heading bool
		text    string
	}{
		{line: "EXPERIENCE", heading: true, text: "EXPERIENCE"},
		{line: "SKILLS & TOOLS", heading: true, text: "SKILLS &amp; TOOLS"},
		{line: "ÉDUCATION", heading: true, text: "ÉDUCATION"},
		{line: "## Work History", heading: true, text: "Work History"},
		{line: "# Part 1: Overview", heading: true, text: "Part 1: Overview"},
		{line: "2019 - 2024", heading: false},
		{line: "Experience", heading: false},
		{line: strings.Repeat("A", 50), heading: false},
		{line: strings.Repeat("A", 49), heading: true, text: strings.Repeat("A", 49)},
	}

	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			doc := Classify(tc.line, DocCoverLetter)
			if !tc.heading {
				require.Equal(t, []BlockType{BlockParagraph}, doc.Types())
				return
			}
			require.Equal(t, []BlockType{BlockSpacer, BlockHeading}, doc.Types())
			assert.Equal(t, tc.text, doc.Blocks[1].Text)
		})
	}
}

func TestClassifyEscapesMarkup(t *testing.T) {
	doc := Classify("AT&T <ENG>\nR&D <team> > 5", DocCV)

	require.Equal(t, []BlockType{BlockTitle, BlockParagraph}, doc.Types())
	assert.Equal(t, "AT&amp;T &lt;ENG&gt;", doc.Blocks[0].Text)
	assert.Equal(t, "R&amp;D &lt;team&gt; &gt; 5", doc.Blocks[1].Text)
}

func TestClassifyCoverLetterSkipsTitleAndContact(t *testing.T) {
	text := "Dear Hiring Manager,\njane@example.com | +1 555 0100\n\nSincerely,\nJane Doe"

	doc := Classify(text, DocCoverLetter)

	assert.Equal(t, []BlockType{
		BlockParagraph,
		BlockParagraph,
		BlockSpacer,
		BlockParagraph,
		BlockParagraph,
	}, doc.Types())
}

func TestClassifyIsDeterministic(t *testing.T) {
	text := "JANE DOE\njane@example.com\n\nSUMMARY\nBuilds things.\n---\n## Projects\n- A & B"

	first := Classify(text, DocCV)
	second := Classify(text, DocCV)

	assert.Equal(t, first.Types(), second.Types())
	assert.Equal(t, first, second)
}

func TestClassifyEmptyText(t *testing.T) {
	assert.Empty(t, Classify("  \n\n ", DocCV).Blocks)
	assert.Empty(t, Classify("", DocCoverLetter).Blocks)
}

func TestClassifyNormalizesLineEndings(t *testing.T) {
	doc := Classify("JANE DOE\r\njane@example.com\r\nSUMMARY", DocCV)
	assert.Equal(t, []BlockType{BlockTitle, BlockContact, BlockSpacer, BlockSpacer, BlockHeading}, doc.Types())
}
