// Package posting loads job postings from files, stdin, HTML pages and URLs.
package posting

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	// DefaultTitle is used when no title can be derived.
	DefaultTitle = "Job_Application"

	defaultTimeout   = 30 * time.Second
	defaultMaxBytes  = 5 << 20
	defaultUserAgent = "Mozilla/5.0 (compatible; job-seeker/1.0)"
	stdinSource      = "-"
)

// Posting is a job posting. The text is opaque to the workflow; title and
// company are only used for naming the run folder.
type Posting struct {
	Text    string
	Title   string
	Company string
	Source  string
}

// Error reports a posting that could not be loaded.
type Error struct {
	Source  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("posting %s: %s: %v", e.Source, e.Message, e.Cause)
	}
	return fmt.Sprintf("posting %s: %s", e.Source, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Loader reads postings.
type Loader struct {
	Client    *http.Client
	UserAgent string
	Stdin     io.Reader
	// MaxBytes caps a fetched page. Zero means 5 MiB.
	MaxBytes int64
}

// NewLoader returns a Loader with an HTTP client bounded by timeout.
func NewLoader(timeout time.Duration) *Loader {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Loader{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: defaultUserAgent,
		Stdin:     os.Stdin,
	}
}

// Load reads a posting from "-" (stdin), an http(s) URL or a file path.
// HTML content is reduced to its main text.
func (l *Loader) Load(ctx context.Context, source string) (*Posting, error) {
	source = strings.TrimSpace(source)

	var (
		content string
		isHTML  bool
		err     error
	)

	switch {
	case source == "":
		return nil, &Error{Source: source, Message: "no posting source given"}
	case source == stdinSource:
		content, err = l.readStdin()
	case strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://"):
		content, err = l.fetch(ctx, source)
		isHTML = true
	default:
		var data []byte
		data, err = os.ReadFile(source)
		if err != nil {
			err = &Error{Source: source, Message: "reading file", Cause: err}
		}
		content = string(data)
		ext := strings.ToLower(filepath.Ext(source))
		isHTML = ext == ".html" || ext == ".htm"
	}
	if err != nil {
		return nil, err
	}

	if !isHTML && looksLikeHTML(content) {
		isHTML = true
	}

	p := &Posting{Source: source}
	if isHTML {
		text, title, err := ExtractHTML(content)
		if err != nil {
			return nil, &Error{Source: source, Message: "extracting text", Cause: err}
		}
		p.Text = text
		p.Title = title
	} else {
		p.Text = strings.TrimSpace(content)
	}

	if p.Text == "" {
		return nil, &Error{Source: source, Message: "posting is empty"}
	}

	if p.Title == "" {
		p.Title = GuessTitle(p.Text)
	}
	p.Company = GuessCompany(p.Text)

	return p, nil
}

func (l *Loader) readStdin() (string, error) {
	if l.Stdin == nil {
		return "", &Error{Source: stdinSource, Message: "stdin is not available"}
	}
	data, err := io.ReadAll(l.Stdin)
	if err != nil {
		return "", &Error{Source: stdinSource, Message: "reading stdin", Cause: err}
	}
	return string(data), nil
}

func (l *Loader) fetch(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "", &Error{Source: rawURL, Message: "invalid URL", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &Error{Source: rawURL, Message: "creating request", Cause: err}
	}
	if l.UserAgent != "" {
		req.Header.Set("User-Agent", l.UserAgent)
	}

	client := l.Client
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", &Error{Source: rawURL, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &Error{Source: rawURL, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}

	limit := l.MaxBytes
	if limit <= 0 {
		limit = defaultMaxBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return "", &Error{Source: rawURL, Message: "reading response body", Cause: err}
	}
	if int64(len(body)) > limit {
		return "", &Error{Source: rawURL, Message: fmt.Sprintf("response body exceeds %d bytes", limit)}
	}

	return string(body), nil
}

var postingSelectors = []string{
	".job-description",
	"#job-description",
	".job-details",
	".posting-content",
	"[data-testid='job-description']",
	"main",
	"article",
}

// ExtractHTML returns the main text of an HTML page and its heading, if any.
func ExtractHTML(html string) (text, title string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", fmt.Errorf("parse html: %w", err)
	}

	title = strings.TrimSpace(doc.Find("h1").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	doc.Find("nav, footer, header, script, style, noscript, form, .cookie-banner").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, li, h1, h2, h3, h4, h5, h6, div, tr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	content := doc.Find("body")
	for _, selector := range postingSelectors {
		if sel := doc.Find(selector); sel.Length() > 0 {
			content = sel.First()
			break
		}
	}

	return cleanLines(content.Text()), title, nil
}

func looksLikeHTML(s string) bool {
	head := strings.ToLower(strings.TrimSpace(s))
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html")
}

func cleanLines(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}

// GuessTitle returns the first non-empty line of the posting.
func GuessTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return DefaultTitle
}

var companyLine = regexp.MustCompile(`(?im)^\s*(?:company|employer|organization)\s*:\s*(.+?)\s*$`)

// GuessCompany returns the value of a "Company:" style line, if any.
func GuessCompany(text string) string {
	if m := companyLine.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}
