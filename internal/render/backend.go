package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Backend names accepted by NewBackend.
const (
	BackendPDF  = "pdf"
	BackendHTML = "html"
)

const defaultPDFTimeout = 30 * time.Second

// Backend turns a classified document into file contents.
type Backend interface {
	Render(ctx context.Context, doc *Document) ([]byte, error)
	Extension() string
}

// NewBackend builds the backend called name.
func NewBackend(name string, size PageSize, timeout time.Duration, logger *zap.Logger) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendPDF:
		return NewPDFBackend(size, timeout, "", logger), nil
	case BackendHTML:
		return &HTMLBackend{Page: size}, nil
	default:
		return nil, fmt.Errorf("unsupported render backend %q", name)
	}
}

// HTMLBackend writes the laid-out page as HTML. It needs no browser.
type HTMLBackend struct {
	Page PageSize
}

func (b *HTMLBackend) Render(_ context.Context, doc *Document) ([]byte, error) {
	return Layout(doc, b.Page)
}

func (b *HTMLBackend) Extension() string { return ".html" }

// PDFBackend prints the laid-out page with headless Chrome.
type PDFBackend struct {
	page     PageSize
	timeout  time.Duration
	execPath string
	logger   *zap.Logger
}

// NewPDFBackend creates a PDF backend. An empty execPath lets chromedp find
// Chrome on its own.
func NewPDFBackend(size PageSize, timeout time.Duration, execPath string, logger *zap.Logger) *PDFBackend {
	if timeout <= 0 {
		timeout = defaultPDFTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PDFBackend{page: size, timeout: timeout, execPath: execPath, logger: logger}
}

func (b *PDFBackend) Extension() string { return ".pdf" }

func (b *PDFBackend) Render(ctx context.Context, doc *Document) ([]byte, error) {
	html, err := Layout(doc, b.page)
	if err != nil {
		return nil, err
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if b.execPath != "" {
		opts = append(opts, chromedp.ExecPath(b.execPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, b.timeout)
	defer cancel()

	width, height := b.page.Dimensions()
	started := time.Now()

	var pdf []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return fmt.Errorf("get frame tree: %w", err)
			}
			return page.SetDocumentContent(tree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				WithPaperWidth(width).
				WithPaperHeight(height).
				WithMarginTop(MarginInches).
				WithMarginBottom(MarginInches).
				WithMarginLeft(MarginInches).
				WithMarginRight(MarginInches).
				Do(ctx)
			if err != nil {
				return fmt.Errorf("print to pdf: %w", err)
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("pdf rendering failed: %w", err)
	}
	if len(pdf) == 0 {
		return nil, errors.New("pdf rendering produced no output")
	}

	b.logger.Debug("pdf rendered",
		zap.String("doc_type", string(doc.Type)),
		zap.Int("blocks", len(doc.Blocks)),
		zap.Int("bytes", len(pdf)),
		zap.Duration("duration", time.Since(started)),
	)

	return pdf, nil
}
