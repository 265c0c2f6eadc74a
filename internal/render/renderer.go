package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// Renderer classifies text and hands the result to a backend.
type Renderer struct {
	backend Backend
	logger  *zap.Logger
}

// New creates a Renderer.
func New(backend Backend, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{backend: backend, logger: logger}
}

// Extension returns the file extension of the backend output.
func (r *Renderer) Extension() string { return r.backend.Extension() }

// Render returns the rendered document bytes.
func (r *Renderer) Render(ctx context.Context, text string, docType DocType) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("nothing to render: text is empty")
	}
	doc := Classify(text, docType)
	return r.backend.Render(ctx, doc)
}

// RenderFile renders text into dst. The parent directory must exist.
func (r *Renderer) RenderFile(ctx context.Context, text string, docType DocType, dst string) error {
	data, err := r.Render(ctx, text, docType)
	if err != nil {
		return fmt.Errorf("render %s: %w", docType, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}

	r.logger.Info("document rendered",
		zap.String("doc_type", string(docType)),
		zap.String("path", dst),
		zap.Int("bytes", len(data)),
	)
	return nil
}
