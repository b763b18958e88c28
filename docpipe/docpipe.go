// CLAUDE:SUMMARY Core conversion engine that dispatches document-to-text extraction by format (txt, pdf, docx, html).
// Package docpipe converts source documents to plain UTF-8 text.
//
// Supported formats:
//   - .txt         — plain text (passthrough with encoding scrub)
//   - .pdf         — PDF text extraction (pdfcpu, content-stream decoding, quality scoring)
//   - .docx        — Microsoft Word (archive/zip → word/document.xml)
//   - .html, .htm  — HTML (DOM walk, boilerplate and hidden nodes skipped)
//
// Usage:
//
//	pipe := docpipe.New(docpipe.Config{})
//	doc, err := pipe.Convert(ctx, "/path/to/file.docx")
//	fmt.Println(doc.Title, len(doc.Text), "bytes")
package docpipe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Pipeline is the document conversion engine.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Pipeline with the given configuration.
func New(cfg Config) *Pipeline {
	cfg.defaults()
	return &Pipeline{
		cfg:    cfg,
		logger: cfg.Logger,
	}
}

// Detect returns the document format based on file extension.
func (p *Pipeline) Detect(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".txt":
		return FormatTXT, nil
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDocx, nil
	case ".html", ".htm":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unsupported format: %q", ext)
	}
}

// Convert extracts the plain-text content of a document. The returned text is
// valid UTF-8 with normalized line endings, suitable for writing straight to
// the destination tree.
func (p *Pipeline) Convert(ctx context.Context, path string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > p.cfg.maxBytes() {
		return nil, fmt.Errorf("file too large: %d bytes (max %d MB)", info.Size(), p.cfg.MaxFileMB)
	}

	format, err := p.Detect(path)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("converting document", "path", path, "format", format)

	var title, text string
	var quality *ExtractionQuality

	switch format {
	case FormatTXT:
		title, text, err = extractText(path)
	case FormatPDF:
		title, text, quality, err = extractPDF(path)
	case FormatDocx:
		title, text, err = extractDocx(path)
	case FormatHTML:
		title, text, err = extractHTMLFile(path)
	default:
		return nil, fmt.Errorf("no parser for format: %s", format)
	}

	if err != nil {
		return nil, fmt.Errorf("convert %s (%s): %w", path, format, err)
	}

	text = Scrub(text)
	if text == "" {
		return nil, fmt.Errorf("convert %s (%s): no text content", path, format)
	}

	if quality != nil && quality.Suspect() {
		p.logger.Warn("suspect extraction",
			"path", path,
			"chars_per_page", quality.CharsPerPage,
			"printable_ratio", quality.PrintableRatio,
			"needs_ocr", quality.NeedsOCR())
	}

	return &Document{
		Path:    path,
		Format:  format,
		Title:   Scrub(title),
		Text:    text,
		Quality: quality,
	}, nil
}

// SupportedExtensions returns the file extensions the pipeline can convert,
// lowercase with the leading dot.
func SupportedExtensions() []string {
	return []string{".txt", ".pdf", ".docx", ".html", ".htm"}
}
